package objectstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	expiresParam     = "X-Expires"
	signatureParam   = "X-Signature"
	localObjectsDir  = "objects"
	localUploadsDir  = "uploads"
	defaultMediaType = "application/octet-stream"
)

// LocalConfig configures a LocalStore.
type LocalConfig struct {
	// Root is the directory holding object payloads and temporary uploads.
	Root string
	// BaseURL is the externally reachable URL at which Handler is mounted,
	// for example http://localhost:8080/objects.
	BaseURL string
	// Secret keys the HMAC used to sign upload and read URLs.
	Secret []byte
	// MaxObjectBytes bounds accepted uploads. Zero means unlimited.
	MaxObjectBytes int64
	// Now overrides the clock used for signing and expiry checks.
	Now func() time.Time
}

// LocalStore keeps objects on the local filesystem and hands out
// HMAC-signed URLs that are honoured by its own Handler. It is meant for
// development setups where no S3-compatible service is available.
type LocalStore struct {
	root    string
	base    *url.URL
	secret  []byte
	maxSize int64
	now     func() time.Time
}

// NewLocalStore creates the storage directories under cfg.Root.
func NewLocalStore(cfg LocalConfig) (*LocalStore, error) {
	if cfg.Root == "" {
		return nil, errors.New("local store: root must not be empty")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("local store: signing secret must not be empty")
	}

	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("local store: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("local store: base url %q must be absolute", cfg.BaseURL)
	}

	for _, dir := range []string{localObjectsDir, localUploadsDir} {
		if err := os.MkdirAll(filepath.Join(cfg.Root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("local store: create %s dir: %w", dir, err)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &LocalStore{
		root:    cfg.Root,
		base:    base,
		secret:  cfg.Secret,
		maxSize: cfg.MaxObjectBytes,
		now:     now,
	}, nil
}

// BaseURL returns the public-style URL prefix under which object keys live.
func (s *LocalStore) BaseURL() string {
	return s.base.String()
}

// objectPath maps a key onto the filesystem. Cleaning the key as an absolute
// path strips any ".." elements so the result always stays below root.
func (s *LocalStore) objectPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, localObjectsDir, filepath.FromSlash(clean)), nil
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func stringToSign(method, key string, expires int64, contentType string) string {
	return strings.Join([]string{method, key, strconv.FormatInt(expires, 10), contentType}, "\n")
}

func (s *LocalStore) signedURL(method, key, contentType string, ttl time.Duration) (string, error) {
	if _, err := s.objectPath(key); err != nil {
		return "", err
	}
	if ttl <= 0 {
		return "", fmt.Errorf("invalid expiry %s", ttl)
	}

	expires := s.now().Add(ttl).Unix()
	signature := hmacSHA256(s.secret, stringToSign(method, key, expires, contentType))

	q := url.Values{}
	q.Set(expiresParam, strconv.FormatInt(expires, 10))
	q.Set(signatureParam, hex.EncodeToString(signature))

	u := *s.base
	u.Path = s.base.Path + "/" + key
	u.RawPath = ""
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// verify checks a signature produced by signedURL.
func (s *LocalStore) verify(method, key, contentType string, q url.Values) error {
	expires, err := strconv.ParseInt(q.Get(expiresParam), 10, 64)
	if err != nil {
		return errors.New("missing or malformed expiry")
	}
	if s.now().Unix() > expires {
		return errors.New("request has expired")
	}

	given, err := hex.DecodeString(q.Get(signatureParam))
	if err != nil || len(given) == 0 {
		return errors.New("missing or malformed signature")
	}

	expected := hmacSHA256(s.secret, stringToSign(method, key, expires, contentType))
	if !hmac.Equal(expected, given) {
		return errors.New("signature does not match")
	}
	return nil
}

func (s *LocalStore) SignUpload(ctx context.Context, key string, contentType string, ttl time.Duration) (string, error) {
	return s.signedURL("PUT", key, contentType, ttl)
}

func (s *LocalStore) SignRead(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.signedURL("GET", key, "", ttl)
}

func (s *LocalStore) HeadObject(ctx context.Context, key string) (ObjectInfo, error) {
	objPath, err := s.objectPath(key)
	if err != nil {
		return ObjectInfo{}, err
	}

	info, err := os.Stat(objPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectInfo{}, fmt.Errorf("stat %q: %w", key, ErrNotExist)
		}
		return ObjectInfo{}, fmt.Errorf("stat %q: %w", key, err)
	}
	if !info.Mode().IsRegular() {
		return ObjectInfo{}, fmt.Errorf("stat %q: %w", key, ErrNotExist)
	}

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = defaultMediaType
	}

	return ObjectInfo{
		Key:          key,
		Size:         info.Size(),
		ContentType:  contentType,
		LastModified: info.ModTime().UTC(),
	}, nil
}

func (s *LocalStore) DeleteObject(ctx context.Context, key string) error {
	objPath, err := s.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(objPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}
