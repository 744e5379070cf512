package attachment

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// KeyPrefix namespaces every attachment key in the bucket.
const KeyPrefix = "events"

// KeyCodec maps between store-relative keys and the public-style URLs that
// are persisted on events. It is the single place that decides whether a
// stored URL belongs to the configured store.
type KeyCodec struct {
	base *url.URL
}

// NewKeyCodec builds a codec for objects living under baseURL, e.g.
// https://s3.example.com/health-records.
func NewKeyCodec(baseURL string) (*KeyCodec, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse store base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("store base url %q must be absolute", baseURL)
	}
	base.RawQuery = ""
	base.Fragment = ""
	base.RawPath = ""
	return &KeyCodec{base: base}, nil
}

// BaseURL returns the URL prefix the codec recognizes.
func (c *KeyCodec) BaseURL() string {
	return c.base.String()
}

// cleanFileName reduces a client supplied name to its final path element.
// It returns "" when nothing usable remains.
func cleanFileName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	name = path.Base(name)
	switch name {
	case ".", "..", "/":
		return ""
	}
	return name
}

// OwnerPrefix is the key namespace of all objects belonging to ownerID.
func (c *KeyCodec) OwnerPrefix(ownerID string) string {
	return KeyPrefix + "/" + ownerID + "/"
}

// DeriveKey joins the prefix, owner and file name into a key. Two uploads of
// the same name for the same owner share a key.
func (c *KeyCodec) DeriveKey(ownerID, fileName string) string {
	return c.OwnerPrefix(ownerID) + cleanFileName(fileName)
}

// FileURL expresses key as the public-style URL stored on events.
func (c *KeyCodec) FileURL(key string) string {
	u := *c.base
	u.Path = c.base.Path + "/" + key
	return u.String()
}

// ParseKey extracts the key from a stored URL. The boolean is false when the
// URL is not one of ours: unparseable, a different host, outside the base
// path or outside the attachment namespace. Callers treat that as nothing to
// act on.
func (c *KeyCodec) ParseKey(rawURL string) (string, bool) {
	if rawURL == "" {
		return "", false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	if !strings.EqualFold(u.Scheme, c.base.Scheme) || !strings.EqualFold(u.Host, c.base.Host) {
		return "", false
	}

	key, ok := strings.CutPrefix(u.Path, c.base.Path+"/")
	if !ok {
		return "", false
	}
	if _, ok := splitKey(key); !ok {
		return "", false
	}
	return key, true
}

// OwnsKey reports whether key is a well-formed key inside ownerID's
// namespace. Keys with empty, "." or ".." segments never qualify.
func (c *KeyCodec) OwnsKey(ownerID, key string) bool {
	owner, ok := splitKey(key)
	return ok && owner == ownerID
}

// splitKey checks that key has the shape events/<owner>/<name> and returns
// the owner.
func splitKey(key string) (string, bool) {
	parts := strings.Split(key, "/")
	if len(parts) < 3 || parts[0] != KeyPrefix {
		return "", false
	}
	for _, part := range parts[1:] {
		switch part {
		case "", ".", "..":
			return "", false
		}
	}
	return parts[1], true
}
