package attachment

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"healthtrack/internal/objectstore"
)

const (
	// MaxFileSize is the byte ceiling advertised to clients (10 MiB).
	MaxFileSize int64 = 10 * 1024 * 1024

	// UploadURLTTL bounds how long an issued upload URL stays valid. Expiry
	// is enforced by the object store, not by this service.
	UploadURLTTL = 15 * time.Minute
)

var allowedContentTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/heic",
	"text/plain",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// AllowedContentTypes returns a copy of the content types accepted for
// attachments.
func AllowedContentTypes() []string {
	return slices.Clone(allowedContentTypes)
}

// IsAllowedContentType reports whether contentType may be uploaded.
func IsAllowedContentType(contentType string) bool {
	return slices.Contains(allowedContentTypes, contentType)
}

// UploadRequest is what a client asks to upload.
type UploadRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// UploadAuthorization grants a client one direct upload to the store. It is
// never persisted.
type UploadAuthorization struct {
	Key                 string    `json:"key"`
	UploadURL           string    `json:"uploadUrl"`
	FileURL             string    `json:"fileUrl"`
	ExpiresAt           time.Time `json:"expiresAt"`
	MaxSize             int64     `json:"maxSize"`
	AllowedContentTypes []string  `json:"allowedContentTypes"`
}

// Issuer validates upload requests and signs upload URLs.
type Issuer struct {
	store objectstore.Store
	codec *KeyCodec
	ttl   time.Duration
	now   func() time.Time
}

func NewIssuer(store objectstore.Store, codec *KeyCodec) *Issuer {
	return &Issuer{
		store: store,
		codec: codec,
		ttl:   UploadURLTTL,
		now:   time.Now,
	}
}

// Validate checks an upload request. Checks run in a fixed order and the
// first failure is returned.
func Validate(req UploadRequest) error {
	if cleanFileName(req.FileName) == "" {
		return validationErrorf("fileName", "fileName is required")
	}
	if !IsAllowedContentType(strings.TrimSpace(req.ContentType)) {
		return validationErrorf("contentType", "contentType %q is not allowed; allowed types: %s",
			req.ContentType, strings.Join(allowedContentTypes, ", "))
	}
	if req.Size < 0 {
		return validationErrorf("size", "size must not be negative")
	}
	if req.Size > MaxFileSize {
		return validationErrorf("size", "size %s exceeds the maximum of %s",
			humanize.IBytes(uint64(req.Size)), humanize.IBytes(uint64(MaxFileSize)))
	}
	return nil
}

// Issue authorizes one upload for ownerID. Nothing is written anywhere.
func (i *Issuer) Issue(ctx context.Context, ownerID string, req UploadRequest) (*UploadAuthorization, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	contentType := strings.TrimSpace(req.ContentType)
	key := i.codec.DeriveKey(ownerID, req.FileName)

	expiresAt := i.now().Add(i.ttl).UTC()
	uploadURL, err := i.store.SignUpload(ctx, key, contentType, i.ttl)
	if err != nil {
		return nil, &UpstreamStorageError{Op: "sign upload", Key: key, Err: err}
	}

	return &UploadAuthorization{
		Key:                 key,
		UploadURL:           uploadURL,
		FileURL:             i.codec.FileURL(key),
		ExpiresAt:           expiresAt,
		MaxSize:             MaxFileSize,
		AllowedContentTypes: AllowedContentTypes(),
	}, nil
}
