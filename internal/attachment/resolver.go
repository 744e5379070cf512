package attachment

import (
	"context"
	"log/slog"
	"time"

	"healthtrack/internal/objectstore"
)

// ReadURLTTL bounds how long a resolved read URL stays valid.
const ReadURLTTL = time.Hour

// Resolution is the outcome of turning a stored URL into a readable one. Err
// is informational only: URL is always usable as a response value.
type Resolution struct {
	URL    string
	Key    string
	Signed bool
	Err    error
}

// Resolver converts stored attachment URLs into short-lived signed read URLs.
// It never fails a read: on any problem the stored URL is passed through.
type Resolver struct {
	store   objectstore.Store
	codec   *KeyCodec
	ttl     time.Duration
	logger  *slog.Logger
	swallow *SwallowedFailures
}

func NewResolver(store objectstore.Store, codec *KeyCodec, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, codec: codec, ttl: ReadURLTTL, logger: logger}
}

// TryResolve reports how storedURL resolves without logging.
func (r *Resolver) TryResolve(ctx context.Context, storedURL string) Resolution {
	key, ok := r.codec.ParseKey(storedURL)
	if !ok {
		return Resolution{URL: storedURL}
	}

	signed, err := r.store.SignRead(ctx, key, r.ttl)
	if err != nil {
		return Resolution{
			URL: storedURL,
			Key: key,
			Err: &UpstreamStorageError{Op: "sign read", Key: key, Err: err},
		}
	}
	return Resolution{URL: signed, Key: key, Signed: true}
}

// Resolve returns a URL the caller can hand to a client. Signing failures are
// logged and answered with storedURL unchanged.
func (r *Resolver) Resolve(ctx context.Context, storedURL string) string {
	res := r.TryResolve(ctx, storedURL)
	if res.Err != nil {
		r.logger.Warn("Falling back to stored attachment URL", "key", res.Key, "err", res.Err)
		r.swallow.Inc("sign_read")
	}
	return res.URL
}

// ResolvePtr resolves an optional stored URL, keeping nil as nil.
func (r *Resolver) ResolvePtr(ctx context.Context, storedURL *string) *string {
	if storedURL == nil || *storedURL == "" {
		return storedURL
	}
	resolved := r.Resolve(ctx, *storedURL)
	return &resolved
}
