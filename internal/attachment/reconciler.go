package attachment

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"healthtrack/internal/objectstore"
	"healthtrack/internal/records"
)

// ConfirmRequest is the client's claim that an upload has landed.
type ConfirmRequest struct {
	FileURL string `json:"fileUrl"`
	Key     string `json:"key"`
}

// Reconciler turns an out-of-band upload into a persisted attachment, but
// only after the store confirms the object exists.
type Reconciler struct {
	store  objectstore.Store
	codec  *KeyCodec
	repo   Repository
	logger *slog.Logger
}

func NewReconciler(store objectstore.Store, codec *KeyCodec, repo Repository, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, codec: codec, repo: repo, logger: logger}
}

// Confirm probes the store for req.Key and, if the object is there, writes
// req.FileURL onto the event. The write overwrites any previous attachment
// unconditionally; concurrent confirmations are last-write-wins.
func (r *Reconciler) Confirm(ctx context.Context, scope Scope, req ConfirmRequest) (*records.Event, error) {
	fileURL := strings.TrimSpace(req.FileURL)
	key := strings.TrimSpace(req.Key)
	if fileURL == "" {
		return nil, validationErrorf("fileUrl", "fileUrl is required")
	}
	if key == "" {
		return nil, validationErrorf("key", "key is required")
	}

	event, err := loadEvent(ctx, r.repo, scope)
	if err != nil {
		return nil, err
	}

	if !r.codec.OwnsKey(event.ID, key) {
		return nil, validationErrorf("key", "key does not belong to this event")
	}
	if parsed, ok := r.codec.ParseKey(fileURL); !ok || parsed != key {
		return nil, validationErrorf("fileUrl", "fileUrl does not match key")
	}

	if _, err := r.store.HeadObject(ctx, key); err != nil {
		if !errors.Is(err, objectstore.ErrNotExist) {
			r.logger.Warn("Existence probe failed", "key", key, "err", err)
		}
		return nil, &NotFoundError{Message: FileNotFoundMessage, Err: err}
	}

	updated, err := r.repo.UpdateEventFileURL(ctx, event.ID, &fileURL)
	if err != nil {
		return nil, translateRepoError("store attachment", err)
	}

	r.logger.Info("Attachment confirmed", "event", event.ID, "key", key)
	return updated, nil
}
