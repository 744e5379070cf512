package attachment

import (
	"context"
	"log/slog"

	"healthtrack/internal/objectstore"
	"healthtrack/internal/records"
)

// CleanupOutcome is the result of a best-effort object removal. It is
// logged by the caller and never returned as an error.
type CleanupOutcome struct {
	FileURL   string
	Key       string
	Attempted bool
	Err       error
}

// Failed reports whether a delete was attempted and did not succeed.
func (o CleanupOutcome) Failed() bool {
	return o.Attempted && o.Err != nil
}

// Lifecycle detaches and deletes attachments.
type Lifecycle struct {
	store   objectstore.Store
	codec   *KeyCodec
	repo    Repository
	logger  *slog.Logger
	swallow *SwallowedFailures
}

func NewLifecycle(store objectstore.Store, codec *KeyCodec, repo Repository, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{store: store, codec: codec, repo: repo, logger: logger}
}

// Detach removes the attachment of an event. Unlike the cascading deletes,
// a storage failure here is returned: removing the file is the whole point.
func (l *Lifecycle) Detach(ctx context.Context, scope Scope) (*records.Event, error) {
	event, err := loadEvent(ctx, l.repo, scope)
	if err != nil {
		return nil, err
	}
	if !event.HasAttachment() {
		return nil, validationErrorf("", "No attachment to delete")
	}

	key, ok := l.codec.ParseKey(*event.FileURL)
	if !ok {
		return nil, validationErrorf("fileUrl", "Invalid file URL")
	}

	if err := l.store.DeleteObject(ctx, key); err != nil {
		return nil, &UpstreamStorageError{Op: "delete", Key: key, Err: err}
	}

	updated, err := l.repo.UpdateEventFileURL(ctx, event.ID, nil)
	if err != nil {
		return nil, translateRepoError("clear attachment", err)
	}

	l.logger.Info("Attachment detached", "event", event.ID, "key", key)
	return updated, nil
}

// cleanup removes the object behind fileURL if it is one of ours. It never
// fails; the outcome says what happened.
func (l *Lifecycle) cleanup(ctx context.Context, fileURL *string) CleanupOutcome {
	if fileURL == nil || *fileURL == "" {
		return CleanupOutcome{}
	}

	out := CleanupOutcome{FileURL: *fileURL}
	key, ok := l.codec.ParseKey(*fileURL)
	if !ok {
		return out
	}

	out.Key = key
	out.Attempted = true
	if err := l.store.DeleteObject(ctx, key); err != nil {
		out.Err = &UpstreamStorageError{Op: "delete", Key: key, Err: err}
	}
	return out
}

func (l *Lifecycle) logOutcome(out CleanupOutcome, eventID string) {
	if out.Failed() {
		l.logger.Warn("Attachment cleanup failed, continuing", "event", eventID, "key", out.Key, "err", out.Err)
		l.swallow.Inc("delete")
		return
	}
	if out.Attempted {
		l.logger.Debug("Attachment removed", "event", eventID, "key", out.Key)
	}
}

// DeleteEventAndAttachment deletes an event, first trying to remove its
// attachment from the store. Storage failures never stop the deletion.
func (l *Lifecycle) DeleteEventAndAttachment(ctx context.Context, scope Scope) error {
	event, err := loadEvent(ctx, l.repo, scope)
	if err != nil {
		return err
	}

	l.logOutcome(l.cleanup(ctx, event.FileURL), event.ID)

	if err := l.repo.DeleteEvent(ctx, event.ID); err != nil {
		return translateRepoError("delete event", err)
	}
	return nil
}

// DeleteTrackAndAttachments deletes a track with all its events, removing
// each event's attachment on a best-effort basis.
func (l *Lifecycle) DeleteTrackAndAttachments(ctx context.Context, userID, trackID string) error {
	events, err := l.repo.ListEvents(ctx, userID, trackID)
	if err != nil {
		return translateTrackError("list events", err)
	}

	for i := range events {
		l.logOutcome(l.cleanup(ctx, events[i].FileURL), events[i].ID)
	}

	if err := l.repo.DeleteTrack(ctx, userID, trackID); err != nil {
		return translateTrackError("delete track", err)
	}
	return nil
}
