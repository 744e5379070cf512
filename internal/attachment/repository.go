package attachment

import (
	"context"
	"errors"

	"healthtrack/internal/records"
)

// Scope identifies an event as seen by an authenticated user.
type Scope struct {
	UserID  string
	TrackID string
	EventID string
}

// Repository is the persistence the attachment core needs. Implementations
// return records.ErrNotFound for absent or foreign records.
type Repository interface {
	GetEvent(ctx context.Context, userID, trackID, eventID string) (*records.Event, error)
	UpdateEventFileURL(ctx context.Context, eventID string, fileURL *string) (*records.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	ListEvents(ctx context.Context, userID, trackID string) ([]records.Event, error)
	DeleteTrack(ctx context.Context, userID, trackID string) error
}

// loadEvent fetches the event in scope, translating repository failures into
// the attachment error taxonomy.
func loadEvent(ctx context.Context, repo Repository, scope Scope) (*records.Event, error) {
	event, err := repo.GetEvent(ctx, scope.UserID, scope.TrackID, scope.EventID)
	if err != nil {
		return nil, translateRepoError("load event", err)
	}
	return event, nil
}

func translateRepoError(op string, err error) error {
	if errors.Is(err, records.ErrNotFound) {
		return &NotFoundError{Message: "Event not found", Err: err}
	}
	return &PersistenceError{Op: op, Err: err}
}

func translateTrackError(op string, err error) error {
	if errors.Is(err, records.ErrNotFound) {
		return &NotFoundError{Message: "Track not found", Err: err}
	}
	return &PersistenceError{Op: op, Err: err}
}
