package server

import (
	"context"
	"time"

	"healthtrack/internal/records"
)

type trackJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newTrackJSON(t *records.Track) trackJSON {
	return trackJSON{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// eventJSON is the wire form of an event. FileURL is always the resolved,
// readable URL, never the stored one.
type eventJSON struct {
	ID         string            `json:"id"`
	TrackID    string            `json:"trackId"`
	Title      string            `json:"title"`
	Type       records.EventType `json:"type"`
	Notes      string            `json:"notes"`
	OccurredAt time.Time         `json:"occurredAt"`
	FileURL    *string           `json:"fileUrl"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

func (s *Server) eventResponse(ctx context.Context, e *records.Event) eventJSON {
	return eventJSON{
		ID:         e.ID,
		TrackID:    e.TrackID,
		Title:      e.Title,
		Type:       e.Type,
		Notes:      e.Notes,
		OccurredAt: e.OccurredAt,
		FileURL:    s.cfg.Attachments.ResolveFileURL(ctx, e.FileURL),
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

type createTrackRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createEventRequest struct {
	Title      string            `json:"title"`
	Type       records.EventType `json:"type"`
	Notes      string            `json:"notes"`
	OccurredAt *time.Time        `json:"occurredAt"`
}
