package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"healthtrack/internal/records"
)

// RecordStore is the track and event persistence used by the HTTP layer.
// Deletions go through the attachment service instead.
type RecordStore interface {
	CreateTrack(ctx context.Context, userID string, in records.NewTrack) (*records.Track, error)
	ListTracks(ctx context.Context, userID string) ([]records.Track, error)
	GetTrack(ctx context.Context, userID, trackID string) (*records.Track, error)
	CreateEvent(ctx context.Context, userID, trackID string, in records.NewEvent) (*records.Event, error)
	ListEvents(ctx context.Context, userID, trackID string) ([]records.Event, error)
	GetEvent(ctx context.Context, userID, trackID, eventID string) (*records.Event, error)
}

// Server exposes tracks, events and their attachments as a JSON API.
type Server struct {
	cfg Config
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Records == nil {
		return nil, errors.New("server: record store is required")
	}
	if cfg.Attachments == nil {
		return nil, errors.New("server: attachment service is required")
	}
	if cfg.Authenticator == nil {
		return nil, errors.New("server: auth engine is required")
	}
	if cfg.Objects != nil && !strings.HasSuffix(cfg.ObjectsPath, "/") {
		return nil, errors.New("server: object handler path must end in a slash")
	}
	return &Server{cfg: cfg}, nil
}

// Handler returns the root http.Handler with logging and recovery applied.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("POST /api/tracks", s.handleCreateTrack)
	api.HandleFunc("GET /api/tracks", s.handleListTracks)
	api.HandleFunc("GET /api/tracks/{trackId}", s.handleGetTrack)
	api.HandleFunc("DELETE /api/tracks/{trackId}", s.handleDeleteTrack)

	api.HandleFunc("POST /api/tracks/{trackId}/events", s.handleCreateEvent)
	api.HandleFunc("GET /api/tracks/{trackId}/events", s.handleListEvents)
	api.HandleFunc("GET /api/tracks/{trackId}/events/{eventId}", s.handleGetEvent)
	api.HandleFunc("DELETE /api/tracks/{trackId}/events/{eventId}", s.handleDeleteEvent)

	// Attachments
	api.HandleFunc("POST /api/tracks/{trackId}/events/{eventId}/upload-url", s.handleIssueUpload)
	api.HandleFunc("POST /api/tracks/{trackId}/events/{eventId}/confirm-upload", s.handleConfirmUpload)
	api.HandleFunc("DELETE /api/tracks/{trackId}/events/{eventId}/attachment", s.handleDetachAttachment)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("/api/", SlashFix(RequireAuthentication(s.cfg.Authenticator)(api)))

	if s.cfg.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.Metrics, promhttp.HandlerOpts{}))
	}
	if s.cfg.Objects != nil {
		mux.Handle(s.cfg.ObjectsPath, s.cfg.Objects)
	}

	return LogRequest(Recoverer(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
