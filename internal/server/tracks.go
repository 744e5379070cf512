package server

import (
	"errors"
	"net/http"
	"strings"

	"healthtrack/internal/attachment"
	"healthtrack/internal/auth"
	"healthtrack/internal/records"
)

func userID(r *http.Request) string {
	if user := auth.UserFromContext(r.Context()); user != nil {
		return user.ID
	}
	return ""
}

func (s *Server) handleCreateTrack(w http.ResponseWriter, r *http.Request) {
	var req createTrackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, r, &attachment.ValidationError{Field: "name", Message: "name is required"})
		return
	}

	track, err := s.cfg.Records.CreateTrack(r.Context(), userID(r), records.NewTrack{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newTrackJSON(track))
}

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.cfg.Records.ListTracks(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]trackJSON, 0, len(tracks))
	for i := range tracks {
		out = append(out, newTrackJSON(&tracks[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	track, err := s.cfg.Records.GetTrack(r.Context(), userID(r), r.PathValue("trackId"))
	if err != nil {
		writeError(w, r, notFoundAs(err, "Track not found"))
		return
	}
	writeJSON(w, http.StatusOK, newTrackJSON(track))
}

// handleDeleteTrack removes a track with its events. Attachment cleanup is
// best effort and never fails the request.
func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Attachments.DeleteTrack(r.Context(), userID(r), r.PathValue("trackId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// notFoundAs gives records.ErrNotFound a message naming what was missing.
func notFoundAs(err error, message string) error {
	if errors.Is(err, records.ErrNotFound) {
		return &attachment.NotFoundError{Message: message, Err: err}
	}
	return err
}
