package server

import (
	"net/http"
	"strings"
	"time"

	"healthtrack/internal/attachment"
	"healthtrack/internal/records"
)

func scopeOf(r *http.Request) attachment.Scope {
	return attachment.Scope{
		UserID:  userID(r),
		TrackID: r.PathValue("trackId"),
		EventID: r.PathValue("eventId"),
	}
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, r, &attachment.ValidationError{Field: "title", Message: "title is required"})
		return
	}
	if req.Type == "" {
		req.Type = records.EventNote
	}
	if !req.Type.Valid() {
		writeError(w, r, &attachment.ValidationError{Field: "type", Message: "type " + string(req.Type) + " is not a known event type"})
		return
	}

	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}

	event, err := s.cfg.Records.CreateEvent(r.Context(), userID(r), r.PathValue("trackId"), records.NewEvent{
		Title:      title,
		Type:       req.Type,
		Notes:      req.Notes,
		OccurredAt: occurredAt,
	})
	if err != nil {
		writeError(w, r, notFoundAs(err, "Track not found"))
		return
	}

	writeJSON(w, http.StatusCreated, s.eventResponse(r.Context(), event))
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.cfg.Records.ListEvents(r.Context(), userID(r), r.PathValue("trackId"))
	if err != nil {
		writeError(w, r, notFoundAs(err, "Track not found"))
		return
	}

	out := make([]eventJSON, 0, len(events))
	for i := range events {
		out = append(out, s.eventResponse(r.Context(), &events[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	event, err := s.cfg.Records.GetEvent(r.Context(), scope.UserID, scope.TrackID, scope.EventID)
	if err != nil {
		writeError(w, r, notFoundAs(err, "Event not found"))
		return
	}
	writeJSON(w, http.StatusOK, s.eventResponse(r.Context(), event))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Attachments.DeleteEvent(r.Context(), scopeOf(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIssueUpload(w http.ResponseWriter, r *http.Request) {
	var req attachment.UploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	grant, err := s.cfg.Attachments.IssueUpload(r.Context(), scopeOf(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

func (s *Server) handleConfirmUpload(w http.ResponseWriter, r *http.Request) {
	var req attachment.ConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	event, err := s.cfg.Attachments.ConfirmUpload(r.Context(), scopeOf(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.eventResponse(r.Context(), event))
}

func (s *Server) handleDetachAttachment(w http.ResponseWriter, r *http.Request) {
	event, err := s.cfg.Attachments.DetachAttachment(r.Context(), scopeOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.eventResponse(r.Context(), event))
}

