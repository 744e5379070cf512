package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"

	"healthtrack/internal/attachment"
	"healthtrack/internal/records"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: false, Error: message}); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// writeError maps the attachment error taxonomy onto HTTP statuses. Only
// validation and not-found messages are shown to clients verbatim.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *attachment.ValidationError
		nerr *attachment.NotFoundError
		uerr *attachment.UpstreamStorageError
	)

	switch {
	case errors.As(err, &verr):
		writeJSONError(w, http.StatusBadRequest, verr.Message)
	case errors.As(err, &nerr):
		writeJSONError(w, http.StatusNotFound, nerr.Message)
	case errors.Is(err, records.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "Not found")
	case errors.As(err, &uerr):
		slog.Error("Storage request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadGateway, "Storage service unavailable")
	default:
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &attachment.ValidationError{Message: "Request body is required"}
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &attachment.ValidationError{
				Field:   typeErr.Field,
				Message: fmt.Sprintf("%s must be %s", typeErr.Field, jsonKind(typeErr.Type)),
			}
		}
		return &attachment.ValidationError{Message: "Invalid JSON body"}
	}
	return nil
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.Map, reflect.Struct:
		return "an object"
	case reflect.Pointer:
		return jsonKind(t.Elem())
	default:
		return "a valid value"
	}
}
