package objectstore

import (
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// S3Error mirrors the XML error body returned by S3-compatible services, so
// clients written against a real bucket see the same failure shape.
type S3Error struct {
	XMLName  xml.Name `xml:"Error"`
	Code     string   `xml:"Code"`
	Message  string   `xml:"Message"`
	Resource string   `xml:"Resource"`
}

func writeS3Error(w http.ResponseWriter, code string, message string, resource string, status int) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_ = xml.NewEncoder(w).Encode(S3Error{
		Code:     code,
		Message:  message,
		Resource: resource,
	})
}

// Handler serves the URLs produced by SignUpload and SignRead. It must be
// mounted at the path of the configured base URL.
func (s *LocalStore) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("PUT /{key...}", func(w http.ResponseWriter, r *http.Request) {
		s.handlePut(w, r, r.PathValue("key"))
	})
	mux.HandleFunc("GET /{key...}", func(w http.ResponseWriter, r *http.Request) {
		s.handleGet(w, r, r.PathValue("key"))
	})

	return http.StripPrefix(s.base.Path, mux)
}

func (s *LocalStore) handlePut(w http.ResponseWriter, r *http.Request, key string) {
	defer r.Body.Close()

	objPath, err := s.objectPath(key)
	if err != nil {
		writeS3Error(w, "InvalidRequest", "Invalid object key", r.URL.Path, http.StatusBadRequest)
		return
	}

	if err := s.verify(http.MethodPut, key, r.Header.Get("Content-Type"), r.URL.Query()); err != nil {
		slog.Warn("Rejected signed upload", "key", key, "err", err)
		writeS3Error(w, "AccessDenied", "Access Denied", r.URL.Path, http.StatusForbidden)
		return
	}

	if s.maxSize > 0 {
		if r.ContentLength > s.maxSize {
			writeS3Error(w, "EntityTooLarge", "Your proposed upload exceeds the maximum allowed size", r.URL.Path, http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.maxSize)
	}

	tmpFile, err := os.CreateTemp(filepath.Join(s.root, localUploadsDir), "upload-*")
	if err != nil {
		slog.Error("Error creating temp file for upload", "err", err)
		writeS3Error(w, "InternalError", "We encountered an internal error. Please try again.", r.URL.Path, http.StatusInternalServerError)
		return
	}
	defer func() {
		_ = tmpFile.Close()
		// If the payload was moved into place this just fails with ENOENT.
		if err := os.Remove(tmpFile.Name()); err != nil && !os.IsNotExist(err) {
			slog.Debug("Failed to remove temp upload file", "path", tmpFile.Name(), "err", err)
		}
	}()

	if _, err := io.Copy(tmpFile, r.Body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeS3Error(w, "EntityTooLarge", "Your proposed upload exceeds the maximum allowed size", r.URL.Path, http.StatusRequestEntityTooLarge)
			return
		}
		slog.Error("Read upload body", "key", key, "err", err)
		writeS3Error(w, "IncompleteBody", "Failed to read request body", r.URL.Path, http.StatusBadRequest)
		return
	}
	if err := tmpFile.Close(); err != nil {
		slog.Error("Close temp upload file", "path", tmpFile.Name(), "err", err)
		writeS3Error(w, "InternalError", "We encountered an internal error. Please try again.", r.URL.Path, http.StatusInternalServerError)
		return
	}

	if err := os.MkdirAll(filepath.Dir(objPath), 0o755); err != nil {
		slog.Error("Create object directory", "key", key, "err", err)
		writeS3Error(w, "InternalError", "We encountered an internal error. Please try again.", r.URL.Path, http.StatusInternalServerError)
		return
	}
	if err := moveFile(tmpFile.Name(), objPath); err != nil {
		slog.Error("Store object payload", "key", key, "err", err)
		writeS3Error(w, "InternalError", "We encountered an internal error. Please try again.", r.URL.Path, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *LocalStore) handleGet(w http.ResponseWriter, r *http.Request, key string) {
	objPath, err := s.objectPath(key)
	if err != nil {
		writeS3Error(w, "InvalidRequest", "Invalid object key", r.URL.Path, http.StatusBadRequest)
		return
	}

	// HEAD requests are routed here too and share the GET signature.
	if err := s.verify(http.MethodGet, key, "", r.URL.Query()); err != nil {
		writeS3Error(w, "AccessDenied", "Access Denied", r.URL.Path, http.StatusForbidden)
		return
	}

	f, err := os.Open(objPath)
	if err != nil {
		if os.IsNotExist(err) {
			writeS3Error(w, "NoSuchKey", "The specified key does not exist.", r.URL.Path, http.StatusNotFound)
			return
		}
		slog.Error("Open object payload", "key", key, "err", err)
		writeS3Error(w, "InternalError", "We encountered an internal error. Please try again.", r.URL.Path, http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		writeS3Error(w, "NoSuchKey", "The specified key does not exist.", r.URL.Path, http.StatusNotFound)
		return
	}

	http.ServeContent(w, r, filepath.Base(objPath), info.ModTime(), f)
}
