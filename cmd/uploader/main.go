package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// getenv returns the value of the environment variable named by key or
// fallback if the variable is not present.
func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// Client drives the attachment endpoints of a healthtrack server.
type Client struct {
	BaseURL  string
	User     string
	Password string
	HTTP     *http.Client
}

type uploadGrant struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"uploadUrl"`
	FileURL   string    `json:"fileUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
	MaxSize   int64     `json:"maxSize"`
}

type event struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	FileURL *string `json:"fileUrl"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) call(ctx context.Context, method, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(c.BaseURL, "/")+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.User, c.Password)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response (status %d): %w", method, path, resp.StatusCode, err)
	}
	if !env.Success {
		return fmt.Errorf("%s %s: %s (status %d)", method, path, env.Error, resp.StatusCode)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func eventPath(trackID, eventID string) string {
	return "/api/tracks/" + trackID + "/events/" + eventID
}

// RequestUpload asks the server for a signed upload URL.
func (c *Client) RequestUpload(ctx context.Context, trackID, eventID, fileName, contentType string, size int64) (*uploadGrant, error) {
	var grant uploadGrant
	err := c.call(ctx, http.MethodPost, eventPath(trackID, eventID)+"/upload-url", map[string]any{
		"fileName":    fileName,
		"contentType": contentType,
		"size":        size,
	}, &grant)
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// PutFile sends content straight to the object store.
func (c *Client) PutFile(ctx context.Context, uploadURL, contentType string, content []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload: store answered %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

// Confirm tells the server the upload landed.
func (c *Client) Confirm(ctx context.Context, trackID, eventID string, grant *uploadGrant) (*event, error) {
	var out event
	err := c.call(ctx, http.MethodPost, eventPath(trackID, eventID)+"/confirm-upload", map[string]string{
		"fileUrl": grant.FileURL,
		"key":     grant.Key,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func contentTypeFor(path string, content []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return mediaType
		}
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(content))
	return mediaType
}

// Attach uploads the file at path and attaches it to the event.
func Attach(ctx context.Context, client *Client, trackID, eventID, path string) (*event, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	contentType := contentTypeFor(path, content)
	fileName := filepath.Base(path)
	log := slog.With("file", fileName, "content_type", contentType, "size", humanize.IBytes(uint64(len(content))))

	grant, err := client.RequestUpload(ctx, trackID, eventID, fileName, contentType, int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to request upload url: %w", err)
	}
	log.Info("Received upload url", "key", grant.Key, "expires", humanize.Time(grant.ExpiresAt))

	if err := client.PutFile(ctx, grant.UploadURL, contentType, content); err != nil {
		return nil, err
	}
	log.Info("Uploaded file to storage")

	ev, err := client.Confirm(ctx, trackID, eventID, grant)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm upload: %w", err)
	}
	return ev, nil
}

func main() {
	trackID := flag.String("track", "", "track id")
	eventID := flag.String("event", "", "event id")
	flag.Parse()

	client := &Client{
		BaseURL:  getenv("HEALTHTRACK_URL", "http://localhost:8080"),
		User:     getenv("HEALTHTRACK_USER", "demo"),
		Password: getenv("HEALTHTRACK_PASSWORD", "demo"),
		HTTP:     &http.Client{Timeout: 2 * time.Minute},
	}

	if *trackID == "" || *eventID == "" || flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: uploader -track <id> -event <id> <file>")
		os.Exit(2)
	}

	ev, err := Attach(context.Background(), client, *trackID, *eventID, flag.Arg(0))
	if err != nil {
		slog.Error("error attaching file", "err", err)
		os.Exit(1)
	}
	if ev.FileURL == nil {
		slog.Error("error attaching file", "err", errors.New("server returned an event without a file url"))
		os.Exit(1)
	}

	slog.Info("Attached file", "event", ev.ID, "url", *ev.FileURL)
}
