package records

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var (
	//go:embed migrations
	migrationsFS embed.FS
)

// Store persists tracks and events in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Migrate applies all SQL files in the embedded migrations directory in
// lexicographical order. Every migration is idempotent, so it is safe to run
// on each start. It returns the paths that were executed.
func Migrate(ctx context.Context, db *sql.DB) ([]string, error) {
	var applied []string
	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		content, readError := migrationsFS.ReadFile(path)
		if readError != nil {
			return fmt.Errorf("error reading SQL file: %w", readError)
		}

		slog.Debug("Running migration", "path", path)
		if _, execError := db.ExecContext(ctx, string(content)); execError != nil {
			return fmt.Errorf("migration %s: %w", path, execError)
		}
		applied = append(applied, path)
		return nil
	})
	return applied, err
}

// OpenDB opens the SQLite database at path without touching its schema.
func OpenDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("database path must not be empty")
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	return db, nil
}

// Open opens (creating if needed) the SQLite database at path and brings its
// schema up to date.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	if _, err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTransaction runs a function within a database transaction.
func WithTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return fmt.Errorf("error executing transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const trackColumns = `id, user_id, name, description, created_at, updated_at`

func scanTrack(row rowScanner) (*Track, error) {
	var t Track
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

const eventColumns = `e.id, e.track_id, e.title, e.type, e.notes, e.occurred_at, e.file_url, e.created_at, e.updated_at`

func scanEvent(row rowScanner) (*Event, error) {
	var (
		e       Event
		fileURL sql.NullString
	)
	if err := row.Scan(&e.ID, &e.TrackID, &e.Title, &e.Type, &e.Notes, &e.OccurredAt, &fileURL, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if fileURL.Valid {
		e.FileURL = &fileURL.String
	}
	return &e, nil
}

func (s *Store) CreateTrack(ctx context.Context, userID string, in NewTrack) (*Track, error) {
	now := s.now()
	t := &Track{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracks(`+trackColumns+`) VALUES(?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, t.Description, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert track: %w", err)
	}
	return t, nil
}

func (s *Store) ListTracks(ctx context.Context, userID string) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	tracks := []Track{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, *t)
	}
	return tracks, rows.Err()
}

func (s *Store) GetTrack(ctx context.Context, userID, trackID string) (*Track, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE id = ? AND user_id = ?`, trackID, userID)
	return scanTrack(row)
}

// DeleteTrack removes a track and all of its events.
func (s *Store) DeleteTrack(ctx context.Context, userID, trackID string) error {
	return WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE id = ? AND user_id = ?`, trackID, userID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}

		// Foreign keys cascade as well; this keeps the delete correct on
		// connections opened without them.
		_, err = tx.ExecContext(ctx, `DELETE FROM events WHERE track_id = ?`, trackID)
		return err
	})
}

func (s *Store) CreateEvent(ctx context.Context, userID, trackID string, in NewEvent) (*Event, error) {
	if _, err := s.GetTrack(ctx, userID, trackID); err != nil {
		return nil, err
	}

	now := s.now()
	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}

	e := &Event{
		ID:         uuid.NewString(),
		TrackID:    trackID,
		Title:      in.Title,
		Type:       in.Type,
		Notes:      in.Notes,
		OccurredAt: occurred.UTC(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(id, track_id, title, type, notes, occurred_at, file_url, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		e.ID, e.TrackID, e.Title, string(e.Type), e.Notes, e.OccurredAt, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return e, nil
}

// ListEvents returns the events of a track, newest first.
func (s *Store) ListEvents(ctx context.Context, userID, trackID string) ([]Event, error) {
	if _, err := s.GetTrack(ctx, userID, trackID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.track_id = ? ORDER BY e.occurred_at DESC, e.id`, trackID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// GetEvent loads an event, scoped to a track owned by userID.
func (s *Store) GetEvent(ctx context.Context, userID, trackID, eventID string) (*Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+`
		 FROM events e JOIN tracks t ON t.id = e.track_id
		 WHERE e.id = ? AND e.track_id = ? AND t.user_id = ?`,
		eventID, trackID, userID)
	return scanEvent(row)
}

// UpdateEventFileURL overwrites the attachment pointer of an event. A nil
// fileURL clears it.
func (s *Store) UpdateEventFileURL(ctx context.Context, eventID string, fileURL *string) (*Event, error) {
	var value sql.NullString
	if fileURL != nil {
		value = sql.NullString{String: *fileURL, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET file_url = ?, updated_at = ? WHERE id = ?`, value, s.now(), eventID)
	if err != nil {
		return nil, fmt.Errorf("update event file url: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = ?`, eventID)
	return scanEvent(row)
}

func (s *Store) DeleteEvent(ctx context.Context, eventID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, eventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
