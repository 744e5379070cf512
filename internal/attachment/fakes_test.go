package attachment_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"healthtrack/internal/attachment"
	"healthtrack/internal/objectstore"
	"healthtrack/internal/records"
)

const testBaseURL = "https://s3.test.local/health-records"

// fakeStore is an in-memory objectstore.Store that records every call.
type fakeStore struct {
	mu sync.Mutex

	objects map[string]objectstore.ObjectInfo

	signUploadErr error
	signReadErr   error
	headErr       error
	deleteErr     error

	signUploadCalls int
	signReadCalls   int
	headCalls       int
	deleteCalls     []string
	lastUploadTTL   time.Duration
	lastContentType string
}

var _ objectstore.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]objectstore.ObjectInfo{}}
}

func (s *fakeStore) put(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = objectstore.ObjectInfo{Key: key, Size: 1}
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *fakeStore) SignUpload(_ context.Context, key string, contentType string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signUploadCalls++
	s.lastUploadTTL = ttl
	s.lastContentType = contentType
	if s.signUploadErr != nil {
		return "", s.signUploadErr
	}
	return fmt.Sprintf("%s/%s?X-Amz-Signature=put", testBaseURL, key), nil
}

func (s *fakeStore) SignRead(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signReadCalls++
	if s.signReadErr != nil {
		return "", s.signReadErr
	}
	return fmt.Sprintf("%s/%s?X-Amz-Signature=get", testBaseURL, key), nil
}

func (s *fakeStore) HeadObject(_ context.Context, key string) (objectstore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headCalls++
	if s.headErr != nil {
		return objectstore.ObjectInfo{}, s.headErr
	}
	info, ok := s.objects[key]
	if !ok {
		return objectstore.ObjectInfo{}, fmt.Errorf("stat %q: %w", key, objectstore.ErrNotExist)
	}
	return info, nil
}

func (s *fakeStore) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls = append(s.deleteCalls, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signUploadCalls + s.signReadCalls + s.headCalls + len(s.deleteCalls)
}

// fakeRepo is an in-memory attachment.Repository holding one user's events.
type fakeRepo struct {
	mu sync.Mutex

	userID  string
	trackID string
	events  map[string]*records.Event

	updateErr error
}

var _ attachment.Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{userID: "user-1", trackID: "track-1", events: map[string]*records.Event{}}
}

func (r *fakeRepo) addEvent(id string, fileURL *string) attachment.Scope {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[id] = &records.Event{ID: id, TrackID: r.trackID, Title: id, Type: records.EventNote, FileURL: fileURL}
	return attachment.Scope{UserID: r.userID, TrackID: r.trackID, EventID: id}
}

func (r *fakeRepo) event(id string) (*records.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, false
	}
	clone := *e
	return &clone, true
}

func (r *fakeRepo) GetEvent(_ context.Context, userID, trackID, eventID string) (*records.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if userID != r.userID || trackID != r.trackID {
		return nil, records.ErrNotFound
	}
	e, ok := r.events[eventID]
	if !ok {
		return nil, records.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *fakeRepo) UpdateEventFileURL(_ context.Context, eventID string, fileURL *string) (*records.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	e, ok := r.events[eventID]
	if !ok {
		return nil, records.ErrNotFound
	}
	if fileURL != nil {
		v := *fileURL
		e.FileURL = &v
	} else {
		e.FileURL = nil
	}
	clone := *e
	return &clone, nil
}

func (r *fakeRepo) DeleteEvent(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[eventID]; !ok {
		return records.ErrNotFound
	}
	delete(r.events, eventID)
	return nil
}

func (r *fakeRepo) ListEvents(_ context.Context, userID, trackID string) ([]records.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if userID != r.userID || trackID != r.trackID {
		return nil, records.ErrNotFound
	}
	out := make([]records.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, *e)
	}
	return out, nil
}

func (r *fakeRepo) DeleteTrack(_ context.Context, userID, trackID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if userID != r.userID || trackID != r.trackID {
		return records.ErrNotFound
	}
	r.events = map[string]*records.Event{}
	return nil
}

func strPtr(s string) *string {
	return &s
}
