package attachment

import (
	"context"
	"log/slog"
	"time"

	"healthtrack/internal/objectstore"
	"healthtrack/internal/records"
)

// Service wires the attachment components around one store, codec and
// repository.
type Service struct {
	Issuer     *Issuer
	Resolver   *Resolver
	Reconciler *Reconciler
	Lifecycle  *Lifecycle

	repo Repository
}

type Option func(*Service)

// WithLogger sets the logger used by all components. A nil logger keeps the
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger == nil {
			return
		}
		s.Resolver.logger = logger
		s.Reconciler.logger = logger
		s.Lifecycle.logger = logger
	}
}

// WithClock overrides the clock used to compute upload expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.Issuer.now = now
	}
}

// WithUploadTTL overrides UploadURLTTL.
func WithUploadTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.Issuer.ttl = ttl
		}
	}
}

// WithReadTTL overrides ReadURLTTL.
func WithReadTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.Resolver.ttl = ttl
		}
	}
}

// WithSwallowedFailures counts the storage failures the service tolerates.
func WithSwallowedFailures(counter *SwallowedFailures) Option {
	return func(s *Service) {
		s.Resolver.swallow = counter
		s.Lifecycle.swallow = counter
	}
}

func NewService(store objectstore.Store, codec *KeyCodec, repo Repository, opts ...Option) *Service {
	logger := slog.Default().With("component", "attachment")
	s := &Service{
		Issuer:     NewIssuer(store, codec),
		Resolver:   NewResolver(store, codec, logger),
		Reconciler: NewReconciler(store, codec, repo, logger),
		Lifecycle:  NewLifecycle(store, codec, repo, logger),
		repo:       repo,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueUpload authorizes an upload for an existing event in scope.
func (s *Service) IssueUpload(ctx context.Context, scope Scope, req UploadRequest) (*UploadAuthorization, error) {
	event, err := loadEvent(ctx, s.repo, scope)
	if err != nil {
		return nil, err
	}
	return s.Issuer.Issue(ctx, event.ID, req)
}

func (s *Service) ConfirmUpload(ctx context.Context, scope Scope, req ConfirmRequest) (*records.Event, error) {
	return s.Reconciler.Confirm(ctx, scope, req)
}

func (s *Service) DetachAttachment(ctx context.Context, scope Scope) (*records.Event, error) {
	return s.Lifecycle.Detach(ctx, scope)
}

func (s *Service) DeleteEvent(ctx context.Context, scope Scope) error {
	return s.Lifecycle.DeleteEventAndAttachment(ctx, scope)
}

func (s *Service) DeleteTrack(ctx context.Context, userID, trackID string) error {
	return s.Lifecycle.DeleteTrackAndAttachments(ctx, userID, trackID)
}

// ResolveFileURL returns the readable form of an event's stored URL.
func (s *Service) ResolveFileURL(ctx context.Context, storedURL *string) *string {
	return s.Resolver.ResolvePtr(ctx, storedURL)
}
