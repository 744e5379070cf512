package auth

import (
	"context"
	"net/http"
)

// User is an authenticated principal. ID scopes every track and event lookup.
type User struct {
	ID string
}

type AuthEngine interface {

	// AuthenticateRequest inspects the given HTTP request for valid
	// authentication credentials. If valid, it returns the User; otherwise it
	// returns nil. An error is returned if there was an issue processing the
	// authentication.
	AuthenticateRequest(ctx context.Context, r *http.Request) (*User, error)
}

type contextKey struct{}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the user stored by WithUser, or nil.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(contextKey{}).(*User)
	return user
}
