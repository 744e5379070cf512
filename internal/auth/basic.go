package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// BasicAuthEngine authenticates requests with HTTP Basic credentials against
// a fixed set of users. The user name becomes the User ID.
type BasicAuthEngine struct {
	users map[string]string
}

// NewBasicAuthEngine creates a BasicAuthEngine from id to password pairs.
func NewBasicAuthEngine(users map[string]string) *BasicAuthEngine {
	copied := make(map[string]string, len(users))
	for id, password := range users {
		copied[id] = password
	}
	return &BasicAuthEngine{users: copied}
}

// ParseUsers reads "id:password" entries as written in configuration.
func ParseUsers(entries []string) (map[string]string, error) {
	users := make(map[string]string, len(entries))
	for _, entry := range entries {
		id, password, ok := strings.Cut(entry, ":")
		if !ok || id == "" || password == "" {
			return nil, fmt.Errorf("invalid user entry %q, expected id:password", entry)
		}
		users[id] = password
	}
	return users, nil
}

// AuthenticateRequest checks the Authorization header for valid Basic Auth
// credentials. It returns a User if the credentials are valid, nil otherwise.
func (e *BasicAuthEngine) AuthenticateRequest(ctx context.Context, r *http.Request) (*User, error) {
	id, pass, ok := r.BasicAuth()
	if !ok {
		return nil, nil
	}

	want, known := e.users[id]
	if !known {
		return nil, nil
	}
	if subtle.ConstantTimeCompare([]byte(pass), []byte(want)) != 1 {
		return nil, nil
	}

	return &User{ID: id}, nil
}
