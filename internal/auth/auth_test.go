package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"healthtrack/internal/auth"

	"github.com/stretchr/testify/require"
)

type failingEngine struct{}

func (failingEngine) AuthenticateRequest(context.Context, *http.Request) (*auth.User, error) {
	return nil, errors.New("backend down")
}

func TestBasicAuthEngine(t *testing.T) {
	t.Parallel()

	engine := auth.NewBasicAuthEngine(map[string]string{"alice": "s3cret"})

	tests := []struct {
		name   string
		user   string
		pass   string
		set    bool
		wantID string
	}{
		{name: "valid", user: "alice", pass: "s3cret", set: true, wantID: "alice"},
		{name: "wrong password", user: "alice", pass: "nope", set: true},
		{name: "unknown user", user: "bob", pass: "s3cret", set: true},
		{name: "no header"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/tracks", nil)
			if tc.set {
				r.SetBasicAuth(tc.user, tc.pass)
			}

			user, err := engine.AuthenticateRequest(r.Context(), r)
			require.NoError(t, err)
			if tc.wantID == "" {
				require.Nil(t, user)
				return
			}
			require.NotNil(t, user)
			require.Equal(t, tc.wantID, user.ID)
		})
	}
}

func TestParseUsers(t *testing.T) {
	t.Parallel()

	users, err := auth.ParseUsers([]string{"alice:s3cret", "bob:pa:ss"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"alice": "s3cret", "bob": "pa:ss"}, users)

	for _, bad := range []string{"alice", ":pw", "alice:"} {
		_, err := auth.ParseUsers([]string{bad})
		require.Errorf(t, err, "entry %q", bad)
	}
}

func TestHeaderAuthEngine(t *testing.T) {
	t.Parallel()

	engine := auth.NewHeaderAuthEngine("X-Forwarded-User")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	user, err := engine.AuthenticateRequest(r.Context(), r)
	require.NoError(t, err)
	require.Nil(t, user)

	r.Header.Set("X-Forwarded-User", " user-42 ")
	user, err = engine.AuthenticateRequest(r.Context(), r)
	require.NoError(t, err)
	require.Equal(t, "user-42", user.ID)

	disabled := auth.NewHeaderAuthEngine("")
	user, err = disabled.AuthenticateRequest(r.Context(), r)
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestCompoundAuthEngine(t *testing.T) {
	t.Parallel()

	engine := auth.NewCompoundAuthEngine(
		failingEngine{},
		auth.NewBasicAuthEngine(map[string]string{"alice": "s3cret"}),
		auth.NewHeaderAuthEngine("X-Forwarded-User"),
	)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-User", "proxy-user")
	user, err := engine.AuthenticateRequest(r.Context(), r)
	require.NoError(t, err)
	require.Equal(t, "proxy-user", user.ID)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetBasicAuth("alice", "s3cret")
	r.Header.Set("X-Forwarded-User", "proxy-user")
	user, err = engine.AuthenticateRequest(r.Context(), r)
	require.NoError(t, err)
	require.Equal(t, "alice", user.ID)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	user, err = engine.AuthenticateRequest(r.Context(), r)
	require.Error(t, err)
	require.Nil(t, user)
}

func TestUserContext(t *testing.T) {
	t.Parallel()

	require.Nil(t, auth.UserFromContext(context.Background()))

	ctx := auth.WithUser(context.Background(), &auth.User{ID: "alice"})
	require.Equal(t, "alice", auth.UserFromContext(ctx).ID)
}
