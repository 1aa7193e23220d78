package shadowauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newGoTrueServer(t *testing.T) (*httptest.Server, map[string]gotrueCreateRequest) {
	t.Helper()
	users := map[string]gotrueCreateRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "service-key", r.Header.Get("apikey"))
		require.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/auth/v1/admin/users/"):
			id := strings.TrimPrefix(r.URL.Path, "/auth/v1/admin/users/")
			u, ok := users[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(gotrueUser{ID: u.ID, Email: u.Email, UserMetadata: u.UserMetadata})
		case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/admin/users":
			var body gotrueCreateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if _, ok := users[body.ID]; ok {
				w.WriteHeader(http.StatusUnprocessableEntity)
				return
			}
			users[body.ID] = body
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(gotrueUser{ID: body.ID, Email: body.Email})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, users
}

func TestGoTrueDirectory_LookupAndCreate(t *testing.T) {
	srv, users := newGoTrueServer(t)
	dir, err := NewGoTrueDirectory(srv.URL+"/auth/v1/", "service-key", srv.Client())
	require.NoError(t, err)
	ctx := context.Background()
	id := uuid.New()

	u, err := dir.LookupUser(ctx, id)
	require.NoError(t, err)
	require.Nil(t, u)

	require.NoError(t, dir.CreateUser(ctx, NewUser{ID: id, Email: "e@x.io", ExternalID: "user_9", Password: "pw", EmailConfirmed: true}))
	require.True(t, users[id.String()].EmailConfirm)

	u, err = dir.LookupUser(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, "e@x.io", u.Email)
	require.Equal(t, "user_9", u.ExternalID)

	err = dir.CreateUser(ctx, NewUser{ID: id, Email: "e@x.io"})
	require.ErrorIs(t, err, ErrUserExists)
}

func TestGoTrueDirectory_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	dir, err := NewGoTrueDirectory(srv.URL, "k", nil)
	require.NoError(t, err)
	_, err = dir.LookupUser(context.Background(), uuid.New())
	require.ErrorContains(t, err, "502")
}

func TestNewGoTrueDirectory_RequiresConfig(t *testing.T) {
	_, err := NewGoTrueDirectory("", "k", nil)
	require.Error(t, err)
}
