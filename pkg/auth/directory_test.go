package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceDirectoryListUsers(t *testing.T) {
	srv := fakeAuthService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/admin/users", r.URL.Path)
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]Principal{
			{ID: "u1", SystemRole: SystemRoleAdmin},
			{ID: "u2", SystemRole: SystemRoleUser},
		})
	})

	dir := NewServiceDirectory(srv.URL, "svc-token", nil)
	users, err := dir.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, SystemRoleAdmin, users[0].SystemRole)
}

func TestServiceDirectoryBanUser(t *testing.T) {
	var gotBody map[string]interface{}
	srv := fakeAuthService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/users/u1/ban", r.URL.Path)
		payload, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(payload, &gotBody))
		w.WriteHeader(http.StatusNoContent)
	})

	dir := NewServiceDirectory(srv.URL, "svc-token", nil)
	expiry := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, dir.BanUser(context.Background(), "u1", "abuse", &expiry))

	assert.Equal(t, "abuse", gotBody["reason"])
	assert.Equal(t, "2026-09-01T00:00:00Z", gotBody["expires_at"])
}

func TestServiceDirectoryErrorStatus(t *testing.T) {
	srv := fakeAuthService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	dir := NewServiceDirectory(srv.URL, "svc-token", nil)
	err := dir.DeleteUser(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
