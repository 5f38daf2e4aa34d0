package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/observability"
)

type fakeResolver struct {
	authCtx *auth.AuthContext
	err     error
}

func (f *fakeResolver) Resolve(_ context.Context, _ *http.Request) (*auth.AuthContext, error) {
	return f.authCtx, f.err
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ParseLogLevel("error"), io.Discard)
}

func TestAuthMiddleware_AttachesContext(t *testing.T) {
	resolved := &auth.AuthContext{
		Principal: &auth.Principal{ID: "u1", SystemRole: auth.SystemRoleUser},
		Session:   &auth.Session{ID: "sess-1", PrincipalID: "u1"},
	}
	m := NewAuthMiddleware(&fakeResolver{authCtx: resolved}, testLogger())

	var got *auth.AuthContext
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetAuthContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resolved, got)
}

func TestAuthMiddleware_AnonymousPassesThrough(t *testing.T) {
	m := NewAuthMiddleware(&fakeResolver{}, testLogger())

	var got *auth.AuthContext
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetAuthContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, got)
	assert.False(t, got.Authenticated())
}

func TestAuthMiddleware_ResolverFailure(t *testing.T) {
	m := NewAuthMiddleware(&fakeResolver{err: errors.New("auth service unreachable")}, testLogger())

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run on resolver failure")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)

	// Inbound ids survive
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", rec.Header().Get("X-Request-ID"))
}
