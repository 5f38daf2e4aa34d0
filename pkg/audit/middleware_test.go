package audit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/contextkeys"
	"github.com/wardenhq/warden/pkg/observability"
)

// fakeRecorder hands recorded events to the test over a channel
// because Middleware records off the request goroutine.
type fakeRecorder struct {
	events chan *Event
	err    error
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{events: make(chan *Event, 8)}
}

func (f *fakeRecorder) Record(_ context.Context, event *Event) error {
	if f.err != nil {
		return f.err
	}
	f.events <- event
	return nil
}

func (f *fakeRecorder) Search(_ context.Context, _ *SearchFilter) ([]*Event, error) {
	return nil, nil
}

func (f *fakeRecorder) Prune(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeRecorder) wait(t *testing.T) *Event {
	t.Helper()
	select {
	case ev := <-f.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event recorded")
		return nil
	}
}

func (f *fakeRecorder) expectNone(t *testing.T) {
	t.Helper()
	select {
	case ev := <-f.events:
		t.Fatalf("unexpected audit event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func testMiddleware(recorder Recorder) *Middleware {
	logger := observability.NewLogger(observability.ParseLogLevel("error"), io.Discard)
	return NewMiddleware(recorder, logger)
}

func serve(mw *Middleware, req *http.Request, status int) *httptest.ResponseRecorder {
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareRecordsMutations(t *testing.T) {
	recorder := newFakeRecorder()
	mw := testMiddleware(recorder)

	req := httptest.NewRequest(http.MethodPost, "/organizations", nil)
	ctx := auth.NewContext(req.Context(), &auth.AuthContext{
		Principal: &auth.Principal{ID: "user-1", Email: "u@example.com"},
		Session:   &auth.Session{ID: "s1"},
	})
	ctx = contextkeys.WithRequestID(ctx, "req-123")
	serve(mw, req.WithContext(ctx), http.StatusCreated)

	ev := recorder.wait(t)
	assert.Equal(t, EventHTTPMutation, ev.EventType)
	assert.Equal(t, EventStatusSuccess, ev.Status)
	assert.Equal(t, "user-1", ev.ActorID)
	assert.Equal(t, "req-123", ev.RequestID)
	assert.Equal(t, http.StatusCreated, ev.StatusCode)
	assert.Equal(t, "/organizations", ev.Path)
}

func TestMiddlewareSkipsSuccessfulReads(t *testing.T) {
	recorder := newFakeRecorder()
	mw := testMiddleware(recorder)

	rec := serve(mw, httptest.NewRequest(http.MethodGet, "/organizations", nil), http.StatusOK)
	require.Equal(t, http.StatusOK, rec.Code)

	recorder.expectNone(t)
}

func TestMiddlewareRecordsDenials(t *testing.T) {
	recorder := newFakeRecorder()
	mw := testMiddleware(recorder)

	serve(mw, httptest.NewRequest(http.MethodGet, "/organizations/org-1", nil), http.StatusForbidden)

	ev := recorder.wait(t)
	assert.Equal(t, EventAccessDenied, ev.EventType)
	assert.Equal(t, EventStatusDenied, ev.Status)
	assert.Empty(t, ev.ActorID)
}

func TestMiddlewareRecordsUnauthenticated(t *testing.T) {
	recorder := newFakeRecorder()
	mw := testMiddleware(recorder)

	serve(mw, httptest.NewRequest(http.MethodGet, "/organizations", nil), http.StatusUnauthorized)

	ev := recorder.wait(t)
	assert.Equal(t, EventUnauthenticated, ev.EventType)
}

func TestMiddlewareRecorderFailureDoesNotAffectResponse(t *testing.T) {
	recorder := newFakeRecorder()
	recorder.err = assert.AnError
	mw := testMiddleware(recorder)

	rec := serve(mw, httptest.NewRequest(http.MethodDelete, "/organizations/org-1", nil), http.StatusNoContent)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestShouldRecord(t *testing.T) {
	post := httptest.NewRequest(http.MethodPost, "/x", nil)
	get := httptest.NewRequest(http.MethodGet, "/x", nil)

	assert.True(t, shouldRecord(post, http.StatusOK))
	assert.True(t, shouldRecord(get, http.StatusForbidden))
	assert.True(t, shouldRecord(get, http.StatusInternalServerError))
	assert.False(t, shouldRecord(get, http.StatusOK))
}
