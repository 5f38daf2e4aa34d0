package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wardenhq/warden/pkg/async"
	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/contextkeys"
	"github.com/wardenhq/warden/pkg/observability"
)

const recordTimeout = 5 * time.Second

// Middleware records an audit trail for state-changing requests and
// for anything the guard chain rejected. Reads that succeed are not
// recorded. Recording happens off the request path; a slow or failing
// trail never delays or fails the response.
type Middleware struct {
	recorder Recorder
	logger   *observability.Logger
}

// NewMiddleware creates a new audit Middleware
func NewMiddleware(recorder Recorder, logger *observability.Logger) *Middleware {
	return &Middleware{
		recorder: recorder,
		logger:   logger,
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// Handler wraps an HTTP handler with audit recording
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		if !shouldRecord(r, wrapped.statusCode) {
			return
		}

		event := eventFromRequest(r, wrapped.statusCode, time.Since(start))
		async.SafeGo(context.WithoutCancel(r.Context()), recordTimeout, "audit record", m.logger, func(ctx context.Context) error {
			return m.recorder.Record(ctx, event)
		})
	})
}

// shouldRecord keeps the trail focused: every mutation, every
// rejection, nothing for successful reads.
func shouldRecord(r *http.Request, statusCode int) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return true
	}
	return statusCode >= 400
}

func eventFromRequest(r *http.Request, statusCode int, duration time.Duration) *Event {
	event := &Event{
		Timestamp:  time.Now().UTC(),
		EventType:  classify(statusCode),
		Status:     outcome(statusCode),
		RequestID:  contextkeys.GetRequestID(r.Context()),
		IPAddress:  clientIP(r),
		Method:     r.Method,
		Path:       r.URL.Path,
		StatusCode: statusCode,
		DurationMS: duration.Milliseconds(),
	}
	if orgID := contextkeys.GetOrganizationID(r.Context()); orgID != "" {
		event.OrganizationID = orgID
	} else if orgID := mux.Vars(r)["organization_id"]; orgID != "" {
		event.OrganizationID = orgID
	}
	if authCtx := auth.FromContext(r.Context()); authCtx.Authenticated() {
		event.ActorID = authCtx.Principal.ID
		event.ActorEmail = authCtx.Principal.Email
	}
	return event
}

func classify(statusCode int) EventType {
	switch statusCode {
	case http.StatusUnauthorized:
		return EventUnauthenticated
	case http.StatusForbidden:
		return EventAccessDenied
	default:
		return EventHTTPMutation
	}
}

func outcome(statusCode int) EventStatus {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return EventStatusDenied
	case statusCode >= 400:
		return EventStatusFailure
	default:
		return EventStatusSuccess
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
