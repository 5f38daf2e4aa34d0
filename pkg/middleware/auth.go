package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/contextkeys"
	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/observability"
)

// AuthMiddleware resolves the caller's principal and session and
// attaches them to the request context. It never rejects on its own;
// routes that need authentication install the RequireAuth guard.
type AuthMiddleware struct {
	resolver auth.PrincipalResolver
	logger   *observability.Logger
}

// NewAuthMiddleware creates the authentication middleware
func NewAuthMiddleware(resolver auth.PrincipalResolver, logger *observability.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		logger:   logger,
	}
}

// Handler wraps an HTTP handler with principal resolution. A missing or
// invalid credential leaves the context unauthenticated; an unexpected
// resolver failure is surfaced as an internal error rather than letting
// the request continue with ambiguous identity.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx, err := m.resolver.Resolve(r.Context(), r)
		if err != nil {
			m.logger.WithError(err).Error("principal resolution failed")
			httputil.WriteInternalError(w, err)
			return
		}
		if authCtx == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := contextkeys.WithAuth(r.Context(), authCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthContext extracts the auth context from a request, or nil
func GetAuthContext(r *http.Request) *auth.AuthContext {
	v := r.Context().Value(contextkeys.AuthKey)
	if v == nil {
		return nil
	}
	authCtx, ok := v.(*auth.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// RequestIDMiddleware assigns each request a UUID for log correlation.
// An inbound X-Request-ID is honored so ids survive proxy hops.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
