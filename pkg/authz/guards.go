package authz

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/contextkeys"
	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/observability"
)

// organizationIDParam is the route/query parameter guards resolve the
// tenant from.
const organizationIDParam = "organization_id"

// Guards builds the route middleware for the authorization chain. Each
// constructor returns standard middleware; routes compose them in order
// and the first rejection terminates the chain.
type Guards struct {
	checker *Checker
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewGuards creates the guard factory. metrics may be nil.
func NewGuards(checker *Checker, logger *observability.Logger, metrics *observability.Metrics) *Guards {
	return &Guards{
		checker: checker,
		logger:  logger,
		metrics: metrics,
	}
}

// ResolveOrganizationID finds the organization id for a request, trying
// the per-request context first, then the route variable, then the
// query string. Returns "" when none is present.
func ResolveOrganizationID(r *http.Request) string {
	if id := contextkeys.GetOrganizationID(r.Context()); id != "" {
		return id
	}
	if id := mux.Vars(r)[organizationIDParam]; id != "" {
		return id
	}
	return r.URL.Query().Get(organizationIDParam)
}

// RequireAuth rejects requests without a live principal and session
func (g *Guards) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.FromContext(r.Context())
			if !authCtx.Authenticated() {
				g.reject(w, "require_auth", ErrUnauthenticated)
				return
			}
			g.allow("require_auth")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole requires the principal's system role to be one of roles.
// An organization admin role never satisfies this check.
func (g *Guards) RequireRole(roles ...auth.SystemRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.FromContext(r.Context())
			if !authCtx.Authenticated() {
				g.reject(w, "require_role", ErrUnauthenticated)
				return
			}
			for _, role := range roles {
				if authCtx.Principal.SystemRole == role {
					g.allow("require_role")
					next.ServeHTTP(w, r)
					return
				}
			}
			g.reject(w, "require_role", ErrForbidden)
		})
	}
}

// RequirePermission requires the app-level policy to grant action on
// resource for the principal's system role.
func (g *Guards) RequirePermission(resource Resource, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.FromContext(r.Context())
			if !authCtx.Authenticated() {
				g.reject(w, "require_permission", ErrUnauthenticated)
				return
			}
			if !HasPermission(authCtx.Principal.SystemRole, resource, action) {
				g.reject(w, "require_permission", ErrForbidden)
				return
			}
			g.allow("require_permission")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOrganizationMember requires a membership row for the resolved
// organization. On success the organization id and role are cached on
// the request context for later guards and the handler.
func (g *Guards) RequireOrganizationMember() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const guard = "require_organization_member"

			authCtx := auth.FromContext(r.Context())
			if !authCtx.Authenticated() {
				g.reject(w, guard, ErrUnauthenticated)
				return
			}
			orgID := ResolveOrganizationID(r)
			if orgID == "" {
				g.reject(w, guard, ErrMissingOrganization)
				return
			}

			role, cached, err := g.checker.OrganizationRole(r.Context(), orgID, authCtx.Principal.ID)
			if err != nil {
				g.reject(w, guard, err)
				return
			}

			g.allow(guard)
			if cached {
				next.ServeHTTP(w, r)
				return
			}
			ctx := contextkeys.WithOrganizationID(r.Context(), orgID)
			ctx = contextkeys.WithOrganizationRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOrganizationPermission requires the tenant policy to grant
// action on resource. An unbanned system admin passes without any
// membership lookup; that is the one place system role reaches into the
// organization permission space.
func (g *Guards) RequireOrganizationPermission(resource Resource, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const guard = "require_organization_permission"

			authCtx := auth.FromContext(r.Context())
			if !authCtx.Authenticated() {
				g.reject(w, guard, ErrUnauthenticated)
				return
			}
			orgID := ResolveOrganizationID(r)
			if orgID == "" {
				g.reject(w, guard, ErrMissingOrganization)
				return
			}

			if authCtx.Principal.IsSystemAdmin(time.Now()) {
				g.allow(guard)
				ctx := contextkeys.WithOrganizationID(r.Context(), orgID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			role, cached, err := g.checker.OrganizationRole(r.Context(), orgID, authCtx.Principal.ID)
			if err != nil {
				g.reject(w, guard, err)
				return
			}
			if !HasOrganizationPermission(role, resource, action) {
				g.reject(w, guard, ErrForbidden)
				return
			}

			g.allow(guard)
			if cached {
				next.ServeHTTP(w, r)
				return
			}
			ctx := contextkeys.WithOrganizationID(r.Context(), orgID)
			ctx = contextkeys.WithOrganizationRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOrganizationRole requires the caller's membership role to be
// one of roles. System admin status does not satisfy this; admins go
// through RequireOrganizationPermission instead.
func (g *Guards) RequireOrganizationRole(roles ...auth.OrgRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const guard = "require_organization_role"

			authCtx := auth.FromContext(r.Context())
			if !authCtx.Authenticated() {
				g.reject(w, guard, ErrUnauthenticated)
				return
			}
			orgID := ResolveOrganizationID(r)
			if orgID == "" {
				g.reject(w, guard, ErrMissingOrganization)
				return
			}

			role, cached, err := g.checker.OrganizationRole(r.Context(), orgID, authCtx.Principal.ID)
			if err != nil {
				g.reject(w, guard, err)
				return
			}
			match := false
			for _, want := range roles {
				if role == want {
					match = true
					break
				}
			}
			if !match {
				g.reject(w, guard, ErrForbidden)
				return
			}

			g.allow(guard)
			if cached {
				next.ServeHTTP(w, r)
				return
			}
			ctx := contextkeys.WithOrganizationID(r.Context(), orgID)
			ctx = contextkeys.WithOrganizationRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// reject terminates the request with the status for the guard error.
// Guard rejections never mutate state, so replaying the same request
// yields the same verdict.
func (g *Guards) reject(w http.ResponseWriter, guard string, err error) {
	g.count(guard, "deny")
	switch {
	case errors.Is(err, ErrUnauthenticated):
		httputil.WriteUnauthorized(w, ErrUnauthenticated.Error())
	case errors.Is(err, ErrMissingOrganization):
		httputil.WriteBadRequest(w, ErrMissingOrganization.Error())
	case errors.Is(err, ErrNotAMember):
		httputil.WriteForbidden(w, ErrNotAMember.Error())
	case errors.Is(err, ErrForbidden):
		httputil.WriteForbidden(w, ErrForbidden.Error())
	default:
		g.logger.WithError(err).WithField("guard", guard).Error("guard evaluation failed")
		httputil.WriteInternalError(w, errors.New("authorization check failed"))
	}
}

func (g *Guards) allow(guard string) {
	g.count(guard, "allow")
}

func (g *Guards) count(guard, outcome string) {
	if g.metrics != nil {
		g.metrics.AuthzDecisionsTotal.WithLabelValues(guard, outcome).Inc()
	}
}
