// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthKey contains *auth.AuthContext (principal + session)
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: all guards and protected endpoints
	// Type: *auth.AuthContext
	AuthKey Key = "auth_context"

	// OrganizationIDKey contains the organization id resolved for the
	// current request.
	// Set by: the organization-scoped guards in pkg/authz
	// Required by: later guards in the same chain and org-scoped handlers
	// Type: string
	OrganizationIDKey Key = "organization_id"

	// OrganizationRoleKey contains the caller's membership role in the
	// resolved organization.
	// Set by: pkg/authz guards after a membership lookup
	// Type: auth.OrgRole
	OrganizationRoleKey Key = "organization_role"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: HTTP middleware
	// Used by: logger, audit trail
	// Type: string
	RequestIDKey Key = "request_id"
)

// WithAuth adds authentication context to the context
func WithAuth(ctx context.Context, authCtx interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}

// WithOrganizationID adds the resolved organization id to the context
func WithOrganizationID(ctx context.Context, organizationID string) context.Context {
	return context.WithValue(ctx, OrganizationIDKey, organizationID)
}

// WithOrganizationRole adds the resolved organization role to the context
func WithOrganizationRole(ctx context.Context, role interface{}) context.Context {
	return context.WithValue(ctx, OrganizationRoleKey, role)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetOrganizationID retrieves the resolved organization id from context
func GetOrganizationID(ctx context.Context) string {
	if id, ok := ctx.Value(OrganizationIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
