package auth

import (
	"context"

	"github.com/wardenhq/warden/pkg/contextkeys"
)

// FromContext extracts the AuthContext attached by the auth middleware.
// Returns nil when the request carries no resolved identity.
func FromContext(ctx context.Context) *AuthContext {
	v := ctx.Value(contextkeys.AuthKey)
	if v == nil {
		return nil
	}
	ac, ok := v.(*AuthContext)
	if !ok {
		return nil
	}
	return ac
}

// NewContext attaches an AuthContext for downstream guards and handlers
func NewContext(ctx context.Context, ac *AuthContext) context.Context {
	return contextkeys.WithAuth(ctx, ac)
}
