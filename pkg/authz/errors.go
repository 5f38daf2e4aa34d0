package authz

import "errors"

// Guard rejection kinds. The HTTP layer maps these onto status codes;
// anything else bubbling out of a guard is a resolution failure and maps
// to an internal error.
var (
	// ErrUnauthenticated means no principal and session could be resolved
	ErrUnauthenticated = errors.New("authentication required")

	// ErrMissingOrganization means a guard needing an organization id
	// found none in context, path or query.
	ErrMissingOrganization = errors.New("organization context required")

	// ErrNotAMember means the resolved organization has no membership
	// row for the principal.
	ErrNotAMember = errors.New("not a member of this organization")

	// ErrForbidden means a role or permission was resolved but does not
	// satisfy the guard's requirement.
	ErrForbidden = errors.New("insufficient permissions")
)
