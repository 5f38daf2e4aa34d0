// Package auth defines the identity model shared across the application:
// principals, sessions, the two role spaces, and the resolver boundary to
// the external session authentication service.
//
// The application never mints credentials itself. Login, password handling
// and session issuance belong to the auth service; this package only reads
// its output.
package auth

import "time"

// SystemRole is the application-wide role of a principal, independent of
// any organization.
type SystemRole string

const (
	SystemRoleAdmin SystemRole = "admin"
	SystemRoleUser  SystemRole = "user"
)

// OrgRole is the per-tenant role recorded in a membership row. It is a
// separate axis from SystemRole and the two must never be conflated.
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "owner"
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// ValidOrgRole reports whether s names a known organization role
func ValidOrgRole(s string) bool {
	switch OrgRole(s) {
	case OrgRoleOwner, OrgRoleAdmin, OrgRoleMember:
		return true
	}
	return false
}

// Principal is the authenticated actor of a request. It is owned by the
// external auth service and attached fresh on every request; nothing here
// is cached across requests.
type Principal struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	SystemRole   SystemRole `json:"system_role"`
	Banned       bool       `json:"banned"`
	BanReason    string     `json:"ban_reason,omitempty"`
	BanExpiresAt *time.Time `json:"ban_expires_at,omitempty"`
}

// IsBanned reports whether the principal's ban is in effect at the given
// time. A ban with a past expiry no longer applies.
func (p *Principal) IsBanned(now time.Time) bool {
	if !p.Banned {
		return false
	}
	if p.BanExpiresAt != nil && now.After(*p.BanExpiresAt) {
		return false
	}
	return true
}

// IsSystemAdmin reports whether the principal qualifies for the
// organization-permission admin bypass: system role admin and not banned.
func (p *Principal) IsSystemAdmin(now time.Time) bool {
	return p.SystemRole == SystemRoleAdmin && !p.IsBanned(now)
}

// Session is the live session issued by the auth service. The application
// reads it only to confirm a session exists and for the active-organization
// hint.
type Session struct {
	ID                   string    `json:"id"`
	PrincipalID          string    `json:"principal_id"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	ActiveOrganizationID string    `json:"active_organization_id,omitempty"`
}

// AuthContext holds the authenticated identity for one request
type AuthContext struct {
	Principal *Principal
	Session   *Session
}

// Authenticated reports whether both a principal and a live session were
// resolved for the request.
func (ac *AuthContext) Authenticated() bool {
	return ac != nil && ac.Principal != nil && ac.Session != nil
}
