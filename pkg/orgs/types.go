package orgs

import (
	"context"
	"errors"
	"time"

	"github.com/wardenhq/warden/pkg/auth"
)

// Store errors. Callers match these with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrSlugTaken           = errors.New("organization slug already taken")
	ErrAlreadyMember       = errors.New("user is already a member of this organization")
	ErrDuplicateInvitation = errors.New("a pending invitation already exists for this email")
	ErrInvitationExpired   = errors.New("invitation has expired")
	ErrInvitationMismatch  = errors.New("invitation is not addressed to this user")
	ErrOwnerRoleProtected  = errors.New("owner role can only be changed by another owner")
)

// Organization is the tenant boundary. Slug is globally unique.
type Organization struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Slug      string                 `json:"slug"`
	LogoURL   string                 `json:"logo_url,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Membership associates a user with an organization at a role. At most
// one row exists per (organization, user) pair; the unique constraint in
// the store enforces it.
type Membership struct {
	ID             string       `json:"id"`
	OrganizationID string       `json:"organization_id"`
	UserID         string       `json:"user_id"`
	Role           auth.OrgRole `json:"role"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Member is a membership row joined with directory details for listing
type Member struct {
	Membership
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Team is an informational sub-grouping within an organization. Teams do
// not carry their own permission space.
type Team struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TeamMember records a user's membership in a team
type TeamMember struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Invitation is a pending offer to join an organization at a role. It is
// consumed on acceptance or removed on rejection/cancellation, never
// mutated otherwise. Expiry is enforced at acceptance time.
type Invitation struct {
	ID             string       `json:"id"`
	OrganizationID string       `json:"organization_id"`
	Email          string       `json:"email"`
	Role           auth.OrgRole `json:"role"`
	InviterID      string       `json:"inviter_id"`
	ExpiresAt      time.Time    `json:"expires_at"`
	CreatedAt      time.Time    `json:"created_at"`
}

// DefaultInvitationTTL is how long a new invitation stays acceptable
const DefaultInvitationTTL = 7 * 24 * time.Hour

// Service is the full organization store surface
type Service interface {
	// Organization CRUD
	CreateOrganization(ctx context.Context, org *Organization, creatorID string) error
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error)
	ListOrganizationsForUser(ctx context.Context, userID string) ([]*Organization, error)
	UpdateOrganization(ctx context.Context, id string, updates *UpdateOrganizationRequest) error
	DeleteOrganization(ctx context.Context, id string) error

	// Membership management
	FindMembership(ctx context.Context, organizationID, userID string) (*Membership, error)
	ListMembershipsForUser(ctx context.Context, userID string) ([]*Membership, error)
	ListMembersForOrganization(ctx context.Context, organizationID string) ([]*Member, error)
	AddMember(ctx context.Context, organizationID, userID string, role auth.OrgRole) (*Membership, error)
	UpdateMemberRole(ctx context.Context, organizationID, userID string, role, actorRole auth.OrgRole) error
	RemoveMember(ctx context.Context, organizationID, userID string) error

	// Invitation lifecycle
	CreateInvitation(ctx context.Context, inv *Invitation) error
	GetInvitation(ctx context.Context, id string) (*Invitation, error)
	ListInvitations(ctx context.Context, organizationID string) ([]*Invitation, error)
	AcceptInvitation(ctx context.Context, id, userID, email string) (*Membership, error)
	RejectInvitation(ctx context.Context, id, email string) error
	CancelInvitation(ctx context.Context, id, organizationID string) error
	CleanupExpiredInvitations(ctx context.Context) (int64, error)

	// Teams
	CreateTeam(ctx context.Context, team *Team) error
	GetTeam(ctx context.Context, id string) (*Team, error)
	ListTeams(ctx context.Context, organizationID string) ([]*Team, error)
	DeleteTeam(ctx context.Context, id string) error
	AddTeamMember(ctx context.Context, teamID, userID string) (*TeamMember, error)
	RemoveTeamMember(ctx context.Context, teamID, userID string) error
	ListTeamMembers(ctx context.Context, teamID string) ([]*TeamMember, error)
}

// UpdateOrganizationRequest carries the mutable organization fields
type UpdateOrganizationRequest struct {
	Name     *string                `json:"name,omitempty"`
	LogoURL  *string                `json:"logo_url,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
