package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wardenhq/warden/pkg/auth"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name     string
		role     auth.SystemRole
		resource Resource
		action   Action
		want     bool
	}{
		{"admin can ban users", auth.SystemRoleAdmin, ResourceUser, ActionBan, true},
		{"admin can impersonate", auth.SystemRoleAdmin, ResourceUser, ActionImpersonate, true},
		{"admin can manage admin area", auth.SystemRoleAdmin, ResourceAdmin, ActionManage, true},
		{"admin can delete organizations", auth.SystemRoleAdmin, ResourceOrganization, ActionDelete, true},
		{"user can create projects", auth.SystemRoleUser, ResourceProject, ActionCreate, true},
		{"user can read organizations", auth.SystemRoleUser, ResourceOrganization, ActionRead, true},
		{"user cannot delete projects", auth.SystemRoleUser, ResourceProject, ActionDelete, false},
		{"user has no user resource access", auth.SystemRoleUser, ResourceUser, ActionRead, false},
		{"user has no admin resource access", auth.SystemRoleUser, ResourceAdmin, ActionRead, false},
		{"user cannot ban", auth.SystemRoleUser, ResourceUser, ActionBan, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(tt.role, tt.resource, tt.action))
		})
	}
}

func TestHasOrganizationPermission(t *testing.T) {
	tests := []struct {
		name     string
		role     auth.OrgRole
		resource Resource
		action   Action
		want     bool
	}{
		{"member cannot update org", auth.OrgRoleMember, ResourceOrganization, ActionUpdate, false},
		{"admin can update org", auth.OrgRoleAdmin, ResourceOrganization, ActionUpdate, true},
		{"owner can manage org", auth.OrgRoleOwner, ResourceOrganization, ActionManage, true},
		{"admin cannot manage org", auth.OrgRoleAdmin, ResourceOrganization, ActionManage, false},
		{"owner cannot create org at org level", auth.OrgRoleOwner, ResourceOrganization, ActionCreate, false},
		{"owner cannot delete org at org level", auth.OrgRoleOwner, ResourceOrganization, ActionDelete, false},
		{"owner can manage projects", auth.OrgRoleOwner, ResourceProject, ActionManage, true},
		{"admin cannot manage projects", auth.OrgRoleAdmin, ResourceProject, ActionManage, false},
		{"admin can delete teams", auth.OrgRoleAdmin, ResourceTeam, ActionDelete, true},
		{"member can read teams", auth.OrgRoleMember, ResourceTeam, ActionRead, true},
		{"member cannot create teams", auth.OrgRoleMember, ResourceTeam, ActionCreate, false},
		{"admin can cancel invitations", auth.OrgRoleAdmin, ResourceInvitation, ActionCancel, true},
		{"member can read members", auth.OrgRoleMember, ResourceMember, ActionRead, true},
		{"member cannot remove members", auth.OrgRoleMember, ResourceMember, ActionDelete, false},
		{"member can read users", auth.OrgRoleMember, ResourceUser, ActionRead, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasOrganizationPermission(tt.role, tt.resource, tt.action))
		})
	}
}

func TestPolicyFailsClosed(t *testing.T) {
	// Unknown roles, resources and actions all deny rather than error
	assert.False(t, HasPermission("superadmin", ResourceUser, ActionRead))
	assert.False(t, HasPermission(auth.SystemRoleAdmin, "billing", ActionRead))
	assert.False(t, HasPermission(auth.SystemRoleAdmin, ResourceUser, "explode"))
	assert.False(t, HasOrganizationPermission("viewer", ResourceTeam, ActionRead))
	assert.False(t, HasOrganizationPermission(auth.OrgRoleOwner, "billing", ActionRead))
	assert.False(t, HasOrganizationPermission(auth.OrgRoleOwner, ResourceTeam, "explode"))
	assert.False(t, HasPermission("", ResourceUser, ActionRead))
	assert.False(t, HasOrganizationPermission("", ResourceTeam, ActionRead))
}

func TestRoleSpaceIsolation(t *testing.T) {
	assert.True(t, HasOrganizationPermission(auth.OrgRoleAdmin, ResourceTeam, ActionCreate))
	assert.False(t, HasPermission(auth.SystemRoleUser, ResourceUser, ActionBan))

	// "admin" happens to name a role in both spaces; the org table must
	// not grant the system admin's user:ban to an org admin.
	assert.False(t, HasOrganizationPermission(auth.OrgRoleAdmin, ResourceUser, ActionBan))
	assert.False(t, HasOrganizationPermission(auth.OrgRoleAdmin, ResourceAdmin, ActionRead))
}
