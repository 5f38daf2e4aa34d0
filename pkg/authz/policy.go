package authz

import "github.com/wardenhq/warden/pkg/auth"

// actionSet is a lookup set of allowed actions
type actionSet map[Action]struct{}

func actions(as ...Action) actionSet {
	set := make(actionSet, len(as))
	for _, a := range as {
		set[a] = struct{}{}
	}
	return set
}

// systemPolicy maps an app-level role to its allowed actions per
// resource. Built once at init and never mutated; concurrent reads need
// no synchronization.
var systemPolicy = map[auth.SystemRole]map[Resource]actionSet{
	auth.SystemRoleAdmin: {
		ResourceUser:         actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionBan, ActionImpersonate),
		ResourceProject:      actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage),
		ResourceAdmin:        actions(ActionRead, ActionManage),
		ResourceOrganization: actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage, ActionInvite),
		ResourceTeam:         actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage),
		ResourceInvitation:   actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionCancel),
		ResourceMember:       actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete),
	},
	auth.SystemRoleUser: {
		ResourceProject:      actions(ActionCreate, ActionRead, ActionUpdate),
		ResourceOrganization: actions(ActionRead),
		ResourceTeam:         actions(ActionRead),
		ResourceInvitation:   actions(ActionRead),
		ResourceMember:       actions(ActionRead),
	},
}

// organizationPolicy maps a tenant role to its allowed actions per
// resource. Owners do not get organization create/delete here; those
// are platform-level actions gated by the system policy.
var organizationPolicy = map[auth.OrgRole]map[Resource]actionSet{
	auth.OrgRoleOwner: {
		ResourceProject:      actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage),
		ResourceOrganization: actions(ActionRead, ActionUpdate, ActionManage, ActionInvite),
		ResourceTeam:         actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage),
		ResourceInvitation:   actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionCancel),
		ResourceMember:       actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete),
		ResourceUser:         actions(ActionRead),
	},
	auth.OrgRoleAdmin: {
		ResourceProject:      actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete),
		ResourceOrganization: actions(ActionRead, ActionUpdate, ActionInvite),
		ResourceTeam:         actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete),
		ResourceInvitation:   actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionCancel),
		ResourceMember:       actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete),
		ResourceUser:         actions(ActionRead),
	},
	auth.OrgRoleMember: {
		ResourceProject:      actions(ActionCreate, ActionRead, ActionUpdate),
		ResourceOrganization: actions(ActionRead),
		ResourceTeam:         actions(ActionRead),
		ResourceInvitation:   actions(ActionRead),
		ResourceMember:       actions(ActionRead),
		ResourceUser:         actions(ActionRead),
	},
}

// HasPermission reports whether the app-level role grants action on
// resource. Unknown roles, resources and actions all resolve to false.
func HasPermission(role auth.SystemRole, resource Resource, action Action) bool {
	resources, ok := systemPolicy[role]
	if !ok {
		return false
	}
	set, ok := resources[resource]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}

// HasOrganizationPermission reports whether the tenant role grants
// action on resource. Same fail-closed contract as HasPermission.
func HasOrganizationPermission(role auth.OrgRole, resource Resource, action Action) bool {
	resources, ok := organizationPolicy[role]
	if !ok {
		return false
	}
	set, ok := resources[resource]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}
