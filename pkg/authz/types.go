package authz

// Resource names a kind of object a permission applies to
type Resource string

const (
	ResourceUser         Resource = "user"
	ResourceProject      Resource = "project"
	ResourceAdmin        Resource = "admin"
	ResourceOrganization Resource = "organization"
	ResourceTeam         Resource = "team"
	ResourceInvitation   Resource = "invitation"
	ResourceMember       Resource = "member"
)

// Action names an operation on a resource
type Action string

const (
	ActionCreate      Action = "create"
	ActionRead        Action = "read"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionManage      Action = "manage"
	ActionBan         Action = "ban"
	ActionImpersonate Action = "impersonate"
	ActionInvite      Action = "invite"
	ActionCancel      Action = "cancel"
)

// Permission pairs a resource with an action
type Permission struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
}

// String returns the canonical "resource:action" form
func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action)
}
