// Package authz implements the RBAC decision engine for Warden.
//
// # Overview
//
// Two independent permission universes coexist. A principal carries an
// app-level system role (admin or user) assigned by the auth service,
// and may additionally hold one organization role (owner, admin or
// member) per tenant through a membership row. The two role spaces are
// never conflated: system admin is not an organization role, and an
// organization admin has no standing at the app level.
//
// # Policy Tables
//
// Both role spaces resolve against static, compiled-in policy tables
// mapping role -> resource -> allowed actions. The tables are built once
// and never mutated, so concurrent reads are safe without locks. Any
// (role, resource, action) triple not present in a table denies:
//
//	authz.HasPermission(auth.SystemRoleUser, authz.ResourceUser, authz.ActionBan)    // false
//	authz.HasOrganizationPermission(auth.OrgRoleAdmin, authz.ResourceOrganization, authz.ActionUpdate) // true
//
// # Admin Bypass
//
// An unbanned system admin passes every organization-permission check
// without a membership lookup. The bypass is evaluated before the
// membership store is consulted because a system admin may have no
// membership row at all. It applies only to RequireOrganizationPermission
// and CanInOrganization; RequireOrganizationRole matches the actual
// membership role and is never satisfied by system admin status.
//
// # Guards
//
// Routes compose guards as ordered middleware. The first guard that
// rejects terminates the chain with its error; rejections carry no side
// effects, so a denied request can be replayed and gets the same
// verdict.
//
//	guards := authz.NewGuards(checker, logger, metrics)
//
//	r.Handle("/organizations/{organization_id}/invitations",
//		guards.RequireAuth()(
//			guards.RequireOrganizationPermission(authz.ResourceInvitation, authz.ActionCreate)(
//				createInvitationHandler)))
//
// Organization-scoped guards resolve the tenant id from the request
// context first, then the {organization_id} route variable, then the
// organization_id query parameter. After a successful membership lookup
// the id and role are cached on the request context, so later guards in
// the same chain skip the store. The cache lives for the request only;
// decisions are never cached across requests.
//
// # Imperative Helpers
//
// Handlers needing a soft "can I?" answer inside their body use the
// checker directly:
//
//	if !checker.CanInOrganization(ctx, authz.ResourceTeam, authz.ActionDelete, orgID) {
//		httputil.WriteForbidden(w, "insufficient permissions")
//		return
//	}
//
// Unlike guards, the helpers never propagate failures: a store outage,
// missing principal or unresolvable organization all come back as
// false. Cannot-determine means not-permitted.
//
// # Related Packages
//
//   - pkg/auth: principal and session resolution against the auth service
//   - pkg/orgs: organization, membership and invitation storage
//   - pkg/middleware: attaches the auth context guards read
package authz
