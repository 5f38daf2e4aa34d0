package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wardenhq/warden/pkg/audit"
	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/authz"
	"github.com/wardenhq/warden/pkg/middleware"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/orgs"
)

// Server wires handlers, guards and middleware into a router
type Server struct {
	orgService orgs.Service
	directory  auth.Directory
	checker    *authz.Checker
	guards     *authz.Guards
	authMW     *middleware.AuthMiddleware
	trail      audit.Recorder
	logger     *observability.Logger
}

// NewServer creates the API server. trail may be nil to run without an
// audit trail.
func NewServer(
	orgService orgs.Service,
	directory auth.Directory,
	checker *authz.Checker,
	guards *authz.Guards,
	authMW *middleware.AuthMiddleware,
	trail audit.Recorder,
	logger *observability.Logger,
) *Server {
	return &Server{
		orgService: orgService,
		directory:  directory,
		checker:    checker,
		guards:     guards,
		authMW:     authMW,
		trail:      trail,
		logger:     logger,
	}
}

// chain composes guard middleware left to right around a handler
func chain(h http.Handler, guards ...func(http.Handler) http.Handler) http.Handler {
	for i := len(guards) - 1; i >= 0; i-- {
		h = guards[i](h)
	}
	return h
}

// Router builds the full route table. Every route runs behind principal
// resolution; the guard chain per route decides what else it needs.
// The extra middleware runs after principal resolution so rate limiters
// can key by principal rather than falling back to client IP.
func (s *Server) Router(extra ...mux.MiddlewareFunc) *mux.Router {
	router := mux.NewRouter()
	router.Use(mux.MiddlewareFunc(middleware.RequestIDMiddleware))
	router.Use(mux.MiddlewareFunc(s.authMW.Handler))
	for _, m := range extra {
		router.Use(m)
	}
	if s.trail != nil {
		auditMW := audit.NewMiddleware(s.trail, s.logger)
		router.Use(mux.MiddlewareFunc(auditMW.Handler))
	}

	g := s.guards
	orgHandlers := NewOrgHandlers(s.orgService, s.logger)
	memberHandlers := NewMemberHandlers(s.orgService, s.logger)
	invHandlers := NewInvitationHandlers(s.orgService, s.logger)
	teamHandlers := NewTeamHandlers(s.orgService, s.checker, s.logger)
	adminHandlers := NewAdminHandlers(s.directory, s.logger)

	// Organizations. Any authenticated user may create one and becomes
	// its owner; deletion is a platform-level action.
	router.Handle("/organizations", chain(
		http.HandlerFunc(orgHandlers.Create),
		g.RequireAuth(),
	)).Methods(http.MethodPost)
	router.Handle("/organizations", chain(
		http.HandlerFunc(orgHandlers.List),
		g.RequireAuth(),
	)).Methods(http.MethodGet)
	router.Handle("/organizations/{organization_id}", chain(
		http.HandlerFunc(orgHandlers.Get),
		g.RequireAuth(),
		g.RequireOrganizationMember(),
	)).Methods(http.MethodGet)
	router.Handle("/organizations/{organization_id}", chain(
		http.HandlerFunc(orgHandlers.Update),
		g.RequireAuth(),
		g.RequireOrganizationPermission(authz.ResourceOrganization, authz.ActionUpdate),
	)).Methods(http.MethodPut)
	router.Handle("/organizations/{organization_id}", chain(
		http.HandlerFunc(orgHandlers.Delete),
		g.RequireAuth(),
		g.RequirePermission(authz.ResourceOrganization, authz.ActionDelete),
	)).Methods(http.MethodDelete)

	// Members
	router.Handle("/organizations/{organization_id}/members", chain(
		http.HandlerFunc(memberHandlers.List),
		g.RequireAuth(),
		g.RequireOrganizationPermission(authz.ResourceMember, authz.ActionRead),
	)).Methods(http.MethodGet)
	router.Handle("/organizations/{organization_id}/members/{user_id}", chain(
		http.HandlerFunc(memberHandlers.UpdateRole),
		g.RequireAuth(),
		g.RequireOrganizationPermission(authz.ResourceMember, authz.ActionUpdate),
	)).Methods(http.MethodPut)
	router.Handle("/organizations/{organization_id}/members/{user_id}", chain(
		http.HandlerFunc(memberHandlers.Remove),
		g.RequireAuth(),
		g.RequireOrganizationPermission(authz.ResourceMember, authz.ActionDelete),
	)).Methods(http.MethodDelete)
	router.Handle("/organizations/{organization_id}/leave", chain(
		http.HandlerFunc(memberHandlers.Leave),
		g.RequireAuth(),
		g.RequireOrganizationMember(),
	)).Methods(http.MethodPost)

	// Invitations
	router.Handle("/organizations/{organization_id}/invitations", chain(
		http.HandlerFunc(invHandlers.Create),
		g.RequireAuth(),
		g.RequireOrganizationPermission(authz.ResourceInvitation, authz.ActionCreate),
	)).Methods(http.MethodPost)
	router.Handle("/organizations/{organization_id}/invitations", chain(
		http.HandlerFunc(invHandlers.List),
		g.RequireAuth(),
		g.RequireOrganizationPermission(authz.ResourceInvitation, authz.ActionRead),
	)).Methods(http.MethodGet)
	router.Handle("/organizations/{organization_id}/invitations/{invitation_id}", chain(
		http.HandlerFunc(invHandlers.Cancel),
		g.RequireAuth(),
		g.RequireOrganizationPermission(authz.ResourceInvitation, authz.ActionCancel),
	)).Methods(http.MethodDelete)
	// Acceptance and rejection are keyed by the invitee, not the org
	router.Handle("/invitations/{invitation_id}/accept", chain(
		http.HandlerFunc(invHandlers.Accept),
		g.RequireAuth(),
	)).Methods(http.MethodPost)
	router.Handle("/invitations/{invitation_id}/reject", chain(
		http.HandlerFunc(invHandlers.Reject),
		g.RequireAuth(),
	)).Methods(http.MethodPost)

	// Teams
	router.Handle("/organizations/{organization_id}/teams", chain(
		http.HandlerFunc(teamHandlers.Create),
		g.RequireAuth(),
		g.RequireOrganizationPermission(authz.ResourceTeam, authz.ActionCreate),
	)).Methods(http.MethodPost)
	router.Handle("/organizations/{organization_id}/teams", chain(
		http.HandlerFunc(teamHandlers.List),
		g.RequireAuth(),
		g.RequireOrganizationPermission(authz.ResourceTeam, authz.ActionRead),
	)).Methods(http.MethodGet)
	router.Handle("/organizations/{organization_id}/teams/{team_id}", chain(
		http.HandlerFunc(teamHandlers.Delete),
		g.RequireAuth(),
		g.RequireOrganizationPermission(authz.ResourceTeam, authz.ActionDelete),
	)).Methods(http.MethodDelete)
	router.Handle("/organizations/{organization_id}/teams/{team_id}/members", chain(
		http.HandlerFunc(teamHandlers.AddMember),
		g.RequireAuth(),
		g.RequireOrganizationPermission(authz.ResourceTeam, authz.ActionUpdate),
	)).Methods(http.MethodPost)
	router.Handle("/organizations/{organization_id}/teams/{team_id}/members", chain(
		http.HandlerFunc(teamHandlers.ListMembers),
		g.RequireAuth(),
		g.RequireOrganizationPermission(authz.ResourceTeam, authz.ActionRead),
	)).Methods(http.MethodGet)
	router.Handle("/organizations/{organization_id}/teams/{team_id}/members/{user_id}", chain(
		http.HandlerFunc(teamHandlers.RemoveMember),
		g.RequireAuth(),
		g.RequireOrganizationPermission(authz.ResourceTeam, authz.ActionUpdate),
	)).Methods(http.MethodDelete)

	// Admin user management. These ride the app-level policy table, so
	// only system admins get through.
	router.Handle("/admin/users", chain(
		http.HandlerFunc(adminHandlers.ListUsers),
		g.RequireAuth(),
		g.RequirePermission(authz.ResourceUser, authz.ActionRead),
	)).Methods(http.MethodGet)
	router.Handle("/admin/users/{user_id}", chain(
		http.HandlerFunc(adminHandlers.GetUser),
		g.RequireAuth(),
		g.RequirePermission(authz.ResourceUser, authz.ActionRead),
	)).Methods(http.MethodGet)
	router.Handle("/admin/users/{user_id}", chain(
		http.HandlerFunc(adminHandlers.DeleteUser),
		g.RequireAuth(),
		g.RequirePermission(authz.ResourceUser, authz.ActionDelete),
	)).Methods(http.MethodDelete)
	router.Handle("/admin/users/{user_id}/ban", chain(
		http.HandlerFunc(adminHandlers.BanUser),
		g.RequireAuth(),
		g.RequirePermission(authz.ResourceUser, authz.ActionBan),
	)).Methods(http.MethodPost)
	router.Handle("/admin/users/{user_id}/unban", chain(
		http.HandlerFunc(adminHandlers.UnbanUser),
		g.RequireAuth(),
		g.RequirePermission(authz.ResourceUser, authz.ActionBan),
	)).Methods(http.MethodPost)

	if s.trail != nil {
		auditHandlers := audit.NewHandlers(s.trail, s.logger)
		router.Handle("/admin/audit", chain(
			http.HandlerFunc(auditHandlers.List),
			g.RequireAuth(),
			g.RequirePermission(authz.ResourceAdmin, authz.ActionRead),
		)).Methods(http.MethodGet)
	}

	return router
}
