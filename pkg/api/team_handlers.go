package api

import (
	"errors"
	"net/http"

	"github.com/wardenhq/warden/pkg/authz"
	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/orgs"
)

// TeamHandlers handles team requests. Teams are informational groupings
// inside an organization; they carry no permission space of their own.
type TeamHandlers struct {
	orgService orgs.Service
	checker    *authz.Checker
	logger     *observability.Logger
}

// NewTeamHandlers creates a new TeamHandlers
func NewTeamHandlers(orgService orgs.Service, checker *authz.Checker, logger *observability.Logger) *TeamHandlers {
	return &TeamHandlers{
		orgService: orgService,
		checker:    checker,
		logger:     logger,
	}
}

// canManage is the soft check for destructive team operations when the
// route guard only required a weaker action.
func (h *TeamHandlers) canManage(r *http.Request) bool {
	return h.checker.CanInOrganization(r.Context(), authz.ResourceTeam, authz.ActionManage, "")
}

type createTeamRequest struct {
	Name string `json:"name"`
}

// Create creates a team in the organization
func (h *TeamHandlers) Create(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "organization_id")
	if !ok {
		return
	}

	var req createTeamRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	team := &orgs.Team{OrganizationID: orgID, Name: req.Name}
	if err := h.orgService.CreateTeam(r.Context(), team); err != nil {
		h.logger.WithError(err).Error("failed to create team")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, team)
}

// List lists an organization's teams
func (h *TeamHandlers) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "organization_id")
	if !ok {
		return
	}

	teams, err := h.orgService.ListTeams(r.Context(), orgID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list teams")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, teams)
}

// Delete removes a team. The team must belong to the organization in
// the path; a team id from another tenant is a not-found.
func (h *TeamHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "organization_id")
	if !ok {
		return
	}
	teamID, ok := httputil.ParsePathStringOrError(w, r, "team_id")
	if !ok {
		return
	}

	team, err := h.orgService.GetTeam(r.Context(), teamID)
	if errors.Is(err, orgs.ErrNotFound) || (err == nil && team.OrganizationID != orgID) {
		httputil.WriteNotFoundError(w, "team not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to get team")
		httputil.WriteInternalError(w, err)
		return
	}

	// Deleting a non-empty team takes team:manage on top of the
	// team:delete the route guard already verified.
	members, err := h.orgService.ListTeamMembers(r.Context(), teamID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list team members")
		httputil.WriteInternalError(w, err)
		return
	}
	if len(members) > 0 && !h.canManage(r) {
		httputil.WriteForbidden(w, "deleting a non-empty team requires team manage permission")
		return
	}

	if err := h.orgService.DeleteTeam(r.Context(), teamID); err != nil {
		h.logger.WithError(err).Error("failed to delete team")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

type addTeamMemberRequest struct {
	UserID string `json:"user_id"`
}

// AddMember adds an organization member to a team
func (h *TeamHandlers) AddMember(w http.ResponseWriter, r *http.Request) {
	teamID, ok := httputil.ParsePathStringOrError(w, r, "team_id")
	if !ok {
		return
	}

	var req addTeamMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID == "" {
		httputil.WriteBadRequest(w, "user_id is required")
		return
	}

	tm, err := h.orgService.AddTeamMember(r.Context(), teamID, req.UserID)
	switch {
	case errors.Is(err, orgs.ErrNotFound):
		httputil.WriteNotFoundError(w, "team not found or user is not an organization member")
	case errors.Is(err, orgs.ErrAlreadyMember):
		httputil.WriteConflict(w, "user is already in this team")
	case err != nil:
		h.logger.WithError(err).Error("failed to add team member")
		httputil.WriteInternalError(w, err)
	default:
		httputil.WriteCreated(w, tm)
	}
}

// ListMembers lists a team's members
func (h *TeamHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	teamID, ok := httputil.ParsePathStringOrError(w, r, "team_id")
	if !ok {
		return
	}

	members, err := h.orgService.ListTeamMembers(r.Context(), teamID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list team members")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

// RemoveMember removes a user from a team
func (h *TeamHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	teamID, ok := httputil.ParsePathStringOrError(w, r, "team_id")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return
	}

	err := h.orgService.RemoveTeamMember(r.Context(), teamID, userID)
	if errors.Is(err, orgs.ErrNotFound) {
		httputil.WriteNotFoundError(w, "team member not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to remove team member")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
