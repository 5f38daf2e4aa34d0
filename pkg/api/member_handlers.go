package api

import (
	"errors"
	"net/http"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/contextkeys"
	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/orgs"
)

// MemberHandlers handles organization membership requests
type MemberHandlers struct {
	orgService orgs.Service
	logger     *observability.Logger
}

// NewMemberHandlers creates a new MemberHandlers
func NewMemberHandlers(orgService orgs.Service, logger *observability.Logger) *MemberHandlers {
	return &MemberHandlers{
		orgService: orgService,
		logger:     logger,
	}
}

// List lists members of an organization with directory details
func (h *MemberHandlers) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "organization_id")
	if !ok {
		return
	}

	members, err := h.orgService.ListMembersForOrganization(r.Context(), orgID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list members")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

type updateMemberRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole changes a member's organization role. The guard already
// checked member:update; the store additionally refuses to touch the
// owner role unless the actor is an owner. A bypassing system admin has
// no cached org role and acts with owner authority.
func (h *MemberHandlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "organization_id")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return
	}

	var req updateMemberRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !auth.ValidOrgRole(req.Role) {
		httputil.WriteBadRequest(w, "invalid role")
		return
	}

	actorRole, hasRole := r.Context().Value(contextkeys.OrganizationRoleKey).(auth.OrgRole)
	if !hasRole {
		actorRole = auth.OrgRoleOwner
	}

	err := h.orgService.UpdateMemberRole(r.Context(), orgID, userID, auth.OrgRole(req.Role), actorRole)
	switch {
	case errors.Is(err, orgs.ErrNotFound):
		httputil.WriteNotFoundError(w, "member not found")
	case errors.Is(err, orgs.ErrOwnerRoleProtected):
		httputil.WriteForbidden(w, "owner role can only be changed by another owner")
	case err != nil:
		h.logger.WithError(err).Error("failed to update member role")
		httputil.WriteInternalError(w, err)
	default:
		httputil.WriteNoContent(w)
	}
}

// Remove removes a member from an organization
func (h *MemberHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "organization_id")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return
	}

	err := h.orgService.RemoveMember(r.Context(), orgID, userID)
	if errors.Is(err, orgs.ErrNotFound) {
		httputil.WriteNotFoundError(w, "member not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to remove member")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// Leave removes the caller's own membership
func (h *MemberHandlers) Leave(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	orgID := contextkeys.GetOrganizationID(r.Context())

	if role, ok := r.Context().Value(contextkeys.OrganizationRoleKey).(auth.OrgRole); ok && role == auth.OrgRoleOwner {
		httputil.WriteForbidden(w, "owners must transfer ownership before leaving")
		return
	}

	err := h.orgService.RemoveMember(r.Context(), orgID, authCtx.Principal.ID)
	if errors.Is(err, orgs.ErrNotFound) {
		httputil.WriteNotFoundError(w, "membership not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to leave organization")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
