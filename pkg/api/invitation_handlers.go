package api

import (
	"errors"
	"net/http"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/orgs"
)

// InvitationHandlers handles the invitation lifecycle
type InvitationHandlers struct {
	orgService orgs.Service
	logger     *observability.Logger
}

// NewInvitationHandlers creates a new InvitationHandlers
func NewInvitationHandlers(orgService orgs.Service, logger *observability.Logger) *InvitationHandlers {
	return &InvitationHandlers{
		orgService: orgService,
		logger:     logger,
	}
}

type createInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Create issues an invitation to join the organization
func (h *InvitationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	orgID, ok := httputil.ParsePathStringOrError(w, r, "organization_id")
	if !ok {
		return
	}

	var req createInvitationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" {
		httputil.WriteBadRequest(w, "email is required")
		return
	}
	if req.Role == "" {
		req.Role = string(auth.OrgRoleMember)
	}
	if !auth.ValidOrgRole(req.Role) {
		httputil.WriteBadRequest(w, "invalid role")
		return
	}

	inv := &orgs.Invitation{
		OrganizationID: orgID,
		Email:          req.Email,
		Role:           auth.OrgRole(req.Role),
		InviterID:      authCtx.Principal.ID,
	}
	err := h.orgService.CreateInvitation(r.Context(), inv)
	if errors.Is(err, orgs.ErrDuplicateInvitation) {
		httputil.WriteConflict(w, "a pending invitation already exists for this email")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to create invitation")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, inv)
}

// List lists pending invitations for an organization
func (h *InvitationHandlers) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "organization_id")
	if !ok {
		return
	}

	invitations, err := h.orgService.ListInvitations(r.Context(), orgID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list invitations")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, invitations)
}

// Accept converts an invitation into a membership for the caller
func (h *InvitationHandlers) Accept(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	invID, ok := httputil.ParsePathStringOrError(w, r, "invitation_id")
	if !ok {
		return
	}

	m, err := h.orgService.AcceptInvitation(r.Context(), invID, authCtx.Principal.ID, authCtx.Principal.Email)
	switch {
	case errors.Is(err, orgs.ErrNotFound):
		httputil.WriteNotFoundError(w, "invitation not found")
	case errors.Is(err, orgs.ErrInvitationMismatch):
		httputil.WriteForbidden(w, "invitation is not addressed to this account")
	case errors.Is(err, orgs.ErrInvitationExpired):
		httputil.WriteErrorMessage(w, http.StatusGone, "invitation has expired")
	case errors.Is(err, orgs.ErrAlreadyMember):
		httputil.WriteConflict(w, "already a member of this organization")
	case err != nil:
		h.logger.WithError(err).Error("failed to accept invitation")
		httputil.WriteInternalError(w, err)
	default:
		httputil.WriteCreated(w, m)
	}
}

// Reject declines an invitation addressed to the caller
func (h *InvitationHandlers) Reject(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	invID, ok := httputil.ParsePathStringOrError(w, r, "invitation_id")
	if !ok {
		return
	}

	err := h.orgService.RejectInvitation(r.Context(), invID, authCtx.Principal.Email)
	if errors.Is(err, orgs.ErrNotFound) {
		httputil.WriteNotFoundError(w, "invitation not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to reject invitation")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// Cancel withdraws a pending invitation from the organization side
func (h *InvitationHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "organization_id")
	if !ok {
		return
	}
	invID, ok := httputil.ParsePathStringOrError(w, r, "invitation_id")
	if !ok {
		return
	}

	err := h.orgService.CancelInvitation(r.Context(), invID, orgID)
	if errors.Is(err, orgs.ErrNotFound) {
		httputil.WriteNotFoundError(w, "invitation not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to cancel invitation")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
