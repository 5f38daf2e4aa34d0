package api

import (
	"errors"
	"net/http"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/orgs"
)

// OrgHandlers handles organization CRUD requests
type OrgHandlers struct {
	orgService orgs.Service
	logger     *observability.Logger
}

// NewOrgHandlers creates a new OrgHandlers
func NewOrgHandlers(orgService orgs.Service, logger *observability.Logger) *OrgHandlers {
	return &OrgHandlers{
		orgService: orgService,
		logger:     logger,
	}
}

type createOrgRequest struct {
	Name     string                 `json:"name"`
	Slug     string                 `json:"slug,omitempty"`
	LogoURL  string                 `json:"logo_url,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Create creates an organization; the caller becomes its owner
func (h *OrgHandlers) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())

	var req createOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	org := &orgs.Organization{
		Name:     req.Name,
		Slug:     req.Slug,
		LogoURL:  req.LogoURL,
		Metadata: req.Metadata,
	}
	err := h.orgService.CreateOrganization(r.Context(), org, authCtx.Principal.ID)
	if errors.Is(err, orgs.ErrSlugTaken) {
		httputil.WriteConflict(w, "organization slug already taken")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to create organization")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, org)
}

// List lists the caller's organizations
func (h *OrgHandlers) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())

	list, err := h.orgService.ListOrganizationsForUser(r.Context(), authCtx.Principal.ID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list organizations")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// Get retrieves one organization
func (h *OrgHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "organization_id")
	if !ok {
		return
	}

	org, err := h.orgService.GetOrganization(r.Context(), id)
	if errors.Is(err, orgs.ErrNotFound) {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to get organization")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

// Update updates mutable organization fields
func (h *OrgHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "organization_id")
	if !ok {
		return
	}

	var req orgs.UpdateOrganizationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	err := h.orgService.UpdateOrganization(r.Context(), id, &req)
	if errors.Is(err, orgs.ErrNotFound) {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to update organization")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// Delete removes an organization and everything under it
func (h *OrgHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "organization_id")
	if !ok {
		return
	}

	err := h.orgService.DeleteOrganization(r.Context(), id)
	if errors.Is(err, orgs.ErrNotFound) {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to delete organization")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
