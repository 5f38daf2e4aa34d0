package api

import (
	"net/http"
	"time"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/observability"
)

// AdminHandlers proxies user management to the auth service's admin
// API. Self-protection lives here: a principal can never delete or ban
// its own account, no matter what the policy tables grant.
type AdminHandlers struct {
	directory auth.Directory
	logger    *observability.Logger
}

// NewAdminHandlers creates a new AdminHandlers
func NewAdminHandlers(directory auth.Directory, logger *observability.Logger) *AdminHandlers {
	return &AdminHandlers{
		directory: directory,
		logger:    logger,
	}
}

// ListUsers lists all user records
func (h *AdminHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.directory.ListUsers(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to list users")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, users)
}

// GetUser fetches a single user record
func (h *AdminHandlers) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return
	}

	user, err := h.directory.GetUser(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("failed to get user")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// DeleteUser deletes a user record, never the caller's own
func (h *AdminHandlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	userID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return
	}

	if userID == authCtx.Principal.ID {
		httputil.WriteForbidden(w, "cannot delete your own account")
		return
	}

	if err := h.directory.DeleteUser(r.Context(), userID); err != nil {
		h.logger.WithError(err).Error("failed to delete user")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

type banUserRequest struct {
	Reason    string     `json:"reason"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// BanUser bans a user, never the caller themselves
func (h *AdminHandlers) BanUser(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	userID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return
	}

	if userID == authCtx.Principal.ID {
		httputil.WriteForbidden(w, "cannot ban your own account")
		return
	}

	var req banUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.directory.BanUser(r.Context(), userID, req.Reason, req.ExpiresAt); err != nil {
		h.logger.WithError(err).Error("failed to ban user")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// UnbanUser lifts a user's ban
func (h *AdminHandlers) UnbanUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return
	}

	if err := h.directory.UnbanUser(r.Context(), userID); err != nil {
		h.logger.WithError(err).Error("failed to unban user")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
