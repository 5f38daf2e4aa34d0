package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/observability"
)

// Handlers exposes the audit trail to system administrators
type Handlers struct {
	recorder Recorder
	logger   *observability.Logger
}

// NewHandlers creates a new audit Handlers
func NewHandlers(recorder Recorder, logger *observability.Logger) *Handlers {
	return &Handlers{
		recorder: recorder,
		logger:   logger,
	}
}

// List searches the audit trail. Filters come from query parameters:
// actor_id, organization_id, event_type (repeatable), status,
// since/until (RFC 3339), limit, offset.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := &SearchFilter{
		ActorID:        q.Get("actor_id"),
		OrganizationID: q.Get("organization_id"),
		Status:         EventStatus(q.Get("status")),
	}
	for _, t := range q["event_type"] {
		filter.EventTypes = append(filter.EventTypes, EventType(t))
	}
	if s := q.Get("since"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid since timestamp")
			return
		}
		filter.Since = &ts
	}
	if s := q.Get("until"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid until timestamp")
			return
		}
		filter.Until = &ts
	}
	if s := q.Get("limit"); s != "" {
		filter.Limit, _ = strconv.Atoi(s)
	}
	if s := q.Get("offset"); s != "" {
		filter.Offset, _ = strconv.Atoi(s)
	}

	events, err := h.recorder.Search(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("failed to search audit events")
		httputil.WriteInternalError(w, err)
		return
	}
	if events == nil {
		events = []*Event{}
	}
	httputil.WriteSuccess(w, events)
}
