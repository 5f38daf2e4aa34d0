package audit

import "time"

// EventType categorizes an audit event
type EventType string

const (
	// EventHTTPMutation covers state-changing API requests
	EventHTTPMutation EventType = "http.mutation"
	// EventAccessDenied covers requests rejected by the guard chain
	EventAccessDenied EventType = "authz.access_denied"
	// EventUnauthenticated covers requests with no resolvable principal
	EventUnauthenticated EventType = "auth.unauthenticated"
)

// EventStatus is the outcome recorded for an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event is a single audit trail entry
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	ActorID        string `json:"actor_id,omitempty"`
	ActorEmail     string `json:"actor_email,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`

	RequestID  string `json:"request_id,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SearchFilter narrows an audit trail query. Zero values mean "any".
type SearchFilter struct {
	ActorID        string
	OrganizationID string
	EventTypes     []EventType
	Status         EventStatus
	Since          *time.Time
	Until          *time.Time

	Limit  int
	Offset int
}
