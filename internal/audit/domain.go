package audit

import (
	"time"

	"github.com/google/uuid"
)

// Impersonation event types. The event_type column is an open string tag so
// future event kinds need no schema change, but only these are accepted by
// the logging endpoint today.
const (
	EventImpersonationStart = "impersonation_start"
	EventImpersonationStop  = "impersonation_stop"
)

// Entry is one append-only audit record. It is always keyed to the caller's
// real identity, never an impersonated one; no update or delete path exists.
type Entry struct {
	ID            uuid.UUID      `json:"id"`
	RealUserID    string         `json:"real_user_id"`
	RealUserEmail string         `json:"real_user_email"`
	EventType     string         `json:"event_type"`
	EventData     map[string]any `json:"event_data"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Result is the soft outcome of a logging call.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListFilters narrows and pages the audit listing, newest first.
type ListFilters struct {
	EventType string
	Limit     int
	Offset    int
}
