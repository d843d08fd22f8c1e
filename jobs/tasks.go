package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/castellan-io/castellan/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueSecurity carries security follow-up work such as impersonation alerts.
	QueueSecurity = "security"

	// TaskTypeSecurityAlert notifies the security channel about sensitive
	// admin activity recorded in the audit log.
	TaskTypeSecurityAlert = "audit:security_alert"
)

// SecurityAlertPayload carries the audit context for a security notification.
type SecurityAlertPayload struct {
	EventType       string    `json:"event_type"`
	RealUserID      string    `json:"real_user_id"`
	RealUserEmail   string    `json:"real_user_email"`
	ImpersonationID string    `json:"impersonation_id,omitempty"`
	RequestedRoles  []string  `json:"requested_roles,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewSecurityAlertTask constructs an Asynq task for a security alert.
func NewSecurityAlertTask(payload SecurityAlertPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSecurityAlert, data), nil
}

// SecurityAlertHandler delivers security alerts to operators. The current
// delivery channel is structured logs scraped by the alerting pipeline.
type SecurityAlertHandler struct {
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewSecurityAlertHandler builds the handler with its dependencies.
func NewSecurityAlertHandler(logger *slog.Logger, metrics *jobmetrics.Metrics) *SecurityAlertHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecurityAlertHandler{logger: logger, metrics: metrics}
}

// Handle processes TaskTypeSecurityAlert tasks.
func (h *SecurityAlertHandler) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskTypeSecurityAlert)
	var payload SecurityAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}

	h.logger.Warn("security alert",
		slog.String("event_type", payload.EventType),
		slog.String("real_user_id", payload.RealUserID),
		slog.String("real_user_email", payload.RealUserEmail),
		slog.String("impersonation_id", payload.ImpersonationID),
		slog.Any("requested_roles", payload.RequestedRoles),
		slog.Time("occurred_at", payload.OccurredAt),
	)
	h.metrics.AddAlert(payload.EventType)
	return tracker.End(nil)
}
