package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/castellan-io/castellan/internal/authz"
)

// ErrAccessViolation marks a non-administrator reaching for audit data. It
// is a hard failure, unlike the soft results of the logging endpoint.
var ErrAccessViolation = errors.New("audit: restricted to administrators")

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Repository persists audit entries.
type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	List(ctx context.Context, filters ListFilters) ([]Entry, error)
}

// Notifier fans a privileged event out to the alerting pipeline. Failures
// are logged, never propagated; the audit write already succeeded.
type Notifier interface {
	NotifyImpersonation(ctx context.Context, entry Entry) error
}

// WriteRecorder counts persisted audit entries for observability.
type WriteRecorder interface {
	RecordAuditWrite(eventType string)
}

// Service owns the append-only admin audit trail.
type Service struct {
	repo     Repository
	notifier Notifier
	recorder WriteRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the audit service. notifier and recorder may be nil.
func NewService(repo Repository, notifier Notifier, recorder WriteRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Log appends an audit entry. The real identity and admin flag are derived
// here from the request context rather than trusted from the caller, so an
// impersonated session cannot forge entries under another identity. Unknown
// event types are rejected with a soft result.
func (s *Service) Log(ctx context.Context, eventType string, payload map[string]any) Result {
	actx := authz.FromContext(ctx)
	if !actx.IsRealAdmin {
		return Result{Message: "administrator privileges required"}
	}
	if eventType != EventImpersonationStart && eventType != EventImpersonationStop {
		return Result{Message: fmt.Sprintf("unsupported event type %q", eventType)}
	}
	entry := Entry{
		ID:            uuid.New(),
		RealUserID:    actx.SubjectID,
		RealUserEmail: actx.Email,
		EventType:     eventType,
		EventData:     payload,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		s.logger.Error("audit insert", slog.Any("error", err))
		return Result{Message: "audit write failed"}
	}
	if s.recorder != nil {
		s.recorder.RecordAuditWrite(eventType)
	}
	if eventType == EventImpersonationStart && s.notifier != nil {
		if err := s.notifier.NotifyImpersonation(ctx, entry); err != nil {
			s.logger.Warn("impersonation alert", slog.Any("error", err))
		}
	}
	return Result{Success: true, Message: "recorded " + eventType}
}

// LogImpersonation records an impersonation start or stop for the calling
// administrator.
func (s *Service) LogImpersonation(ctx context.Context, requestedRoles []string, action string) Result {
	if action != "start" && action != "stop" {
		return Result{Message: fmt.Sprintf("unsupported impersonation action %q", action)}
	}
	actx := authz.FromContext(ctx)
	payload := map[string]any{
		"requested_roles": requestedRoles,
	}
	if actx.ImpersonationID != "" {
		payload["impersonation_id"] = actx.ImpersonationID
	}
	return s.Log(ctx, "impersonation_"+action, payload)
}

// List returns audit entries newest first, optionally filtered by event
// type. Non-administrators get ErrAccessViolation: this is a true access
// violation, not a recoverable business condition.
func (s *Service) List(ctx context.Context, eventType string, limit, offset int) ([]Entry, error) {
	if !authz.FromContext(ctx).IsRealAdmin {
		return nil, ErrAccessViolation
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, ListFilters{EventType: eventType, Limit: limit, Offset: offset})
}
