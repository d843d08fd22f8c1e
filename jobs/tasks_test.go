package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	jobmetrics "github.com/castellan-io/castellan/internal/jobs"
)

func TestEnqueueSecurityAlert(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	info, err := client.EnqueueSecurityAlert(context.Background(), SecurityAlertPayload{
		EventType:       "impersonation_start",
		RealUserID:      "user-1",
		RealUserEmail:   "admin@example.com",
		ImpersonationID: "imp-42",
		RequestedRoles:  []string{"editor"},
		OccurredAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if info.Queue != QueueSecurity {
		t.Fatalf("expected queue %q, got %q", QueueSecurity, info.Queue)
	}
	if info.Type != TaskTypeSecurityAlert {
		t.Fatalf("expected type %q, got %q", TaskTypeSecurityAlert, info.Type)
	}
}

func TestSecurityAlertHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	handler := NewSecurityAlertHandler(logger, metrics)

	task, err := NewSecurityAlertTask(SecurityAlertPayload{
		EventType:     "impersonation_stop",
		RealUserID:    "user-1",
		RealUserEmail: "admin@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := handler.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
}

func TestSecurityAlertHandlerSkipsMalformedPayload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewSecurityAlertHandler(logger, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task := asynq.NewTask(TaskTypeSecurityAlert, []byte("{not json"))
	err := handler.Handle(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}
