package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMiddlewareRecordsRequests(t *testing.T) {
	metrics := NewMetrics()

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/authz/check", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/authz/check", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	body := scrape(t, metrics)
	if !strings.Contains(body, `castellan_http_requests_total{code="200",route="/authz/check"} 1`) {
		t.Fatalf("request counter missing from exposition:\n%s", body)
	}
	if !strings.Contains(body, "castellan_http_request_duration_seconds") {
		t.Fatalf("duration histogram missing from exposition")
	}
}

func TestRecordDecision(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordDecision("table", true)
	metrics.RecordDecision("table", false)
	metrics.RecordDecision("action", false)

	body := scrape(t, metrics)
	for _, want := range []string{
		`castellan_authz_decisions_total{allowed="true",kind="table"} 1`,
		`castellan_authz_decisions_total{allowed="false",kind="table"} 1`,
		`castellan_authz_decisions_total{allowed="false",kind="action"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, body)
		}
	}
}

func TestRecordAuditWrite(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordAuditWrite("impersonation_start")
	metrics.RecordAuditWrite("impersonation_start")

	body := scrape(t, metrics)
	if !strings.Contains(body, `castellan_audit_writes_total{event_type="impersonation_start"} 2`) {
		t.Fatalf("audit write counter missing from exposition:\n%s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.RecordDecision("table", true)
	metrics.RecordAuditWrite("impersonation_stop")

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("nil middleware must pass through, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil metrics handler should report unavailable, got %d", rec.Code)
	}
}

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics endpoint returned %d", rec.Code)
	}
	return rec.Body.String()
}
