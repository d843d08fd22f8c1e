package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/castellan-io/castellan/internal/actions"
	audithttp "github.com/castellan-io/castellan/internal/audit/http"
	"github.com/castellan-io/castellan/internal/authz"
	"github.com/castellan-io/castellan/internal/metadata"
	"github.com/castellan-io/castellan/internal/observability"
	"github.com/castellan-io/castellan/internal/roles"
	"github.com/castellan-io/castellan/internal/status"
	"github.com/castellan-io/castellan/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthzMiddleware authz.Middleware

	AuthzHandler    *authz.Handler
	RolesHandler    *roles.Handler
	ActionsHandler  *actions.Handler
	StatusHandler   *status.Handler
	MetadataHandler *metadata.Handler
	AuditHandler    *audithttp.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with Castellan defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Authz:   params.AuthzMiddleware,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/authz", params.AuthzHandler.MountRoutes)
	if params.RolesHandler != nil {
		r.Route("/roles", params.RolesHandler.MountRoutes)
	}
	if params.ActionsHandler != nil {
		r.Route("/actions", params.ActionsHandler.MountRoutes)
	}
	if params.StatusHandler != nil {
		r.Route("/status", params.StatusHandler.MountRoutes)
	}
	if params.MetadataHandler != nil {
		r.Route("/metadata", params.MetadataHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
