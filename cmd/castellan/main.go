package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/castellan-io/castellan/internal/actions"
	"github.com/castellan-io/castellan/internal/app"
	"github.com/castellan-io/castellan/internal/audit"
	audithttp "github.com/castellan-io/castellan/internal/audit/http"
	"github.com/castellan-io/castellan/internal/authz"
	"github.com/castellan-io/castellan/internal/metadata"
	"github.com/castellan-io/castellan/internal/observability"
	"github.com/castellan-io/castellan/internal/platform/cache"
	"github.com/castellan-io/castellan/internal/platform/db"
	"github.com/castellan-io/castellan/internal/roles"
	"github.com/castellan-io/castellan/internal/status"
	"github.com/castellan-io/castellan/jobs"
)

// securityNotifier forwards impersonation audit entries to the background
// queue so operators hear about them without blocking the request path.
type securityNotifier struct {
	client *jobs.Client
}

func (n securityNotifier) NotifyImpersonation(ctx context.Context, entry audit.Entry) error {
	payload := jobs.SecurityAlertPayload{
		EventType:     entry.EventType,
		RealUserID:    entry.RealUserID,
		RealUserEmail: entry.RealUserEmail,
		OccurredAt:    entry.CreatedAt,
	}
	if id, ok := entry.EventData["impersonation_id"].(string); ok {
		payload.ImpersonationID = id
	}
	if requested, ok := entry.EventData["requested_roles"].([]string); ok {
		payload.RequestedRoles = requested
	}
	_, err := n.client.EnqueueSecurityAlert(ctx, payload)
	return err
}

// rowWriteGate adapts the permission evaluator to the guarded row surface.
type rowWriteGate struct {
	evaluator *authz.Service
}

func (g rowWriteGate) Can(ctx context.Context, table, operation string) (bool, error) {
	return g.evaluator.Can(ctx, table, authz.Operation(operation))
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, catalog cache disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	authzMiddleware := authz.Middleware{
		ClaimsHeader:        cfg.ClaimsHeader,
		ImpersonationHeader: cfg.ImpersonationHeader,
		ClientID:            cfg.AuthzClientID,
		Logger:              logger,
	}

	authzRepo := authz.NewRepository(dbpool)
	authzService := authz.NewService(authzRepo, metrics)
	authzHandler := authz.NewHandler(logger, authzService, authzMiddleware)

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo)
	rolesHandler := roles.NewHandler(logger, rolesService, authzMiddleware)

	actionsRepo := actions.NewRepository(dbpool)
	actionsService := actions.NewService(actionsRepo)
	actionsHandler := actions.NewHandler(logger, actionsService, authzMiddleware)

	metadataRepo := metadata.NewRepository(dbpool)
	metadataHandler := metadata.NewHandler(logger, metadataRepo, authzMiddleware)

	statusRepo := status.NewRepository(dbpool)
	statusLookup := status.NewCachedLookup(redisClient, statusRepo, 5*time.Minute, logger)
	statusService := status.NewService(statusRepo).WithCache(statusLookup)
	statusValidator := status.NewValidator(metadataRepo, statusLookup)
	rowWriter := status.NewGuardedWriter(status.NewRowWriter(dbpool), statusValidator)
	statusHandler := status.NewHandler(logger, statusService, statusValidator, authzMiddleware).
		WithRowWriter(rowWriter, rowWriteGate{evaluator: authzService})

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo, securityNotifier{client: jobClient}, metrics, logger)
	auditHandler := audithttp.NewHandler(logger, auditService, audit.NewExporter())

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthzMiddleware: authzMiddleware,
		AuthzHandler:    authzHandler,
		RolesHandler:    rolesHandler,
		ActionsHandler:  actionsHandler,
		StatusHandler:   statusHandler,
		MetadataHandler: metadataHandler,
		AuditHandler:    auditHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
