package metadata

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/castellan-io/castellan/internal/authz"
	"github.com/castellan-io/castellan/internal/platform/httpx"
)

// RegistryPort defines data access methods for the column registry.
type RegistryPort interface {
	StatusColumns(ctx context.Context, table string) ([]StatusColumn, error)
	UpsertStatusColumn(ctx context.Context, column StatusColumn) error
}

// Handler exposes the status-column registry for operators.
type Handler struct {
	logger    *slog.Logger
	repo      RegistryPort
	mw        authz.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo RegistryPort, mw authz.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, repo: repo, mw: mw, validator: validator.New()}
}

// MountRoutes registers column metadata routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/status-columns/{table}", h.listStatusColumns)
	r.Group(func(gr chi.Router) {
		gr.Use(h.mw.RequireAdmin)
		gr.Put("/status-columns", h.upsertStatusColumn)
	})
}

func (h *Handler) listStatusColumns(w http.ResponseWriter, r *http.Request) {
	columns, err := h.repo.StatusColumns(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		h.logger.Error("list status columns", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"columns": columns})
}

type statusColumnRequest struct {
	TableName  string `json:"table_name" validate:"required"`
	ColumnName string `json:"column_name" validate:"required"`
	EntityType string `json:"expected_entity_type" validate:"required"`
}

func (h *Handler) upsertStatusColumn(w http.ResponseWriter, r *http.Request) {
	var req statusColumnRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	column := StatusColumn{TableName: req.TableName, ColumnName: req.ColumnName, EntityType: req.EntityType}
	if err := h.repo.UpsertStatusColumn(r.Context(), column); err != nil {
		h.logger.Error("upsert status column", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, column)
}
