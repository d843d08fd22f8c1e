package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/castellan-io/castellan/internal/audit"
	"github.com/castellan-io/castellan/internal/platform/httpx"
)

// LogService defines the business contract for the audit trail.
type LogService interface {
	LogImpersonation(ctx context.Context, requestedRoles []string, action string) audit.Result
	List(ctx context.Context, eventType string, limit, offset int) ([]audit.Entry, error)
}

// Exporter writes audit exports.
type Exporter interface {
	WriteCSV(entries []audit.Entry) ([]byte, error)
}

// Handler serves the admin audit log endpoints.
type Handler struct {
	logger    *slog.Logger
	service   LogService
	exporter  Exporter
	validator *validator.Validate
}

// NewHandler constructs an audit handler.
func NewHandler(logger *slog.Logger, service LogService, exporter Exporter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		exporter:  exporter,
		validator: validator.New(),
	}
}

type impersonationRequest struct {
	RequestedRoles []string `json:"requested_roles"`
	Action         string   `json:"action" validate:"required,oneof=start stop"`
}

func (h *Handler) handleLogImpersonation(w http.ResponseWriter, r *http.Request) {
	var req impersonationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result := h.service.LogImpersonation(r.Context(), req.RequestedRoles, req.Action)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.listFromQuery(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	entries, ok := h.listFromQuery(w, r)
	if !ok {
		return
	}
	csvBytes, err := h.exporter.WriteCSV(entries)
	if err != nil {
		h.serverError(w, "encode csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"admin-audit-log.csv\"")
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) listFromQuery(w http.ResponseWriter, r *http.Request) ([]audit.Entry, bool) {
	limit, ok := h.intQuery(w, r, "limit", 0)
	if !ok {
		return nil, false
	}
	offset, ok := h.intQuery(w, r, "offset", 0)
	if !ok {
		return nil, false
	}
	eventType := strings.TrimSpace(r.URL.Query().Get("event_type"))
	entries, err := h.service.List(r.Context(), eventType, limit, offset)
	if err != nil {
		if errors.Is(err, audit.ErrAccessViolation) {
			httpx.RespondError(w, httpx.ErrForbidden)
			return nil, false
		}
		h.serverError(w, "list audit log", err)
		return nil, false
	}
	return entries, true
}

func (h *Handler) intQuery(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be a non-negative integer")
		return 0, false
	}
	return value, true
}

func (h *Handler) serverError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
