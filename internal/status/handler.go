package status

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/castellan-io/castellan/internal/authz"
	"github.com/castellan-io/castellan/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the status catalog and validator.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     *Validator
	mw        authz.Middleware
	validator *validator.Validate
	writer    RowWriter
	gate      WriteGate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *Validator, mw authz.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		guard:     guard,
		mw:        mw,
		validator: validator.New(),
	}
}

// WithRowWriter enables the guarded row-mutation surface. Collaborators
// write rows through these routes rather than their own SQL, so the domain
// guard runs on every mutation path.
func (h *Handler) WithRowWriter(writer RowWriter, gate WriteGate) *Handler {
	h.writer = writer
	h.gate = gate
	return h
}

// MountRoutes registers status routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/domains", h.handleListDomains)
	r.Get("/domains/{entityType}/values", h.handleListValues)
	r.Get("/domains/{entityType}/initial", h.handleInitial)
	r.Get("/domains/{entityType}/resolve", h.handleResolve)
	r.Post("/validate", h.handleValidate)
	if h.writer != nil {
		r.Post("/rows/{table}", h.handleInsertRow)
		r.Put("/rows/{table}/{id}", h.handleUpdateRow)
	}
	r.Group(func(gr chi.Router) {
		gr.Use(h.mw.RequireAdmin)
		gr.Post("/domains", h.handleCreateDomain)
		gr.Delete("/domains/{entityType}", h.handleDeleteDomain)
		gr.Post("/values", h.handleCreateValue)
		gr.Put("/values/{id}", h.handleUpdateValue)
		gr.Delete("/values/{id}", h.handleDeleteValue)
	})
}

func (h *Handler) handleListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.service.ListDomains(r.Context())
	if err != nil {
		h.serverError(w, "list status domains", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"domains": domains})
}

type domainRequest struct {
	EntityType  string `json:"entity_type" validate:"required"`
	Description string `json:"description"`
}

func (h *Handler) handleCreateDomain(w http.ResponseWriter, r *http.Request) {
	var req domainRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	domain, err := h.service.CreateDomain(r.Context(), req.EntityType, req.Description)
	if err != nil {
		h.respondCatalogError(w, "create status domain", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, domain)
}

func (h *Handler) handleDeleteDomain(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDomain(r.Context(), chi.URLParam(r, "entityType")); err != nil {
		h.respondCatalogError(w, "delete status domain", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListValues(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.ListForDomain(r.Context(), chi.URLParam(r, "entityType"))
	if err != nil {
		h.serverError(w, "list status values", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"values": values})
}

func (h *Handler) handleInitial(w http.ResponseWriter, r *http.Request) {
	value, err := h.service.Initial(r.Context(), chi.URLParam(r, "entityType"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.JSON(w, http.StatusOK, map[string]any{"initial": nil})
			return
		}
		h.serverError(w, "initial status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"initial": value})
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "key query parameter is required")
		return
	}
	id, err := h.service.ResolveID(r.Context(), chi.URLParam(r, "entityType"), key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.JSON(w, http.StatusOK, map[string]any{"id": nil})
			return
		}
		h.serverError(w, "resolve status key", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id})
}

type valueRequest struct {
	EntityType  string `json:"entity_type" validate:"required"`
	Key         string `json:"status_key"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
	SortOrder   int32  `json:"sort_order"`
	IsInitial   bool   `json:"is_initial"`
	IsTerminal  bool   `json:"is_terminal"`
}

func (h *Handler) handleCreateValue(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Key == "" && req.DisplayName == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "status_key or display_name is required")
		return
	}
	value, err := h.service.CreateValue(r.Context(), Value{
		EntityType:  req.EntityType,
		Key:         req.Key,
		DisplayName: req.DisplayName,
		Color:       req.Color,
		SortOrder:   req.SortOrder,
		IsInitial:   req.IsInitial,
		IsTerminal:  req.IsTerminal,
	})
	if err != nil {
		h.respondCatalogError(w, "create status value", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, value)
}

type valueUpdateRequest struct {
	DisplayName string `json:"display_name" validate:"required"`
	Color       string `json:"color"`
	SortOrder   int32  `json:"sort_order"`
	IsInitial   bool   `json:"is_initial"`
	IsTerminal  bool   `json:"is_terminal"`
}

func (h *Handler) handleUpdateValue(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "value id must be numeric")
		return
	}
	var req valueUpdateRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	value, updateErr := h.service.UpdateValue(r.Context(), Value{
		ID:          id,
		DisplayName: req.DisplayName,
		Color:       req.Color,
		SortOrder:   req.SortOrder,
		IsInitial:   req.IsInitial,
		IsTerminal:  req.IsTerminal,
	})
	if updateErr != nil {
		h.respondCatalogError(w, "update status value", updateErr)
		return
	}
	httpx.JSON(w, http.StatusOK, value)
}

func (h *Handler) handleDeleteValue(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "value id must be numeric")
		return
	}
	if err := h.service.DeleteValue(r.Context(), id); err != nil {
		h.respondCatalogError(w, "delete status value", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type validateRequest struct {
	Table string         `json:"table" validate:"required"`
	Row   map[string]any `json:"row" validate:"required"`
}

// handleValidate lets collaborators run the domain guard ahead of their own
// mutation, with the same verdict the storage decorator would produce.
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.guard.CheckRow(r.Context(), req.Table, req.Row); err != nil {
		var violation *DomainViolationError
		if errors.As(err, &violation) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Status Domain Violation", violation.Error())
			return
		}
		h.serverError(w, "validate row", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (h *Handler) handleInsertRow(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	row, ok := h.decodeRow(w, r)
	if !ok {
		return
	}
	if !h.authorizeRow(w, r, table, "create") {
		return
	}
	if err := h.writer.InsertRow(r.Context(), table, row); err != nil {
		h.respondRowError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true})
}

func (h *Handler) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "row id must be numeric")
		return
	}
	table := chi.URLParam(r, "table")
	row, ok := h.decodeRow(w, r)
	if !ok {
		return
	}
	if !h.authorizeRow(w, r, table, "update") {
		return
	}
	if err := h.writer.UpdateRow(r.Context(), table, id, row); err != nil {
		h.respondRowError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) decodeRow(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var row map[string]any
	if err := httpx.DecodeJSON(r, &row); err != nil || len(row) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "row object is required")
		return nil, false
	}
	return row, true
}

func (h *Handler) authorizeRow(w http.ResponseWriter, r *http.Request, table, operation string) bool {
	allowed, err := h.gate.Can(r.Context(), table, operation)
	if err != nil {
		h.serverError(w, "authorize row write", err)
		return false
	}
	if !allowed {
		httpx.RespondError(w, httpx.ErrForbidden)
		return false
	}
	return true
}

func (h *Handler) respondRowError(w http.ResponseWriter, err error) {
	var violation *DomainViolationError
	if errors.As(err, &violation) {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Status Domain Violation", violation.Error())
		return
	}
	h.serverError(w, "write row", err)
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondCatalogError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInitialExists):
		httpx.Problem(w, http.StatusConflict, "Initial Status Exists", err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.RespondError(w, httpx.ErrDuplicate)
	default:
		h.serverError(w, message, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
