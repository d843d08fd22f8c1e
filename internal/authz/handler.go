package authz

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/castellan-io/castellan/internal/platform/httpx"
)

// Handler exposes the permission predicates and grant management endpoints.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	middleware Middleware
	validator  *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		service:    service,
		middleware: mw,
		validator:  validator.New(),
	}
}

// MountRoutes registers authz routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Get("/check", h.handleCheck)
	r.Get("/actions/{actionID}/check", h.handleActionCheck)
	r.Group(func(gr chi.Router) {
		gr.Use(h.middleware.RequireRealAdmin)
		gr.Get("/grants/tables/{table}", h.handleListTableGrants)
		gr.Post("/grants/tables", h.handleGrantTable)
		gr.Delete("/grants/tables", h.handleRevokeTable)
		gr.Post("/grants/actions", h.handleGrantAction)
		gr.Delete("/grants/actions", h.handleRevokeAction)
	})
}

type meResponse struct {
	Subject        string   `json:"subject,omitempty"`
	RealRoles      []string `json:"real_roles"`
	EffectiveRoles []string `json:"effective_roles"`
	IsAdmin        bool     `json:"is_admin"`
	IsRealAdmin    bool     `json:"is_real_admin"`
	Impersonating  bool     `json:"impersonating"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actx := FromContext(r.Context())
	httpx.JSON(w, http.StatusOK, meResponse{
		Subject:        actx.SubjectID,
		RealRoles:      actx.RealRoles,
		EffectiveRoles: actx.EffectiveRoles,
		IsAdmin:        actx.IsAdmin(),
		IsRealAdmin:    actx.IsRealAdmin,
		Impersonating:  actx.Impersonating(),
	})
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	table := r.URL.Query().Get("table")
	op, ok := ParseOperation(r.URL.Query().Get("operation"))
	if table == "" || !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "table and operation query parameters are required")
		return
	}
	allowed, err := h.service.Can(r.Context(), table, op)
	if err != nil {
		h.logger.Error("evaluate table permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, checkResponse{Allowed: allowed})
}

func (h *Handler) handleActionCheck(w http.ResponseWriter, r *http.Request) {
	actionID, err := strconv.ParseInt(chi.URLParam(r, "actionID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "action id must be numeric")
		return
	}
	allowed, execErr := h.service.CanExecuteAction(r.Context(), actionID)
	if execErr != nil {
		h.logger.Error("evaluate action permission", slog.Any("error", execErr))
		httpx.RespondError(w, execErr)
		return
	}
	httpx.JSON(w, http.StatusOK, checkResponse{Allowed: allowed})
}

func (h *Handler) handleListTableGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := h.service.ListTableGrants(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		h.logger.Error("list table grants", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": grants})
}

type tableGrantRequest struct {
	TableName string `json:"table_name" validate:"required"`
	Operation string `json:"operation" validate:"required,oneof=create read update delete"`
	Role      string `json:"role" validate:"required"`
}

func (h *Handler) handleGrantTable(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTableGrant(w, r)
	if !ok {
		return
	}
	op, _ := ParseOperation(req.Operation)
	h.respondResult(w, h.service.GrantTable(r.Context(), req.TableName, op, req.Role))
}

func (h *Handler) handleRevokeTable(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTableGrant(w, r)
	if !ok {
		return
	}
	op, _ := ParseOperation(req.Operation)
	h.respondResult(w, h.service.RevokeTable(r.Context(), req.TableName, op, req.Role))
}

type actionGrantRequest struct {
	ActionID int64  `json:"action_id" validate:"required,gt=0"`
	Role     string `json:"role" validate:"required"`
}

func (h *Handler) handleGrantAction(w http.ResponseWriter, r *http.Request) {
	var req actionGrantRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	h.respondResult(w, h.service.GrantAction(r.Context(), req.ActionID, req.Role))
}

func (h *Handler) handleRevokeAction(w http.ResponseWriter, r *http.Request) {
	var req actionGrantRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	h.respondResult(w, h.service.RevokeAction(r.Context(), req.ActionID, req.Role))
}

func (h *Handler) decodeTableGrant(w http.ResponseWriter, r *http.Request) (tableGrantRequest, bool) {
	var req tableGrantRequest
	if !h.decodeBody(w, r, &req) {
		return tableGrantRequest{}, false
	}
	return req, true
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

// respondResult maps soft mutation outcomes onto JSON bodies; denials stay
// in-band so callers can render inline feedback.
func (h *Handler) respondResult(w http.ResponseWriter, res Result) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	httpx.JSON(w, status, res)
}
