package actions

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

// Handler manages action registry endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        authz.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, mw: mw, validator: validator.New()}
}

// MountRoutes registers action registry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/tables/{table}", h.listForTable)
	r.Get("/{id}", h.getAction)
	r.Group(func(gr chi.Router) {
		gr.Use(h.mw.RequireAdmin)
		gr.Post("/", h.createAction)
		gr.Put("/{id}", h.updateAction)
		gr.Delete("/{id}", h.deleteAction)
	})
}

func (h *Handler) listForTable(w http.ResponseWriter, r *http.Request) {
	actions, err := h.service.ListForTable(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		h.serverError(w, "list actions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"actions": actions})
}

func (h *Handler) getAction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.actionID(w, r)
	if !ok {
		return
	}
	action, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.serverError(w, "get action", err)
		return
	}
	httpx.JSON(w, http.StatusOK, action)
}

type actionRequest struct {
	TableName        string `json:"table_name" validate:"required"`
	ActionName       string `json:"action_name" validate:"required"`
	RPCReference     string `json:"rpc_reference" validate:"required"`
	Label            string `json:"label"`
	ConfirmationText string `json:"confirmation_text"`
	ConditionExpr    string `json:"condition_expr"`
}

func (h *Handler) createAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	action, err := h.service.Create(r.Context(), Action{
		TableName:        req.TableName,
		ActionName:       req.ActionName,
		RPCReference:     req.RPCReference,
		Label:            req.Label,
		ConfirmationText: req.ConfirmationText,
		ConditionExpr:    req.ConditionExpr,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			httpx.RespondError(w, httpx.ErrDuplicate)
			return
		}
		h.serverError(w, "create action", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, action)
}

type actionUpdateRequest struct {
	RPCReference     string `json:"rpc_reference" validate:"required"`
	Label            string `json:"label"`
	ConfirmationText string `json:"confirmation_text"`
	ConditionExpr    string `json:"condition_expr"`
}

func (h *Handler) updateAction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.actionID(w, r)
	if !ok {
		return
	}
	var req actionUpdateRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	action, err := h.service.UpdateMetadata(r.Context(), Action{
		ID:               id,
		RPCReference:     req.RPCReference,
		Label:            req.Label,
		ConfirmationText: req.ConfirmationText,
		ConditionExpr:    req.ConditionExpr,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.serverError(w, "update action", err)
		return
	}
	httpx.JSON(w, http.StatusOK, action)
}

func (h *Handler) deleteAction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.actionID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.serverError(w, "delete action", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) actionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "action id must be numeric")
		return 0, false
	}
	return id, true
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

func (h *Handler) serverError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
