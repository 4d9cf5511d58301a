package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/paynet-bridge/internal/common"
	"github.com/noah-isme/paynet-bridge/internal/paynet"
)

const maxBodyBytes = 64 << 10

// Handler exposes HTTP endpoints for payment creation, lookup and gateway callbacks.
type Handler struct {
	Svc *Service
}

// Routes mounts the payment endpoints on r.
func (h *Handler) Routes(r chi.Router, createMiddleware ...func(http.Handler) http.Handler) {
	r.With(createMiddleware...).Post("/payments", h.Create)
	r.Get("/payments/{orderId}", h.Get)
	r.Get("/payments/{orderId}/return", h.Return)
	r.Post("/payments/{orderId}/return", h.Return)
}

// CallbackRoutes mounts the gateway notification endpoint on r.
func (h *Handler) CallbackRoutes(r chi.Router) {
	r.Get("/callbacks/paynet", h.Callback)
	r.Post("/callbacks/paynet", h.Callback)
}

// Create starts a payment and runs its first gateway round.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	var req StartRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	if req.Customer != nil && strings.TrimSpace(req.Customer.IPAddress) == "" {
		req.Customer.IPAddress = common.ClientIP(r)
	}
	view, err := h.Svc.Start(r.Context(), req)
	if err != nil {
		writeError(w, view, err)
		return
	}
	common.JSON(w, http.StatusCreated, view)
}

// Get returns the stored state of a payment.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	view, err := h.Svc.Get(r.Context(), strings.TrimSpace(chi.URLParam(r, "orderId")))
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

// Return receives the customer's browser coming back from the gateway. When the gateway
// asks for another page the browser is sent there directly.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid form", nil)
		return
	}
	view, err := h.Svc.CustomerReturn(r.Context(), strings.TrimSpace(chi.URLParam(r, "orderId")), r.Form)
	if err != nil {
		writeError(w, view, err)
		return
	}
	switch {
	case view.NeededAction == string(paynet.ActionShowHTML) && view.HTML != "":
		common.HTML(w, http.StatusOK, view.HTML)
	case view.NeededAction == string(paynet.ActionRedirect) && view.RedirectURL != "":
		http.Redirect(w, r, view.RedirectURL, http.StatusSeeOther)
	default:
		common.JSON(w, http.StatusOK, view)
	}
}

// Callback receives server_callback_url notifications. The gateway keeps resending until
// it gets a 2xx, so duplicates are acknowledged too.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "callback unavailable", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	_, err := h.Svc.ServerCallback(r.Context(), r.Form)
	if errors.Is(err, ErrDuplicateCallback) {
		common.Text(w, http.StatusOK, "OK")
		return
	}
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.Text(w, http.StatusOK, "OK")
}

// writeError renders err and, when the payment was recorded, its state as details.
func writeError(w http.ResponseWriter, view *View, err error) {
	var appErr *common.AppError
	if view != nil && errors.As(err, &appErr) && appErr.Details == nil {
		copied := *appErr
		copied.Details = view
		common.WriteAppError(w, &copied)
		return
	}
	common.WriteAppError(w, err)
}
