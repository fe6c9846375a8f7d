package handler

import (
	"net/http"

	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/httputil"
)

// ListTransfers lists pending transfers
func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.Transfers.List(r.Context(), actor.FromContext(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	h.list(r.Context(), w, lines, len(lines))
}

// Reserve reserves stock for a shop
func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req service.ReserveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	transfer, err := h.svc.Transfers.Reserve(r.Context(), actor.FromContext(r.Context()), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, transfer)
}

// Submit orders the caller's reserved transfers
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.Transfers.Submit(r.Context(), actor.FromContext(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"detail":    "Transfer request submitted.",
		"transfers": lines,
	})
}

// Complete fulfils an ordered transfer
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	var req service.CompleteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.svc.Transfers.Complete(r.Context(), actor.FromContext(r.Context()), req); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Cancel drops a pending transfer
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req service.CancelRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.svc.Transfers.Cancel(r.Context(), actor.FromContext(r.Context()), req); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
