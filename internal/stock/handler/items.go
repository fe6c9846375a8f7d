package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/httputil"
)

// ListItems lists warehouse items
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Items.List(r.Context(), actor.FromContext(r.Context()), service.ItemQuery{
		Search:          r.URL.Query().Get("search"),
		IncludeInactive: queryBool(r, "include_inactive"),
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	h.list(r.Context(), w, items, len(items))
}

// GetItem gets an item by SKU
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Items.Get(r.Context(), actor.FromContext(r.Context()), chi.URLParam(r, "sku"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, item)
}

// CreateItem creates an item or reactivates a deleted one
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var in service.ItemInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(in); err != nil {
		httputil.Error(w, err)
		return
	}

	item, reactivated, err := h.svc.Items.Create(r.Context(), actor.FromContext(r.Context()), in)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if reactivated {
		httputil.JSON(w, http.StatusOK, item)
		return
	}
	httputil.Created(w, item)
}

// UpdateItem updates an item
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var in service.ItemInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(in); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.svc.Items.Update(r.Context(), actor.FromContext(r.Context()), chi.URLParam(r, "sku"), in)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, item)
}

// DeleteItem soft deletes an item
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Items.Delete(r.Context(), actor.FromContext(r.Context()), chi.URLParam(r, "sku")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// ListShopItems lists a shop's holdings
func (h *Handler) ListShopItems(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Items.ShopStock(r.Context(), actor.FromContext(r.Context()), r.URL.Query().Get("username"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	h.list(r.Context(), w, rows, len(rows))
}
