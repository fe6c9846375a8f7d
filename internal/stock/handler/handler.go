// Package handler exposes the stock services over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/internal/stock/snapshot"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/httputil"
	"github.com/shopstock/stock-backend/pkg/logger"
	"github.com/shopstock/stock-backend/pkg/permissions"
)

// DefaultMaxUploadBytes caps spreadsheet uploads when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

// Services bundles what the handler serves.
type Services struct {
	Items      *service.ItemService
	Transfers  *service.TransferService
	Reconciler *service.Reconciler
	Exporter   *service.Exporter
	Config     *service.ConfigService
	// Snapshots is nil when no bucket is configured.
	Snapshots *snapshot.Store
}

// Handler serves the /api/v1 routes. Authentication happens upstream; every
// route expects an actor in the request context.
type Handler struct {
	svc            Services
	maxUploadBytes int64
	logger         *logger.Logger
}

// New creates a new handler
func New(svc Services, maxUploadBytes int64, log *logger.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes, logger: log}
}

// Routes registers the API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/me", h.Me)

	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.ListItems)
		r.Get("/{sku}", h.GetItem)
		r.Group(func(r chi.Router) {
			r.Use(permissions.RequireManager)
			r.Post("/", h.CreateItem)
			r.Put("/{sku}", h.UpdateItem)
			r.Delete("/{sku}", h.DeleteItem)
		})
	})
	r.Get("/shop-items", h.ListShopItems)

	r.Route("/transfers", func(r chi.Router) {
		r.Get("/", h.ListTransfers)
		r.Post("/", h.Reserve)
		r.Post("/submit", h.Submit)
		r.With(permissions.RequireManager).Post("/complete", h.Complete)
		r.Post("/cancel", h.Cancel)
	})

	r.Get("/config", h.GetConfig)
	r.With(permissions.RequireManager).Put("/config", h.UpdateConfig)
	r.Get("/edit-lock", h.GetEditLock)
	r.With(permissions.RequireManager).Put("/edit-lock", h.SetEditLock)

	r.Get("/spreadsheet", h.Download)
	r.With(permissions.RequireManager).Post("/spreadsheet", h.Upload)
	r.With(permissions.RequireManager).Post("/export/snapshot", h.Snapshot)
}

// Me returns the authenticated actor.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	httputil.JSON(w, http.StatusOK, map[string]any{
		"id":         a.ID,
		"username":   a.Username,
		"email":      a.Email,
		"groups":     a.Groups,
		"is_manager": a.IsManager(),
	})
}

// list writes rows with the configured page size in meta.
func (h *Handler) list(ctx context.Context, w http.ResponseWriter, rows any, total int) {
	meta := &httputil.Meta{Total: total}
	if cfg, err := h.svc.Config.Get(ctx); err == nil {
		meta.PerPage = cfg.RecordsPerPage
	} else {
		h.logger.Warn().Err(err).Msg("failed to read records_per_page")
	}
	httputil.JSONWithMeta(w, http.StatusOK, rows, meta)
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}
