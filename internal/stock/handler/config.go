package handler

import (
	"net/http"

	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/httputil"
)

type configView struct {
	RecordsPerPage          int   `json:"records_per_page"`
	AllowUploads            bool  `json:"allow_uploads"`
	AllowUploadDeletions    bool  `json:"allow_upload_deletions"`
	AllowEmailNotifications *bool `json:"allow_email_notifications,omitempty"`
}

func viewConfig(cfg domain.AdminConfig, manager bool) configView {
	v := configView{
		RecordsPerPage:       cfg.RecordsPerPage,
		AllowUploads:         cfg.AllowUploads,
		AllowUploadDeletions: cfg.AllowUploadDeletions,
	}
	if manager {
		v.AllowEmailNotifications = &cfg.AllowEmailNotifications
	}
	return v
}

type editLockView struct {
	Locked bool        `json:"locked"`
	Mode   domain.Mode `json:"mode"`
}

type editLockRequest struct {
	Expected *bool `json:"expected" validate:"required"`
	Locked   *bool `json:"locked" validate:"required"`
}

// GetConfig returns the admin flags
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Config.Get(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, viewConfig(cfg, actor.FromContext(r.Context()).IsManager()))
}

// UpdateConfig changes admin flags
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var upd service.ConfigUpdate
	if err := httputil.DecodeJSON(r, &upd); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(upd); err != nil {
		httputil.Error(w, err)
		return
	}

	cfg, err := h.svc.Config.Update(r.Context(), actor.FromContext(r.Context()), upd)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, viewConfig(cfg, true))
}

// GetEditLock reports the maintenance mode
func (h *Handler) GetEditLock(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Config.Get(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, editLockView{Locked: cfg.EditLock, Mode: cfg.Mode()})
}

// SetEditLock flips the edit lock if it still holds the expected value
func (h *Handler) SetEditLock(w http.ResponseWriter, r *http.Request) {
	var req editLockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	cfg, err := h.svc.Config.SetEditLock(r.Context(), actor.FromContext(r.Context()), *req.Expected, *req.Locked)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, editLockView{Locked: cfg.EditLock, Mode: cfg.Mode()})
}
