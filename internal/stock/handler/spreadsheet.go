package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/internal/stock/sheet"
	"github.com/shopstock/stock-backend/internal/stock/snapshot"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/shopstock/stock-backend/pkg/httputil"
)

const (
	detailProcessed = "Data has been processed according to configuration."
	detailPartial   = "Data processed with some skipped retail_price values. See skipped_skus for list."
	uploadFailed    = "Failed to upload stock data."
)

type uploadResponse struct {
	Detail string `json:"detail"`
	*service.ReconcileResult
}

// Upload reconciles an uploaded workbook
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		httputil.Error(w, errors.BadRequest("No file was uploaded or the file is too large."))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, errors.BadRequest("No file was uploaded."))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		httputil.Error(w, errors.BadRequest("Only .xlsx files are accepted."))
		return
	}

	wb, err := sheet.Read(file)
	if err != nil {
		h.logger.Warn().Err(err).Str("filename", header.Filename).Msg("unreadable workbook")
		httputil.Error(w, errors.BadRequest(uploadFailed))
		return
	}

	caller := actor.FromContext(r.Context())
	res, err := h.svc.Reconciler.Upload(r.Context(), caller, wb, service.ReconcileOptions{
		DryRun: queryBool(r, "dry_run"),
	})
	if err != nil {
		httputil.Error(w, uploadError(err))
		if !errors.Is(err, errors.ErrUploadsDisabled) && !errors.Is(err, errors.ErrForbidden) {
			h.logger.Error().Err(err).Str("filename", header.Filename).Msg("spreadsheet upload failed")
		}
		return
	}

	detail := detailProcessed
	if res.Partial() {
		detail = detailPartial
	}
	httputil.JSON(w, http.StatusOK, uploadResponse{Detail: detail, ReconcileResult: res})
}

// uploadError keeps errors the caller can act on and reports everything
// else with the generic upload message.
func uploadError(err error) error {
	for _, keep := range []error{
		errors.ErrConversionFailed,
		errors.ErrUploadsDisabled,
		errors.ErrForbidden,
		errors.ErrUnauthorized,
	} {
		if errors.Is(err, keep) {
			return err
		}
	}
	return errors.BadRequest(uploadFailed)
}

// Download streams the export workbook
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	wb, name, err := h.svc.Exporter.Export(r.Context(), actor.FromContext(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode export")
		httputil.Error(w, errors.Internal("failed to build the export"))
		return
	}

	w.Header().Set("Content-Type", snapshot.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Snapshot stores the current export in the snapshot bucket
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.svc.Snapshots == nil {
		httputil.Error(w, errors.New("SNAPSHOTS_DISABLED", "export snapshots are not configured", http.StatusServiceUnavailable))
		return
	}

	wb, name, err := h.svc.Exporter.Export(r.Context(), actor.FromContext(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	key, err := h.svc.Snapshots.Save(r.Context(), wb, name)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to store export snapshot")
		httputil.Error(w, errors.Internal("failed to store the snapshot"))
		return
	}
	httputil.Created(w, map[string]string{"key": key})
}
