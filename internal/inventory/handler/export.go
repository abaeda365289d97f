package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/internal/inventory/service"
	"github.com/rentory/rentory-backend/pkg/httputil"
	"github.com/rentory/rentory-backend/pkg/logger"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	exports *service.ExportCoordinator
	logger  *logger.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(exports *service.ExportCoordinator, log *logger.Logger) *ExportHandler {
	return &ExportHandler{
		exports: exports,
		logger:  log,
	}
}

// Initiate requests an export. Completed exports answer 201, exports left
// to the worker answer 202.
func (h *ExportHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req initiateExportRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	handle, err := h.exports.Initiate(r.Context(), req.toInput())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if handle.Path == domain.ExportPathAsync {
		httputil.Accepted(w, handle)
		return
	}
	httputil.Created(w, handle)
}

// Download streams a completed export file
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	file, err := h.exports.Download(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Body); err != nil {
		h.logger.Warn().Err(err).Str("export_id", chi.URLParam(r, "id")).Msg("failed to write export download")
	}
}
