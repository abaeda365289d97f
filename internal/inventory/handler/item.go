package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentory/rentory-backend/internal/inventory/service"
	"github.com/rentory/rentory-backend/pkg/httputil"
	"github.com/rentory/rentory-backend/pkg/logger"
)

// ItemHandler handles item endpoints
type ItemHandler struct {
	items  *service.ItemMutationService
	bulk   *service.BulkEditEngine
	logger *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(items *service.ItemMutationService, bulk *service.BulkEditEngine, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		items:  items,
		bulk:   bulk,
		logger: log,
	}
}

// Create creates a new item
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.items.Create(r.Context(), req.toInput())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, item)
}

// Get gets an item by ID
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Update applies a versioned patch to an item
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.items.Update(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// ChangeStatus changes the availability status of an item
func (h *ItemHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req changeStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.items.ChangeStatus(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// StatusOptions lists the transitions available for an item
func (h *ItemHandler) StatusOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.items.GetStatusOptions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, opts)
}

// StatusHistory lists an item's availability changes, newest first
func (h *ItemHandler) StatusHistory(w http.ResponseWriter, r *http.Request) {
	page, limit := httputil.Pagination(r, service.DefaultHistoryLimit, service.MaxHistoryLimit)

	history, err := h.items.GetStatusHistory(r.Context(), chi.URLParam(r, "id"), page, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, history.Changes, httputil.NewMeta(history.Page, history.Limit, int64(history.Total)))
}

// UpdateSerializedFields patches serial number and maintenance fields
func (h *ItemHandler) UpdateSerializedFields(w http.ResponseWriter, r *http.Request) {
	var req serializedFieldsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.items.UpdateSerializedFields(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// UpdateQuantity sets the stock level of a non-serialized item
func (h *ItemHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.items.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// BulkEdit applies one patch to many items
func (h *ItemHandler) BulkEdit(w http.ResponseWriter, r *http.Request) {
	var req bulkEditRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.bulk.BulkEdit(r.Context(), service.BulkEditInput{
		ItemIDs:               req.ItemIDs,
		Operations:            req.Operations,
		ConfirmLargeOperation: req.ConfirmLargeOperation,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// ValidateSerialNumber reports whether a serial number is still free
func (h *ItemHandler) ValidateSerialNumber(w http.ResponseWriter, r *http.Request) {
	serial := r.URL.Query().Get("serial_number")

	unique, err := h.items.ValidateSerialNumber(r.Context(), serial, r.URL.Query().Get("exclude_item_id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"serial_number": serial,
		"is_unique":     unique,
	})
}

// GenerateSerialNumber issues the next serial number of the tenant
func (h *ItemHandler) GenerateSerialNumber(w http.ResponseWriter, r *http.Request) {
	serial, err := h.items.GenerateSerialNumber(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"serial_number": serial})
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := httputil.DecodeJSON(r, v); err != nil {
		httputil.Error(w, err)
		return false
	}
	if err := httputil.Validate(v); err != nil {
		httputil.Error(w, err)
		return false
	}
	return true
}
