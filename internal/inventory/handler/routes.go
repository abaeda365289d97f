package handler

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the inventory API below r.
func Routes(r chi.Router, items *ItemHandler, exports *ExportHandler) {
	r.Route("/items", func(r chi.Router) {
		r.Post("/", items.Create)
		r.Post("/bulk-edit", items.BulkEdit)
		r.Get("/{id}", items.Get)
		r.Put("/{id}", items.Update)
		r.Post("/{id}/status", items.ChangeStatus)
		r.Get("/{id}/status-options", items.StatusOptions)
		r.Get("/{id}/status-history", items.StatusHistory)
		r.Put("/{id}/serialized-fields", items.UpdateSerializedFields)
		r.Put("/{id}/quantity", items.UpdateQuantity)
	})

	r.Route("/serial-numbers", func(r chi.Router) {
		r.Get("/validate", items.ValidateSerialNumber)
		r.Post("/generate", items.GenerateSerialNumber)
	})

	r.Route("/exports", func(r chi.Router) {
		r.Post("/", exports.Initiate)
		r.Get("/{id}/download", exports.Download)
	})
}
