package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
)

// Exports is the export record view of a Store.
type Exports struct {
	s *Store
}

// Exports returns the export store.
func (s *Store) Exports() *Exports {
	return &Exports{s: s}
}

// Create inserts an export record.
func (r *Exports) Create(ctx context.Context, export *domain.Export) error {
	return r.s.inTenant(ctx, func(tenantID string, st *state) error {
		if export.ID == "" {
			export.ID = uuid.New().String()
		}
		export.TenantID = tenantID
		export.CreatedAt = r.s.now()
		st.exports[export.ID] = cloneExport(export)
		return nil
	})
}

// GetByID gets an export by ID.
func (r *Exports) GetByID(ctx context.Context, id string) (*domain.Export, error) {
	var out *domain.Export
	err := r.s.inTenant(ctx, func(tenantID string, st *state) error {
		e, ok := st.exports[id]
		if !ok || e.TenantID != tenantID {
			return domain.ExportNotFound(id)
		}
		out = cloneExport(e)
		return nil
	})
	return out, err
}

// RecordDownload increments the download counter and returns the new value.
func (r *Exports) RecordDownload(ctx context.Context, id string) (int, error) {
	var count int
	err := r.s.inTenant(ctx, func(tenantID string, st *state) error {
		e, ok := st.exports[id]
		if !ok || e.TenantID != tenantID {
			return domain.ExportNotFound(id)
		}
		e.DownloadCount++
		count = e.DownloadCount
		return nil
	})
	return count, err
}

// MarkCompleted stores the materialized item set of an initiated export.
func (r *Exports) MarkCompleted(ctx context.Context, id string, itemIDs []string, recordCount int) error {
	return r.s.inTenant(ctx, func(tenantID string, st *state) error {
		e, ok := st.exports[id]
		if !ok || e.TenantID != tenantID || e.Status != domain.ExportInitiated {
			return domain.ExportNotFound(id)
		}
		now := r.s.now()
		e.ItemIDs = append([]string(nil), itemIDs...)
		e.RecordCount = recordCount
		e.Status = domain.ExportCompleted
		e.CompletedAt = &now
		return nil
	})
}
