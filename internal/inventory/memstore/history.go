package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
)

// StatusChanges is the status history view of a Store.
type StatusChanges struct {
	s *Store
}

// StatusChanges returns the status history store.
func (s *Store) StatusChanges() *StatusChanges {
	return &StatusChanges{s: s}
}

// Create appends a status change row.
func (r *StatusChanges) Create(ctx context.Context, change *domain.StatusChange) error {
	return r.s.inTenant(ctx, func(tenantID string, st *state) error {
		if change.ID == "" {
			change.ID = uuid.New().String()
		}
		change.TenantID = tenantID
		change.CreatedAt = r.s.now()

		stored := *change
		st.statusChanges = append(st.statusChanges, &stored)
		return nil
	})
}

// ListByItem returns one page of an item's history, newest first, and the
// total number of rows.
func (r *StatusChanges) ListByItem(ctx context.Context, itemID string, page, perPage int) ([]*domain.StatusChange, int, error) {
	var matched []*domain.StatusChange
	err := r.s.inTenant(ctx, func(tenantID string, st *state) error {
		for i := len(st.statusChanges) - 1; i >= 0; i-- {
			c := st.statusChanges[i]
			if c.TenantID == tenantID && c.ItemID == itemID {
				cp := *c
				matched = append(matched, &cp)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	total := len(matched)
	offset := (page - 1) * perPage
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*domain.StatusChange{}, total, nil
	}
	end := offset + perPage
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
