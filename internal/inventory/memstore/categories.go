package memstore

import (
	"context"
	"strings"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
)

// Categories is the category read model view of a Store.
type Categories struct {
	s *Store
}

// Categories returns the category store.
func (s *Store) Categories() *Categories {
	return &Categories{s: s}
}

// Exists reports whether id is an active category of the tenant.
func (r *Categories) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.s.inTenant(ctx, func(tenantID string, st *state) error {
		c, ok := st.categories[id]
		exists = ok && c.TenantID == tenantID && c.IsActive
		return nil
	})
	return exists, err
}

// LookupByName resolves an active category of the tenant by name, ignoring
// case and surrounding blanks.
func (r *Categories) LookupByName(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	var ids []string
	err := r.s.inTenant(ctx, func(tenantID string, st *state) error {
		for id, c := range st.categories {
			if c.TenantID == tenantID && c.IsActive && strings.EqualFold(strings.TrimSpace(c.Name), name) {
				ids = append(ids, id)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	switch {
	case name == "" || len(ids) == 0:
		return "", domain.CategoryNameNotFound(name)
	case len(ids) > 1:
		return "", domain.AmbiguousCategoryName()
	}
	return ids[0], nil
}

// Upsert creates or updates a category and marks it active.
func (r *Categories) Upsert(ctx context.Context, category *domain.Category) error {
	return r.s.inTenant(ctx, func(tenantID string, st *state) error {
		category.TenantID = tenantID
		category.IsActive = true
		category.UpdatedAt = r.s.now()
		stored := *category
		st.categories[category.ID] = &stored
		return nil
	})
}

// Deactivate hides a category from new assignments.
func (r *Categories) Deactivate(ctx context.Context, id string) error {
	return r.s.inTenant(ctx, func(tenantID string, st *state) error {
		if c, ok := st.categories[id]; ok && c.TenantID == tenantID {
			c.IsActive = false
			c.UpdatedAt = r.s.now()
		}
		return nil
	})
}
