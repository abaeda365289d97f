package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/pkg/errors"
)

// Items is the item store view of a Store.
type Items struct {
	s *Store
}

// Items returns the item store.
func (s *Store) Items() *Items {
	return &Items{s: s}
}

// Create inserts a new item at the version the caller set.
func (r *Items) Create(ctx context.Context, item *domain.Item) error {
	return r.s.inTenant(ctx, func(tenantID string, st *state) error {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if _, ok := st.items[item.ID]; ok {
			return errors.Conflict("item already exists")
		}
		if taken(st, tenantID, item.ID, func(i *domain.Item) bool { return i.Name == item.Name }) {
			return domain.DuplicateName(item.Name)
		}
		if item.SerialNumber != nil && taken(st, tenantID, item.ID, sameSerial(*item.SerialNumber)) {
			return domain.DuplicateSerial(*item.SerialNumber)
		}

		now := r.s.now()
		item.TenantID = tenantID
		item.CreatedAt = now
		item.UpdatedAt = now
		st.items[item.ID] = item.Clone()
		return nil
	})
}

// GetByID gets an item by ID.
func (r *Items) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	var out *domain.Item
	err := r.s.inTenant(ctx, func(tenantID string, st *state) error {
		item, ok := st.items[id]
		if !ok || item.TenantID != tenantID {
			return domain.ItemNotFound(id)
		}
		out = item.Clone()
		return nil
	})
	return out, err
}

// UpdateWithVersion writes every mutable field when the stored version
// still equals expectedVersion and stores the new version on item. The
// allocated quantity is owned by the allocation system and never written.
func (r *Items) UpdateWithVersion(ctx context.Context, item *domain.Item, expectedVersion int) error {
	r.s.hookMu.Lock()
	hook := r.s.beforeUpdate
	r.s.hookMu.Unlock()

	tenantID, err := tenantOf(ctx)
	if err != nil {
		return err
	}

	return r.s.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		if hook != nil {
			hook(ctx, item.ID)
		}

		return r.s.inTenant(ctx, func(tenantID string, st *state) error {
			current, ok := st.items[item.ID]
			if !ok || current.TenantID != tenantID {
				return domain.ItemNotFound(item.ID)
			}
			if current.Version != expectedVersion {
				return domain.EditConflict(current.Version, expectedVersion)
			}
			if taken(st, tenantID, item.ID, func(i *domain.Item) bool { return i.Name == item.Name }) {
				return domain.DuplicateName(item.Name)
			}
			if item.SerialNumber != nil && taken(st, tenantID, item.ID, sameSerial(*item.SerialNumber)) {
				return domain.SerialNumberExists(*item.SerialNumber)
			}

			stored := item.Clone()
			stored.TenantID = tenantID
			stored.AllocatedQuantity = current.AllocatedQuantity
			stored.CreatedAt = current.CreatedAt
			stored.Version = current.Version + 1
			stored.UpdatedAt = r.s.now()
			st.items[item.ID] = stored

			item.Version = stored.Version
			item.UpdatedAt = stored.UpdatedAt
			return nil
		})
	})
}

// ExistsByName reports whether another item of the tenant already uses name.
func (r *Items) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	var exists bool
	err := r.s.inTenant(ctx, func(tenantID string, st *state) error {
		exists = taken(st, tenantID, excludeID, func(i *domain.Item) bool { return i.Name == name })
		return nil
	})
	return exists, err
}

// ExistsBySerial reports whether another item of the tenant already uses serial.
func (r *Items) ExistsBySerial(ctx context.Context, serial, excludeID string) (bool, error) {
	var exists bool
	err := r.s.inTenant(ctx, func(tenantID string, st *state) error {
		exists = taken(st, tenantID, excludeID, sameSerial(serial))
		return nil
	})
	return exists, err
}

// Count returns the number of items of the tenant.
func (r *Items) Count(ctx context.Context) (int, error) {
	var count int
	err := r.s.inTenant(ctx, func(tenantID string, st *state) error {
		for _, item := range st.items {
			if item.TenantID == tenantID {
				count++
			}
		}
		return nil
	})
	return count, err
}

// ListByIDs returns the tenant's items among ids, ordered by name.
func (r *Items) ListByIDs(ctx context.Context, ids []string) ([]*domain.Item, error) {
	items := []*domain.Item{}
	err := r.s.inTenant(ctx, func(tenantID string, st *state) error {
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			item, ok := st.items[id]
			if !ok || item.TenantID != tenantID || seen[id] {
				continue
			}
			seen[id] = true
			items = append(items, item.Clone())
		}
		return nil
	})
	sortByName(items)
	return items, err
}

// List returns up to limit items of the tenant, ordered by name.
func (r *Items) List(ctx context.Context, limit int) ([]*domain.Item, error) {
	items := []*domain.Item{}
	err := r.s.inTenant(ctx, func(tenantID string, st *state) error {
		for _, item := range st.items {
			if item.TenantID == tenantID {
				items = append(items, item.Clone())
			}
		}
		return nil
	})
	sortByName(items)
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, err
}

func taken(st *state, tenantID, excludeID string, match func(*domain.Item) bool) bool {
	for id, item := range st.items {
		if item.TenantID == tenantID && id != excludeID && match(item) {
			return true
		}
	}
	return false
}

func sameSerial(serial string) func(*domain.Item) bool {
	return func(i *domain.Item) bool {
		return i.SerialNumber != nil && *i.SerialNumber == serial
	}
}

func sortByName(items []*domain.Item) {
	sort.Slice(items, func(a, b int) bool {
		return items[a].Name < items[b].Name
	})
}
