package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/pkg/database"
	"github.com/rentory/rentory-backend/pkg/errors"
	"github.com/rentory/rentory-backend/pkg/tenant"
)

// Unique index names from the inventory_items migration.
const (
	constraintItemName   = "uq_inventory_items_tenant_name"
	constraintItemSerial = "uq_inventory_items_tenant_serial"
)

const itemColumns = `
	id, tenant_id, name, description, category_id, item_type,
	serial_number, serial_number_source, previous_serial_number,
	quantity, quantity_unit, allocated_quantity,
	availability_status, status, last_status_change_reason, expected_resolution_date,
	version, has_rental_history,
	condition_notes, last_maintenance_date, next_maintenance_due_date,
	created_at, updated_at`

// ItemRepository handles inventory item persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new item at the version the caller set.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.TenantID = tenantID

	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO inventory_items (
				id, tenant_id, name, description, category_id, item_type,
				serial_number, serial_number_source, previous_serial_number,
				quantity, quantity_unit, allocated_quantity,
				availability_status, status, last_status_change_reason, expected_resolution_date,
				version, has_rental_history,
				condition_notes, last_maintenance_date, next_maintenance_due_date
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
			RETURNING created_at, updated_at
		`

		return r.db.Conn(ctx).QueryRowxContext(ctx, query,
			item.ID, tenantID, item.Name, item.Description, item.CategoryID, item.ItemType,
			item.SerialNumber, item.SerialNumberSource, item.PreviousSerialNumber,
			item.Quantity, item.QuantityUnit, item.AllocatedQuantity,
			item.AvailabilityStatus, item.Status, item.LastStatusChangeReason, item.ExpectedResolutionDate,
			item.Version, item.HasRentalHistory,
			item.ConditionNotes, item.LastMaintenanceDate, item.NextMaintenanceDueDate,
		).Scan(&item.CreatedAt, &item.UpdatedAt)
	})

	return mapItemWriteError(err, item, domain.DuplicateSerial)
}

// GetByID gets an item by ID
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, domain.ItemNotFound(id)
	}

	var item domain.Item
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = $1 AND tenant_id = $2`
		return r.db.Conn(ctx).GetContext(ctx, &item, query, id, tenantID)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ItemNotFound(id)
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// UpdateWithVersion writes every mutable field when the stored version still
// equals expectedVersion, then stores the new version on item. A stale
// version yields EDIT_CONFLICT carrying the current version.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *ItemRepository) UpdateWithVersion(ctx context.Context, item *domain.Item, expectedVersion int) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		conn := r.db.Conn(ctx)

		query := `
			UPDATE inventory_items SET
				name = $4, description = $5, category_id = $6, item_type = $7,
				serial_number = $8, serial_number_source = $9, previous_serial_number = $10,
				quantity = $11, quantity_unit = $12,
				availability_status = $13, status = $14,
				last_status_change_reason = $15, expected_resolution_date = $16,
				has_rental_history = $17, condition_notes = $18,
				last_maintenance_date = $19, next_maintenance_due_date = $20,
				version = version + 1, updated_at = NOW()
			WHERE id = $1 AND tenant_id = $2 AND version = $3
			RETURNING version, updated_at
		`

		err := conn.QueryRowxContext(ctx, query,
			item.ID, tenantID, expectedVersion,
			item.Name, item.Description, item.CategoryID, item.ItemType,
			item.SerialNumber, item.SerialNumberSource, item.PreviousSerialNumber,
			item.Quantity, item.QuantityUnit,
			item.AvailabilityStatus, item.Status,
			item.LastStatusChangeReason, item.ExpectedResolutionDate,
			item.HasRentalHistory, item.ConditionNotes,
			item.LastMaintenanceDate, item.NextMaintenanceDueDate,
		).Scan(&item.Version, &item.UpdatedAt)
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		var current int
		err = conn.GetContext(ctx, &current,
			`SELECT version FROM inventory_items WHERE id = $1 AND tenant_id = $2`, item.ID, tenantID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ItemNotFound(item.ID)
		}
		if err != nil {
			return err
		}
		return domain.EditConflict(current, expectedVersion)
	})

	return mapItemWriteError(err, item, domain.SerialNumberExists)
}

// ExistsByName reports whether another item of the tenant already uses name.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *ItemRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	return r.exists(ctx, "name", name, excludeID)
}

// ExistsBySerial reports whether another item of the tenant already uses serial.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *ItemRepository) ExistsBySerial(ctx context.Context, serial, excludeID string) (bool, error) {
	return r.exists(ctx, "serial_number", serial, excludeID)
}

func (r *ItemRepository) exists(ctx context.Context, column, value, excludeID string) (bool, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT EXISTS (SELECT 1 FROM inventory_items WHERE tenant_id = $1 AND ` + column + ` = $2`
		args := []interface{}{tenantID, value}
		if validID(excludeID) {
			query += ` AND id <> $3`
			args = append(args, excludeID)
		}
		query += `)`
		return r.db.Conn(ctx).GetContext(ctx, &exists, query, args...)
	})

	return exists, err
}

// Count returns the number of items of the tenant.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *ItemRepository) Count(ctx context.Context) (int, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		return r.db.Conn(ctx).GetContext(ctx, &count,
			`SELECT COUNT(*) FROM inventory_items WHERE tenant_id = $1`, tenantID)
	})

	return count, err
}

// ListByIDs returns the tenant's items among ids, ordered by name.
// Unknown and malformed ids are skipped.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *ItemRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Item, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []*domain.Item{}, nil
	}

	items := []*domain.Item{}
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE tenant_id = $1 AND id = ANY($2) ORDER BY name`
		return r.db.Conn(ctx).SelectContext(ctx, &items, query, tenantID, pq.Array(valid))
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// List returns up to limit items of the tenant, ordered by name.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *ItemRepository) List(ctx context.Context, limit int) ([]*domain.Item, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	items := []*domain.Item{}
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE tenant_id = $1 ORDER BY name LIMIT $2`
		return r.db.Conn(ctx).SelectContext(ctx, &items, query, tenantID, limit)
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// mapItemWriteError turns unique violations raced past the service's
// pre-checks into the same errors the pre-checks return.
func mapItemWriteError(err error, item *domain.Item, serialErr func(string) *errors.AppError) error {
	if err == nil {
		return nil
	}

	if constraint, ok := database.UniqueViolation(err); ok {
		switch constraint {
		case constraintItemName:
			return domain.DuplicateName(item.Name)
		case constraintItemSerial:
			return serialErr(domain.Deref(item.SerialNumber))
		}
	}

	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

// validID guards uuid columns: a malformed id would abort the surrounding
// transaction instead of simply matching nothing.
func validID(id string) bool {
	if strings.TrimSpace(id) == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
