package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/pkg/database"
	"github.com/rentory/rentory-backend/pkg/tenant"
)

// StatusChangeRepository persists the append-only availability history.
// Rows are never updated or deleted.
type StatusChangeRepository struct {
	db *database.DB
}

// NewStatusChangeRepository creates a new status change repository
func NewStatusChangeRepository(db *database.DB) *StatusChangeRepository {
	return &StatusChangeRepository{db: db}
}

// Create appends one history row.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *StatusChangeRepository) Create(ctx context.Context, change *domain.StatusChange) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if change.ID == "" {
		change.ID = uuid.New().String()
	}
	change.TenantID = tenantID

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO inventory_item_status_changes (
				id, inventory_item_id, tenant_id, changed_by, previous_status, new_status,
				change_reason, expected_resolution_date, change_type, ip_address, user_agent
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING created_at
		`

		return r.db.Conn(ctx).QueryRowxContext(ctx, query,
			change.ID, change.ItemID, tenantID, change.ChangedBy, change.PreviousStatus, change.NewStatus,
			change.ChangeReason, change.ExpectedResolutionDate, change.ChangeType, change.IPAddress, change.UserAgent,
		).Scan(&change.CreatedAt)
	})
}

// ListByItem lists an item's history, newest first, with the total count.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *StatusChangeRepository) ListByItem(ctx context.Context, itemID string, page, perPage int) ([]*domain.StatusChange, int, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, 0, err
	}
	if !validID(itemID) {
		return []*domain.StatusChange{}, 0, nil
	}

	var total int
	changes := []*domain.StatusChange{}

	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		conn := r.db.Conn(ctx)

		countQuery := `SELECT COUNT(*) FROM inventory_item_status_changes WHERE tenant_id = $1 AND inventory_item_id = $2`
		if err := conn.GetContext(ctx, &total, countQuery, tenantID, itemID); err != nil {
			return err
		}

		offset := (page - 1) * perPage
		query := `
			SELECT id, inventory_item_id, tenant_id, changed_by, previous_status, new_status,
			       change_reason, expected_resolution_date, change_type, ip_address, user_agent, created_at
			FROM inventory_item_status_changes
			WHERE tenant_id = $1 AND inventory_item_id = $2
			ORDER BY created_at DESC
			LIMIT $3 OFFSET $4
		`

		return conn.SelectContext(ctx, &changes, query, tenantID, itemID, perPage, offset)
	})
	if err != nil {
		return nil, 0, err
	}

	return changes, total, nil
}
