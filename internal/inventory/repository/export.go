package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/pkg/database"
	"github.com/rentory/rentory-backend/pkg/errors"
	"github.com/rentory/rentory-backend/pkg/tenant"
)

type exportRow struct {
	ID            string         `db:"id"`
	TenantID      string         `db:"tenant_id"`
	ExportedBy    string         `db:"exported_by"`
	Format        string         `db:"export_format"`
	Type          string         `db:"export_type"`
	ItemIDs       pq.StringArray `db:"item_ids"`
	RecordCount   int            `db:"record_count"`
	Status        string         `db:"status"`
	ExpiresAt     time.Time      `db:"expires_at"`
	DownloadCount int            `db:"download_count"`
	CreatedAt     time.Time      `db:"created_at"`
	CompletedAt   *time.Time     `db:"completed_at"`
}

func (row *exportRow) toDomain() *domain.Export {
	return &domain.Export{
		ID:            row.ID,
		TenantID:      row.TenantID,
		ExportedBy:    row.ExportedBy,
		Format:        domain.ExportFormat(row.Format),
		Type:          domain.ExportType(row.Type),
		ItemIDs:       []string(row.ItemIDs),
		RecordCount:   row.RecordCount,
		Status:        domain.ExportStatus(row.Status),
		ExpiresAt:     row.ExpiresAt,
		DownloadCount: row.DownloadCount,
		CreatedAt:     row.CreatedAt,
		CompletedAt:   row.CompletedAt,
	}
}

const exportColumns = `
	id, tenant_id, exported_by, export_format, export_type, item_ids, record_count,
	status, expires_at, download_count, created_at, completed_at`

// ExportRepository handles export record persistence
type ExportRepository struct {
	db *database.DB
}

// NewExportRepository creates a new export repository
func NewExportRepository(db *database.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create inserts an export record.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *ExportRepository) Create(ctx context.Context, export *domain.Export) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if export.ID == "" {
		export.ID = uuid.New().String()
	}
	export.TenantID = tenantID

	itemIDs := export.ItemIDs
	if itemIDs == nil {
		itemIDs = []string{}
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO inventory_exports (
				id, tenant_id, exported_by, export_format, export_type, item_ids,
				record_count, status, expires_at, completed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at
		`

		return r.db.Conn(ctx).QueryRowxContext(ctx, query,
			export.ID, tenantID, export.ExportedBy, export.Format, export.Type, pq.Array(itemIDs),
			export.RecordCount, export.Status, export.ExpiresAt, export.CompletedAt,
		).Scan(&export.CreatedAt)
	})
}

// GetByID gets an export by ID
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *ExportRepository) GetByID(ctx context.Context, id string) (*domain.Export, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, domain.ExportNotFound(id)
	}

	var row exportRow
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + exportColumns + ` FROM inventory_exports WHERE id = $1 AND tenant_id = $2`
		return r.db.Conn(ctx).GetContext(ctx, &row, query, id, tenantID)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ExportNotFound(id)
	}
	if err != nil {
		return nil, err
	}

	return row.toDomain(), nil
}

// RecordDownload increments the download counter and returns the new value.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *ExportRepository) RecordDownload(ctx context.Context, id string) (int, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			UPDATE inventory_exports SET download_count = download_count + 1
			WHERE id = $1 AND tenant_id = $2
			RETURNING download_count
		`
		return r.db.Conn(ctx).GetContext(ctx, &count, query, id, tenantID)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ExportNotFound(id)
	}
	return count, err
}

// MarkCompleted stores the materialized item set of an initiated export and
// makes it downloadable.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *ExportRepository) MarkCompleted(ctx context.Context, id string, itemIDs []string, recordCount int) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}
	if itemIDs == nil {
		itemIDs = []string{}
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			UPDATE inventory_exports
			SET item_ids = $3, record_count = $4, status = 'completed', completed_at = NOW()
			WHERE id = $1 AND tenant_id = $2 AND status = 'initiated'
		`
		res, err := r.db.Conn(ctx).ExecContext(ctx, query, id, tenantID, pq.Array(itemIDs), recordCount)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ExportNotFound(id)
		}
		return nil
	})
}
