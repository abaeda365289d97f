package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/pkg/database"
	"github.com/rentory/rentory-backend/pkg/tenant"
)

type auditRow struct {
	ID          string    `db:"id"`
	TenantID    string    `db:"tenant_id"`
	ActorID     string    `db:"actor_id"`
	Action      string    `db:"action"`
	SubjectType string    `db:"subject_type"`
	SubjectID   string    `db:"subject_id"`
	Details     []byte    `db:"details"`
	CreatedAt   time.Time `db:"created_at"`
}

// AuditLogRepository is the append-only audit sink. Entries are never
// updated or deleted.
type AuditLogRepository struct {
	db *database.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Record appends an audit entry.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *AuditLogRepository) Record(ctx context.Context, record *domain.AuditRecord) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.TenantID = tenantID

	details := []byte("{}")
	if len(record.Details) > 0 {
		details, err = json.Marshal(record.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO inventory_audit_log (id, tenant_id, actor_id, action, subject_type, subject_id, details)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`

		return r.db.Conn(ctx).QueryRowxContext(ctx, query,
			record.ID, tenantID, record.ActorID, record.Action, record.SubjectType, record.SubjectID, string(details),
		).Scan(&record.CreatedAt)
	})
}

// Count returns the number of audit entries of the tenant.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *AuditLogRepository) Count(ctx context.Context) (int, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		return r.db.Conn(ctx).GetContext(ctx, &count,
			`SELECT COUNT(*) FROM inventory_audit_log WHERE tenant_id = $1`, tenantID)
	})

	return count, err
}

// List returns up to limit entries, newest first.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *AuditLogRepository) List(ctx context.Context, limit int) ([]*domain.AuditRecord, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var rows []auditRow
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, tenant_id, actor_id, action, subject_type, subject_id, details, created_at
			FROM inventory_audit_log
			WHERE tenant_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`
		return r.db.Conn(ctx).SelectContext(ctx, &rows, query, tenantID, limit)
	})
	if err != nil {
		return nil, err
	}

	records := make([]*domain.AuditRecord, 0, len(rows))
	for _, row := range rows {
		rec := &domain.AuditRecord{
			ID:          row.ID,
			TenantID:    row.TenantID,
			ActorID:     row.ActorID,
			Action:      row.Action,
			SubjectType: row.SubjectType,
			SubjectID:   row.SubjectID,
			CreatedAt:   row.CreatedAt,
		}
		if len(row.Details) > 0 {
			if err := json.Unmarshal(row.Details, &rec.Details); err != nil {
				return nil, fmt.Errorf("failed to decode audit details of %s: %w", row.ID, err)
			}
		}
		records = append(records, rec)
	}

	return records, nil
}
