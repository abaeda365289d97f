package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
)

// AuditLog is the audit log view of a Store.
type AuditLog struct {
	s *Store
}

// AuditLog returns the audit log store.
func (s *Store) AuditLog() *AuditLog {
	return &AuditLog{s: s}
}

// Record appends an audit entry.
func (r *AuditLog) Record(ctx context.Context, record *domain.AuditRecord) error {
	r.s.hookMu.Lock()
	failure := r.s.auditErr
	r.s.hookMu.Unlock()
	if failure != nil {
		return failure
	}

	return r.s.inTenant(ctx, func(tenantID string, st *state) error {
		if record.ID == "" {
			record.ID = uuid.New().String()
		}
		record.TenantID = tenantID
		record.CreatedAt = r.s.now()

		stored := *record
		st.audit = append(st.audit, &stored)
		return nil
	})
}

// Count returns the number of audit entries of the tenant.
func (r *AuditLog) Count(ctx context.Context) (int, error) {
	var count int
	err := r.s.inTenant(ctx, func(tenantID string, st *state) error {
		for _, rec := range st.audit {
			if rec.TenantID == tenantID {
				count++
			}
		}
		return nil
	})
	return count, err
}

// List returns up to limit entries, newest first.
func (r *AuditLog) List(ctx context.Context, limit int) ([]*domain.AuditRecord, error) {
	records := []*domain.AuditRecord{}
	err := r.s.inTenant(ctx, func(tenantID string, st *state) error {
		for i := len(st.audit) - 1; i >= 0 && len(records) < limit; i-- {
			if st.audit[i].TenantID == tenantID {
				rec := *st.audit[i]
				records = append(records, &rec)
			}
		}
		return nil
	})
	return records, err
}
