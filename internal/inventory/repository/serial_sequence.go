package repository

import (
	"context"
	"fmt"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/pkg/database"
	"github.com/rentory/rentory-backend/pkg/tenant"
)

// SerialSequenceRepository issues serial numbers from the tenant's active
// sequence row.
type SerialSequenceRepository struct {
	db      *database.DB
	prefix  string
	padding int
}

// NewSerialSequenceRepository creates a serial sequence repository. prefix and
// padding seed sequences that do not exist yet.
func NewSerialSequenceRepository(db *database.DB, prefix string, padding int) *SerialSequenceRepository {
	if prefix == "" {
		prefix = domain.DefaultSerialPrefix
	}
	if padding < 1 {
		padding = domain.DefaultSerialPadding
	}
	return &SerialSequenceRepository{db: db, prefix: prefix, padding: padding}
}

// Next returns the tenant's next serial number.
//
// The increment is a single UPDATE ... RETURNING on the tenant's one active
// row, so concurrent callers of the same tenant queue on that row lock and
// never see the same number. Other tenants touch other rows. When called
// inside an outer tenant transaction the lock is held until that commits, so
// a rolled back create gives its number back.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *SerialSequenceRepository) Next(ctx context.Context) (string, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return "", err
	}

	var seq domain.SerialSequence
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		conn := r.db.Conn(ctx)

		insert := `
			INSERT INTO serial_number_sequences (tenant_id, prefix, current_number, padding_length, is_active)
			VALUES ($1, $2, 1, $3, TRUE)
			ON CONFLICT (tenant_id) WHERE is_active DO NOTHING
		`
		if _, err := conn.ExecContext(ctx, insert, tenantID, r.prefix, r.padding); err != nil {
			return fmt.Errorf("failed to initialize serial sequence: %w", err)
		}

		update := `
			UPDATE serial_number_sequences
			SET current_number = current_number + 1, updated_at = NOW()
			WHERE tenant_id = $1 AND is_active
			RETURNING prefix, current_number - 1 AS current_number, padding_length
		`
		return conn.GetContext(ctx, &seq, update, tenantID)
	})
	if err != nil {
		return "", err
	}

	return domain.FormatSerial(seq.Prefix, seq.CurrentNumber, seq.PaddingLength), nil
}
