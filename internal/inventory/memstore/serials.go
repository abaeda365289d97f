package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
)

// Serials issues serial numbers from per-tenant sequences held in a Store.
type Serials struct {
	s       *Store
	prefix  string
	padding int
}

// Serials returns a sequencer creating sequences with prefix and padding on
// first use. Empty values fall back to the defaults.
func (s *Store) Serials(prefix string, padding int) *Serials {
	if prefix == "" {
		prefix = domain.DefaultSerialPrefix
	}
	if padding < 1 {
		padding = domain.DefaultSerialPadding
	}
	return &Serials{s: s, prefix: prefix, padding: padding}
}

// Next returns the tenant's next serial number.
func (r *Serials) Next(ctx context.Context) (string, error) {
	var serial string
	err := r.s.inTenant(ctx, func(tenantID string, st *state) error {
		seq, ok := st.sequences[tenantID]
		if !ok {
			seq = &domain.SerialSequence{
				ID:            uuid.New().String(),
				TenantID:      tenantID,
				Prefix:        r.prefix,
				CurrentNumber: 1,
				PaddingLength: r.padding,
				IsActive:      true,
			}
			st.sequences[tenantID] = seq
		}
		serial = domain.FormatSerial(seq.Prefix, seq.CurrentNumber, seq.PaddingLength)
		seq.CurrentNumber++
		return nil
	})
	return serial, err
}
