package domain

import "fmt"

// Defaults for a lazily created serial sequence.
const (
	DefaultSerialPrefix  = "SN"
	DefaultSerialPadding = 8
)

// SerialSequence is a tenant's active serial counter. CurrentNumber is the
// next number to issue.
type SerialSequence struct {
	ID            string `db:"id" json:"id"`
	TenantID      string `db:"tenant_id" json:"tenant_id"`
	Prefix        string `db:"prefix" json:"prefix"`
	CurrentNumber int64  `db:"current_number" json:"current_number"`
	PaddingLength int    `db:"padding_length" json:"padding_length"`
	IsActive      bool   `db:"is_active" json:"is_active"`
}

// FormatSerial renders prefix followed by number zero-padded to padding digits.
// Numbers wider than padding are rendered in full.
func FormatSerial(prefix string, number int64, padding int) string {
	return fmt.Sprintf("%s%0*d", prefix, padding, number)
}
