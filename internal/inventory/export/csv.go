package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
)

// CSVRenderer writes comma separated values with a header row.
type CSVRenderer struct{}

// NewCSVRenderer creates a CSV renderer
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

// ContentType returns the CSV media type.
func (r *CSVRenderer) ContentType() string {
	return "text/csv; charset=utf-8"
}

// RenderItems writes items to w.
func (r *CSVRenderer) RenderItems(w io.Writer, items []*domain.Item) error {
	rows := make([][]string, 0, len(items)+1)
	rows = append(rows, itemHeader)
	for _, item := range items {
		rows = append(rows, itemRow(item))
	}
	return writeCSV(w, rows)
}

// RenderAudit writes audit records to w.
func (r *CSVRenderer) RenderAudit(w io.Writer, records []*domain.AuditRecord) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, auditHeader)
	for _, rec := range records {
		rows = append(rows, auditRow(rec))
	}
	return writeCSV(w, rows)
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
