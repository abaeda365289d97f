package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
)

// Sheet names.
const (
	ItemsSheet = "Inventory"
	AuditSheet = "Audit Log"
)

// XLSXRenderer writes one worksheet with a header row.
type XLSXRenderer struct{}

// NewXLSXRenderer creates an XLSX renderer
func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{}
}

// ContentType returns the XLSX media type.
func (r *XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// RenderItems writes items to w.
func (r *XLSXRenderer) RenderItems(w io.Writer, items []*domain.Item) error {
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = itemRow(item)
	}
	return writeSheet(w, ItemsSheet, itemHeader, rows)
}

// RenderAudit writes audit records to w.
func (r *XLSXRenderer) RenderAudit(w io.Writer, records []*domain.AuditRecord) error {
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = auditRow(rec)
	}
	return writeSheet(w, AuditSheet, auditHeader, rows)
}

func writeSheet(w io.Writer, sheet string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}

	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}
