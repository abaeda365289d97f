package domain

import "time"

// ExportFormat is the file format of an export.
type ExportFormat string

const (
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatCSV  ExportFormat = "csv"
)

// Valid reports whether f is a supported format.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatXLSX || f == ExportFormatCSV
}

// ExportType selects what is exported.
type ExportType string

const (
	ExportTypeInventory ExportType = "inventory"
	ExportTypeAudit     ExportType = "audit"
)

// Valid reports whether t is a supported export type.
func (t ExportType) Valid() bool {
	return t == ExportTypeInventory || t == ExportTypeAudit
}

// ExportStatus is the lifecycle of an export record.
type ExportStatus string

const (
	ExportInitiated ExportStatus = "initiated"
	ExportCompleted ExportStatus = "completed"
	ExportFailed    ExportStatus = "failed"
)

// ExportPath is how an export request is served.
type ExportPath string

const (
	ExportPathSync  ExportPath = "sync"
	ExportPathAsync ExportPath = "async"
)

// Export is a requested export of items or audit records.
type Export struct {
	ID            string       `json:"id"`
	TenantID      string       `json:"tenant_id"`
	ExportedBy    string       `json:"exported_by"`
	Format        ExportFormat `json:"export_format"`
	Type          ExportType   `json:"export_type"`
	ItemIDs       []string     `json:"item_ids,omitempty"`
	RecordCount   int          `json:"record_count"`
	Status        ExportStatus `json:"status"`
	ExpiresAt     time.Time    `json:"expires_at"`
	DownloadCount int          `json:"download_count"`
	CreatedAt     time.Time    `json:"created_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}

// Expired reports whether the export can no longer be downloaded at now.
func (e *Export) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// ChooseExportPath picks sync for counts up to syncLimit and async up to
// asyncLimit. Larger counts are rejected.
func ChooseExportPath(count, syncLimit, asyncLimit int) (ExportPath, error) {
	switch {
	case count <= syncLimit:
		return ExportPathSync, nil
	case count <= asyncLimit:
		return ExportPathAsync, nil
	default:
		return "", ExportTooLarge(count, asyncLimit)
	}
}

// ExportTTL returns the retention of an export type.
func ExportTTL(t ExportType, inventoryTTL, auditTTL time.Duration) time.Duration {
	if t == ExportTypeAudit {
		return auditTTL
	}
	return inventoryTTL
}

// AuditRecord is one append-only audit log entry.
type AuditRecord struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	ActorID     string         `json:"actor_id"`
	Action      string         `json:"action"`
	SubjectType string         `json:"subject_type"`
	SubjectID   string         `json:"subject_id"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Audit actions.
const (
	AuditItemCreated          = "item.created"
	AuditItemUpdated          = "item.updated"
	AuditItemStatusChanged    = "item.status_changed"
	AuditSerializedFields     = "item.serialized_fields_updated"
	AuditItemQuantityChanged  = "item.quantity_changed"
	AuditBulkEdit             = "bulk.edit"
	AuditExportInitiated      = "export.initiated"
	AuditExportDownloaded     = "export.downloaded"
	AuditSubjectItem          = "inventory_item"
	AuditSubjectBulkOperation = "bulk_operation"
	AuditSubjectExport        = "inventory_export"
)
