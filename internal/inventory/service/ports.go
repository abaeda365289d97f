package service

import (
	"context"
	"io"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
)

// Transactor opens tenant-scoped transactions. Stores called with the
// returned context join the transaction.
type Transactor interface {
	WithTenantRLS(ctx context.Context, tenantID string, fn func(context.Context) error) error
}

// ItemStore persists inventory items.
type ItemStore interface {
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	UpdateWithVersion(ctx context.Context, item *domain.Item, expectedVersion int) error
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	ExistsBySerial(ctx context.Context, serial, excludeID string) (bool, error)
	Count(ctx context.Context) (int, error)
	ListByIDs(ctx context.Context, ids []string) ([]*domain.Item, error)
	List(ctx context.Context, limit int) ([]*domain.Item, error)
}

// StatusChangeStore persists availability history.
type StatusChangeStore interface {
	Create(ctx context.Context, change *domain.StatusChange) error
	ListByItem(ctx context.Context, itemID string, page, perPage int) ([]*domain.StatusChange, int, error)
}

// SerialSequencer issues the next serial number of the tenant in ctx.
type SerialSequencer interface {
	Next(ctx context.Context) (string, error)
}

// CategoryCatalog answers whether a category can be assigned and resolves
// category names of the tenant to ids.
type CategoryCatalog interface {
	Exists(ctx context.Context, id string) (bool, error)
	LookupByName(ctx context.Context, name string) (string, error)
}

// AuditSink appends audit records.
type AuditSink interface {
	Record(ctx context.Context, record *domain.AuditRecord) error
}

// AuditReader reads the tenant's audit log for exports.
type AuditReader interface {
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, limit int) ([]*domain.AuditRecord, error)
}

// ExportStore persists export records.
type ExportStore interface {
	Create(ctx context.Context, export *domain.Export) error
	GetByID(ctx context.Context, id string) (*domain.Export, error)
	RecordDownload(ctx context.Context, id string) (int, error)
	MarkCompleted(ctx context.Context, id string, itemIDs []string, recordCount int) error
}

// PermissionChecker is the identity service's capability check.
type PermissionChecker interface {
	HasPermission(ctx context.Context, tenantID, userID, resource, action string) bool
}

// AllocationChecker asks the rental system whether an item is allocated
// to an active rental.
type AllocationChecker interface {
	IsAllocated(ctx context.Context, item *domain.Item) (bool, error)
}

// AllocationFunc adapts a function to AllocationChecker.
type AllocationFunc func(ctx context.Context, item *domain.Item) (bool, error)

// IsAllocated calls f.
func (f AllocationFunc) IsAllocated(ctx context.Context, item *domain.Item) (bool, error) {
	return f(ctx, item)
}

// RentedIsAllocated is the default checker without a rental system: an item
// in rented counts as allocated.
var RentedIsAllocated = AllocationFunc(func(_ context.Context, item *domain.Item) (bool, error) {
	return item.AvailabilityStatus == domain.StatusRented, nil
})

// ExportRenderer writes export files of one format.
type ExportRenderer interface {
	ContentType() string
	RenderItems(w io.Writer, items []*domain.Item) error
	RenderAudit(w io.Writer, records []*domain.AuditRecord) error
}

// Permission resources and actions.
const (
	ResourceItems   = "inventory.items"
	ResourceExports = "inventory.exports"

	ActionRead     = "read"
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionStatus   = "status"
	ActionBulkEdit = "bulk_edit"
	ActionDownload = "download"
)
