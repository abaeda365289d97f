package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Inventory item events
	EventItemCreated       = "inventory.item.created"
	EventItemUpdated       = "inventory.item.updated"
	EventItemStatusChanged = "inventory.item.status_changed"
	EventItemQuantity      = "inventory.item.quantity_changed"
	EventBulkEditCompleted = "inventory.bulk.completed"

	// Export events
	EventExportInitiated = "inventory.export.initiated"
	EventExportCompleted = "inventory.export.completed"

	// Category catalog events (consumed)
	EventCategoryCreated = "catalog.category.created"
	EventCategoryUpdated = "catalog.category.updated"
	EventCategoryDeleted = "catalog.category.deleted"
)

// Exchange names
const (
	ExchangeInventoryEvents = "inventory.events"
	ExchangeCatalogEvents   = "catalog.events"
	DeadLetterExchange      = "dlx.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Inventory Events

// FieldChange describes one changed field in an event payload.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// ItemCreatedEvent is published when an inventory item is created
type ItemCreatedEvent struct {
	TenantID     string `json:"tenant_id"`
	ItemID       string `json:"item_id"`
	Name         string `json:"name"`
	ItemType     string `json:"item_type"`
	CategoryID   string `json:"category_id"`
	SerialNumber string `json:"serial_number,omitempty"`
	Quantity     *int   `json:"quantity,omitempty"`
	CreatedBy    string `json:"created_by"`
}

// ItemUpdatedEvent is published when item fields change
type ItemUpdatedEvent struct {
	TenantID  string        `json:"tenant_id"`
	ItemID    string        `json:"item_id"`
	Version   int           `json:"version"`
	Changes   []FieldChange `json:"changes"`
	UpdatedBy string        `json:"updated_by"`
}

// ItemStatusChangedEvent is published on every availability transition
type ItemStatusChangedEvent struct {
	TenantID       string     `json:"tenant_id"`
	ItemID         string     `json:"item_id"`
	PreviousStatus string     `json:"previous_status"`
	NewStatus      string     `json:"new_status"`
	Reason         string     `json:"reason,omitempty"`
	ResolutionDate *time.Time `json:"expected_resolution_date,omitempty"`
	ChangeType     string     `json:"change_type"`
	ChangedBy      string     `json:"changed_by"`
}

// ItemQuantityChangedEvent is published when a bulk item's quantity changes
type ItemQuantityChangedEvent struct {
	TenantID             string `json:"tenant_id"`
	ItemID               string `json:"item_id"`
	PreviousQuantity     int    `json:"previous_quantity"`
	NewQuantity          int    `json:"new_quantity"`
	AvailabilityChange   int    `json:"availability_change"`
	SignificantReduction bool   `json:"significant_reduction"`
	Reason               string `json:"reason,omitempty"`
	ChangedBy            string `json:"changed_by"`
}

// BulkEditCompletedEvent summarizes a finished bulk edit
type BulkEditCompletedEvent struct {
	TenantID            string `json:"tenant_id"`
	OperationID         string `json:"operation_id"`
	TotalItems          int    `json:"total_items"`
	SuccessfulItems     int    `json:"successful_items"`
	FailedItems         int    `json:"failed_items"`
	PartiallySuccessful int    `json:"partially_successful"`
	PerformedBy         string `json:"performed_by"`
}

// ExportInitiatedEvent asks an export worker to build a large export
type ExportInitiatedEvent struct {
	TenantID    string   `json:"tenant_id"`
	ExportID    string   `json:"export_id"`
	ExportType  string   `json:"export_type"`
	Format      string   `json:"format"`
	ItemIDs     []string `json:"item_ids,omitempty"`
	RecordCount int      `json:"record_count"`
	RequestedBy string   `json:"requested_by"`
}

// ExportCompletedEvent is published when an export becomes downloadable
type ExportCompletedEvent struct {
	TenantID    string `json:"tenant_id"`
	ExportID    string `json:"export_id"`
	RecordCount int    `json:"record_count"`
}

// Category Catalog Events

// CategoryEvent is published by the category catalog on create, update and delete
type CategoryEvent struct {
	TenantID   string `json:"tenant_id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}
