package events

import (
	"context"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/pkg/logger"
	"github.com/rentory/rentory-backend/pkg/messaging"
)

// ServiceName is the event source of everything published here.
const ServiceName = "inventory-service"

// Publisher is the transport behind InventoryEventPublisher.
// *messaging.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// InventoryEventPublisher publishes inventory-related events. A nil
// publisher drops events, which is how the service runs without RabbitMQ.
type InventoryEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a publisher on the inventory exchange
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InventoryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, ServiceName, log)
	if err != nil {
		return nil, err
	}

	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing transport.
func NewWithPublisher(publisher Publisher, log *logger.Logger) *InventoryEventPublisher {
	return &InventoryEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishItemCreated publishes an item created event
func (p *InventoryEventPublisher) PublishItemCreated(ctx context.Context, item *domain.Item, createdBy string) {
	if p == nil {
		return
	}

	data := messaging.ItemCreatedEvent{
		TenantID:     item.TenantID,
		ItemID:       item.ID,
		Name:         item.Name,
		ItemType:     string(item.ItemType),
		CategoryID:   item.CategoryID,
		SerialNumber: domain.Deref(item.SerialNumber),
		Quantity:     item.Quantity,
		CreatedBy:    createdBy,
	}

	p.publish(ctx, messaging.EventItemCreated, data, "item_id", item.ID)
}

// PublishItemUpdated publishes the field diff of an item update
func (p *InventoryEventPublisher) PublishItemUpdated(ctx context.Context, item *domain.Item, changes domain.Changes, updatedBy string) {
	if p == nil {
		return
	}

	data := messaging.ItemUpdatedEvent{
		TenantID:  item.TenantID,
		ItemID:    item.ID,
		Version:   item.Version,
		Changes:   toEventChanges(changes),
		UpdatedBy: updatedBy,
	}

	p.publish(ctx, messaging.EventItemUpdated, data, "item_id", item.ID)
}

// PublishStatusChanged publishes an availability transition
func (p *InventoryEventPublisher) PublishStatusChanged(ctx context.Context, change *domain.StatusChange) {
	if p == nil {
		return
	}

	data := messaging.ItemStatusChangedEvent{
		TenantID:       change.TenantID,
		ItemID:         change.ItemID,
		PreviousStatus: string(change.PreviousStatus),
		NewStatus:      string(change.NewStatus),
		Reason:         domain.Deref(change.ChangeReason),
		ResolutionDate: change.ExpectedResolutionDate,
		ChangeType:     string(change.ChangeType),
		ChangedBy:      change.ChangedBy,
	}

	p.publish(ctx, messaging.EventItemStatusChanged, data, "item_id", change.ItemID)
}

// PublishQuantityChanged publishes a stock level change of a bulk item
func (p *InventoryEventPublisher) PublishQuantityChanged(ctx context.Context, data messaging.ItemQuantityChangedEvent) {
	if p == nil {
		return
	}

	p.publish(ctx, messaging.EventItemQuantity, data, "item_id", data.ItemID)
}

// PublishBulkCompleted publishes the summary of a bulk edit
func (p *InventoryEventPublisher) PublishBulkCompleted(ctx context.Context, tenantID string, result *domain.BulkResult, performedBy string) {
	if p == nil {
		return
	}

	data := messaging.BulkEditCompletedEvent{
		TenantID:            tenantID,
		OperationID:         result.OperationID,
		TotalItems:          result.Summary.TotalItems,
		SuccessfulItems:     result.Summary.SuccessfulItems,
		FailedItems:         result.Summary.FailedItems,
		PartiallySuccessful: result.Summary.PartiallySuccessful,
		PerformedBy:         performedBy,
	}

	p.publish(ctx, messaging.EventBulkEditCompleted, data, "operation_id", result.OperationID)
}

// PublishExportInitiated hands a large export to the export worker
func (p *InventoryEventPublisher) PublishExportInitiated(ctx context.Context, export *domain.Export) {
	if p == nil {
		return
	}

	data := messaging.ExportInitiatedEvent{
		TenantID:    export.TenantID,
		ExportID:    export.ID,
		ExportType:  string(export.Type),
		Format:      string(export.Format),
		ItemIDs:     export.ItemIDs,
		RecordCount: export.RecordCount,
		RequestedBy: export.ExportedBy,
	}

	p.publish(ctx, messaging.EventExportInitiated, data, "export_id", export.ID)
}

// PublishExportCompleted announces that an export can be downloaded
func (p *InventoryEventPublisher) PublishExportCompleted(ctx context.Context, export *domain.Export) {
	if p == nil {
		return
	}

	data := messaging.ExportCompletedEvent{
		TenantID:    export.TenantID,
		ExportID:    export.ID,
		RecordCount: export.RecordCount,
	}

	p.publish(ctx, messaging.EventExportCompleted, data, "export_id", export.ID)
}

func (p *InventoryEventPublisher) publish(ctx context.Context, eventType string, data interface{}, key, id string) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str(key, id).Str("event_type", eventType).Msg("failed to publish event")
	}
}

func toEventChanges(changes domain.Changes) []messaging.FieldChange {
	out := make([]messaging.FieldChange, len(changes))
	for i, c := range changes {
		out[i] = messaging.FieldChange{Field: c.Field, OldValue: c.OldValue, NewValue: c.NewValue}
	}
	return out
}
