package consumers

import (
	"context"
	"fmt"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/pkg/logger"
	"github.com/rentory/rentory-backend/pkg/messaging"
	"github.com/rentory/rentory-backend/pkg/tenant"
)

// CategoryStore is the local category read model.
type CategoryStore interface {
	Upsert(ctx context.Context, category *domain.Category) error
	Deactivate(ctx context.Context, id string) error
}

// CategoryEventConsumer keeps the category read model in sync with the catalog
type CategoryEventConsumer struct {
	consumer   *messaging.Consumer
	categories CategoryStore
	logger     *logger.Logger
}

// NewCategoryEventConsumer creates a new category event consumer
func NewCategoryEventConsumer(rmq *messaging.RabbitMQ, categories CategoryStore, log *logger.Logger) (*CategoryEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "inventory-service.category-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeCatalogEvents, "catalog.category.#"); err != nil {
		return nil, err
	}

	c := NewCategoryEventHandler(categories, log)
	c.consumer = consumer
	c.Register(consumer)

	return c, nil
}

// NewCategoryEventHandler creates the handlers without a broker connection
func NewCategoryEventHandler(categories CategoryStore, log *logger.Logger) *CategoryEventConsumer {
	return &CategoryEventConsumer{
		categories: categories,
		logger:     log.WithComponent("category-consumer"),
	}
}

// Register registers the category handlers on consumer.
func (c *CategoryEventConsumer) Register(consumer *messaging.Consumer) {
	consumer.RegisterHandler(messaging.EventCategoryCreated, c.HandleCategoryUpserted)
	consumer.RegisterHandler(messaging.EventCategoryUpdated, c.HandleCategoryUpserted)
	consumer.RegisterHandler(messaging.EventCategoryDeleted, c.HandleCategoryDeleted)
}

// Start starts consuming messages
func (c *CategoryEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// HandleCategoryUpserted stores a created or renamed category as active.
func (c *CategoryEventConsumer) HandleCategoryUpserted(ctx context.Context, event *messaging.Event) error {
	data, err := decodeCategory(event)
	if err != nil {
		return err
	}

	c.logger.Info().
		Str("tenant_id", data.TenantID).
		Str("category_id", data.CategoryID).
		Str("event_type", event.Type).
		Msg("received category event")

	ctx = tenant.WithTenantID(ctx, data.TenantID)
	return c.categories.Upsert(ctx, &domain.Category{
		ID:   data.CategoryID,
		Name: data.Name,
	})
}

// HandleCategoryDeleted deactivates a category. Items keep their reference.
func (c *CategoryEventConsumer) HandleCategoryDeleted(ctx context.Context, event *messaging.Event) error {
	data, err := decodeCategory(event)
	if err != nil {
		return err
	}

	c.logger.Info().
		Str("tenant_id", data.TenantID).
		Str("category_id", data.CategoryID).
		Msg("received category deleted event")

	ctx = tenant.WithTenantID(ctx, data.TenantID)
	return c.categories.Deactivate(ctx, data.CategoryID)
}

func decodeCategory(event *messaging.Event) (*messaging.CategoryEvent, error) {
	var data messaging.CategoryEvent
	if err := event.UnmarshalData(&data); err != nil {
		return nil, err
	}
	if data.TenantID == "" || data.CategoryID == "" {
		return nil, fmt.Errorf("category event %s is missing tenant_id or category_id", event.ID)
	}
	return &data, nil
}
