package consumers

import (
	"context"
	"fmt"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/pkg/logger"
	"github.com/rentory/rentory-backend/pkg/messaging"
	"github.com/rentory/rentory-backend/pkg/tenant"
)

// ExportCompleter materializes initiated exports.
type ExportCompleter interface {
	Complete(ctx context.Context, id string) (*domain.Export, error)
}

// ExportWorker completes exports handed off on the async path
type ExportWorker struct {
	consumer *messaging.Consumer
	exports  ExportCompleter
	logger   *logger.Logger
}

// NewExportWorker creates a new export worker
func NewExportWorker(rmq *messaging.RabbitMQ, exports ExportCompleter, log *logger.Logger) (*ExportWorker, error) {
	consumer, err := messaging.NewConsumer(rmq, "inventory-service.export-jobs", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeInventoryEvents, messaging.EventExportInitiated); err != nil {
		return nil, err
	}

	w := NewExportHandler(exports, log)
	w.consumer = consumer
	consumer.RegisterHandler(messaging.EventExportInitiated, w.HandleExportInitiated)

	return w, nil
}

// NewExportHandler creates the handler without a broker connection
func NewExportHandler(exports ExportCompleter, log *logger.Logger) *ExportWorker {
	return &ExportWorker{
		exports: exports,
		logger:  log.WithComponent("export-worker"),
	}
}

// Start starts consuming messages
func (w *ExportWorker) Start(ctx context.Context) error {
	return w.consumer.Start(ctx)
}

// HandleExportInitiated completes the export named by the event. The
// worker acts as the system actor of the export's tenant.
func (w *ExportWorker) HandleExportInitiated(ctx context.Context, event *messaging.Event) error {
	var data messaging.ExportInitiatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}
	if data.TenantID == "" || data.ExportID == "" {
		return fmt.Errorf("export event %s is missing tenant_id or export_id", event.ID)
	}

	ctx = tenant.WithTenantID(ctx, data.TenantID)
	export, err := w.exports.Complete(ctx, data.ExportID)
	if err != nil {
		return err
	}

	w.logger.Info().
		Str("tenant_id", data.TenantID).
		Str("export_id", export.ID).
		Int("record_count", export.RecordCount).
		Msg("export job finished")
	return nil
}
