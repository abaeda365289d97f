package consumers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentory/rentory-backend/internal/inventory/consumers"
	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/internal/inventory/export"
	"github.com/rentory/rentory-backend/internal/inventory/memstore"
	"github.com/rentory/rentory-backend/internal/inventory/service"
	"github.com/rentory/rentory-backend/pkg/logger"
	"github.com/rentory/rentory-backend/pkg/messaging"
	"github.com/rentory/rentory-backend/pkg/testutil"
)

func newEvent(t *testing.T, eventType string, data any) *messaging.Event {
	t.Helper()
	event, err := messaging.NewEvent(eventType, "test", "corr-1", data)
	require.NoError(t, err)
	return event
}

func TestCategoryEvents(t *testing.T) {
	store := memstore.New()
	categories := store.Categories()
	handler := consumers.NewCategoryEventHandler(categories, logger.Nop())

	tenantID := testutil.NewTenantID()
	ctx := testutil.TenantContext(tenantID)
	payload := messaging.CategoryEvent{TenantID: tenantID, CategoryID: "cat-1", Name: "Lighting"}

	require.NoError(t, handler.HandleCategoryUpserted(context.Background(), newEvent(t, messaging.EventCategoryCreated, payload)))
	exists, err := categories.Exists(ctx, "cat-1")
	require.NoError(t, err)
	assert.True(t, exists)

	other, err := categories.Exists(testutil.TenantContext(testutil.NewTenantID()), "cat-1")
	require.NoError(t, err)
	assert.False(t, other, "categories are scoped to the event's tenant")

	require.NoError(t, handler.HandleCategoryDeleted(context.Background(), newEvent(t, messaging.EventCategoryDeleted, payload)))
	exists, err = categories.Exists(ctx, "cat-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, handler.HandleCategoryUpserted(context.Background(), newEvent(t, messaging.EventCategoryUpdated, payload)))
	exists, err = categories.Exists(ctx, "cat-1")
	require.NoError(t, err)
	assert.True(t, exists, "a recreated category becomes active again")
}

func TestCategoryEvents_MissingTenant(t *testing.T) {
	handler := consumers.NewCategoryEventHandler(memstore.New().Categories(), logger.Nop())

	err := handler.HandleCategoryUpserted(context.Background(), newEvent(t, messaging.EventCategoryCreated, messaging.CategoryEvent{
		CategoryID: "cat-1",
	}))
	assert.Error(t, err)
}

func TestExportWorker_CompletesExport(t *testing.T) {
	store := memstore.New()
	tenantID := testutil.NewTenantID()
	ctx := testutil.ActorContext(tenantID, "user-1")
	fixtures := testutil.NewFixtureFactory()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Items().Create(ctx, fixtures.SerializedItem("cat")))
	}

	coordinator := service.NewExportCoordinator(service.Dependencies{
		Tx:       store,
		Items:    store.Items(),
		Audit:    store.AuditLog(),
		AuditLog: store.AuditLog(),
		Exports:  store.Exports(),
	}, service.ExportLimits{SyncLimit: 1}, export.Renderers())

	handle, err := coordinator.Initiate(ctx, service.InitiateExportInput{
		Format: domain.ExportFormatCSV,
		Type:   domain.ExportTypeInventory,
	})
	require.NoError(t, err)
	require.Equal(t, domain.ExportPathAsync, handle.Path)

	worker := consumers.NewExportHandler(coordinator, logger.Nop())
	err = worker.HandleExportInitiated(context.Background(), newEvent(t, messaging.EventExportInitiated, messaging.ExportInitiatedEvent{
		TenantID: tenantID,
		ExportID: handle.Export.ID,
	}))
	require.NoError(t, err)

	stored, err := store.Exports().GetByID(ctx, handle.Export.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportCompleted, stored.Status)
	assert.Len(t, stored.ItemIDs, 3)
}

func TestExportWorker_UnknownExport(t *testing.T) {
	store := memstore.New()
	coordinator := service.NewExportCoordinator(service.Dependencies{
		Tx:      store,
		Items:   store.Items(),
		Exports: store.Exports(),
	}, service.ExportLimits{}, export.Renderers())

	worker := consumers.NewExportHandler(coordinator, logger.Nop())
	err := worker.HandleExportInitiated(context.Background(), newEvent(t, messaging.EventExportInitiated, messaging.ExportInitiatedEvent{
		TenantID: testutil.NewTenantID(),
		ExportID: "missing",
	}))
	assert.Error(t, err)
}
