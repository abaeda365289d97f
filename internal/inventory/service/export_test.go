package service_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/internal/inventory/export"
	"github.com/rentory/rentory-backend/internal/inventory/service"
	"github.com/rentory/rentory-backend/pkg/messaging"
	"github.com/rentory/rentory-backend/pkg/testutil"
)

func (h *harness) exports(limits service.ExportLimits) *service.ExportCoordinator {
	return service.NewExportCoordinator(h.deps, limits, export.Renderers())
}

func csvRows(t *testing.T, body []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExport_SyncPath(t *testing.T) {
	h := newHarness(t)
	ids := h.seedMany(t, 3)
	coordinator := h.exports(service.ExportLimits{SyncLimit: 5, AsyncLimit: 10})

	handle, err := coordinator.Initiate(h.ctx, service.InitiateExportInput{
		Format: domain.ExportFormatCSV,
		Type:   domain.ExportTypeInventory,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ExportPathSync, handle.Path)
	assert.Equal(t, domain.ExportCompleted, handle.Export.Status)
	assert.Equal(t, 3, handle.Export.RecordCount)
	assert.Equal(t, h.now.Add(24*time.Hour), handle.Export.ExpiresAt)
	assert.Equal(t, "/api/v1/inventory/exports/"+handle.Export.ID+"/download", handle.DownloadURL)
	assert.Empty(t, h.publisher.Events(messaging.EventExportInitiated))

	file, err := coordinator.Download(h.ctx, handle.Export.ID)
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.Equal(t, "inventory-export-"+handle.Export.ID[:8]+".csv", file.Filename)

	rows := csvRows(t, file.Body)
	require.Len(t, rows, 4)
	got := []string{rows[1][0], rows[2][0], rows[3][0]}
	assert.ElementsMatch(t, ids, got)

	stored, err := h.store.Exports().GetByID(h.ctx, handle.Export.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.DownloadCount)
}

func TestExport_ItemSetIsFixedAtCompletion(t *testing.T) {
	h := newHarness(t)
	ids := h.seedMany(t, 2)
	coordinator := h.exports(service.ExportLimits{})

	handle, err := coordinator.Initiate(h.ctx, service.InitiateExportInput{
		Format:  domain.ExportFormatCSV,
		Type:    domain.ExportTypeInventory,
		ItemIDs: []string{ids[0], ids[0]},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, handle.Export.RecordCount)

	h.seedMany(t, 2)
	file, err := coordinator.Download(h.ctx, handle.Export.ID)
	require.NoError(t, err)
	assert.Len(t, csvRows(t, file.Body), 2)
}

func TestExport_AsyncPath(t *testing.T) {
	h := newHarness(t)
	h.seedMany(t, 3)
	coordinator := h.exports(service.ExportLimits{SyncLimit: 2, AsyncLimit: 10})

	handle, err := coordinator.Initiate(h.ctx, service.InitiateExportInput{
		Format: domain.ExportFormatXLSX,
		Type:   domain.ExportTypeInventory,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ExportPathAsync, handle.Path)
	assert.Equal(t, domain.ExportInitiated, handle.Export.Status)
	assert.Empty(t, handle.DownloadURL)
	h.publisher.AssertEventPublished(t, messaging.EventExportInitiated)

	_, err = coordinator.Download(h.ctx, handle.Export.ID)
	requireCode(t, err, domain.CodeExportNotReady)

	completed, err := coordinator.Complete(testutil.TenantContext(h.tenantID), handle.Export.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportCompleted, completed.Status)
	assert.Len(t, completed.ItemIDs, 3)

	_, err = coordinator.Complete(testutil.TenantContext(h.tenantID), handle.Export.ID)
	require.NoError(t, err)
	assert.Len(t, h.publisher.Events(messaging.EventExportCompleted), 1, "completing twice is a no-op")

	file, err := coordinator.Download(h.ctx, handle.Export.ID)
	require.NoError(t, err)
	assert.Contains(t, file.ContentType, "spreadsheetml")
	assert.NotEmpty(t, file.Body)
}

func TestExport_TooLarge(t *testing.T) {
	h := newHarness(t)
	h.seedMany(t, 3)
	coordinator := h.exports(service.ExportLimits{SyncLimit: 1, AsyncLimit: 2})

	_, err := coordinator.Initiate(h.ctx, service.InitiateExportInput{
		Format: domain.ExportFormatCSV,
		Type:   domain.ExportTypeInventory,
	})
	appErr := requireCode(t, err, domain.CodeExportTooLarge)
	assert.Equal(t, 3, appErr.Details["record_count"])
	h.publisher.AssertNoEventsPublished(t)
}

func TestExport_Expiry(t *testing.T) {
	h := newHarness(t)
	h.seedMany(t, 1)
	coordinator := h.exports(service.ExportLimits{})

	inventory, err := coordinator.Initiate(h.ctx, service.InitiateExportInput{
		Format: domain.ExportFormatCSV, Type: domain.ExportTypeInventory,
	})
	require.NoError(t, err)
	audit, err := coordinator.Initiate(h.ctx, service.InitiateExportInput{
		Format: domain.ExportFormatCSV, Type: domain.ExportTypeAudit,
	})
	require.NoError(t, err)

	h.advance(24 * time.Hour)

	_, err = coordinator.Download(h.ctx, inventory.Export.ID)
	requireCode(t, err, domain.CodeExportExpired)

	_, err = coordinator.Download(h.ctx, audit.Export.ID)
	require.NoError(t, err, "audit exports are kept for seven days")

	h.advance(6 * 24 * time.Hour)
	_, err = coordinator.Download(h.ctx, audit.Export.ID)
	requireCode(t, err, domain.CodeExportExpired)
}

func TestExport_AuditSnapshot(t *testing.T) {
	h := newHarness(t)
	svc := h.items()

	item, err := svc.Create(h.ctx, service.CreateItemInput{
		Name: "Projector", CategoryID: h.category.ID, ItemType: domain.ItemTypeSerialized, AutoGenerateSerial: true,
	})
	require.NoError(t, err)
	h.advance(time.Minute)
	_, err = svc.ChangeStatus(h.ctx, item.ID, service.ChangeStatusInput{Status: domain.StatusRented})
	require.NoError(t, err)
	h.advance(time.Minute)

	coordinator := h.exports(service.ExportLimits{})
	handle, err := coordinator.Initiate(h.ctx, service.InitiateExportInput{
		Format: domain.ExportFormatCSV, Type: domain.ExportTypeAudit,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, handle.Export.RecordCount)

	h.advance(time.Minute)
	_, err = svc.ChangeStatus(h.ctx, item.ID, service.ChangeStatusInput{Status: domain.StatusAvailable})
	require.NoError(t, err)

	file, err := coordinator.Download(h.ctx, handle.Export.ID)
	require.NoError(t, err)

	rows := csvRows(t, file.Body)
	require.Len(t, rows, 3)
	assert.Equal(t, domain.AuditItemStatusChanged, rows[1][3])
	assert.Equal(t, domain.AuditItemCreated, rows[2][3])
}

func TestExport_Validation(t *testing.T) {
	h := newHarness(t)
	coordinator := h.exports(service.ExportLimits{})

	tests := []struct {
		name string
		in   service.InitiateExportInput
	}{
		{"unknown format", service.InitiateExportInput{Format: "pdf", Type: domain.ExportTypeInventory}},
		{"unknown type", service.InitiateExportInput{Format: domain.ExportFormatCSV, Type: "orders"}},
		{"audit with items", service.InitiateExportInput{
			Format: domain.ExportFormatCSV, Type: domain.ExportTypeAudit, ItemIDs: []string{"a"},
		}},
		{"malformed item id", service.InitiateExportInput{
			Format: domain.ExportFormatCSV, Type: domain.ExportTypeInventory, ItemIDs: []string{uuid.NewString(), "item-42"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := coordinator.Initiate(h.ctx, tt.in)
			requireCode(t, err, "VALIDATION_ERROR")
		})
	}
}

func TestExport_UnknownItemIDsDoNotCountTowardsLimits(t *testing.T) {
	h := newHarness(t)
	ids := h.seedMany(t, 2)
	coordinator := h.exports(service.ExportLimits{SyncLimit: 2, AsyncLimit: 10})

	requested := append([]string{}, ids...)
	requested = append(requested, uuid.NewString(), uuid.NewString(), uuid.NewString())

	handle, err := coordinator.Initiate(h.ctx, service.InitiateExportInput{
		Format:  domain.ExportFormatCSV,
		Type:    domain.ExportTypeInventory,
		ItemIDs: requested,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ExportPathSync, handle.Path)
	assert.Equal(t, 2, handle.Export.RecordCount)
	assert.ElementsMatch(t, ids, handle.Export.ItemIDs)

	stored, err := h.store.Exports().GetByID(h.ctx, handle.Export.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportCompleted, stored.Status)
}

func TestExport_DownloadOtherTenant(t *testing.T) {
	h := newHarness(t)
	h.seedMany(t, 1)
	coordinator := h.exports(service.ExportLimits{})

	handle, err := coordinator.Initiate(h.ctx, service.InitiateExportInput{
		Format: domain.ExportFormatCSV, Type: domain.ExportTypeInventory,
	})
	require.NoError(t, err)

	other := testutil.ActorContext(testutil.NewTenantID(), testUserID)
	_, err = coordinator.Download(other, handle.Export.ID)
	requireCode(t, err, domain.CodeExportNotFound)
}
