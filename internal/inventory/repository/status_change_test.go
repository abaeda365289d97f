package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/internal/inventory/repository"
	"github.com/rentory/rentory-backend/pkg/testutil"
)

func TestStatusChangeRepository_ListByItem(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectTenantTx(tenantA)
	mockDB.ExpectQuery("SELECT COUNT(*) FROM inventory_item_status_changes").
		WithArgs(tenantA, itemID).
		WillReturnRows(testutil.MockRows("count").AddRow(7))
	mockDB.ExpectQuery("LIMIT $3 OFFSET $4").
		WithArgs(tenantA, itemID, 5, 5).
		WillReturnRows(testutil.MockRows(
			"id", "inventory_item_id", "tenant_id", "changed_by", "previous_status", "new_status",
			"change_reason", "expected_resolution_date", "change_type", "ip_address", "user_agent", "created_at",
		).AddRow(exportID, itemID, tenantA, catID, "available", "maintenance", "cleaning", nil, "manual", "10.0.0.1", nil, time.Now()))
	mockDB.ExpectCommit()

	repo := repository.NewStatusChangeRepository(mockDB.Database())
	changes, total, err := repo.ListByItem(tenantCtx(), itemID, 2, 5)

	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, changes, 1)
	assert.Equal(t, domain.StatusMaintenance, changes[0].NewStatus)
	assert.Equal(t, "cleaning", *changes[0].ChangeReason)
	mockDB.ExpectationsWereMet(t)
}
