package memstore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/internal/inventory/memstore"
	"github.com/rentory/rentory-backend/pkg/errors"
	"github.com/rentory/rentory-backend/pkg/testutil"
)

func TestFailedTransactionRollsBack(t *testing.T) {
	store := memstore.New()
	items := store.Items()
	tenantID := testutil.NewTenantID()
	ctx := testutil.TenantContext(tenantID)
	fixtures := testutil.NewFixtureFactory()

	err := store.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		require.NoError(t, items.Create(ctx, fixtures.BulkItem("cat", 5)))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	count, err := items.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNestedTransactionRejectsOtherTenant(t *testing.T) {
	store := memstore.New()
	tenantA, tenantB := testutil.NewTenantID(), testutil.NewTenantID()

	err := store.WithTenantRLS(context.Background(), tenantA, func(ctx context.Context) error {
		return store.WithTenantRLS(ctx, tenantB, func(context.Context) error { return nil })
	})
	assert.Error(t, err)
}

func TestUpdateWithVersion(t *testing.T) {
	store := memstore.New()
	items := store.Items()
	ctx := testutil.TenantContext(testutil.NewTenantID())
	item := testutil.NewFixtureFactory().SerializedItem("cat")
	require.NoError(t, items.Create(ctx, item))

	item.Name = "Renamed"
	require.NoError(t, items.UpdateWithVersion(ctx, item, 1))
	assert.Equal(t, 2, item.Version)

	stale := item.Clone()
	err := items.UpdateWithVersion(ctx, stale, 1)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeEditConflict, appErr.Code)
	assert.Equal(t, 2, appErr.Details["current_version"])
	assert.Equal(t, 1, appErr.Details["expected_version"])
}

func TestUniqueConstraintsAreTenantScoped(t *testing.T) {
	store := memstore.New()
	items := store.Items()
	fixtures := testutil.NewFixtureFactory()
	ctxA := testutil.TenantContext(testutil.NewTenantID())
	ctxB := testutil.TenantContext(testutil.NewTenantID())

	first := fixtures.SerializedItem("cat", testutil.WithItemName("Drone"))
	require.NoError(t, items.Create(ctxA, first))

	dup := fixtures.SerializedItem("cat", testutil.WithItemName("Drone"))
	assert.Equal(t, domain.CodeDuplicateName, errors.CodeOf(items.Create(ctxA, dup)))

	sameSerial := fixtures.SerializedItem("cat")
	sameSerial.SerialNumber = first.SerialNumber
	assert.Equal(t, domain.CodeDuplicateSerial, errors.CodeOf(items.Create(ctxA, sameSerial)))

	other := fixtures.SerializedItem("cat", testutil.WithItemName("Drone"))
	other.SerialNumber = first.SerialNumber
	assert.NoError(t, items.Create(ctxB, other))

	_, err := items.GetByID(ctxB, first.ID)
	assert.Equal(t, domain.CodeItemNotFound, errors.CodeOf(err))
}

func TestSerialsAreSequentialPerTenant(t *testing.T) {
	store := memstore.New()
	serials := store.Serials("", 0)
	ctxA := testutil.TenantContext(testutil.NewTenantID())
	ctxB := testutil.TenantContext(testutil.NewTenantID())

	const n = 50
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := serials.Next(ctxA)
			assert.NoError(t, err)
			mu.Lock()
			seen[s] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.True(t, seen["SN00000001"])
	assert.True(t, seen["SN00000050"])

	s, err := serials.Next(ctxB)
	require.NoError(t, err)
	assert.Equal(t, "SN00000001", s)
}

func TestStatusHistoryPaging(t *testing.T) {
	store := memstore.New()
	history := store.StatusChanges()
	ctx := testutil.TenantContext(testutil.NewTenantID())

	for _, to := range []domain.AvailabilityStatus{domain.StatusRented, domain.StatusAvailable, domain.StatusLost} {
		require.NoError(t, history.Create(ctx, &domain.StatusChange{ItemID: "item-1", NewStatus: to}))
	}

	page, total, err := history.ListByItem(ctx, "item-1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, domain.StatusLost, page[0].NewStatus)

	page, _, err = history.ListByItem(ctx, "item-1", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, domain.StatusRented, page[0].NewStatus)
}

func TestCategoryLookupByName(t *testing.T) {
	store := memstore.New()
	categories := store.Categories()
	ctx := testutil.TenantContext(testutil.NewTenantID())
	otherCtx := testutil.TenantContext(testutil.NewTenantID())

	require.NoError(t, categories.Upsert(ctx, &domain.Category{ID: "cat-1", Name: "Lighting"}))
	require.NoError(t, categories.Upsert(ctx, &domain.Category{ID: "cat-2", Name: "Audio"}))
	require.NoError(t, categories.Upsert(ctx, &domain.Category{ID: "cat-3", Name: "audio"}))
	require.NoError(t, categories.Upsert(otherCtx, &domain.Category{ID: "cat-4", Name: "Tents"}))

	id, err := categories.LookupByName(ctx, " lighting ")
	require.NoError(t, err)
	assert.Equal(t, "cat-1", id)

	_, err = categories.LookupByName(ctx, "Audio")
	assert.Equal(t, domain.CodeAmbiguousCategoryName, errors.CodeOf(err))

	_, err = categories.LookupByName(ctx, "Tents")
	assert.Equal(t, domain.CodeCategoryNotFound, errors.CodeOf(err))

	require.NoError(t, categories.Deactivate(ctx, "cat-1"))
	_, err = categories.LookupByName(ctx, "Lighting")
	assert.Equal(t, domain.CodeCategoryNotFound, errors.CodeOf(err))
}
