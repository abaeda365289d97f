package service_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/internal/inventory/service"
	"github.com/rentory/rentory-backend/pkg/errors"
	"github.com/rentory/rentory-backend/pkg/messaging"
	"github.com/rentory/rentory-backend/pkg/testutil"
)

func TestCreate_Serialized(t *testing.T) {
	h := newHarness(t)

	item, err := h.items().Create(h.ctx, service.CreateItemInput{
		Name:         "  Sony A7 IV  ",
		CategoryID:   h.category.ID,
		ItemType:     domain.ItemTypeSerialized,
		SerialNumber: testutil.PtrString("A7-0001"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Sony A7 IV", item.Name)
	assert.Equal(t, 1, item.Version)
	assert.Equal(t, domain.StatusAvailable, item.AvailabilityStatus)
	assert.Equal(t, domain.LifecycleActive, item.Status)
	assert.Equal(t, domain.SerialManual, *item.SerialNumberSource)
	assert.Equal(t, h.tenantID, item.TenantID)

	assert.Equal(t, 1, h.auditCount(t))
	h.publisher.AssertEventPublished(t, messaging.EventItemCreated)
}

func TestCreate_AutoGeneratedSerial(t *testing.T) {
	h := newHarness(t)
	svc := h.items()

	first, err := svc.Create(h.ctx, service.CreateItemInput{
		Name: "Tripod", CategoryID: h.category.ID, ItemType: domain.ItemTypeSerialized, AutoGenerateSerial: true,
	})
	require.NoError(t, err)
	second, err := svc.Create(h.ctx, service.CreateItemInput{
		Name: "Tripod 2", CategoryID: h.category.ID, ItemType: domain.ItemTypeSerialized, AutoGenerateSerial: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "SN00000001", *first.SerialNumber)
	assert.Equal(t, "SN00000002", *second.SerialNumber)
	assert.Equal(t, domain.SerialAutoGenerated, *second.SerialNumberSource)
}

func TestCreate_ResolvesCategoryByName(t *testing.T) {
	h := newHarness(t)

	item, err := h.items().Create(h.ctx, service.CreateItemInput{
		Name:         "Folding Table",
		CategoryName: strings.ToUpper(h.category.Name),
		ItemType:     domain.ItemTypeNonSerialized,
		Quantity:     testutil.PtrInt(12),
	})
	require.NoError(t, err)
	assert.Equal(t, h.category.ID, item.CategoryID)
	assert.Equal(t, h.category.ID, h.reload(t, item.ID).CategoryID)
}

func TestCreate_SkipsGeneratedSerialTakenManually(t *testing.T) {
	h := newHarness(t)
	h.seed(t, h.fixtures.SerializedItem(h.category.ID, func(i *domain.Item) {
		i.SerialNumber = testutil.PtrString("SN00000001")
	}))

	item, err := h.items().Create(h.ctx, service.CreateItemInput{
		Name: "Gimbal", CategoryID: h.category.ID, ItemType: domain.ItemTypeSerialized, AutoGenerateSerial: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "SN00000002", *item.SerialNumber)
}

func TestCreate_Rejections(t *testing.T) {
	h := newHarness(t)
	existing := h.seed(t, h.fixtures.SerializedItem(h.category.ID))

	tests := []struct {
		name string
		in   service.CreateItemInput
		code string
	}{
		{
			name: "serialized without serial",
			in:   service.CreateItemInput{Name: "A", CategoryID: h.category.ID, ItemType: domain.ItemTypeSerialized},
			code: domain.CodeSerialNumberRequired,
		},
		{
			name: "serial together with auto generation",
			in: service.CreateItemInput{
				Name: "A2", CategoryID: h.category.ID, ItemType: domain.ItemTypeSerialized,
				SerialNumber: testutil.PtrString("MANUAL-1"), AutoGenerateSerial: true,
			},
			code: domain.CodeInvalidItemVariant,
		},
		{
			name: "no category",
			in:   service.CreateItemInput{Name: "A3", ItemType: domain.ItemTypeNonSerialized, Quantity: testutil.PtrInt(1)},
			code: "VALIDATION_ERROR",
		},
		{
			name: "unknown category name",
			in: service.CreateItemInput{
				Name: "A4", CategoryName: "Catering", ItemType: domain.ItemTypeNonSerialized, Quantity: testutil.PtrInt(1),
			},
			code: domain.CodeCategoryNotFound,
		},
		{
			name: "non-serialized without quantity",
			in:   service.CreateItemInput{Name: "B", CategoryID: h.category.ID, ItemType: domain.ItemTypeNonSerialized},
			code: domain.CodeQuantityRequired,
		},
		{
			name: "negative quantity",
			in: service.CreateItemInput{
				Name: "C", CategoryID: h.category.ID, ItemType: domain.ItemTypeNonSerialized, Quantity: testutil.PtrInt(-1),
			},
			code: domain.CodeQuantityNegative,
		},
		{
			name: "unknown category",
			in: service.CreateItemInput{
				Name: "D", CategoryID: "missing", ItemType: domain.ItemTypeNonSerialized, Quantity: testutil.PtrInt(1),
			},
			code: domain.CodeCategoryNotFound,
		},
		{
			name: "duplicate name",
			in: service.CreateItemInput{
				Name: existing.Name, CategoryID: h.category.ID, ItemType: domain.ItemTypeNonSerialized, Quantity: testutil.PtrInt(1),
			},
			code: domain.CodeDuplicateName,
		},
		{
			name: "duplicate serial",
			in: service.CreateItemInput{
				Name: "E", CategoryID: h.category.ID, ItemType: domain.ItemTypeSerialized, SerialNumber: existing.SerialNumber,
			},
			code: domain.CodeDuplicateSerial,
		},
		{
			name: "maintenance dates out of order",
			in: service.CreateItemInput{
				Name: "F", CategoryID: h.category.ID, ItemType: domain.ItemTypeNonSerialized, Quantity: testutil.PtrInt(1),
				LastMaintenanceDate:    testutil.PtrTime(h.now),
				NextMaintenanceDueDate: testutil.PtrTime(h.now.Add(-24 * time.Hour)),
			},
			code: domain.CodeMaintenanceDateLogicError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.items().Create(h.ctx, tt.in)
			requireCode(t, err, tt.code)
		})
	}

	count, err := h.store.Items().Count(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPermissionGate(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID))

	readOnly := testutil.ActorContext(h.tenantID, testUserID, "inventory.items.read")
	svc := h.items()

	_, err := svc.Get(readOnly, item.ID)
	require.NoError(t, err)

	_, err = svc.ChangeStatus(readOnly, item.ID, service.ChangeStatusInput{Status: domain.StatusRented})
	appErr := requireCode(t, err, "FORBIDDEN")
	assert.Equal(t, "inventory.items.status", appErr.Details["required_permission"])
	assert.Equal(t, domain.StatusAvailable, h.reload(t, item.ID).AvailabilityStatus)

	wildcard := testutil.ActorContext(h.tenantID, testUserID, "inventory.*")
	_, err = svc.ChangeStatus(wildcard, item.ID, service.ChangeStatusInput{Status: domain.StatusRented})
	require.NoError(t, err)
}

func TestPermissionGate_RequiresTenant(t *testing.T) {
	h := newHarness(t)

	_, err := h.items().Get(context.Background(), "any")
	requireCode(t, err, "TENANT_REQUIRED")
}

func TestSystemActorChangesAreAutomatic(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID))

	res, err := h.items().ChangeStatus(testutil.TenantContext(h.tenantID), item.ID, service.ChangeStatusInput{
		Status: domain.StatusRented,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ChangeTypeAutomatic, res.Change.ChangeType)
}

func TestUpdate_AppliesSparsePatch(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.BulkItem(h.category.ID, 10))

	res, err := h.items().Update(h.ctx, item.ID, service.UpdateItemInput{
		Name:            testutil.PtrString("Chair, stacking"),
		Quantity:        testutil.PtrInt(12),
		QuantityUnit:    testutil.PtrString("pcs"),
		ExpectedVersion: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "quantity"}, res.Changes.Fields())
	assert.Equal(t, 2, res.Item.Version)
	assert.Equal(t, 12, *h.reload(t, item.ID).Quantity)
	h.publisher.AssertEventPublished(t, messaging.EventItemUpdated)
}

func TestUpdate_EmptyDiffKeepsVersion(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID))

	res, err := h.items().Update(h.ctx, item.ID, service.UpdateItemInput{
		Name:            testutil.PtrString(item.Name),
		ExpectedVersion: 1,
	})
	require.NoError(t, err)

	assert.True(t, res.Changes.Empty())
	assert.Equal(t, 1, h.reload(t, item.ID).Version)
	assert.Equal(t, 0, h.auditCount(t))
	h.publisher.AssertNoEventsPublished(t)
}

func TestUpdate_StaleVersion(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID))

	_, err := h.items().Update(h.ctx, item.ID, service.UpdateItemInput{
		Name:            testutil.PtrString("Renamed"),
		ExpectedVersion: 7,
	})
	appErr := requireCode(t, err, domain.CodeEditConflict)
	assert.Equal(t, 1, appErr.Details["current_version"])
	assert.Equal(t, item.Name, h.reload(t, item.ID).Name)
}

func TestUpdate_ConcurrentWritersOneWins(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID))
	svc := h.items()

	const writers = 2
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Update(h.ctx, item.ID, service.UpdateItemInput{
				ConditionNotes:  testutil.PtrString("checked by writer " + string(rune('A'+i))),
				ExpectedVersion: 1,
			})
		}(i)
	}
	wg.Wait()

	succeeded, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.CodeOf(err) == domain.CodeEditConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 2, h.reload(t, item.ID).Version)
}

func TestUpdate_ConflictBetweenReadAndWrite(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID))

	var fired atomic.Bool
	h.store.BeforeItemUpdate(func(ctx context.Context, itemID string) {
		if fired.Swap(true) {
			return
		}
		competing, err := h.store.Items().GetByID(ctx, itemID)
		require.NoError(t, err)
		competing.ConditionNotes = testutil.PtrString("competing write")
		require.NoError(t, h.store.Items().UpdateWithVersion(ctx, competing, competing.Version))
	})

	_, err := h.items().Update(h.ctx, item.ID, service.UpdateItemInput{
		Name:            testutil.PtrString("Renamed"),
		ExpectedVersion: 1,
	})
	requireCode(t, err, domain.CodeEditConflict)
	assert.Equal(t, 1, h.reload(t, item.ID).Version, "the failed transaction rolls back entirely")
}

func TestUpdate_ItemTypeConversion(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID))
	target := domain.ItemTypeNonSerialized

	res, err := h.items().Update(h.ctx, item.ID, service.UpdateItemInput{
		ItemType:        &target,
		Quantity:        testutil.PtrInt(3),
		ExpectedVersion: 1,
	})
	require.NoError(t, err)

	stored := h.reload(t, item.ID)
	assert.Equal(t, domain.ItemTypeNonSerialized, stored.ItemType)
	assert.Nil(t, stored.SerialNumber)
	assert.Equal(t, item.SerialNumber, stored.PreviousSerialNumber)
	assert.Subset(t, res.Changes.Fields(), []string{
		"item_type", "serial_number", "previous_serial_number", "serial_number_source", "quantity",
	})

	for _, c := range res.Changes {
		if c.Field == "previous_serial_number" {
			assert.Nil(t, c.OldValue)
			assert.Equal(t, *item.SerialNumber, c.NewValue)
		}
	}
}

func TestUpdate_ItemTypeLockedAfterRental(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID, testutil.WithRentalHistory()))
	target := domain.ItemTypeNonSerialized

	_, err := h.items().Update(h.ctx, item.ID, service.UpdateItemInput{
		ItemType:        &target,
		Quantity:        testutil.PtrInt(3),
		ExpectedVersion: 1,
	})
	requireCode(t, err, domain.CodeItemTypeLocked)
}

func TestChangeStatus_MaintenanceNeedsReason(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID))
	svc := h.items()

	_, err := svc.ChangeStatus(h.ctx, item.ID, service.ChangeStatusInput{Status: domain.StatusMaintenance})
	requireCode(t, err, domain.CodeReasonRequired)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	res, err := svc.ChangeStatus(h.ctx, item.ID, service.ChangeStatusInput{
		Status: domain.StatusMaintenance,
		Reason: "cleaning",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Item.Version)
	assert.Nil(t, res.Item.ExpectedResolutionDate)

	history, err := svc.GetStatusHistory(h.ctx, item.ID, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 1, history.Total)
	change := history.Changes[0]
	assert.Equal(t, domain.StatusAvailable, change.PreviousStatus)
	assert.Equal(t, domain.StatusMaintenance, change.NewStatus)
	assert.Equal(t, "cleaning", *change.ChangeReason)
	assert.Equal(t, domain.ChangeTypeManual, change.ChangeType)
	assert.Equal(t, testUserID, change.ChangedBy)

	h.publisher.AssertEventPublished(t, messaging.EventItemStatusChanged)
}

func TestChangeStatus_InvalidTransitionsLeaveStateUnchanged(t *testing.T) {
	invalid := map[domain.AvailabilityStatus][]domain.AvailabilityStatus{
		domain.StatusAvailable:   {domain.StatusAvailable},
		domain.StatusRented:      {domain.StatusRented, domain.StatusMaintenance},
		domain.StatusMaintenance: {domain.StatusMaintenance, domain.StatusRented},
		domain.StatusDamaged:     {domain.StatusDamaged, domain.StatusRented},
		domain.StatusLost:        {domain.StatusLost, domain.StatusRented, domain.StatusMaintenance, domain.StatusDamaged},
	}

	for from, targets := range invalid {
		for _, to := range targets {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				h := newHarness(t)
				item := h.seed(t, h.fixtures.SerializedItem(h.category.ID, testutil.WithAvailability(from)))

				_, err := h.items().ChangeStatus(h.ctx, item.ID, service.ChangeStatusInput{
					Status: to,
					Reason: "reason",
				})
				requireCode(t, err, domain.CodeInvalidStatusTransition)

				stored := h.reload(t, item.ID)
				assert.Equal(t, from, stored.AvailabilityStatus)
				assert.Equal(t, 1, stored.Version)
			})
		}
	}
}

func TestChangeStatus_ResolutionDate(t *testing.T) {
	h := newHarness(t)
	svc := h.items()

	damaged := h.seed(t, h.fixtures.SerializedItem(h.category.ID))
	due := h.now.Add(72 * time.Hour)
	res, err := svc.ChangeStatus(h.ctx, damaged.ID, service.ChangeStatusInput{
		Status: domain.StatusDamaged, Reason: "cracked lens", ResolutionDate: &due,
	})
	require.NoError(t, err)
	assert.True(t, due.Equal(*res.Item.ExpectedResolutionDate))

	past := h.now.Add(-time.Hour)
	other := h.seed(t, h.fixtures.SerializedItem(h.category.ID))
	_, err = svc.ChangeStatus(h.ctx, other.ID, service.ChangeStatusInput{
		Status: domain.StatusMaintenance, Reason: "service", ResolutionDate: &past,
	})
	requireCode(t, err, domain.CodeResolutionDateInPast)

	_, err = svc.ChangeStatus(h.ctx, other.ID, service.ChangeStatusInput{
		Status: domain.StatusLost, Reason: "missing", ResolutionDate: &due,
	})
	requireCode(t, err, domain.CodeResolutionDateNotAllowed)
}

func TestChangeStatus_AllocatedItemCannotLeaveRented(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID, testutil.WithAvailability(domain.StatusRented)))

	_, err := h.items().ChangeStatus(h.ctx, item.ID, service.ChangeStatusInput{
		Status: domain.StatusDamaged, Reason: "dropped",
	})
	requireCode(t, err, domain.CodeItemAllocated)

	h.deps.Allocation = service.AllocationFunc(func(context.Context, *domain.Item) (bool, error) {
		return false, nil
	})
	_, err = h.items().ChangeStatus(h.ctx, item.ID, service.ChangeStatusInput{
		Status: domain.StatusDamaged, Reason: "dropped",
	})
	require.NoError(t, err)
}

func TestChangeStatus_ToRentedMarksRentalHistory(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID))

	_, err := h.items().ChangeStatus(h.ctx, item.ID, service.ChangeStatusInput{Status: domain.StatusRented})
	require.NoError(t, err)
	assert.True(t, h.reload(t, item.ID).HasRentalHistory)
}

func TestChangeStatus_ExpectedVersion(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID))

	_, err := h.items().ChangeStatus(h.ctx, item.ID, service.ChangeStatusInput{
		Status: domain.StatusRented, ExpectedVersion: testutil.PtrInt(3),
	})
	requireCode(t, err, domain.CodeEditConflict)
}

func TestGetStatusOptions(t *testing.T) {
	h := newHarness(t)
	rented := h.seed(t, h.fixtures.SerializedItem(h.category.ID, testutil.WithAvailability(domain.StatusRented)))

	opts, err := h.items().GetStatusOptions(h.ctx, rented.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRented, opts.CurrentStatus)
	assert.Equal(t, domain.AllowedTransitions(domain.StatusRented), opts.ValidTransitions)

	blocked := map[domain.AvailabilityStatus]bool{}
	for _, r := range opts.Restrictions {
		blocked[r.Status] = r.Blocked
	}
	assert.False(t, blocked[domain.StatusAvailable])
	assert.True(t, blocked[domain.StatusDamaged], "allocated rented items can only be returned")
}

func TestGetStatusHistory_ClampsLimit(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID))

	history, err := h.items().GetStatusHistory(h.ctx, item.ID, 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, history.Page)
	assert.Equal(t, service.MaxHistoryLimit, history.Limit)
	assert.Empty(t, history.Changes)

	_, err = h.items().GetStatusHistory(h.ctx, "missing", 1, 10)
	requireCode(t, err, domain.CodeItemNotFound)
}

func TestUpdateSerializedFields_SerialChangeNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID, testutil.WithRentalHistory()))
	taken := h.seed(t, h.fixtures.SerializedItem(h.category.ID))
	svc := h.items()

	_, err := svc.UpdateSerializedFields(h.ctx, item.ID, service.SerializedFieldsInput{
		SerialNumber: testutil.PtrString("NEW-001"),
	})
	requireCode(t, err, domain.CodeSerialChangeConfirmationNeeded)

	_, err = svc.UpdateSerializedFields(h.ctx, item.ID, service.SerializedFieldsInput{
		SerialNumber:              taken.SerialNumber,
		ConfirmSerialNumberChange: true,
	})
	requireCode(t, err, domain.CodeSerialNumberExists)

	res, err := svc.UpdateSerializedFields(h.ctx, item.ID, service.SerializedFieldsInput{
		SerialNumber:              testutil.PtrString("NEW-001"),
		ConfirmSerialNumberChange: true,
	})
	require.NoError(t, err)

	stored := h.reload(t, item.ID)
	assert.Equal(t, "NEW-001", *stored.SerialNumber)
	assert.Equal(t, *item.SerialNumber, *stored.PreviousSerialNumber)
	assert.Equal(t, 2, stored.Version)
	assert.Contains(t, res.Changes.Fields(), "serial_number")
}

func TestUpdateSerializedFields_RejectsNonSerialized(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.BulkItem(h.category.ID, 5))

	_, err := h.items().UpdateSerializedFields(h.ctx, item.ID, service.SerializedFieldsInput{
		ConditionNotes: testutil.PtrString("scratched"),
	})
	requireCode(t, err, domain.CodeItemTypeMismatch)
}

func TestUpdateQuantity_BelowAllocated(t *testing.T) {
	h := newHarness(t)
	svc := h.items()

	allocated := h.seed(t, h.fixtures.BulkItem(h.category.ID, 50, testutil.WithAllocated(20)))
	_, err := svc.UpdateQuantity(h.ctx, allocated.ID, service.QuantityInput{Quantity: 10})
	requireCode(t, err, domain.CodeQuantityBelowAllocated)

	stored := h.reload(t, allocated.ID)
	assert.Equal(t, 50, *stored.Quantity)
	assert.Equal(t, 1, stored.Version)

	free := h.seed(t, h.fixtures.BulkItem(h.category.ID, 50))
	res, err := svc.UpdateQuantity(h.ctx, free.ID, service.QuantityInput{Quantity: 10, Reason: "write-off"})
	require.NoError(t, err)
	assert.Equal(t, 50, res.PreviousQuantity)
	assert.Equal(t, -40, res.AvailabilityChange)
	assert.True(t, res.SignificantReduction)
	assert.GreaterOrEqual(t, *res.Item.Quantity, res.Item.AllocatedQuantity)

	events := h.publisher.Events(messaging.EventItemQuantity)
	require.Len(t, events, 1)
	payload, ok := events[0].Payload.(messaging.ItemQuantityChangedEvent)
	require.True(t, ok)
	assert.Equal(t, 10, payload.NewQuantity)
}

func TestUpdateQuantity_SmallReductionIsNotSignificant(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.BulkItem(h.category.ID, 10))

	res, err := h.items().UpdateQuantity(h.ctx, item.ID, service.QuantityInput{Quantity: 5})
	require.NoError(t, err)
	assert.False(t, res.SignificantReduction)
}

func TestUpdateQuantity_RejectsSerialized(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID))

	_, err := h.items().UpdateQuantity(h.ctx, item.ID, service.QuantityInput{Quantity: 5})
	requireCode(t, err, domain.CodeItemTypeMismatch)
}

func TestValidateAndGenerateSerialNumber(t *testing.T) {
	h := newHarness(t)
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID))
	svc := h.items()

	free, err := svc.ValidateSerialNumber(h.ctx, *item.SerialNumber, "")
	require.NoError(t, err)
	assert.False(t, free)

	free, err = svc.ValidateSerialNumber(h.ctx, *item.SerialNumber, item.ID)
	require.NoError(t, err)
	assert.True(t, free)

	serial, err := svc.GenerateSerialNumber(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, "SN00000001", serial)
}

func TestAuditFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.store.FailAudit(errors.Internal("audit table unavailable"))
	item := h.seed(t, h.fixtures.SerializedItem(h.category.ID))

	res, err := h.items().ChangeStatus(h.ctx, item.ID, service.ChangeStatusInput{Status: domain.StatusRented})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRented, res.Item.AvailabilityStatus)
	assert.Equal(t, domain.StatusRented, h.reload(t, item.ID).AvailabilityStatus)
	h.publisher.AssertEventPublished(t, messaging.EventItemStatusChanged)
}

func TestEventFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.publisher.Err = errors.Internal("broker down")

	_, err := h.items().Create(h.ctx, service.CreateItemInput{
		Name: "Light stand", CategoryID: h.category.ID, ItemType: domain.ItemTypeNonSerialized, Quantity: testutil.PtrInt(4),
	})
	require.NoError(t, err)
}
