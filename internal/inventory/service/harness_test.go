package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/internal/inventory/events"
	"github.com/rentory/rentory-backend/internal/inventory/memstore"
	"github.com/rentory/rentory-backend/internal/inventory/service"
	"github.com/rentory/rentory-backend/pkg/errors"
	"github.com/rentory/rentory-backend/pkg/logger"
	"github.com/rentory/rentory-backend/pkg/testutil"
)

const testUserID = "6f1c2a7e-0000-4000-8000-000000000001"

// harness wires the services to one in-memory store and one tenant.
type harness struct {
	store     *memstore.Store
	publisher *testutil.MockPublisher
	fixtures  *testutil.FixtureFactory
	deps      service.Dependencies
	tenantID  string
	ctx       context.Context
	category  *domain.Category
	now       time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memstore.New()
	publisher := testutil.NewMockPublisher()
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	h := &harness{
		store:     store,
		publisher: publisher,
		fixtures:  testutil.NewFixtureFactory(),
		tenantID:  testutil.NewTenantID(),
		now:       now,
	}
	h.ctx = testutil.ActorContext(h.tenantID, testUserID)
	h.deps = service.Dependencies{
		Tx:            store,
		Items:         store.Items(),
		StatusChanges: store.StatusChanges(),
		Serials:       store.Serials("", 0),
		Categories:    store.Categories(),
		Audit:         store.AuditLog(),
		AuditLog:      store.AuditLog(),
		Exports:       store.Exports(),
		Publisher:     events.NewWithPublisher(publisher, logger.Nop()),
		Logger:        logger.Nop(),
		Now:           func() time.Time { return h.now },
	}

	h.category = h.fixtures.Category()
	require.NoError(t, store.Categories().Upsert(h.ctx, h.category))
	return h
}

// advance moves the clock of the store and the services.
func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
	now := h.now
	h.store.SetClock(func() time.Time { return now })
}

func (h *harness) items() *service.ItemMutationService {
	return service.NewItemMutationService(h.deps)
}

// seed stores item as if created earlier by another path.
func (h *harness) seed(t *testing.T, item *domain.Item) *domain.Item {
	t.Helper()
	require.NoError(t, h.store.Items().Create(h.ctx, item))
	return item
}

func (h *harness) reload(t *testing.T, id string) *domain.Item {
	t.Helper()
	item, err := h.store.Items().GetByID(h.ctx, id)
	require.NoError(t, err)
	return item
}

func (h *harness) auditCount(t *testing.T) int {
	t.Helper()
	n, err := h.store.AuditLog().Count(h.ctx)
	require.NoError(t, err)
	return n
}

func requireCode(t *testing.T, err error, code string) *errors.AppError {
	t.Helper()
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}

func statusPtr(s domain.AvailabilityStatus) *domain.AvailabilityStatus { return &s }

func lifecyclePtr(s domain.LifecycleStatus) *domain.LifecycleStatus { return &s }
