package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
)

// FixtureFactory creates test fixtures with sensible defaults. Names and
// serial numbers are unique per factory.
type FixtureFactory struct {
	mu       sync.Mutex
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{}
}

func (f *FixtureFactory) nextSeq() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sequence++
	return f.sequence
}

// ItemOption customizes an item fixture.
type ItemOption func(*domain.Item)

// Category returns an active category.
func (f *FixtureFactory) Category() *domain.Category {
	seq := f.nextSeq()
	return &domain.Category{
		ID:       uuid.New().String(),
		Name:     fmt.Sprintf("Category %d", seq),
		IsActive: true,
	}
}

// SerializedItem returns an available, active serialized item at version 1.
func (f *FixtureFactory) SerializedItem(categoryID string, opts ...ItemOption) *domain.Item {
	seq := f.nextSeq()
	source := domain.SerialManual
	item := &domain.Item{
		Name:               fmt.Sprintf("Camera %d", seq),
		CategoryID:         categoryID,
		ItemType:           domain.ItemTypeSerialized,
		SerialNumber:       PtrString(fmt.Sprintf("FX%06d", seq)),
		SerialNumberSource: &source,
		AvailabilityStatus: domain.StatusAvailable,
		Status:             domain.LifecycleActive,
		Version:            1,
	}
	for _, opt := range opts {
		opt(item)
	}
	return item
}

// BulkItem returns an available, active non-serialized item at version 1.
func (f *FixtureFactory) BulkItem(categoryID string, quantity int, opts ...ItemOption) *domain.Item {
	seq := f.nextSeq()
	item := &domain.Item{
		Name:               fmt.Sprintf("Folding Chair %d", seq),
		CategoryID:         categoryID,
		ItemType:           domain.ItemTypeNonSerialized,
		Quantity:           PtrInt(quantity),
		QuantityUnit:       PtrString("pcs"),
		AvailabilityStatus: domain.StatusAvailable,
		Status:             domain.LifecycleActive,
		Version:            1,
	}
	for _, opt := range opts {
		opt(item)
	}
	return item
}

// WithItemName sets the item name.
func WithItemName(name string) ItemOption {
	return func(i *domain.Item) {
		i.Name = name
	}
}

// WithAvailability sets the availability status.
func WithAvailability(status domain.AvailabilityStatus) ItemOption {
	return func(i *domain.Item) {
		i.AvailabilityStatus = status
	}
}

// WithRentalHistory marks the item as rented before.
func WithRentalHistory() ItemOption {
	return func(i *domain.Item) {
		i.HasRentalHistory = true
	}
}

// WithAllocated sets the allocated quantity of a bulk item.
func WithAllocated(allocated int) ItemOption {
	return func(i *domain.Item) {
		i.AllocatedQuantity = allocated
	}
}
