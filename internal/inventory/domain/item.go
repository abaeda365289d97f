// Package domain holds the inventory item aggregate and the pure rules that
// govern it. Nothing here touches storage or transport.
package domain

import (
	"time"
)

// ItemType distinguishes discrete serialized units from counted stock.
type ItemType string

const (
	ItemTypeSerialized    ItemType = "serialized"
	ItemTypeNonSerialized ItemType = "non_serialized"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemTypeSerialized || t == ItemTypeNonSerialized
}

// AvailabilityStatus is the operational state of an item.
type AvailabilityStatus string

const (
	StatusAvailable   AvailabilityStatus = "available"
	StatusRented      AvailabilityStatus = "rented"
	StatusMaintenance AvailabilityStatus = "maintenance"
	StatusDamaged     AvailabilityStatus = "damaged"
	StatusLost        AvailabilityStatus = "lost"
)

// AllAvailabilityStatuses lists statuses in display order.
var AllAvailabilityStatuses = []AvailabilityStatus{
	StatusAvailable, StatusRented, StatusMaintenance, StatusDamaged, StatusLost,
}

// Valid reports whether s is a known availability status.
func (s AvailabilityStatus) Valid() bool {
	for _, known := range AllAvailabilityStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// LifecycleStatus is the retirement axis of an item, independent of availability.
type LifecycleStatus string

const (
	LifecycleActive   LifecycleStatus = "active"
	LifecycleInactive LifecycleStatus = "inactive"
	LifecycleArchived LifecycleStatus = "archived"
)

// Valid reports whether s is a known lifecycle status.
func (s LifecycleStatus) Valid() bool {
	return s == LifecycleActive || s == LifecycleInactive || s == LifecycleArchived
}

// SerialNumberSource records where a serial number came from.
type SerialNumberSource string

const (
	SerialAutoGenerated SerialNumberSource = "auto_generated"
	SerialManual        SerialNumberSource = "manual"
)

// Item is one rentable unit or one bulk-quantity stock line.
//
// Exactly one of SerialNumber and Quantity is set, matching ItemType.
// AllocatedQuantity never exceeds Quantity. Version increases on every
// persisted mutation.
type Item struct {
	ID          string   `db:"id" json:"id"`
	TenantID    string   `db:"tenant_id" json:"tenant_id"`
	Name        string   `db:"name" json:"name"`
	Description *string  `db:"description" json:"description,omitempty"`
	CategoryID  string   `db:"category_id" json:"category_id"`
	ItemType    ItemType `db:"item_type" json:"item_type"`

	SerialNumber         *string             `db:"serial_number" json:"serial_number,omitempty"`
	SerialNumberSource   *SerialNumberSource `db:"serial_number_source" json:"serial_number_source,omitempty"`
	PreviousSerialNumber *string             `db:"previous_serial_number" json:"previous_serial_number,omitempty"`

	Quantity          *int    `db:"quantity" json:"quantity,omitempty"`
	QuantityUnit      *string `db:"quantity_unit" json:"quantity_unit,omitempty"`
	AllocatedQuantity int     `db:"allocated_quantity" json:"allocated_quantity"`

	AvailabilityStatus     AvailabilityStatus `db:"availability_status" json:"availability_status"`
	Status                 LifecycleStatus    `db:"status" json:"status"`
	LastStatusChangeReason *string            `db:"last_status_change_reason" json:"last_status_change_reason,omitempty"`
	ExpectedResolutionDate *time.Time         `db:"expected_resolution_date" json:"expected_resolution_date,omitempty"`

	Version          int  `db:"version" json:"version"`
	HasRentalHistory bool `db:"has_rental_history" json:"has_rental_history"`

	ConditionNotes         *string    `db:"condition_notes" json:"condition_notes,omitempty"`
	LastMaintenanceDate    *time.Time `db:"last_maintenance_date" json:"last_maintenance_date,omitempty"`
	NextMaintenanceDueDate *time.Time `db:"next_maintenance_due_date" json:"next_maintenance_due_date,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AvailableQuantity is the unallocated part of a bulk item's stock.
func (i *Item) AvailableQuantity() int {
	if i.Quantity == nil {
		return 0
	}
	return *i.Quantity - i.AllocatedQuantity
}

// IsSerialized reports whether the item is tracked by serial number.
func (i *Item) IsSerialized() bool {
	return i.ItemType == ItemTypeSerialized
}

// ValidateVariant checks the serialized/non-serialized field invariant.
func (i *Item) ValidateVariant() error {
	switch i.ItemType {
	case ItemTypeSerialized:
		if i.SerialNumber == nil || *i.SerialNumber == "" {
			return SerialNumberRequired()
		}
		if i.Quantity != nil {
			return InvalidVariant("serialized items must not carry a quantity")
		}
	case ItemTypeNonSerialized:
		if i.Quantity == nil {
			return QuantityRequired()
		}
		if *i.Quantity < 0 {
			return QuantityNegative()
		}
		if i.SerialNumber != nil {
			return InvalidVariant("non-serialized items must not carry a serial number")
		}
		if i.AllocatedQuantity < 0 || i.AllocatedQuantity > *i.Quantity {
			return QuantityBelowAllocated(*i.Quantity, i.AllocatedQuantity)
		}
	default:
		return InvalidVariant("unknown item type " + string(i.ItemType))
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	c.Description = cloneString(i.Description)
	c.SerialNumber = cloneString(i.SerialNumber)
	c.PreviousSerialNumber = cloneString(i.PreviousSerialNumber)
	c.QuantityUnit = cloneString(i.QuantityUnit)
	c.LastStatusChangeReason = cloneString(i.LastStatusChangeReason)
	c.ConditionNotes = cloneString(i.ConditionNotes)
	c.ExpectedResolutionDate = cloneTime(i.ExpectedResolutionDate)
	c.LastMaintenanceDate = cloneTime(i.LastMaintenanceDate)
	c.NextMaintenanceDueDate = cloneTime(i.NextMaintenanceDueDate)
	if i.Quantity != nil {
		q := *i.Quantity
		c.Quantity = &q
	}
	if i.SerialNumberSource != nil {
		s := *i.SerialNumberSource
		c.SerialNumberSource = &s
	}
	return &c
}

// StatusChangeType tells how an availability transition was triggered.
type StatusChangeType string

const (
	ChangeTypeManual    StatusChangeType = "manual"
	ChangeTypeAutomatic StatusChangeType = "automatic"
	ChangeTypeBulk      StatusChangeType = "bulk"
)

// StatusChange is the immutable history row written for every availability transition.
type StatusChange struct {
	ID                     string             `db:"id" json:"id"`
	ItemID                 string             `db:"inventory_item_id" json:"item_id"`
	TenantID               string             `db:"tenant_id" json:"tenant_id"`
	ChangedBy              string             `db:"changed_by" json:"changed_by"`
	PreviousStatus         AvailabilityStatus `db:"previous_status" json:"previous_status"`
	NewStatus              AvailabilityStatus `db:"new_status" json:"new_status"`
	ChangeReason           *string            `db:"change_reason" json:"change_reason,omitempty"`
	ExpectedResolutionDate *time.Time         `db:"expected_resolution_date" json:"expected_resolution_date,omitempty"`
	ChangeType             StatusChangeType   `db:"change_type" json:"change_type"`
	IPAddress              *string            `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent              *string            `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt              time.Time          `db:"created_at" json:"created_at"`
}

// Category is the local view of a catalog category.
type Category struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the value of s, or an empty string when nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
