package service

import (
	"context"
	"strings"
	"time"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/pkg/actor"
	"github.com/rentory/rentory-backend/pkg/errors"
	"github.com/rentory/rentory-backend/pkg/messaging"
	"github.com/rentory/rentory-backend/pkg/metrics"
)

// Status history paging bounds.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// serialAttempts bounds how many generated serials are skipped because a
// manual serial already took them.
const serialAttempts = 5

// CreateItemInput describes a new item.
type CreateItemInput struct {
	Name                   string
	Description            *string
	CategoryID             string
	CategoryName           string // used when CategoryID is empty
	ItemType               domain.ItemType
	SerialNumber           *string
	AutoGenerateSerial     bool
	Quantity               *int
	QuantityUnit           *string
	ConditionNotes         *string
	LastMaintenanceDate    *time.Time
	NextMaintenanceDueDate *time.Time
}

// UpdateItemInput is a sparse patch. Nil fields are left unchanged.
type UpdateItemInput struct {
	Name                      *string
	Description               *string
	CategoryID                *string
	ItemType                  *domain.ItemType
	SerialNumber              *string
	AutoGenerateSerial        bool
	ConfirmSerialNumberChange bool
	Quantity                  *int
	QuantityUnit              *string
	Status                    *domain.LifecycleStatus
	ConditionNotes            *string
	ExpectedVersion           int
}

// ChangeStatusInput requests an availability transition. ExpectedVersion
// is optional.
type ChangeStatusInput struct {
	Status          domain.AvailabilityStatus
	Reason          string
	ResolutionDate  *time.Time
	ExpectedVersion *int
}

// SerializedFieldsInput patches the fields of a serialized item.
type SerializedFieldsInput struct {
	SerialNumber              *string
	ConditionNotes            *string
	LastMaintenanceDate       *time.Time
	NextMaintenanceDueDate    *time.Time
	ConfirmSerialNumberChange bool
	ExpectedVersion           *int
}

// QuantityInput sets the stock level of a non-serialized item.
type QuantityInput struct {
	Quantity        int
	Unit            *string
	Reason          string
	ExpectedVersion *int
}

// ItemChangeResult is an item after a mutation and what changed.
type ItemChangeResult struct {
	Item    *domain.Item   `json:"item"`
	Changes domain.Changes `json:"changes"`
}

// StatusChangeResult is an item after an availability transition.
type StatusChangeResult struct {
	Item   *domain.Item         `json:"item"`
	Change *domain.StatusChange `json:"status_change"`
}

// QuantityResult reports a stock level change. AvailabilityChange and
// SignificantReduction are informational.
type QuantityResult struct {
	Item                 *domain.Item   `json:"item"`
	Changes              domain.Changes `json:"changes"`
	PreviousQuantity     int            `json:"previous_quantity"`
	AvailabilityChange   int            `json:"availability_change"`
	SignificantReduction bool           `json:"significant_reduction"`
}

// StatusHistory is one page of an item's availability history.
type StatusHistory struct {
	Changes []*domain.StatusChange `json:"changes"`
	Total   int                    `json:"total"`
	Page    int                    `json:"page"`
	Limit   int                    `json:"limit"`
}

// ItemMutationService runs every single-item operation as one tenant
// transaction and records an audit entry and an event once it committed.
type ItemMutationService struct {
	deps Dependencies
}

// NewItemMutationService creates a new item mutation service
func NewItemMutationService(deps Dependencies) *ItemMutationService {
	return &ItemMutationService{deps: deps.withDefaults()}
}

// Create creates an available, active item at version 1.
func (s *ItemMutationService) Create(ctx context.Context, in CreateItemInput) (*domain.Item, error) {
	tenantID, a, err := s.deps.authorize(ctx, ResourceItems, ActionCreate)
	if err != nil {
		return nil, err
	}

	item, err := newItem(in)
	if err != nil {
		observe("create", err)
		return nil, err
	}

	err = s.deps.Tx.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		if item.CategoryID == "" {
			categoryID, err := s.deps.Categories.LookupByName(ctx, in.CategoryName)
			if err != nil {
				return err
			}
			item.CategoryID = categoryID
		}
		if err := s.requireCategory(ctx, item.CategoryID); err != nil {
			return err
		}
		if err := s.requireUniqueName(ctx, item.Name, ""); err != nil {
			return err
		}

		if item.IsSerialized() {
			serial, source, err := s.resolveSerial(ctx, in.SerialNumber, in.AutoGenerateSerial, "", domain.DuplicateSerial)
			if err != nil {
				return err
			}
			item.SerialNumber = &serial
			item.SerialNumberSource = &source
		}

		if err := item.ValidateVariant(); err != nil {
			return err
		}
		return s.deps.Items.Create(ctx, item)
	})
	observe("create", err)
	if err != nil {
		return nil, err
	}

	s.deps.audit(ctx, a, domain.AuditItemCreated, domain.AuditSubjectItem, item.ID, map[string]any{
		"name":          item.Name,
		"item_type":     item.ItemType,
		"category_id":   item.CategoryID,
		"serial_number": domain.Deref(item.SerialNumber),
	})
	s.deps.Publisher.PublishItemCreated(ctx, item, a.ID)

	s.deps.Logger.Info().
		Str("tenant_id", tenantID).
		Str("item_id", item.ID).
		Str("item_type", string(item.ItemType)).
		Msg("inventory item created")

	return item, nil
}

// Get returns an item of the tenant.
func (s *ItemMutationService) Get(ctx context.Context, id string) (*domain.Item, error) {
	if _, _, err := s.deps.authorize(ctx, ResourceItems, ActionRead); err != nil {
		return nil, err
	}
	return s.deps.Items.GetByID(ctx, id)
}

// Update applies a sparse patch when expectedVersion is current. An empty
// diff writes nothing and leaves the version unchanged.
func (s *ItemMutationService) Update(ctx context.Context, id string, in UpdateItemInput) (*ItemChangeResult, error) {
	tenantID, a, err := s.deps.authorize(ctx, ResourceItems, ActionUpdate)
	if err != nil {
		return nil, err
	}

	var result ItemChangeResult
	err = s.deps.Tx.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		current, err := s.deps.Items.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Version != in.ExpectedVersion {
			return domain.EditConflict(current.Version, in.ExpectedVersion)
		}

		next := current.Clone()
		var changes domain.Changes

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return errors.Validation(map[string]string{"name": "is required"})
			}
			if name != current.Name {
				if err := s.requireUniqueName(ctx, name, current.ID); err != nil {
					return err
				}
			}
			changes.Record("name", current.Name, name)
			next.Name = name
		}

		if in.Description != nil {
			next.Description = domain.StringPtr(*in.Description)
			changes.Record("description", current.Description, next.Description)
		}

		if in.CategoryID != nil && *in.CategoryID != current.CategoryID {
			if err := s.requireCategory(ctx, *in.CategoryID); err != nil {
				return err
			}
			changes.Record("category_id", current.CategoryID, *in.CategoryID)
			next.CategoryID = *in.CategoryID
		}

		if in.Status != nil {
			if !in.Status.Valid() {
				return errors.Validation(map[string]string{"status": "must be one of active, inactive, archived"})
			}
			changes.Record("status", current.Status, *in.Status)
			next.Status = *in.Status
		}

		if in.ConditionNotes != nil {
			next.ConditionNotes = domain.StringPtr(*in.ConditionNotes)
			changes.Record("condition_notes", current.ConditionNotes, next.ConditionNotes)
		}

		if in.ItemType != nil && *in.ItemType != current.ItemType {
			if err := s.convertItemType(ctx, current, next, in, &changes); err != nil {
				return err
			}
		} else if err := s.applyVariantPatch(ctx, current, next, in, &changes); err != nil {
			return err
		}

		result.Item = next
		result.Changes = changes
		if changes.Empty() {
			result.Item = current
			return nil
		}

		if err := next.ValidateVariant(); err != nil {
			return err
		}
		return s.deps.Items.UpdateWithVersion(ctx, next, in.ExpectedVersion)
	})
	observe("update", err)
	if err != nil {
		return nil, err
	}

	if !result.Changes.Empty() {
		s.deps.audit(ctx, a, domain.AuditItemUpdated, domain.AuditSubjectItem, id, map[string]any{
			"changes": result.Changes,
			"version": result.Item.Version,
		})
		s.deps.Publisher.PublishItemUpdated(ctx, result.Item, result.Changes, a.ID)
	}

	return &result, nil
}

// convertItemType switches an item between serialized and non-serialized,
// converting its variant fields. Locked once the item has been rented.
func (s *ItemMutationService) convertItemType(ctx context.Context, current, next *domain.Item, in UpdateItemInput, changes *domain.Changes) error {
	if current.HasRentalHistory {
		return domain.ItemTypeLocked()
	}
	target := *in.ItemType
	if !target.Valid() {
		return domain.InvalidVariant("unknown item type " + string(target))
	}

	switch target {
	case domain.ItemTypeSerialized:
		if current.AllocatedQuantity > 0 {
			return domain.ItemAllocated(current.ID)
		}
		serial, source, err := s.resolveSerial(ctx, in.SerialNumber, in.AutoGenerateSerial, current.ID, domain.SerialNumberExists)
		if err != nil {
			return err
		}
		next.SerialNumber = &serial
		next.SerialNumberSource = &source
		next.Quantity = nil
		next.QuantityUnit = nil
		next.AllocatedQuantity = 0
	case domain.ItemTypeNonSerialized:
		if in.Quantity == nil {
			return domain.QuantityRequired()
		}
		if *in.Quantity < 0 {
			return domain.QuantityNegative()
		}
		q := *in.Quantity
		next.Quantity = &q
		next.QuantityUnit = in.QuantityUnit
		next.PreviousSerialNumber = current.SerialNumber
		next.SerialNumber = nil
		next.SerialNumberSource = nil
	}
	next.ItemType = target

	changes.Record("item_type", current.ItemType, next.ItemType)
	changes.Record("serial_number", current.SerialNumber, next.SerialNumber)
	changes.Record("previous_serial_number", current.PreviousSerialNumber, next.PreviousSerialNumber)
	changes.Record("serial_number_source", current.SerialNumberSource, next.SerialNumberSource)
	changes.Record("quantity", current.Quantity, next.Quantity)
	changes.Record("quantity_unit", current.QuantityUnit, next.QuantityUnit)
	return nil
}

// applyVariantPatch applies serial or quantity fields matching the item's
// current type.
func (s *ItemMutationService) applyVariantPatch(ctx context.Context, current, next *domain.Item, in UpdateItemInput, changes *domain.Changes) error {
	if current.IsSerialized() {
		if in.Quantity != nil || in.QuantityUnit != nil {
			return domain.InvalidVariant("serialized items must not carry a quantity")
		}
		if in.SerialNumber == nil {
			return nil
		}
		return s.changeSerial(ctx, current, next, *in.SerialNumber, in.ConfirmSerialNumberChange, changes)
	}

	if in.SerialNumber != nil {
		return domain.InvalidVariant("non-serialized items must not carry a serial number")
	}
	if in.Quantity != nil {
		if err := checkQuantity(*in.Quantity, current.AllocatedQuantity); err != nil {
			return err
		}
		q := *in.Quantity
		changes.Record("quantity", current.Quantity, q)
		next.Quantity = &q
	}
	if in.QuantityUnit != nil {
		next.QuantityUnit = domain.StringPtr(*in.QuantityUnit)
		changes.Record("quantity_unit", current.QuantityUnit, next.QuantityUnit)
	}
	return nil
}

// changeSerial replaces the serial number of a serialized item, keeping the
// old one as previous serial.
func (s *ItemMutationService) changeSerial(ctx context.Context, current, next *domain.Item, serial string, confirmed bool, changes *domain.Changes) error {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return domain.SerialNumberRequired()
	}
	if serial == domain.Deref(current.SerialNumber) {
		return nil
	}
	if current.HasRentalHistory && !confirmed {
		return domain.SerialNumberChangeConfirmationRequired(domain.Deref(current.SerialNumber))
	}

	exists, err := s.deps.Items.ExistsBySerial(ctx, serial, current.ID)
	if err != nil {
		return err
	}
	if exists {
		return domain.SerialNumberExists(serial)
	}

	source := domain.SerialManual
	next.PreviousSerialNumber = current.SerialNumber
	next.SerialNumber = &serial
	next.SerialNumberSource = &source

	changes.Record("serial_number", current.SerialNumber, serial)
	changes.Record("previous_serial_number", current.PreviousSerialNumber, next.PreviousSerialNumber)
	changes.Record("serial_number_source", current.SerialNumberSource, source)
	return nil
}

// ChangeStatus moves an item to another availability status. Every
// transition writes one history row and bumps the version.
func (s *ItemMutationService) ChangeStatus(ctx context.Context, id string, in ChangeStatusInput) (*StatusChangeResult, error) {
	tenantID, a, err := s.deps.authorize(ctx, ResourceItems, ActionStatus)
	if err != nil {
		return nil, err
	}

	var result StatusChangeResult
	err = s.deps.Tx.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		current, err := s.deps.Items.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if in.ExpectedVersion != nil && current.Version != *in.ExpectedVersion {
			return domain.EditConflict(current.Version, *in.ExpectedVersion)
		}

		reason := strings.TrimSpace(in.Reason)
		if err := checkTransition(ctx, s.deps, current, in.Status, reason, in.ResolutionDate); err != nil {
			return err
		}

		next := current.Clone()
		applyTransition(next, in.Status, reason, in.ResolutionDate)
		if err := s.deps.Items.UpdateWithVersion(ctx, next, current.Version); err != nil {
			return err
		}

		change := newStatusChange(a, current, next, changeTypeFor(a))
		if err := s.deps.StatusChanges.Create(ctx, change); err != nil {
			return err
		}

		result = StatusChangeResult{Item: next, Change: change}
		return nil
	})
	observe("change_status", err)
	if err != nil {
		return nil, err
	}

	s.deps.audit(ctx, a, domain.AuditItemStatusChanged, domain.AuditSubjectItem, id, map[string]any{
		"previous_status":          result.Change.PreviousStatus,
		"new_status":               result.Change.NewStatus,
		"reason":                   domain.Deref(result.Change.ChangeReason),
		"expected_resolution_date": result.Change.ExpectedResolutionDate,
		"version":                  result.Item.Version,
	})
	s.deps.Publisher.PublishStatusChanged(ctx, result.Change)

	return &result, nil
}

// checkTransition asks the allocation system only when the policy needs it.
func checkTransition(ctx context.Context, deps Dependencies, item *domain.Item, to domain.AvailabilityStatus, reason string, resolutionDate *time.Time) error {
	req := domain.TransitionRequest{
		From:           item.AvailabilityStatus,
		To:             to,
		Reason:         reason,
		ResolutionDate: resolutionDate,
		ItemID:         item.ID,
	}

	if to.Valid() && domain.CanTransition(item.AvailabilityStatus, to) &&
		domain.LeavingRentedNeedsClearance(item.AvailabilityStatus, to) {
		allocated, err := deps.Allocation.IsAllocated(ctx, item)
		if err != nil {
			return err
		}
		req.Allocated = allocated
	}

	return domain.CheckTransition(req, deps.Now())
}

// applyTransition sets the availability fields of next for a checked transition.
func applyTransition(next *domain.Item, to domain.AvailabilityStatus, reason string, resolutionDate *time.Time) {
	next.AvailabilityStatus = to
	next.LastStatusChangeReason = domain.StringPtr(reason)
	next.ExpectedResolutionDate = nil
	if domain.AllowsResolutionDate(to) && resolutionDate != nil {
		d := *resolutionDate
		next.ExpectedResolutionDate = &d
	}
	if to == domain.StatusRented {
		next.HasRentalHistory = true
	}
}

func newStatusChange(a *actor.Actor, before, after *domain.Item, changeType domain.StatusChangeType) *domain.StatusChange {
	return &domain.StatusChange{
		ItemID:                 after.ID,
		ChangedBy:              a.ID,
		PreviousStatus:         before.AvailabilityStatus,
		NewStatus:              after.AvailabilityStatus,
		ChangeReason:           after.LastStatusChangeReason,
		ExpectedResolutionDate: after.ExpectedResolutionDate,
		ChangeType:             changeType,
		IPAddress:              domain.StringPtr(a.IPAddress),
		UserAgent:              domain.StringPtr(a.UserAgent),
	}
}

// UpdateSerializedFields patches the serial number and maintenance fields
// of a serialized item.
func (s *ItemMutationService) UpdateSerializedFields(ctx context.Context, id string, in SerializedFieldsInput) (*ItemChangeResult, error) {
	tenantID, a, err := s.deps.authorize(ctx, ResourceItems, ActionUpdate)
	if err != nil {
		return nil, err
	}

	var result ItemChangeResult
	err = s.deps.Tx.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		current, err := s.deps.Items.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if in.ExpectedVersion != nil && current.Version != *in.ExpectedVersion {
			return domain.EditConflict(current.Version, *in.ExpectedVersion)
		}
		if !current.IsSerialized() {
			return domain.ItemTypeMismatch(domain.ItemTypeSerialized)
		}

		next := current.Clone()
		var changes domain.Changes

		if in.SerialNumber != nil {
			if err := s.changeSerial(ctx, current, next, *in.SerialNumber, in.ConfirmSerialNumberChange, &changes); err != nil {
				return err
			}
		}
		if in.ConditionNotes != nil {
			next.ConditionNotes = domain.StringPtr(*in.ConditionNotes)
			changes.Record("condition_notes", current.ConditionNotes, next.ConditionNotes)
		}
		if in.LastMaintenanceDate != nil {
			next.LastMaintenanceDate = in.LastMaintenanceDate
			changes.Record("last_maintenance_date", current.LastMaintenanceDate, in.LastMaintenanceDate)
		}
		if in.NextMaintenanceDueDate != nil {
			next.NextMaintenanceDueDate = in.NextMaintenanceDueDate
			changes.Record("next_maintenance_due_date", current.NextMaintenanceDueDate, in.NextMaintenanceDueDate)
		}
		if err := checkMaintenanceDates(next.LastMaintenanceDate, next.NextMaintenanceDueDate); err != nil {
			return err
		}

		result = ItemChangeResult{Item: next, Changes: changes}
		if changes.Empty() {
			result.Item = current
			return nil
		}
		return s.deps.Items.UpdateWithVersion(ctx, next, current.Version)
	})
	observe("update_serialized_fields", err)
	if err != nil {
		return nil, err
	}

	if !result.Changes.Empty() {
		s.deps.audit(ctx, a, domain.AuditSerializedFields, domain.AuditSubjectItem, id, map[string]any{
			"changes": result.Changes,
			"version": result.Item.Version,
		})
		s.deps.Publisher.PublishItemUpdated(ctx, result.Item, result.Changes, a.ID)
	}

	return &result, nil
}

// UpdateQuantity sets the stock level of a non-serialized item. The new
// quantity may not drop below what is allocated.
func (s *ItemMutationService) UpdateQuantity(ctx context.Context, id string, in QuantityInput) (*QuantityResult, error) {
	tenantID, a, err := s.deps.authorize(ctx, ResourceItems, ActionUpdate)
	if err != nil {
		return nil, err
	}

	var result QuantityResult
	err = s.deps.Tx.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		current, err := s.deps.Items.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if in.ExpectedVersion != nil && current.Version != *in.ExpectedVersion {
			return domain.EditConflict(current.Version, *in.ExpectedVersion)
		}
		if current.IsSerialized() {
			return domain.ItemTypeMismatch(domain.ItemTypeNonSerialized)
		}
		if err := checkQuantity(in.Quantity, current.AllocatedQuantity); err != nil {
			return err
		}

		previous := 0
		if current.Quantity != nil {
			previous = *current.Quantity
		}

		next := current.Clone()
		var changes domain.Changes
		q := in.Quantity
		next.Quantity = &q
		changes.Record("quantity", current.Quantity, q)
		if in.Unit != nil {
			next.QuantityUnit = domain.StringPtr(*in.Unit)
			changes.Record("quantity_unit", current.QuantityUnit, next.QuantityUnit)
		}

		result = QuantityResult{
			Item:                 next,
			Changes:              changes,
			PreviousQuantity:     previous,
			AvailabilityChange:   q - previous,
			SignificantReduction: significantReduction(previous, q),
		}
		if changes.Empty() {
			result.Item = current
			return nil
		}
		return s.deps.Items.UpdateWithVersion(ctx, next, current.Version)
	})
	observe("update_quantity", err)
	if err != nil {
		return nil, err
	}

	if !result.Changes.Empty() {
		s.deps.audit(ctx, a, domain.AuditItemQuantityChanged, domain.AuditSubjectItem, id, map[string]any{
			"previous_quantity": result.PreviousQuantity,
			"new_quantity":      in.Quantity,
			"reason":            in.Reason,
			"version":           result.Item.Version,
		})
		s.deps.Publisher.PublishQuantityChanged(ctx, messaging.ItemQuantityChangedEvent{
			TenantID:             tenantID,
			ItemID:               id,
			PreviousQuantity:     result.PreviousQuantity,
			NewQuantity:          in.Quantity,
			AvailabilityChange:   result.AvailabilityChange,
			SignificantReduction: result.SignificantReduction,
			Reason:               in.Reason,
			ChangedBy:            a.ID,
		})
	}

	return &result, nil
}

// GetStatusOptions lists the transitions available for an item.
func (s *ItemMutationService) GetStatusOptions(ctx context.Context, id string) (*domain.StatusOptions, error) {
	if _, _, err := s.deps.authorize(ctx, ResourceItems, ActionRead); err != nil {
		return nil, err
	}

	item, err := s.deps.Items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	allocated := false
	if item.AvailabilityStatus == domain.StatusRented {
		allocated, err = s.deps.Allocation.IsAllocated(ctx, item)
		if err != nil {
			return nil, err
		}
	}

	opts := domain.Options(item.AvailabilityStatus, allocated)
	return &opts, nil
}

// GetStatusHistory returns one page of an item's availability history,
// newest first. limit is clamped to 1..100.
func (s *ItemMutationService) GetStatusHistory(ctx context.Context, id string, page, limit int) (*StatusHistory, error) {
	if _, _, err := s.deps.authorize(ctx, ResourceItems, ActionRead); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	if _, err := s.deps.Items.GetByID(ctx, id); err != nil {
		return nil, err
	}

	changes, total, err := s.deps.StatusChanges.ListByItem(ctx, id, page, limit)
	if err != nil {
		return nil, err
	}

	return &StatusHistory{Changes: changes, Total: total, Page: page, Limit: limit}, nil
}

// ValidateSerialNumber reports whether serial is free in the tenant,
// ignoring excludeItemID.
func (s *ItemMutationService) ValidateSerialNumber(ctx context.Context, serial, excludeItemID string) (bool, error) {
	if _, _, err := s.deps.authorize(ctx, ResourceItems, ActionRead); err != nil {
		return false, err
	}

	serial = strings.TrimSpace(serial)
	if serial == "" {
		return false, domain.SerialNumberRequired()
	}

	exists, err := s.deps.Items.ExistsBySerial(ctx, serial, excludeItemID)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// GenerateSerialNumber consumes the tenant's next serial number.
func (s *ItemMutationService) GenerateSerialNumber(ctx context.Context) (string, error) {
	tenantID, _, err := s.deps.authorize(ctx, ResourceItems, ActionCreate)
	if err != nil {
		return "", err
	}

	var serial string
	err = s.deps.Tx.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		var err error
		serial, _, err = s.resolveSerial(ctx, nil, true, "", domain.DuplicateSerial)
		return err
	})
	if err != nil {
		return "", err
	}
	return serial, nil
}

// resolveSerial returns the serial an item should get: the next free
// generated one, or the supplied one when it is not taken.
func (s *ItemMutationService) resolveSerial(ctx context.Context, supplied *string, generate bool, excludeID string, taken func(string) *errors.AppError) (string, domain.SerialNumberSource, error) {
	if generate {
		for i := 0; i < serialAttempts; i++ {
			serial, err := s.deps.Serials.Next(ctx)
			if err != nil {
				return "", "", err
			}
			metrics.SerialGenerated()

			exists, err := s.deps.Items.ExistsBySerial(ctx, serial, excludeID)
			if err != nil {
				return "", "", err
			}
			if !exists {
				return serial, domain.SerialAutoGenerated, nil
			}
			s.deps.Logger.Warn().Str("serial_number", serial).Msg("generated serial number already taken, skipping")
		}
		return "", "", errors.Conflict("could not generate a free serial number").WithCode(domain.CodeDuplicateSerial)
	}

	serial := strings.TrimSpace(domain.Deref(supplied))
	if serial == "" {
		return "", "", domain.SerialNumberRequired()
	}
	exists, err := s.deps.Items.ExistsBySerial(ctx, serial, excludeID)
	if err != nil {
		return "", "", err
	}
	if exists {
		return "", "", taken(serial)
	}
	return serial, domain.SerialManual, nil
}

func (s *ItemMutationService) requireCategory(ctx context.Context, categoryID string) error {
	return requireCategory(ctx, s.deps.Categories, categoryID)
}

func requireCategory(ctx context.Context, categories CategoryCatalog, categoryID string) error {
	ok, err := categories.Exists(ctx, categoryID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.CategoryNotFound(categoryID)
	}
	return nil
}

func (s *ItemMutationService) requireUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.deps.Items.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return domain.DuplicateName(name)
	}
	return nil
}

// newItem builds the item described by in without touching storage.
func newItem(in CreateItemInput) (*domain.Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.Validation(map[string]string{"name": "is required"})
	}
	if strings.TrimSpace(in.CategoryID) == "" && strings.TrimSpace(in.CategoryName) == "" {
		return nil, errors.Validation(map[string]string{"category_id": "is required"})
	}
	if !in.ItemType.Valid() {
		return nil, domain.InvalidVariant("unknown item type " + string(in.ItemType))
	}
	if err := checkMaintenanceDates(in.LastMaintenanceDate, in.NextMaintenanceDueDate); err != nil {
		return nil, err
	}

	item := &domain.Item{
		Name:                   name,
		Description:            in.Description,
		CategoryID:             strings.TrimSpace(in.CategoryID),
		ItemType:               in.ItemType,
		AvailabilityStatus:     domain.StatusAvailable,
		Status:                 domain.LifecycleActive,
		Version:                1,
		ConditionNotes:         in.ConditionNotes,
		LastMaintenanceDate:    in.LastMaintenanceDate,
		NextMaintenanceDueDate: in.NextMaintenanceDueDate,
	}

	switch in.ItemType {
	case domain.ItemTypeSerialized:
		if in.Quantity != nil {
			return nil, domain.InvalidVariant("serialized items must not carry a quantity")
		}
		supplied := strings.TrimSpace(domain.Deref(in.SerialNumber)) != ""
		if in.AutoGenerateSerial && supplied {
			return nil, domain.InvalidVariant("serial_number and auto_generate_serial are mutually exclusive")
		}
		if !in.AutoGenerateSerial && !supplied {
			return nil, domain.SerialNumberRequired()
		}
	case domain.ItemTypeNonSerialized:
		if in.SerialNumber != nil || in.AutoGenerateSerial {
			return nil, domain.InvalidVariant("non-serialized items must not carry a serial number")
		}
		if in.Quantity == nil {
			return nil, domain.QuantityRequired()
		}
		if *in.Quantity < 0 {
			return nil, domain.QuantityNegative()
		}
		q := *in.Quantity
		item.Quantity = &q
		item.QuantityUnit = in.QuantityUnit
	}

	return item, nil
}

func checkQuantity(quantity, allocated int) error {
	if quantity < 0 {
		return domain.QuantityNegative()
	}
	if quantity < allocated {
		return domain.QuantityBelowAllocated(quantity, allocated)
	}
	return nil
}

func checkMaintenanceDates(last, next *time.Time) error {
	if last != nil && next != nil && !next.After(*last) {
		return domain.MaintenanceDateLogicError()
	}
	return nil
}

// significantReduction flags drops of more than half the previous quantity.
func significantReduction(previous, next int) bool {
	return previous > 0 && 2*(previous-next) > previous
}
