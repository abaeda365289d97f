package domain

import (
	"fmt"
	"net/http"

	"github.com/rentory/rentory-backend/pkg/errors"
)

// Error codes surfaced to API clients.
const (
	CodeCategoryNotFound               = "CATEGORY_NOT_FOUND"
	CodeItemNotFound                   = "ITEM_NOT_FOUND"
	CodeExportNotFound                 = "EXPORT_NOT_FOUND"
	CodeAmbiguousCategoryName          = "AMBIGUOUS_CATEGORY_NAME"
	CodeDuplicateName                  = "DUPLICATE_NAME"
	CodeDuplicateSerial                = "DUPLICATE_SERIAL"
	CodeSerialNumberExists             = "SERIAL_NUMBER_EXISTS"
	CodeEditConflict                   = "EDIT_CONFLICT"
	CodeSerialNumberRequired           = "SERIAL_NUMBER_REQUIRED"
	CodeQuantityRequired               = "QUANTITY_REQUIRED"
	CodeQuantityNegative               = "QUANTITY_NEGATIVE"
	CodeQuantityBelowAllocated         = "QUANTITY_BELOW_ALLOCATED"
	CodeMaintenanceDateLogicError      = "MAINTENANCE_DATE_LOGIC_ERROR"
	CodeInvalidStatusTransition        = "INVALID_STATUS_TRANSITION"
	CodeInvalidStatus                  = "INVALID_STATUS"
	CodeReasonRequired                 = "REASON_REQUIRED"
	CodeResolutionDateNotAllowed       = "RESOLUTION_DATE_NOT_ALLOWED"
	CodeResolutionDateInPast           = "RESOLUTION_DATE_IN_PAST"
	CodeInvalidItemVariant             = "INVALID_ITEM_VARIANT"
	CodeItemTypeMismatch               = "ITEM_TYPE_MISMATCH"
	CodeItemTypeLocked                 = "ITEM_TYPE_LOCKED"
	CodeItemAllocated                  = "ITEM_ALLOCATED"
	CodeSerialChangeConfirmationNeeded = "SERIAL_NUMBER_CHANGE_CONFIRMATION_REQUIRED"
	CodeExportTooLarge                 = "EXPORT_TOO_LARGE"
	CodeBulkLargeOperationWarning      = "BULK_LARGE_OPERATION_WARNING"
	CodeBulkOperationTooLarge          = "BULK_OPERATION_TOO_LARGE"
	CodeExportExpired                  = "EXPORT_EXPIRED"
	CodeExportNotReady                 = "EXPORT_NOT_READY"
	CodeTimeout                        = "TIMEOUT"
)

func CategoryNotFound(categoryID string) *errors.AppError {
	return errors.NotFound("category").
		WithCode(CodeCategoryNotFound).
		WithDetails(map[string]any{"category_id": categoryID})
}

func ItemNotFound(itemID string) *errors.AppError {
	return errors.NotFound("item").
		WithCode(CodeItemNotFound).
		WithDetails(map[string]any{"item_id": itemID})
}

func ExportNotFound(exportID string) *errors.AppError {
	return errors.NotFound("export").
		WithCode(CodeExportNotFound).
		WithDetails(map[string]any{"export_id": exportID})
}

func CategoryNameNotFound(name string) *errors.AppError {
	return errors.NotFound("category").
		WithCode(CodeCategoryNotFound).
		WithDetails(map[string]any{"category_name": name})
}

func AmbiguousCategoryName() *errors.AppError {
	return errors.Validation(map[string]string{
		"category_name": "matches more than one category",
	}).WithCode(CodeAmbiguousCategoryName)
}

func DuplicateName(name string) *errors.AppError {
	return errors.Conflict("an item with this name already exists").
		WithCode(CodeDuplicateName).
		WithDetails(map[string]any{"name": name})
}

func DuplicateSerial(serial string) *errors.AppError {
	return errors.Conflict("an item with this serial number already exists").
		WithCode(CodeDuplicateSerial).
		WithDetails(map[string]any{"serial_number": serial})
}

// SerialNumberExists is the collision reported when an existing item's
// serial number is changed to one already in use.
func SerialNumberExists(serial string) *errors.AppError {
	return errors.Conflict("serial number is already assigned to another item").
		WithCode(CodeSerialNumberExists).
		WithDetails(map[string]any{"serial_number": serial})
}

// EditConflict reports a stale write. Clients refetch and re-apply.
func EditConflict(currentVersion, expectedVersion int) *errors.AppError {
	return errors.Conflict("item was modified by someone else").
		WithCode(CodeEditConflict).
		WithDetails(map[string]any{
			"current_version":  currentVersion,
			"expected_version": expectedVersion,
		})
}

func SerialNumberRequired() *errors.AppError {
	return errors.Validation(map[string]string{
		"serial_number": "serialized items need a serial number or auto generation",
	}).WithCode(CodeSerialNumberRequired)
}

func QuantityRequired() *errors.AppError {
	return errors.Validation(map[string]string{
		"quantity": "non-serialized items need a quantity",
	}).WithCode(CodeQuantityRequired)
}

func QuantityNegative() *errors.AppError {
	return errors.Validation(map[string]string{
		"quantity": "must be greater than or equal to 0",
	}).WithCode(CodeQuantityNegative)
}

func QuantityBelowAllocated(quantity, allocated int) *errors.AppError {
	return &errors.AppError{
		Err:        errors.ErrValidation,
		Code:       CodeQuantityBelowAllocated,
		Message:    fmt.Sprintf("quantity %d is below the allocated quantity %d", quantity, allocated),
		StatusCode: http.StatusBadRequest,
		Details: map[string]any{
			"requested_quantity": quantity,
			"allocated_quantity": allocated,
		},
	}
}

func MaintenanceDateLogicError() *errors.AppError {
	return errors.Validation(map[string]string{
		"next_maintenance_due_date": "must be after last_maintenance_date",
	}).WithCode(CodeMaintenanceDateLogicError)
}

// InvalidStatusTransition reports a pair outside the transition table.
func InvalidStatusTransition(from, to AvailabilityStatus, allowed []AvailabilityStatus) *errors.AppError {
	return &errors.AppError{
		Err:        errors.ErrValidation,
		Code:       CodeInvalidStatusTransition,
		Message:    fmt.Sprintf("cannot change availability from %s to %s", from, to),
		StatusCode: http.StatusBadRequest,
		Details: map[string]any{
			"from":    from,
			"to":      to,
			"allowed": allowed,
		},
	}
}

func InvalidStatus(value string) *errors.AppError {
	return errors.Validation(map[string]string{
		"availability_status": fmt.Sprintf("unknown status %q", value),
	}).WithCode(CodeInvalidStatus)
}

func ReasonRequired(to AvailabilityStatus) *errors.AppError {
	return errors.Validation(map[string]string{
		"reason": fmt.Sprintf("a reason is required when changing to %s", to),
	}).WithCode(CodeReasonRequired)
}

func ResolutionDateNotAllowed(to AvailabilityStatus) *errors.AppError {
	return errors.Validation(map[string]string{
		"expected_resolution_date": fmt.Sprintf("not allowed when changing to %s", to),
	}).WithCode(CodeResolutionDateNotAllowed)
}

func ResolutionDateInPast() *errors.AppError {
	return errors.Validation(map[string]string{
		"expected_resolution_date": "must be in the future",
	}).WithCode(CodeResolutionDateInPast)
}

func InvalidVariant(message string) *errors.AppError {
	return errors.Validation(map[string]string{
		"item_type": message,
	}).WithCode(CodeInvalidItemVariant)
}

func ItemTypeMismatch(want ItemType) *errors.AppError {
	return errors.BadRequest(fmt.Sprintf("operation is only valid for %s items", want)).
		WithCode(CodeItemTypeMismatch).
		WithDetails(map[string]any{"required_item_type": want})
}

func ItemTypeLocked() *errors.AppError {
	return errors.PolicyBlocked("item type cannot change once the item has rental history").
		WithCode(CodeItemTypeLocked)
}

func ItemAllocated(itemID string) *errors.AppError {
	return errors.PolicyBlocked("item is currently allocated to a rental").
		WithCode(CodeItemAllocated).
		WithDetails(map[string]any{"item_id": itemID})
}

func SerialNumberChangeConfirmationRequired(current string) *errors.AppError {
	return errors.PolicyBlocked("changing the serial number of an item with rental history needs confirmation").
		WithCode(CodeSerialChangeConfirmationNeeded).
		WithDetails(map[string]any{
			"current_serial_number": current,
			"confirmation_field":    "confirm_serial_number_change",
		})
}

func ExportTooLarge(count, limit int) *errors.AppError {
	return errors.CapacityExceeded("export exceeds the maximum number of records").
		WithCode(CodeExportTooLarge).
		WithDetails(map[string]any{"record_count": count, "limit": limit})
}

func BulkLargeOperationWarning(count, threshold int) *errors.AppError {
	return errors.CapacityExceeded("large bulk operation needs explicit confirmation").
		WithCode(CodeBulkLargeOperationWarning).
		WithDetails(map[string]any{
			"item_count":         count,
			"threshold":          threshold,
			"confirmation_field": "confirm_large_operation",
		})
}

func BulkOperationTooLarge(count, limit int) *errors.AppError {
	return errors.CapacityExceeded("bulk operation exceeds the maximum number of items").
		WithCode(CodeBulkOperationTooLarge).
		WithDetails(map[string]any{"item_count": count, "limit": limit})
}

func ExportExpired(exportID string) *errors.AppError {
	return errors.Expired("export has expired, start a new one").
		WithCode(CodeExportExpired).
		WithDetails(map[string]any{"export_id": exportID})
}

func ExportNotReady(exportID string, status ExportStatus) *errors.AppError {
	return errors.Conflict("export is not ready for download").
		WithCode(CodeExportNotReady).
		WithDetails(map[string]any{"export_id": exportID, "status": status})
}

func Timeout(itemID string) *errors.AppError {
	return errors.Timeout("item processing timed out").
		WithCode(CodeTimeout).
		WithDetails(map[string]any{"item_id": itemID})
}
