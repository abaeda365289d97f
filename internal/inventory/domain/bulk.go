package domain

import "strings"

// BulkOperations is the sparse patch applied to every item of a bulk edit.
type BulkOperations struct {
	CategoryID             *string             `json:"category_id,omitempty"`
	AppendMaintenanceNotes *string             `json:"append_maintenance_notes,omitempty"`
	Status                 *LifecycleStatus    `json:"status,omitempty"`
	AvailabilityStatus     *AvailabilityStatus `json:"availability_status,omitempty"`
	StatusChangeReason     *string             `json:"status_change_reason,omitempty"`
}

// Empty reports whether no field operation was requested.
func (o BulkOperations) Empty() bool {
	return o.CategoryID == nil &&
		(o.AppendMaintenanceNotes == nil || strings.TrimSpace(*o.AppendMaintenanceNotes) == "") &&
		o.Status == nil &&
		o.AvailabilityStatus == nil
}

// AppendNotes appends addition to existing notes on a new line.
func AppendNotes(existing *string, addition string) string {
	addition = strings.TrimSpace(addition)
	if existing == nil || *existing == "" {
		return addition
	}
	return *existing + "\n" + addition
}

// BulkItemStatus is the outcome of one item in a bulk edit.
type BulkItemStatus string

const (
	BulkItemSuccess BulkItemStatus = "success"
	BulkItemFailed  BulkItemStatus = "failed"
	BulkItemPartial BulkItemStatus = "partial"
)

// BulkItemError is a field- or item-level error of a bulk edit entry.
type BulkItemError struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BulkItemResult reports what happened to one item.
type BulkItemResult struct {
	ItemID  string          `json:"item_id"`
	Status  BulkItemStatus  `json:"status"`
	Changes Changes         `json:"changes"`
	Errors  []BulkItemError `json:"errors"`
}

// BulkSummary aggregates per-item outcomes.
type BulkSummary struct {
	TotalItems          int `json:"total_items"`
	SuccessfulItems     int `json:"successful_items"`
	FailedItems         int `json:"failed_items"`
	PartiallySuccessful int `json:"partially_successful"`
}

// BulkResult is the response of a bulk edit.
type BulkResult struct {
	OperationID string           `json:"operation_id"`
	Summary     BulkSummary      `json:"summary"`
	Results     []BulkItemResult `json:"results"`
}

// BulkOutcome classifies an item: changes without errors succeed, changes
// with errors are partial, errors without changes fail. An item with
// neither is a successful no-op.
func BulkOutcome(changes Changes, errs []BulkItemError) BulkItemStatus {
	switch {
	case len(errs) == 0:
		return BulkItemSuccess
	case len(changes) > 0:
		return BulkItemPartial
	default:
		return BulkItemFailed
	}
}

// Summarize counts outcomes.
func Summarize(results []BulkItemResult) BulkSummary {
	s := BulkSummary{TotalItems: len(results)}
	for _, r := range results {
		switch r.Status {
		case BulkItemSuccess:
			s.SuccessfulItems++
		case BulkItemPartial:
			s.PartiallySuccessful++
		case BulkItemFailed:
			s.FailedItems++
		}
	}
	return s
}
