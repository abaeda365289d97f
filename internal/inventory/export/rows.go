// Package export renders inventory and audit exports as XLSX or CSV files.
package export

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
)

var itemHeader = []string{
	"id", "name", "category_id", "item_type",
	"serial_number", "previous_serial_number", "quantity", "quantity_unit", "allocated_quantity",
	"availability_status", "status", "version", "has_rental_history",
	"condition_notes", "last_maintenance_date", "next_maintenance_due_date",
	"created_at", "updated_at",
}

var auditHeader = []string{
	"id", "created_at", "actor_id", "action", "subject_type", "subject_id", "details",
}

func itemRow(i *domain.Item) []string {
	quantity := ""
	if i.Quantity != nil {
		quantity = strconv.Itoa(*i.Quantity)
	}
	allocated := ""
	if !i.IsSerialized() {
		allocated = strconv.Itoa(i.AllocatedQuantity)
	}

	return []string{
		i.ID,
		i.Name,
		i.CategoryID,
		string(i.ItemType),
		domain.Deref(i.SerialNumber),
		domain.Deref(i.PreviousSerialNumber),
		quantity,
		domain.Deref(i.QuantityUnit),
		allocated,
		string(i.AvailabilityStatus),
		string(i.Status),
		strconv.Itoa(i.Version),
		strconv.FormatBool(i.HasRentalHistory),
		domain.Deref(i.ConditionNotes),
		formatDate(i.LastMaintenanceDate),
		formatDate(i.NextMaintenanceDueDate),
		i.CreatedAt.UTC().Format(time.RFC3339),
		i.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func auditRow(r *domain.AuditRecord) []string {
	details := ""
	if len(r.Details) > 0 {
		if raw, err := json.Marshal(r.Details); err == nil {
			details = string(raw)
		}
	}

	return []string{
		r.ID,
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.ActorID,
		r.Action,
		r.SubjectType,
		r.SubjectID,
		details,
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
