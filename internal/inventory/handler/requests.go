package handler

import (
	"time"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/internal/inventory/service"
)

type createItemRequest struct {
	Name                   string     `json:"name" validate:"required,max=255"`
	Description            *string    `json:"description" validate:"omitempty,max=2000"`
	CategoryID             string     `json:"category_id" validate:"required_without=CategoryName"`
	CategoryName           string     `json:"category_name" validate:"omitempty,max=255"`
	ItemType               string     `json:"item_type" validate:"required,oneof=serialized non_serialized"`
	SerialNumber           *string    `json:"serial_number" validate:"omitempty,max=100"`
	AutoGenerateSerial     bool       `json:"auto_generate_serial"`
	Quantity               *int       `json:"quantity"`
	QuantityUnit           *string    `json:"quantity_unit" validate:"omitempty,max=50"`
	ConditionNotes         *string    `json:"condition_notes"`
	LastMaintenanceDate    *time.Time `json:"last_maintenance_date"`
	NextMaintenanceDueDate *time.Time `json:"next_maintenance_due_date"`
}

func (r createItemRequest) toInput() service.CreateItemInput {
	return service.CreateItemInput{
		Name:                   r.Name,
		Description:            r.Description,
		CategoryID:             r.CategoryID,
		CategoryName:           r.CategoryName,
		ItemType:               domain.ItemType(r.ItemType),
		SerialNumber:           r.SerialNumber,
		AutoGenerateSerial:     r.AutoGenerateSerial,
		Quantity:               r.Quantity,
		QuantityUnit:           r.QuantityUnit,
		ConditionNotes:         r.ConditionNotes,
		LastMaintenanceDate:    r.LastMaintenanceDate,
		NextMaintenanceDueDate: r.NextMaintenanceDueDate,
	}
}

type updateItemRequest struct {
	Name                      *string `json:"name" validate:"omitempty,max=255"`
	Description               *string `json:"description" validate:"omitempty,max=2000"`
	CategoryID                *string `json:"category_id"`
	ItemType                  *string `json:"item_type" validate:"omitempty,oneof=serialized non_serialized"`
	SerialNumber              *string `json:"serial_number" validate:"omitempty,max=100"`
	AutoGenerateSerial        bool    `json:"auto_generate_serial"`
	ConfirmSerialNumberChange bool    `json:"confirm_serial_number_change"`
	Quantity                  *int    `json:"quantity"`
	QuantityUnit              *string `json:"quantity_unit" validate:"omitempty,max=50"`
	Status                    *string `json:"status" validate:"omitempty,oneof=active inactive archived"`
	ConditionNotes            *string `json:"condition_notes"`
	Version                   int     `json:"version" validate:"required,gte=1"`
}

func (r updateItemRequest) toInput() service.UpdateItemInput {
	in := service.UpdateItemInput{
		Name:                      r.Name,
		Description:               r.Description,
		CategoryID:                r.CategoryID,
		SerialNumber:              r.SerialNumber,
		AutoGenerateSerial:        r.AutoGenerateSerial,
		ConfirmSerialNumberChange: r.ConfirmSerialNumberChange,
		Quantity:                  r.Quantity,
		QuantityUnit:              r.QuantityUnit,
		ConditionNotes:            r.ConditionNotes,
		ExpectedVersion:           r.Version,
	}
	if r.ItemType != nil {
		t := domain.ItemType(*r.ItemType)
		in.ItemType = &t
	}
	if r.Status != nil {
		s := domain.LifecycleStatus(*r.Status)
		in.Status = &s
	}
	return in
}

type changeStatusRequest struct {
	Status                 string     `json:"availability_status" validate:"required"`
	Reason                 string     `json:"reason" validate:"max=1000"`
	ExpectedResolutionDate *time.Time `json:"expected_resolution_date"`
	Version                *int       `json:"version" validate:"omitempty,gte=1"`
}

func (r changeStatusRequest) toInput() service.ChangeStatusInput {
	return service.ChangeStatusInput{
		Status:          domain.AvailabilityStatus(r.Status),
		Reason:          r.Reason,
		ResolutionDate:  r.ExpectedResolutionDate,
		ExpectedVersion: r.Version,
	}
}

type serializedFieldsRequest struct {
	SerialNumber              *string    `json:"serial_number" validate:"omitempty,max=100"`
	ConditionNotes            *string    `json:"condition_notes"`
	LastMaintenanceDate       *time.Time `json:"last_maintenance_date"`
	NextMaintenanceDueDate    *time.Time `json:"next_maintenance_due_date"`
	ConfirmSerialNumberChange bool       `json:"confirm_serial_number_change"`
	Version                   *int       `json:"version" validate:"omitempty,gte=1"`
}

func (r serializedFieldsRequest) toInput() service.SerializedFieldsInput {
	return service.SerializedFieldsInput{
		SerialNumber:              r.SerialNumber,
		ConditionNotes:            r.ConditionNotes,
		LastMaintenanceDate:       r.LastMaintenanceDate,
		NextMaintenanceDueDate:    r.NextMaintenanceDueDate,
		ConfirmSerialNumberChange: r.ConfirmSerialNumberChange,
		ExpectedVersion:           r.Version,
	}
}

type quantityRequest struct {
	Quantity *int    `json:"quantity" validate:"required"`
	Unit     *string `json:"unit" validate:"omitempty,max=50"`
	Reason   string  `json:"reason" validate:"max=1000"`
	Version  *int    `json:"version" validate:"omitempty,gte=1"`
}

func (r quantityRequest) toInput() service.QuantityInput {
	return service.QuantityInput{
		Quantity:        *r.Quantity,
		Unit:            r.Unit,
		Reason:          r.Reason,
		ExpectedVersion: r.Version,
	}
}

type bulkEditRequest struct {
	ItemIDs               []string              `json:"item_ids" validate:"required,min=1,dive,required"`
	Operations            domain.BulkOperations `json:"operations"`
	ConfirmLargeOperation bool                  `json:"confirm_large_operation"`
}

type initiateExportRequest struct {
	Format  string   `json:"export_format" validate:"required,oneof=xlsx csv"`
	Type    string   `json:"export_type" validate:"required,oneof=inventory audit"`
	ItemIDs []string `json:"item_ids" validate:"omitempty,dive,required"`
}

func (r initiateExportRequest) toInput() service.InitiateExportInput {
	return service.InitiateExportInput{
		Format:  domain.ExportFormat(r.Format),
		Type:    domain.ExportType(r.Type),
		ItemIDs: r.ItemIDs,
	}
}
