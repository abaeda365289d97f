package service

import (
	"context"
	"net/http"
	"time"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/internal/inventory/events"
	"github.com/rentory/rentory-backend/pkg/actor"
	"github.com/rentory/rentory-backend/pkg/errors"
	"github.com/rentory/rentory-backend/pkg/logger"
	"github.com/rentory/rentory-backend/pkg/metrics"
	"github.com/rentory/rentory-backend/pkg/permissions"
	"github.com/rentory/rentory-backend/pkg/tenant"
)

// Dependencies are the collaborators shared by the inventory services.
// Permissions, Allocation, Logger and Now have defaults.
type Dependencies struct {
	Tx            Transactor
	Items         ItemStore
	StatusChanges StatusChangeStore
	Serials       SerialSequencer
	Categories    CategoryCatalog
	Audit         AuditSink
	AuditLog      AuditReader
	Exports       ExportStore
	Permissions   PermissionChecker
	Allocation    AllocationChecker
	Publisher     *events.InventoryEventPublisher
	Logger        *logger.Logger
	Now           func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Permissions == nil {
		d.Permissions = permissions.NewContextChecker()
	}
	if d.Allocation == nil {
		d.Allocation = RentedIsAllocated
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// authorize resolves the tenant and actor of ctx and checks resource.action.
// Calls without an actor run as the system actor.
func (d Dependencies) authorize(ctx context.Context, resource, action string) (string, *actor.Actor, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return "", nil, errors.Wrap(err, "TENANT_REQUIRED", "tenant context is required", http.StatusBadRequest)
	}

	a := actor.OrSystem(ctx)
	if a.IsSystem() {
		return tenantID, a, nil
	}
	if !d.Permissions.HasPermission(ctx, tenantID, a.ID, resource, action) {
		return "", nil, errors.Forbidden("missing permission " + permissions.Join(resource, action)).
			WithDetails(map[string]any{"required_permission": permissions.Join(resource, action)})
	}
	return tenantID, a, nil
}

// audit writes one audit record after the business transaction committed.
// Failures are logged and counted, never returned.
func (d Dependencies) audit(ctx context.Context, a *actor.Actor, action, subjectType, subjectID string, details map[string]any) {
	if d.Audit == nil {
		return
	}

	record := &domain.AuditRecord{
		ActorID:     a.ID,
		Action:      action,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Details:     details,
	}
	if err := d.Audit.Record(ctx, record); err != nil {
		metrics.AuditFailure()
		d.Logger.Error().Err(err).
			Str("action", action).
			Str("subject_id", subjectID).
			Msg("failed to write audit record")
	}
}

// observe counts the outcome of a mutation.
func observe(operation string, err error) {
	code := errors.CodeOf(err)
	if err != nil && code == "" {
		code = "INTERNAL_ERROR"
	}
	if code == domain.CodeEditConflict {
		metrics.EditConflict(operation)
	}
	metrics.Mutation(operation, code)
}

func changeTypeFor(a *actor.Actor) domain.StatusChangeType {
	if a.IsSystem() {
		return domain.ChangeTypeAutomatic
	}
	return domain.ChangeTypeManual
}
