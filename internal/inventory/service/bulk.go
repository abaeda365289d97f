package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/pkg/actor"
	"github.com/rentory/rentory-backend/pkg/errors"
	"github.com/rentory/rentory-backend/pkg/metrics"
)

// BulkLimits bounds bulk edits.
type BulkLimits struct {
	ConfirmThreshold int
	MaxItems         int
	Workers          int
	ItemTimeout      time.Duration
}

// DefaultBulkLimits are used for zero fields of the configured limits.
var DefaultBulkLimits = BulkLimits{
	ConfirmThreshold: 100,
	MaxItems:         1000,
	Workers:          8,
	ItemTimeout:      10 * time.Second,
}

// BulkEditInput is a bulk edit request.
type BulkEditInput struct {
	ItemIDs               []string
	Operations            domain.BulkOperations
	ConfirmLargeOperation bool
}

// BulkEditEngine applies one sparse patch to many items. Every item runs in
// its own transaction; one item failing never affects another.
type BulkEditEngine struct {
	deps   Dependencies
	limits BulkLimits
}

// NewBulkEditEngine creates a new bulk edit engine
func NewBulkEditEngine(deps Dependencies, limits BulkLimits) *BulkEditEngine {
	if limits.ConfirmThreshold <= 0 {
		limits.ConfirmThreshold = DefaultBulkLimits.ConfirmThreshold
	}
	if limits.MaxItems <= 0 {
		limits.MaxItems = DefaultBulkLimits.MaxItems
	}
	if limits.Workers <= 0 {
		limits.Workers = DefaultBulkLimits.Workers
	}
	if limits.ItemTimeout <= 0 {
		limits.ItemTimeout = DefaultBulkLimits.ItemTimeout
	}

	return &BulkEditEngine{deps: deps.withDefaults(), limits: limits}
}

// BulkEdit runs the pre-flight checks, then processes every distinct item.
// Only pre-flight failures are returned as errors; item failures are
// reported in the result.
func (e *BulkEditEngine) BulkEdit(ctx context.Context, in BulkEditInput) (*domain.BulkResult, error) {
	tenantID, a, err := e.deps.authorize(ctx, ResourceItems, ActionBulkEdit)
	if err != nil {
		return nil, err
	}

	ids := distinctIDs(in.ItemIDs)
	if len(ids) == 0 {
		return nil, errors.Validation(map[string]string{"item_ids": "at least one item id is required"})
	}
	if in.Operations.Empty() {
		return nil, errors.Validation(map[string]string{"operations": "at least one operation is required"})
	}
	if len(ids) > e.limits.MaxItems {
		return nil, domain.BulkOperationTooLarge(len(ids), e.limits.MaxItems)
	}
	if len(ids) > e.limits.ConfirmThreshold && !in.ConfirmLargeOperation {
		return nil, domain.BulkLargeOperationWarning(len(ids), e.limits.ConfirmThreshold)
	}

	start := time.Now()
	results := make([]domain.BulkItemResult, len(ids))

	var g errgroup.Group
	g.SetLimit(e.limits.Workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = e.processItem(ctx, tenantID, a, id, in.Operations)
			return nil
		})
	}
	_ = g.Wait()

	result := &domain.BulkResult{
		OperationID: uuid.New().String(),
		Summary:     domain.Summarize(results),
		Results:     results,
	}

	for _, r := range results {
		metrics.BulkItem(string(r.Status))
	}
	metrics.BulkBatch(time.Since(start))

	e.deps.audit(ctx, a, domain.AuditBulkEdit, domain.AuditSubjectBulkOperation, result.OperationID, map[string]any{
		"item_ids":   ids,
		"operations": in.Operations,
		"summary":    result.Summary,
	})
	e.deps.Publisher.PublishBulkCompleted(ctx, tenantID, result, a.ID)

	e.deps.Logger.Info().
		Str("tenant_id", tenantID).
		Str("operation_id", result.OperationID).
		Int("total", result.Summary.TotalItems).
		Int("failed", result.Summary.FailedItems).
		Int("partial", result.Summary.PartiallySuccessful).
		Dur("duration", time.Since(start)).
		Msg("bulk edit completed")

	return result, nil
}

// processItem applies ops to one item inside its own transaction. Field
// errors skip the field; anything else fails the whole item.
func (e *BulkEditEngine) processItem(ctx context.Context, tenantID string, a *actor.Actor, id string, ops domain.BulkOperations) domain.BulkItemResult {
	itemCtx, cancel := context.WithTimeout(ctx, e.limits.ItemTimeout)
	defer cancel()

	var (
		changes   domain.Changes
		fieldErrs []domain.BulkItemError
	)

	err := e.deps.Tx.WithTenantRLS(itemCtx, tenantID, func(ctx context.Context) error {
		changes, fieldErrs = nil, nil

		current, err := e.deps.Items.GetByID(ctx, id)
		if err != nil {
			return err
		}
		next := current.Clone()

		if ops.CategoryID != nil && *ops.CategoryID != current.CategoryID {
			if err := requireCategory(ctx, e.deps.Categories, *ops.CategoryID); err != nil {
				if errors.CodeOf(err) != domain.CodeCategoryNotFound {
					return err
				}
				fieldErrs = append(fieldErrs, bulkError("category_id", err))
			} else {
				changes.Record("category_id", current.CategoryID, *ops.CategoryID)
				next.CategoryID = *ops.CategoryID
			}
		}

		if ops.Status != nil {
			if !ops.Status.Valid() {
				fieldErrs = append(fieldErrs, bulkError("status", errors.Validation(map[string]string{
					"status": "must be one of active, inactive, archived",
				}).WithCode(domain.CodeInvalidStatus)))
			} else {
				changes.Record("status", current.Status, *ops.Status)
				next.Status = *ops.Status
			}
		}

		statusChanged := false
		if ops.AvailabilityStatus != nil && *ops.AvailabilityStatus != current.AvailabilityStatus {
			reason := strings.TrimSpace(domain.Deref(ops.StatusChangeReason))
			err := checkTransition(ctx, e.deps, current, *ops.AvailabilityStatus, reason, nil)
			if err != nil {
				if errors.CodeOf(err) == "" {
					return err
				}
				fieldErrs = append(fieldErrs, bulkError("availability_status", err))
			} else {
				applyTransition(next, *ops.AvailabilityStatus, reason, nil)
				changes.Record("availability_status", current.AvailabilityStatus, next.AvailabilityStatus)
				statusChanged = true
			}
		}

		if notes := strings.TrimSpace(domain.Deref(ops.AppendMaintenanceNotes)); notes != "" {
			appended := domain.AppendNotes(current.ConditionNotes, notes)
			next.ConditionNotes = &appended
			changes.Record("condition_notes", current.ConditionNotes, appended)
		}

		if changes.Empty() {
			return nil
		}
		if err := e.deps.Items.UpdateWithVersion(ctx, next, current.Version); err != nil {
			return err
		}
		if statusChanged {
			return e.deps.StatusChanges.Create(ctx, newStatusChange(a, current, next, domain.ChangeTypeBulk))
		}
		return nil
	})

	if err != nil {
		if itemCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = domain.Timeout(id)
		}
		e.deps.Logger.Warn().Err(err).Str("item_id", id).Msg("bulk edit item failed")
		return domain.BulkItemResult{
			ItemID:  id,
			Status:  domain.BulkItemFailed,
			Changes: domain.Changes{},
			Errors:  []domain.BulkItemError{bulkError("", err)},
		}
	}

	if changes == nil {
		changes = domain.Changes{}
	}
	if fieldErrs == nil {
		fieldErrs = []domain.BulkItemError{}
	}
	return domain.BulkItemResult{
		ItemID:  id,
		Status:  domain.BulkOutcome(changes, fieldErrs),
		Changes: changes,
		Errors:  fieldErrs,
	}
}

// bulkError converts err into a result entry. Validation errors carry their
// field messages.
func bulkError(field string, err error) domain.BulkItemError {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		return domain.BulkItemError{Field: field, Code: "INTERNAL_ERROR", Message: "unexpected error"}
	}

	message := appErr.Message
	if errors.Is(appErr, errors.ErrValidation) && len(appErr.Details) > 0 {
		keys := make([]string, 0, len(appErr.Details))
		for k := range appErr.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			if v, ok := appErr.Details[k].(string); ok {
				parts = append(parts, k+" "+v)
			}
		}
		if len(parts) > 0 {
			message = strings.Join(parts, "; ")
		}
	}

	return domain.BulkItemError{Field: field, Code: appErr.Code, Message: message}
}

// distinctIDs trims ids and drops blanks and repeats, keeping first-seen order.
func distinctIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
