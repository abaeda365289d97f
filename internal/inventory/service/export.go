package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/pkg/errors"
	"github.com/rentory/rentory-backend/pkg/metrics"
)

// ExportLimits holds export thresholds and retention.
type ExportLimits struct {
	SyncLimit    int
	AsyncLimit   int
	InventoryTTL time.Duration
	AuditTTL     time.Duration
	DownloadBase string
}

// DefaultExportLimits are used for zero fields of the configured limits.
var DefaultExportLimits = ExportLimits{
	SyncLimit:    1000,
	AsyncLimit:   10000,
	InventoryTTL: 24 * time.Hour,
	AuditTTL:     7 * 24 * time.Hour,
	DownloadBase: "/api/v1/inventory/exports",
}

// InitiateExportInput requests an export. Without item ids an inventory
// export covers the full inventory.
type InitiateExportInput struct {
	Format  domain.ExportFormat
	Type    domain.ExportType
	ItemIDs []string
}

// ExportHandle is the answer to an export request.
type ExportHandle struct {
	Export      *domain.Export    `json:"export"`
	Path        domain.ExportPath `json:"path"`
	DownloadURL string            `json:"download_url,omitempty"`
}

// ExportFile is a rendered export.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportCoordinator decides how an export is served and enforces expiry
// at download time.
type ExportCoordinator struct {
	deps      Dependencies
	limits    ExportLimits
	renderers map[domain.ExportFormat]ExportRenderer
}

// NewExportCoordinator creates a new export coordinator
func NewExportCoordinator(deps Dependencies, limits ExportLimits, renderers map[domain.ExportFormat]ExportRenderer) *ExportCoordinator {
	if limits.SyncLimit <= 0 {
		limits.SyncLimit = DefaultExportLimits.SyncLimit
	}
	if limits.AsyncLimit <= 0 {
		limits.AsyncLimit = DefaultExportLimits.AsyncLimit
	}
	if limits.InventoryTTL <= 0 {
		limits.InventoryTTL = DefaultExportLimits.InventoryTTL
	}
	if limits.AuditTTL <= 0 {
		limits.AuditTTL = DefaultExportLimits.AuditTTL
	}
	if limits.DownloadBase == "" {
		limits.DownloadBase = DefaultExportLimits.DownloadBase
	}

	return &ExportCoordinator{
		deps:      deps.withDefaults(),
		limits:    limits,
		renderers: renderers,
	}
}

// Initiate records an export. Small exports are completed immediately,
// larger ones are handed to the export worker, the largest are rejected.
func (c *ExportCoordinator) Initiate(ctx context.Context, in InitiateExportInput) (*ExportHandle, error) {
	tenantID, a, err := c.deps.authorize(ctx, ResourceExports, ActionCreate)
	if err != nil {
		return nil, err
	}
	if err := c.validate(in); err != nil {
		return nil, err
	}

	ids := distinctIDs(in.ItemIDs)
	now := c.deps.Now()
	export := &domain.Export{
		ExportedBy: a.ID,
		Format:     in.Format,
		Type:       in.Type,
		ItemIDs:    ids,
		Status:     domain.ExportInitiated,
		ExpiresAt:  now.Add(domain.ExportTTL(in.Type, c.limits.InventoryTTL, c.limits.AuditTTL)),
	}

	var path domain.ExportPath
	err = c.deps.Tx.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		count, err := c.estimate(ctx, in.Type, ids)
		if err != nil {
			return err
		}
		export.RecordCount = count

		path, err = domain.ChooseExportPath(count, c.limits.SyncLimit, c.limits.AsyncLimit)
		if err != nil {
			return err
		}

		if path == domain.ExportPathSync {
			ids, count, err := c.materialize(ctx, export.Type, ids, c.limits.SyncLimit)
			if err != nil {
				return err
			}
			export.ItemIDs = ids
			export.RecordCount = count
			export.Status = domain.ExportCompleted
			export.CompletedAt = &now
		}

		return c.deps.Exports.Create(ctx, export)
	})
	if err != nil {
		return nil, err
	}

	metrics.Export(string(export.Type), string(path))
	if path == domain.ExportPathAsync {
		c.deps.Publisher.PublishExportInitiated(ctx, export)
	}

	c.deps.audit(ctx, a, domain.AuditExportInitiated, domain.AuditSubjectExport, export.ID, map[string]any{
		"export_type":  export.Type,
		"format":       export.Format,
		"path":         path,
		"record_count": export.RecordCount,
	})

	handle := &ExportHandle{Export: export, Path: path}
	if export.Status == domain.ExportCompleted {
		handle.DownloadURL = c.downloadURL(export.ID)
	}
	return handle, nil
}

// Complete materializes an initiated export and makes it downloadable.
// Completing an export twice is a no-op.
func (c *ExportCoordinator) Complete(ctx context.Context, id string) (*domain.Export, error) {
	tenantID, _, err := c.deps.authorize(ctx, ResourceExports, ActionCreate)
	if err != nil {
		return nil, err
	}

	var (
		export    *domain.Export
		completed bool
	)
	err = c.deps.Tx.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		var err error
		export, err = c.deps.Exports.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if export.Status != domain.ExportInitiated {
			return nil
		}

		ids, count, err := c.materialize(ctx, export.Type, export.ItemIDs, c.limits.AsyncLimit)
		if err != nil {
			return err
		}
		if err := c.deps.Exports.MarkCompleted(ctx, id, ids, count); err != nil {
			return err
		}

		now := c.deps.Now()
		export.ItemIDs = ids
		export.RecordCount = count
		export.Status = domain.ExportCompleted
		export.CompletedAt = &now
		completed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed {
		c.deps.Publisher.PublishExportCompleted(ctx, export)
		c.deps.Logger.Info().
			Str("tenant_id", tenantID).
			Str("export_id", id).
			Int("record_count", export.RecordCount).
			Msg("export completed")
	}
	return export, nil
}

// Download renders a completed, unexpired export and counts the download.
func (c *ExportCoordinator) Download(ctx context.Context, id string) (*ExportFile, error) {
	_, a, err := c.deps.authorize(ctx, ResourceExports, ActionDownload)
	if err != nil {
		return nil, err
	}

	export, err := c.deps.Exports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if export.Expired(c.deps.Now()) {
		return nil, domain.ExportExpired(id)
	}
	if export.Status != domain.ExportCompleted {
		return nil, domain.ExportNotReady(id, export.Status)
	}

	renderer, ok := c.renderers[export.Format]
	if !ok {
		return nil, errors.Internal(fmt.Sprintf("no renderer for format %s", export.Format))
	}

	var buf bytes.Buffer
	switch export.Type {
	case domain.ExportTypeAudit:
		records, err := c.auditSnapshot(ctx, export)
		if err != nil {
			return nil, err
		}
		err = renderer.RenderAudit(&buf, records)
		if err != nil {
			return nil, err
		}
	default:
		items, err := c.deps.Items.ListByIDs(ctx, export.ItemIDs)
		if err != nil {
			return nil, err
		}
		err = renderer.RenderItems(&buf, items)
		if err != nil {
			return nil, err
		}
	}

	downloads, err := c.deps.Exports.RecordDownload(ctx, id)
	if err != nil {
		return nil, err
	}

	c.deps.audit(ctx, a, domain.AuditExportDownloaded, domain.AuditSubjectExport, id, map[string]any{
		"download_count": downloads,
	})

	return &ExportFile{
		Filename:    fmt.Sprintf("%s-export-%s.%s", export.Type, shortID(export.ID), export.Format),
		ContentType: renderer.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}

func (c *ExportCoordinator) validate(in InitiateExportInput) error {
	fields := map[string]string{}
	if !in.Format.Valid() {
		fields["format"] = "must be one of xlsx, csv"
	} else if _, ok := c.renderers[in.Format]; !ok {
		fields["format"] = "format is not available"
	}
	if !in.Type.Valid() {
		fields["export_type"] = "must be one of inventory, audit"
	}
	if in.Type == domain.ExportTypeAudit && len(in.ItemIDs) > 0 {
		fields["item_ids"] = "not supported for audit exports"
	} else {
		for _, id := range in.ItemIDs {
			if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
				fields["item_ids"] = "must contain only item UUIDs"
				break
			}
		}
	}
	if len(fields) > 0 {
		return errors.Validation(fields)
	}
	return nil
}

// estimate counts the records an export will contain. Requested ids that
// match no item of the tenant are not counted.
func (c *ExportCoordinator) estimate(ctx context.Context, exportType domain.ExportType, ids []string) (int, error) {
	switch {
	case exportType == domain.ExportTypeAudit:
		return c.deps.AuditLog.Count(ctx)
	case len(ids) > c.limits.AsyncLimit:
		return len(ids), nil
	case len(ids) > 0:
		items, err := c.deps.Items.ListByIDs(ctx, ids)
		if err != nil {
			return 0, err
		}
		return len(items), nil
	default:
		return c.deps.Items.Count(ctx)
	}
}

// materialize fixes the item set of an inventory export. Audit exports
// are bounded by their completion time instead.
func (c *ExportCoordinator) materialize(ctx context.Context, exportType domain.ExportType, ids []string, limit int) ([]string, int, error) {
	if exportType == domain.ExportTypeAudit {
		count, err := c.deps.AuditLog.Count(ctx)
		if err != nil {
			return nil, 0, err
		}
		if count > limit {
			count = limit
		}
		return []string{}, count, nil
	}

	var (
		items []*domain.Item
		err   error
	)
	if len(ids) > 0 {
		items, err = c.deps.Items.ListByIDs(ctx, ids)
	} else {
		items, err = c.deps.Items.List(ctx, limit)
	}
	if err != nil {
		return nil, 0, err
	}

	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out, len(out), nil
}

// auditSnapshot returns the newest audit records written before the export
// completed.
func (c *ExportCoordinator) auditSnapshot(ctx context.Context, export *domain.Export) ([]*domain.AuditRecord, error) {
	records, err := c.deps.AuditLog.List(ctx, c.limits.AsyncLimit)
	if err != nil {
		return nil, err
	}

	cutoff := export.CreatedAt
	if export.CompletedAt != nil {
		cutoff = *export.CompletedAt
	}

	out := make([]*domain.AuditRecord, 0, export.RecordCount)
	for _, r := range records {
		if len(out) == export.RecordCount {
			break
		}
		if r.CreatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *ExportCoordinator) downloadURL(id string) string {
	return strings.TrimSuffix(c.limits.DownloadBase, "/") + "/" + id + "/download"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
