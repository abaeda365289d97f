package repository

import (
	"context"
	"strings"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/pkg/database"
	"github.com/rentory/rentory-backend/pkg/tenant"
)

// CategoryRepository maintains the local read model of the category catalog.
type CategoryRepository struct {
	db *database.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *database.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Exists reports whether id is an active category of the tenant.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *CategoryRepository) Exists(ctx context.Context, id string) (bool, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return false, err
	}
	if !validID(id) {
		return false, nil
	}

	var exists bool
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT EXISTS (SELECT 1 FROM inventory_categories WHERE id = $1 AND tenant_id = $2 AND is_active)`
		return r.db.Conn(ctx).GetContext(ctx, &exists, query, id, tenantID)
	})

	return exists, err
}

// LookupByName resolves an active category of the tenant by its name,
// ignoring case and surrounding blanks.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *CategoryRepository) LookupByName(ctx context.Context, name string) (string, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.CategoryNameNotFound(name)
	}

	var ids []string
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id FROM inventory_categories
			WHERE tenant_id = $1 AND is_active AND LOWER(name) = LOWER($2)
			ORDER BY id
			LIMIT 2
		`
		return r.db.Conn(ctx).SelectContext(ctx, &ids, query, tenantID, name)
	})
	if err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", domain.CategoryNameNotFound(name)
	case 1:
		return ids[0], nil
	default:
		return "", domain.AmbiguousCategoryName()
	}
}

// Upsert creates or updates a category and marks it active
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *CategoryRepository) Upsert(ctx context.Context, category *domain.Category) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}
	category.TenantID = tenantID

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO inventory_categories (id, tenant_id, name, is_active, updated_at)
			VALUES ($1, $2, $3, TRUE, NOW())
			ON CONFLICT (id)
			DO UPDATE SET name = $3, is_active = TRUE, updated_at = NOW()
		`

		_, err := r.db.Conn(ctx).ExecContext(ctx, query, category.ID, tenantID, category.Name)
		return err
	})
}

// Deactivate hides a deleted category from new assignments. Items keep
// their reference.
// TENANT-ISOLATED: tenant from context, enforced by RLS
func (r *CategoryRepository) Deactivate(ctx context.Context, id string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `UPDATE inventory_categories SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND tenant_id = $2`
		_, err := r.db.Conn(ctx).ExecContext(ctx, query, id, tenantID)
		return err
	})
}
