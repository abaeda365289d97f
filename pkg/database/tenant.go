package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Querier is the query surface shared by *sqlx.DB and *sqlx.Tx.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type txKey struct{}

type tenantTx struct {
	tx       *sqlx.Tx
	tenantID string
}

// WithTenantRLS executes fn inside a transaction scoped to tenantID.
//
// Repositories call it around every statement:
//
//	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
//	    return r.db.Conn(ctx).GetContext(ctx, &item, "SELECT ... WHERE id = $1", id)
//	})
//
// The transaction sets "SET LOCAL app.current_tenant" so RLS policies of the
// form USING (tenant_id = current_setting('app.current_tenant')::uuid) apply.
// SET LOCAL is dropped at commit, so pooled connections come back clean.
//
// Calls nest: when ctx already carries a transaction for the same tenant, fn
// joins it. This lets a service wrap several repository calls in one unit.
func (db *DB) WithTenantRLS(ctx context.Context, tenantID string, fn func(context.Context) error) error {
	if current, ok := ctx.Value(txKey{}).(*tenantTx); ok {
		if current.tenantID != tenantID {
			return fmt.Errorf("tenant transaction for %s cannot be joined by %s", current.tenantID, tenantID)
		}
		return fn(ctx)
	}

	// SET LOCAL does not accept bind parameters, so the value is interpolated.
	if _, err := uuid.Parse(tenantID); err != nil {
		return fmt.Errorf("invalid tenant id %q: %w", tenantID, err)
	}

	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL app.current_tenant = '%s'", tenantID)); err != nil {
			return fmt.Errorf("failed to set app.current_tenant to %s: %w", tenantID, err)
		}

		txCtx := context.WithValue(ctx, txKey{}, &tenantTx{tx: tx, tenantID: tenantID})
		return fn(txCtx)
	})
}

// Conn returns the tenant transaction carried by ctx, or the pool when
// called outside WithTenantRLS.
func (db *DB) Conn(ctx context.Context) Querier {
	if current, ok := ctx.Value(txKey{}).(*tenantTx); ok {
		return current.tx
	}
	return db.DB
}

// InTransaction reports whether ctx carries a tenant transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*tenantTx)
	return ok
}
