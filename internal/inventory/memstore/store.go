// Package memstore is an in-memory, transactional implementation of the
// inventory stores. It backs service and handler tests and local runs
// without Postgres. Semantics follow the SQL repositories: tenant from
// context, version compare-and-swap, the same unique constraints and the
// same error codes.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/pkg/tenant"
)

type state struct {
	items         map[string]*domain.Item
	statusChanges []*domain.StatusChange
	sequences     map[string]*domain.SerialSequence
	categories    map[string]*domain.Category
	audit         []*domain.AuditRecord
	exports       map[string]*domain.Export
}

func newState() state {
	return state{
		items:      map[string]*domain.Item{},
		sequences:  map[string]*domain.SerialSequence{},
		categories: map[string]*domain.Category{},
		exports:    map[string]*domain.Export{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.items {
		c.items[k] = v.Clone()
	}
	for k, v := range s.sequences {
		seq := *v
		c.sequences[k] = &seq
	}
	for k, v := range s.categories {
		cat := *v
		c.categories[k] = &cat
	}
	for k, v := range s.exports {
		c.exports[k] = cloneExport(v)
	}
	c.statusChanges = append([]*domain.StatusChange(nil), s.statusChanges...)
	c.audit = append([]*domain.AuditRecord(nil), s.audit...)
	return c
}

// Store holds all tenants' data. Transactions are serialized; a failed
// transaction restores the snapshot taken when it began.
type Store struct {
	mu    sync.Mutex
	st    state
	txSem chan struct{}
	now   func() time.Time

	hookMu       sync.Mutex
	beforeUpdate func(ctx context.Context, itemID string)
	auditErr     error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		st:    newState(),
		txSem: make(chan struct{}, 1),
		now:   time.Now,
	}
}

// SetClock overrides the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// BeforeItemUpdate installs a hook run at the start of every versioned item
// update, inside the writer's transaction. Tests use it to interleave a
// competing writer between read and compare-and-swap.
func (s *Store) BeforeItemUpdate(fn func(ctx context.Context, itemID string)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.beforeUpdate = fn
}

// FailAudit makes every audit write return err. nil restores normal writes.
func (s *Store) FailAudit(err error) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.auditErr = err
}

type txKey struct{}

// WithTenantRLS runs fn in a transaction scoped to tenantID. Calls nest the
// same way the Postgres implementation does.
func (s *Store) WithTenantRLS(ctx context.Context, tenantID string, fn func(context.Context) error) error {
	if current, ok := ctx.Value(txKey{}).(string); ok {
		if current != tenantID {
			return fmt.Errorf("tenant transaction for %s cannot be joined by %s", current, tenantID)
		}
		return fn(ctx)
	}

	select {
	case s.txSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.txSem }()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	err := fn(context.WithValue(ctx, txKey{}, tenantID))
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
	}
	return err
}

// inTenant resolves the tenant from ctx and runs fn inside its transaction
// while holding the data lock.
func (s *Store) inTenant(ctx context.Context, fn func(tenantID string, st *state) error) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return s.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(tenantID, &s.st)
	})
}

func cloneExport(e *domain.Export) *domain.Export {
	c := *e
	c.ItemIDs = append([]string(nil), e.ItemIDs...)
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func tenantOf(ctx context.Context) (string, error) {
	return tenant.TenantID(ctx)
}
