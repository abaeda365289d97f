package testutil

import (
	"context"

	"github.com/google/uuid"

	"github.com/rentory/rentory-backend/pkg/actor"
	"github.com/rentory/rentory-backend/pkg/tenant"
)

// NewTenantID returns a fresh tenant ID. Row-level security keeps every
// test's rows apart.
func NewTenantID() string {
	return uuid.New().String()
}

// TenantContext returns a background context scoped to tenantID.
func TenantContext(tenantID string) context.Context {
	return tenant.WithTenantContext(context.Background(), tenantID, "test-"+tenantID[:8])
}

// ActorContext returns a context scoped to tenantID with an actor holding
// the given permissions. No permissions means full access.
func ActorContext(tenantID, userID string, permissions ...string) context.Context {
	if len(permissions) == 0 {
		permissions = []string{"*"}
	}
	return actor.WithActor(TenantContext(tenantID), &actor.Actor{
		ID:          userID,
		TenantID:    tenantID,
		Permissions: permissions,
		IPAddress:   "192.0.2.10",
		UserAgent:   "rentory-test",
	})
}
