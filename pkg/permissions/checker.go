// Package permissions evaluates permission grants with wildcard support.
//
// Permission Format:
//   - "*" - Full access
//   - "resource.*" - All actions below a resource (e.g., "inventory.*")
//   - "resource.action" - Specific action (e.g., "inventory.items.read")
package permissions

import (
	"context"
	"strings"

	"github.com/rentory/rentory-backend/pkg/actor"
)

// HasPermission checks if the granted permissions include the required one.
func HasPermission(granted []string, required string) bool {
	if required == "" {
		return true
	}

	for _, p := range granted {
		if p == "*" || p == required {
			return true
		}
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// HasAnyPermission checks if any of the required permissions is granted.
func HasAnyPermission(granted []string, required []string) bool {
	for _, req := range required {
		if HasPermission(granted, req) {
			return true
		}
	}
	return false
}

// Join builds a permission string from a resource and an action.
func Join(resource, action string) string {
	if action == "" {
		return resource
	}
	return resource + "." + action
}

// ContextChecker answers permission checks from the grants the gateway
// forwarded with the request. The actor in ctx must match the user asked about.
type ContextChecker struct{}

// NewContextChecker creates a ContextChecker.
func NewContextChecker() *ContextChecker {
	return &ContextChecker{}
}

// HasPermission reports whether userID holds resource.action in tenantID.
func (c *ContextChecker) HasPermission(ctx context.Context, tenantID, userID, resource, action string) bool {
	a := actor.FromContext(ctx)
	if a == nil {
		return false
	}
	if a.IsSystem() {
		return true
	}
	if a.ID != userID || (a.TenantID != "" && a.TenantID != tenantID) {
		return false
	}
	return HasPermission(a.Permissions, Join(resource, action))
}
