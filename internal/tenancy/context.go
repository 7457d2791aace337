// Package tenancy carries the tenant a request acts for and keeps every
// statement against tenant-owned tables confined to that tenant.
package tenancy

import (
	"context"

	"github.com/gosuda/cardvault/internal/domain"
)

type contextKey struct{}

// WithTenant returns a copy of ctx carrying tc. The value is scoped to the
// returned context, so it disappears when the request or job ends.
func WithTenant(ctx context.Context, tc domain.TenantContext) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

func FromContext(ctx context.Context) (domain.TenantContext, bool) {
	tc, ok := ctx.Value(contextKey{}).(domain.TenantContext)
	return tc, ok && tc.ID != ""
}

// TenantID returns the current tenant id, or "" outside a tenant.
func TenantID(ctx context.Context) string {
	tc, _ := FromContext(ctx)
	return tc.ID
}
