package tenancy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/cardvault/internal/domain"
)

type TenantReader interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
}

// TenantCache is an optional read-through cache keyed by slug.
type TenantCache interface {
	Get(ctx context.Context, slug string) (*domain.Tenant, error)
	Set(ctx context.Context, t *domain.Tenant) error
	Invalidate(ctx context.Context, slugs ...string) error
}

// Lookup maps a slug to its tenant.
type Lookup struct {
	tenants TenantReader
	cache   TenantCache
}

// NewLookup creates a Lookup. cache may be nil.
func NewLookup(tenants TenantReader, cache TenantCache) *Lookup {
	return &Lookup{tenants: tenants, cache: cache}
}

func (l *Lookup) BySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	if !domain.ValidSlug(slug) {
		return nil, &domain.NotFoundError{Resource: "tenant", ID: slug}
	}

	if l.cache != nil {
		t, err := l.cache.Get(ctx, slug)
		if err == nil && t != nil {
			return t, nil
		}
	}

	t, err := l.tenants.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("tenancy.Lookup.BySlug: %w", err)
	}

	if l.cache != nil {
		if cerr := l.cache.Set(ctx, t); cerr != nil {
			log.Debug().Err(cerr).Str("tenant_slug", slug).Msg("tenancy: caching tenant failed")
		}
	}
	return t, nil
}
