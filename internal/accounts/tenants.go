// Package accounts administers users and tenants on top of the account
// repositories. Every operation takes the caller from the context and applies
// the authz decisions before touching storage.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/cardvault/internal/authz"
	"github.com/gosuda/cardvault/internal/domain"
)

// SlugInvalidator drops cached tenants by slug.
type SlugInvalidator interface {
	Invalidate(ctx context.Context, slugs ...string) error
}

// NewTenant is the input to Tenants.Create.
type NewTenant struct {
	Name     string
	Slug     string
	Tier     domain.SubscriptionTier
	MaxUsers int
}

// Tenants manages organizations. Only platform admins may use it.
type Tenants struct {
	repo  domain.TenantRepository
	cache SlugInvalidator
}

// NewTenants creates a Tenants service. cache may be nil.
func NewTenants(repo domain.TenantRepository, cache SlugInvalidator) *Tenants {
	return &Tenants{repo: repo, cache: cache}
}

func requirePlatformAdmin(ctx context.Context, action string) (authz.Caller, error) {
	c, err := authz.RequireCaller(ctx)
	if err != nil {
		return authz.Caller{}, err
	}
	if !authz.CanManagePlatform(c.PlatformRole) {
		return authz.Caller{}, &domain.PermissionError{Action: action}
	}
	return c, nil
}

func (s *Tenants) Create(ctx context.Context, in NewTenant) (*domain.Tenant, error) {
	c, err := requirePlatformAdmin(ctx, "create tenants")
	if err != nil {
		return nil, err
	}

	t := &domain.Tenant{
		Name:     strings.TrimSpace(in.Name),
		Slug:     strings.ToLower(strings.TrimSpace(in.Slug)),
		Tier:     in.Tier,
		MaxUsers: in.MaxUsers,
		Status:   domain.TenantActive,
	}
	if t.Tier == "" {
		t.Tier = domain.TierFree
	}
	if err = validateTenant(t.Name, t.Slug, t.Tier, t.MaxUsers); err != nil {
		return nil, err
	}
	if t.MaxUsers == 0 {
		p, _ := PlanFor(t.Tier)
		t.MaxUsers = p.MaxUsers
	}

	if _, err = s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("accounts.Tenants.Create: %w", err)
	}

	log.Info().Str("tenant_id", t.ID).Str("tenant_slug", t.Slug).Str("by", c.UserID).Msg("tenant created")
	return t, nil
}

func (s *Tenants) List(ctx context.Context) ([]*domain.Tenant, error) {
	if _, err := requirePlatformAdmin(ctx, "list tenants"); err != nil {
		return nil, err
	}
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("accounts.Tenants.List: %w", err)
	}
	return out, nil
}

func (s *Tenants) Get(ctx context.Context, id string) (*domain.Tenant, error) {
	if _, err := requirePlatformAdmin(ctx, "view tenants"); err != nil {
		return nil, err
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("accounts.Tenants.Get: %w", err)
	}
	return t, nil
}

// Update applies patch. A new slug must be unused; both the old and the new
// slug are evicted from the cache.
func (s *Tenants) Update(ctx context.Context, id string, patch domain.TenantPatch) (*domain.Tenant, error) {
	if _, err := requirePlatformAdmin(ctx, "update tenants"); err != nil {
		return nil, err
	}

	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("accounts.Tenants.Update: %w", err)
	}

	next := *cur
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
		next.Name = name
	}
	if patch.Slug != nil {
		slug := strings.ToLower(strings.TrimSpace(*patch.Slug))
		patch.Slug = &slug
		next.Slug = slug
	}
	if patch.Tier != nil {
		next.Tier = *patch.Tier
	}
	if patch.MaxUsers != nil {
		next.MaxUsers = *patch.MaxUsers
	}
	if err = validateTenant(next.Name, next.Slug, next.Tier, next.MaxUsers); err != nil {
		return nil, err
	}

	if next.Slug != cur.Slug {
		other, err := s.repo.GetBySlug(ctx, next.Slug)
		switch {
		case err == nil && other.ID != cur.ID:
			return nil, fmt.Errorf("accounts.Tenants.Update: slug %q is taken: %w", next.Slug, domain.ErrConflict)
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("accounts.Tenants.Update: %w", err)
		}
	}

	ok, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("accounts.Tenants.Update: %w", err)
	}
	if !ok {
		return nil, &domain.NotFoundError{Resource: "tenant", ID: id}
	}
	s.invalidate(ctx, cur.Slug, next.Slug)

	return s.repo.GetByID(ctx, id)
}

// SetStatus moves a tenant between active, inactive and suspended. Members of
// a tenant that is not active can no longer sign in or refresh.
func (s *Tenants) SetStatus(ctx context.Context, id string, status domain.TenantStatus) (*domain.Tenant, error) {
	c, err := requirePlatformAdmin(ctx, "change tenant status")
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	ok, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("accounts.Tenants.SetStatus: %w", err)
	}
	if !ok {
		return nil, &domain.NotFoundError{Resource: "tenant", ID: id}
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("accounts.Tenants.SetStatus: %w", err)
	}
	s.invalidate(ctx, t.Slug)

	log.Info().Str("tenant_id", id).Str("status", string(status)).Str("by", c.UserID).Msg("tenant status changed")
	return t, nil
}

func (s *Tenants) invalidate(ctx context.Context, slugs ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, slugs...); err != nil {
		log.Warn().Err(err).Strs("tenant_slugs", slugs).Msg("accounts: tenant cache invalidation failed")
	}
}

func validateTenant(name, slug string, tier domain.SubscriptionTier, maxUsers int) error {
	if name == "" {
		return &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !domain.ValidSlug(slug) {
		return &domain.ValidationError{Field: "slug", Reason: "use at least three lowercase letters, digits or hyphens"}
	}
	p, ok := PlanFor(tier)
	if !ok {
		return &domain.ValidationError{Field: "subscription_tier", Reason: fmt.Sprintf("unknown tier %q", tier)}
	}
	return p.ValidateSeats(maxUsers)
}
