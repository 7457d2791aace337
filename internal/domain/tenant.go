package domain

import (
	"context"
	"regexp"
	"time"
)

type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantInactive  TenantStatus = "inactive"
	TenantSuspended TenantStatus = "suspended"
)

func (s TenantStatus) Valid() bool {
	switch s {
	case TenantActive, TenantInactive, TenantSuspended:
		return true
	}
	return false
}

// AllowsLogin reports whether members of a tenant in this status may sign in.
func (s TenantStatus) AllowsLogin() bool { return s == TenantActive }

type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierPro        SubscriptionTier = "pro"
	TierEnterprise SubscriptionTier = "enterprise"
)

func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierEnterprise:
		return true
	}
	return false
}

type Tenant struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Slug      string           `json:"slug"`
	Tier      SubscriptionTier `json:"subscription_tier"`
	MaxUsers  int              `json:"max_users"`
	Status    TenantStatus     `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Context returns the request-scoped view of the tenant.
func (t *Tenant) Context() TenantContext {
	return TenantContext{ID: t.ID, Slug: t.Slug, Name: t.Name}
}

// TenantContext identifies the tenant a unit of work runs for. It is a value
// type and is never mutated after it is attached to a context.
type TenantContext struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// TenantPatch carries the mutable tenant fields; nil means unchanged.
type TenantPatch struct {
	Name     *string
	Slug     *string
	Tier     *SubscriptionTier
	MaxUsers *int
}

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidSlug reports whether s is a usable tenant slug: lowercase letters,
// digits and hyphens, longer than two characters.
func ValidSlug(s string) bool {
	return len(s) > 2 && slugPattern.MatchString(s)
}

type TenantRepository interface {
	Create(ctx context.Context, t *Tenant) (string, error)
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	Update(ctx context.Context, id string, patch TenantPatch) (bool, error)
	SetStatus(ctx context.Context, id string, status TenantStatus) (bool, error)
	List(ctx context.Context) ([]*Tenant, error)
}
