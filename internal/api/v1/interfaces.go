package v1

import (
	"context"

	"github.com/gosuda/cardvault/internal/accounts"
	"github.com/gosuda/cardvault/internal/auth"
	"github.com/gosuda/cardvault/internal/catalog"
	"github.com/gosuda/cardvault/internal/domain"
)

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

// CatalogService is the shape shared by the player, team and manufacturer
// services.
type CatalogService[T, In, P any] interface {
	List(ctx context.Context) ([]*T, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, in In) (string, error)
	Update(ctx context.Context, id string, patch P) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type (
	PlayerService       = CatalogService[domain.Player, domain.PlayerInput, domain.PlayerPatch]
	TeamService         = CatalogService[domain.Team, domain.TeamInput, domain.TeamPatch]
	ManufacturerService = CatalogService[domain.Manufacturer, domain.ManufacturerInput, domain.ManufacturerPatch]
)

// CardService adds filtered search. *catalog.CardService satisfies it.
type CardService interface {
	CatalogService[domain.Card, domain.CardInput, domain.CardPatch]
	Find(ctx context.Context, f catalog.CardFilter) ([]*domain.Card, error)
}

// UserService abstracts account administration. *accounts.Users satisfies it.
type UserService interface {
	Create(ctx context.Context, in accounts.NewUser) (*domain.User, error)
	List(ctx context.Context, tenantID string) ([]*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, patch domain.UserProfilePatch) (*domain.User, error)
	AssignRoles(ctx context.Context, id string, platform domain.PlatformRole, org domain.OrgRole) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

// TenantService abstracts tenant administration. *accounts.Tenants satisfies it.
type TenantService interface {
	Create(ctx context.Context, in accounts.NewTenant) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)
	Get(ctx context.Context, id string) (*domain.Tenant, error)
	Update(ctx context.Context, id string, patch domain.TenantPatch) (*domain.Tenant, error)
	SetStatus(ctx context.Context, id string, status domain.TenantStatus) (*domain.Tenant, error)
}
