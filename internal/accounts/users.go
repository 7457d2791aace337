package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/cardvault/internal/auth"
	"github.com/gosuda/cardvault/internal/authz"
	"github.com/gosuda/cardvault/internal/catalog"
	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/tenancy"
)

// ReferenceChecker validates a catalog id for the tenant in ctx.
type ReferenceChecker interface {
	Check(ctx context.Context, field, table, id string) error
}

// NewUser is the input to Users.Create.
type NewUser struct {
	Username     string
	Password     string
	Email        string
	DisplayName  string
	PlatformRole domain.PlatformRole
	OrgRole      domain.OrgRole
	// TenantID defaults to the caller's organization. Only platform admins
	// may name another tenant, or none.
	TenantID string
}

// Users administers user accounts.
type Users struct {
	repo    domain.UserRepository
	tenants domain.TenantRepository
	refs    ReferenceChecker
}

// NewUsers creates a Users service. tenants is nil in single-tenant mode.
func NewUsers(repo domain.UserRepository, tenants domain.TenantRepository, refs ReferenceChecker) *Users {
	return &Users{repo: repo, tenants: tenants, refs: refs}
}

func (s *Users) multiTenant() bool { return s.tenants != nil }

func (s *Users) Create(ctx context.Context, in NewUser) (*domain.User, error) {
	c, err := authz.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}

	tenantID := c.TenantID
	if in.TenantID != "" || authz.CanManagePlatform(c.PlatformRole) {
		tenantID = in.TenantID
	}
	if !s.multiTenant() {
		tenantID = ""
	}
	if !authz.CanManageOrganizationUsers(c.PlatformRole, c.OrgRole, c.TenantID, tenantID) {
		return nil, &domain.PermissionError{Action: "create users in this organization"}
	}

	u := &domain.User{
		Username:     strings.ToLower(strings.TrimSpace(in.Username)),
		Email:        strings.TrimSpace(in.Email),
		DisplayName:  strings.TrimSpace(in.DisplayName),
		PlatformRole: in.PlatformRole,
		OrgRole:      in.OrgRole,
		TenantID:     tenantID,
	}
	if u.Username == "" {
		return nil, &domain.ValidationError{Field: "username", Reason: "must not be empty"}
	}
	if u.PlatformRole == "" {
		u.PlatformRole = domain.PlatformMember
	}
	if u.OrgRole == domain.OrgNone && (tenantID != "" || !s.multiTenant()) {
		u.OrgRole = domain.OrgMember
	}
	if err = s.validateRoles(u.PlatformRole, u.OrgRole, tenantID); err != nil {
		return nil, err
	}
	if u.PlatformRole != domain.PlatformMember && !authz.CanManagePlatform(c.PlatformRole) {
		return nil, &domain.PermissionError{Action: "grant platform roles"}
	}

	if u.PasswordHash, err = auth.HashPassword(in.Password); err != nil {
		return nil, err
	}

	if tenantID != "" {
		t, err := s.tenants.GetByID(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("accounts.Users.Create: %w", err)
		}
		n, err := s.repo.CountByTenant(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("accounts.Users.Create: %w", err)
		}
		if err = CheckSeat(t, n); err != nil {
			return nil, err
		}
	}

	if _, err = s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("accounts.Users.Create: %w", err)
	}

	log.Info().Str("user_id", u.ID).Str("tenant_id", tenantID).Str("by", c.UserID).Msg("user created")
	return u, nil
}

// List returns the users of tenantID, or of the caller's organization when
// tenantID is empty.
func (s *Users) List(ctx context.Context, tenantID string) ([]*domain.User, error) {
	c, err := authz.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if tenantID == "" || !s.multiTenant() {
		tenantID = c.TenantID
	}
	if !authz.CanManageOrganizationUsers(c.PlatformRole, c.OrgRole, c.TenantID, tenantID) {
		return nil, &domain.PermissionError{Action: "list users of this organization"}
	}

	users, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("accounts.Users.List: %w", err)
	}
	return users, nil
}

// Get returns a user the caller is, or may manage. Anything else is reported
// as not found.
func (s *Users) Get(ctx context.Context, id string) (*domain.User, error) {
	c, err := authz.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}
	return s.visible(ctx, c, id)
}

func (s *Users) visible(ctx context.Context, c authz.Caller, id string) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("accounts.Users: %w", err)
	}
	if u.ID != c.UserID && !authz.CanManageOrganizationUsers(c.PlatformRole, c.OrgRole, c.TenantID, u.TenantID) {
		return nil, &domain.NotFoundError{Resource: "user", ID: id}
	}
	return u, nil
}

// UpdateProfile edits contact details and favorites. Favorites must name a
// team or player of the user's own organization; an empty id clears one.
func (s *Users) UpdateProfile(ctx context.Context, id string, patch domain.UserProfilePatch) (*domain.User, error) {
	c, err := authz.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.visible(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return u, nil
	}

	if setsReference(patch.FavoriteTeamID) || setsReference(patch.FavoritePlayerID) {
		rctx, err := s.tenantContext(ctx, u)
		if err != nil {
			return nil, err
		}
		if setsReference(patch.FavoriteTeamID) {
			if err = s.refs.Check(rctx, "favorite_team_id", catalog.TableTeams, *patch.FavoriteTeamID); err != nil {
				return nil, err
			}
		}
		if setsReference(patch.FavoritePlayerID) {
			if err = s.refs.Check(rctx, "favorite_player_id", catalog.TablePlayers, *patch.FavoritePlayerID); err != nil {
				return nil, err
			}
		}
	}

	ok, err := s.repo.UpdateProfile(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("accounts.Users.UpdateProfile: %w", err)
	}
	if !ok {
		return nil, &domain.NotFoundError{Resource: "user", ID: id}
	}
	return s.repo.GetByID(ctx, id)
}

// tenantContext returns ctx bound to u's organization, replacing whatever
// tenant the request resolved to.
func (s *Users) tenantContext(ctx context.Context, u *domain.User) (context.Context, error) {
	if !s.multiTenant() {
		return ctx, nil
	}
	if u.TenantID == "" {
		return nil, &domain.ValidationError{Field: "favorites", Reason: "users without an organization have no catalog"}
	}
	t, err := s.tenants.GetByID(ctx, u.TenantID)
	if err != nil {
		return nil, fmt.Errorf("accounts.Users: %w", err)
	}
	return tenancy.WithTenant(ctx, t.Context()), nil
}

// AssignRoles sets both role dimensions of a user.
func (s *Users) AssignRoles(ctx context.Context, id string, platform domain.PlatformRole, org domain.OrgRole) (*domain.User, error) {
	c, err := authz.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.visible(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if err = s.validateRoles(platform, org, u.TenantID); err != nil {
		return nil, err
	}
	if !authz.CanAssignRoles(c, u, platform, org) {
		return nil, &domain.PermissionError{Action: "assign these roles"}
	}

	ok, err := s.repo.UpdateRoles(ctx, id, platform, org)
	if err != nil {
		return nil, fmt.Errorf("accounts.Users.AssignRoles: %w", err)
	}
	if !ok {
		return nil, &domain.NotFoundError{Resource: "user", ID: id}
	}

	log.Info().Str("user_id", id).Str("platform_role", string(platform)).Str("org_role", string(org)).
		Str("by", c.UserID).Msg("roles assigned")
	return s.repo.GetByID(ctx, id)
}

// Delete removes a user. Nobody can delete their own account.
func (s *Users) Delete(ctx context.Context, id string) error {
	c, err := authz.RequireCaller(ctx)
	if err != nil {
		return err
	}
	if id == c.UserID {
		return &domain.PermissionError{Action: "delete your own account"}
	}

	u, err := s.visible(ctx, c, id)
	if err != nil {
		return err
	}
	if !authz.CanDeleteUser(c, u.ID, u.TenantID) {
		return &domain.PermissionError{Action: "delete this user"}
	}

	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("accounts.Users.Delete: %w", err)
	}
	if !ok {
		return &domain.NotFoundError{Resource: "user", ID: id}
	}

	log.Info().Str("user_id", id).Str("by", c.UserID).Msg("user deleted")
	return nil
}

// validateRoles checks role values against the user's organization
// membership.
func (s *Users) validateRoles(platform domain.PlatformRole, org domain.OrgRole, tenantID string) error {
	if !platform.Valid() {
		return &domain.ValidationError{Field: "platform_role", Reason: fmt.Sprintf("unknown role %q", platform)}
	}
	switch {
	case org != domain.OrgNone && !org.Valid():
		return &domain.ValidationError{Field: "organization_role", Reason: fmt.Sprintf("unknown role %q", org)}
	case s.multiTenant() && tenantID == "" && org != domain.OrgNone:
		return &domain.ValidationError{Field: "organization_role", Reason: "user has no organization"}
	case (tenantID != "" || !s.multiTenant()) && org == domain.OrgNone:
		return &domain.ValidationError{Field: "organization_role", Reason: "organization members need a role"}
	}
	return nil
}

func setsReference(id *string) bool { return id != nil && *id != "" }
