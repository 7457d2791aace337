package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
)

var userColumns = []string{
	"id", "username", "email", "display_name", "password_hash", "platform_role",
	"tenant_id", "organization_role", "favorite_team_id", "favorite_player_id",
	"created_at", "updated_at",
}

type UserRepo struct {
	db *store.Adapter
}

var _ domain.UserRepository = (*UserRepo)(nil)

func NewUserRepo(db *store.Adapter) *UserRepo {
	return &UserRepo{db: db}
}

func scanUser(row store.Row) (*domain.User, error) {
	var u domain.User
	var email, displayName, tenantID *string
	err := row.Scan(&u.ID, &u.Username, &email, &displayName, &u.PasswordHash, &u.PlatformRole,
		&tenantID, &u.OrgRole, &u.FavoriteTeamID, &u.FavoritePlayerID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Email = derefStr(email)
	u.DisplayName = derefStr(displayName)
	u.TenantID = derefStr(tenantID)
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) (string, error) {
	now := time.Now().UTC()
	stmt, err := store.Build(sq.Insert("users").
		Columns("username", "email", "display_name", "password_hash", "platform_role",
			"tenant_id", "organization_role", "created_at", "updated_at").
		Values(u.Username, nilIfEmpty(u.Email), nilIfEmpty(u.DisplayName), u.PasswordHash, u.PlatformRole,
			nilIfEmpty(u.TenantID), u.OrgRole, now, now))
	if err != nil {
		return "", fmt.Errorf("userRepo.Create: %w", err)
	}

	res, err := r.db.Execute(ctx, stmt)
	if err != nil {
		return "", fmt.Errorf("userRepo.Create: %w", err)
	}
	u.ID = res.GeneratedID
	u.CreatedAt, u.UpdatedAt = now, now
	return res.GeneratedID, nil
}

func (r *UserRepo) fetch(ctx context.Context, op string, where sq.Sqlizer, id string) (*domain.User, error) {
	stmt, err := store.Build(sq.Select(userColumns...).From("users").Where(where))
	if err != nil {
		return nil, fmt.Errorf("userRepo.%s: %w", op, err)
	}

	var u *domain.User
	err = r.db.FetchAll(ctx, stmt, func(rows store.Rows) error {
		var scanErr error
		u, scanErr = scanUser(rows)
		return scanErr
	})
	if err != nil {
		return nil, fmt.Errorf("userRepo.%s: %w", op, err)
	}
	if u == nil {
		return nil, fmt.Errorf("userRepo.%s: %w", op, &domain.NotFoundError{Resource: "user", ID: id})
	}
	return u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !r.db.ValidID(id) {
		return nil, &domain.NotFoundError{Resource: "user", ID: id}
	}
	return r.fetch(ctx, "GetByID", sq.Eq{"id": id}, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.fetch(ctx, "GetByUsername", sq.Expr("lower(username) = ?", strings.ToLower(username)), username)
}

func (r *UserRepo) List(ctx context.Context, tenantID string) ([]*domain.User, error) {
	stmt, err := store.Build(sq.Select(userColumns...).From("users").Where(tenantEq(tenantID)).OrderBy("username", "id"))
	if err != nil {
		return nil, fmt.Errorf("userRepo.List: %w", err)
	}

	users := []*domain.User{}
	err = r.db.FetchAll(ctx, stmt, func(rows store.Rows) error {
		u, scanErr := scanUser(rows)
		if scanErr != nil {
			return scanErr
		}
		users = append(users, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("userRepo.List: %w", err)
	}
	return users, nil
}

func (r *UserRepo) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	stmt, err := store.Build(sq.Select("COUNT(*)").From("users").Where(tenantEq(tenantID)))
	if err != nil {
		return 0, fmt.Errorf("userRepo.CountByTenant: %w", err)
	}

	var n int
	if err = r.db.FetchOne(ctx, stmt, &n); err != nil {
		return 0, fmt.Errorf("userRepo.CountByTenant: %w", err)
	}
	return n, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, patch domain.UserProfilePatch) (bool, error) {
	set := map[string]any{}
	if patch.Email != nil {
		set["email"] = nilIfEmpty(*patch.Email)
	}
	if patch.DisplayName != nil {
		set["display_name"] = nilIfEmpty(*patch.DisplayName)
	}
	if patch.FavoriteTeamID != nil {
		set["favorite_team_id"] = nilIfEmpty(*patch.FavoriteTeamID)
	}
	if patch.FavoritePlayerID != nil {
		set["favorite_player_id"] = nilIfEmpty(*patch.FavoritePlayerID)
	}
	return r.update(ctx, "UpdateProfile", id, set)
}

func (r *UserRepo) UpdateRoles(ctx context.Context, id string, platform domain.PlatformRole, org domain.OrgRole) (bool, error) {
	return r.update(ctx, "UpdateRoles", id, map[string]any{
		"platform_role":     platform,
		"organization_role": org,
	})
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string) (bool, error) {
	return r.update(ctx, "UpdatePassword", id, map[string]any{"password_hash": hash})
}

func (r *UserRepo) update(ctx context.Context, op, id string, set map[string]any) (bool, error) {
	if !r.db.ValidID(id) {
		return false, nil
	}
	set["updated_at"] = time.Now().UTC()

	stmt, err := store.Build(sq.Update("users").SetMap(set).Where(sq.Eq{"id": id}))
	if err != nil {
		return false, fmt.Errorf("userRepo.%s: %w", op, err)
	}
	res, err := r.db.Execute(ctx, stmt)
	if err != nil {
		return false, fmt.Errorf("userRepo.%s: %w", op, err)
	}
	return res.RowsAffected > 0, nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) (bool, error) {
	if !r.db.ValidID(id) {
		return false, nil
	}

	stmt, err := store.Build(sq.Delete("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return false, fmt.Errorf("userRepo.Delete: %w", err)
	}
	res, err := r.db.Execute(ctx, stmt)
	if err != nil {
		return false, fmt.Errorf("userRepo.Delete: %w", err)
	}
	return res.RowsAffected > 0, nil
}

// tenantEq matches users of tenantID, or users without an organization when
// tenantID is empty.
func tenantEq(tenantID string) sq.Eq {
	if tenantID == "" {
		return sq.Eq{"tenant_id": nil}
	}
	return sq.Eq{"tenant_id": tenantID}
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
