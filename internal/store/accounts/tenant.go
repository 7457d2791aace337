// Package accounts persists tenants and users. Neither table is tenant-owned,
// so statements here go straight to the adapter; callers scope by tenant
// explicitly.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
)

var tenantColumns = []string{"id", "name", "slug", "subscription_tier", "max_users", "status", "created_at", "updated_at"}

type TenantRepo struct {
	db *store.Adapter
}

var _ domain.TenantRepository = (*TenantRepo)(nil)

func NewTenantRepo(db *store.Adapter) *TenantRepo {
	return &TenantRepo{db: db}
}

func scanTenant(row store.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Tier, &t.MaxUsers, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepo) Create(ctx context.Context, t *domain.Tenant) (string, error) {
	now := time.Now().UTC()
	stmt, err := store.Build(sq.Insert("tenants").
		Columns("name", "slug", "subscription_tier", "max_users", "status", "created_at", "updated_at").
		Values(t.Name, t.Slug, t.Tier, t.MaxUsers, t.Status, now, now))
	if err != nil {
		return "", fmt.Errorf("tenantRepo.Create: %w", err)
	}

	res, err := r.db.Execute(ctx, stmt)
	if err != nil {
		return "", fmt.Errorf("tenantRepo.Create: %w", err)
	}
	t.ID = res.GeneratedID
	t.CreatedAt, t.UpdatedAt = now, now
	return res.GeneratedID, nil
}

func (r *TenantRepo) getBy(ctx context.Context, op, column, value string) (*domain.Tenant, error) {
	stmt, err := store.Build(sq.Select(tenantColumns...).From("tenants").Where(sq.Eq{column: value}))
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.%s: %w", op, err)
	}

	var t domain.Tenant
	err = r.db.FetchOne(ctx, stmt, &t.ID, &t.Name, &t.Slug, &t.Tier, &t.MaxUsers, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.%s: %w", op, notFound(err, "tenant", value))
	}
	return &t, nil
}

func (r *TenantRepo) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	if !r.db.ValidID(id) {
		return nil, &domain.NotFoundError{Resource: "tenant", ID: id}
	}
	return r.getBy(ctx, "GetByID", "id", id)
}

func (r *TenantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return r.getBy(ctx, "GetBySlug", "slug", slug)
}

func (r *TenantRepo) Update(ctx context.Context, id string, patch domain.TenantPatch) (bool, error) {
	if !r.db.ValidID(id) {
		return false, nil
	}

	set := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Slug != nil {
		set["slug"] = *patch.Slug
	}
	if patch.Tier != nil {
		set["subscription_tier"] = *patch.Tier
	}
	if patch.MaxUsers != nil {
		set["max_users"] = *patch.MaxUsers
	}

	stmt, err := store.Build(sq.Update("tenants").SetMap(set).Where(sq.Eq{"id": id}))
	if err != nil {
		return false, fmt.Errorf("tenantRepo.Update: %w", err)
	}
	res, err := r.db.Execute(ctx, stmt)
	if err != nil {
		return false, fmt.Errorf("tenantRepo.Update: %w", err)
	}
	return res.RowsAffected > 0, nil
}

func (r *TenantRepo) SetStatus(ctx context.Context, id string, status domain.TenantStatus) (bool, error) {
	if !r.db.ValidID(id) {
		return false, nil
	}

	stmt, err := store.Build(sq.Update("tenants").
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return false, fmt.Errorf("tenantRepo.SetStatus: %w", err)
	}
	res, err := r.db.Execute(ctx, stmt)
	if err != nil {
		return false, fmt.Errorf("tenantRepo.SetStatus: %w", err)
	}
	return res.RowsAffected > 0, nil
}

func (r *TenantRepo) List(ctx context.Context) ([]*domain.Tenant, error) {
	stmt, err := store.Build(sq.Select(tenantColumns...).From("tenants").OrderBy("name", "id"))
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.List: %w", err)
	}

	tenants := []*domain.Tenant{}
	err = r.db.FetchAll(ctx, stmt, func(rows store.Rows) error {
		t, scanErr := scanTenant(rows)
		if scanErr != nil {
			return scanErr
		}
		tenants = append(tenants, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.List: %w", err)
	}
	return tenants, nil
}

// notFound turns store.ErrNoRows into a typed not-found error.
func notFound(err error, resource, id string) error {
	if errors.Is(err, store.ErrNoRows) {
		return &domain.NotFoundError{Resource: resource, ID: id}
	}
	return err
}
