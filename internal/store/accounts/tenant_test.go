package accounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
	"github.com/gosuda/cardvault/internal/store/accounts"
	"github.com/gosuda/cardvault/internal/store/sqlite"
)

func newMockRepo(t *testing.T) (*accounts.TenantRepo, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return accounts.NewTenantRepo(store.NewAdapter(sqlite.NewFromDB(db))), mock
}

const selectTenant = "SELECT id, name, slug, subscription_tier, max_users, status, created_at, updated_at FROM tenants"

func tenantRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "slug", "subscription_tier", "max_users", "status", "created_at", "updated_at"})
}

func TestTenantRepoCreate(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO tenants (name,slug,subscription_tier,max_users,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?)").
		WithArgs("Acme", "acme", "free", 5, "active", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	tn := &domain.Tenant{Name: "Acme", Slug: "acme", Tier: domain.TierFree, MaxUsers: 5, Status: domain.TenantActive}
	id, err := repo.Create(context.Background(), tn)
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, "42", tn.ID)
	assert.False(t, tn.CreatedAt.IsZero())
}

func TestTenantRepoGet(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("by slug", func(t *testing.T) {
		t.Parallel()

		repo, mock := newMockRepo(t)
		mock.ExpectQuery(selectTenant+" WHERE slug = ?").
			WithArgs("acme").
			WillReturnRows(tenantRows().AddRow("42", "Acme", "acme", "pro", 25, "suspended", now, now))

		got, err := repo.GetBySlug(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, "42", got.ID)
		assert.Equal(t, domain.TierPro, got.Tier)
		assert.Equal(t, 25, got.MaxUsers)
		assert.Equal(t, domain.TenantSuspended, got.Status)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()

		repo, mock := newMockRepo(t)
		mock.ExpectQuery(selectTenant + " WHERE id = ?").WithArgs("7").WillReturnRows(tenantRows())

		_, err := repo.GetByID(context.Background(), "7")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("malformed id never queries", func(t *testing.T) {
		t.Parallel()

		repo, _ := newMockRepo(t)
		_, err := repo.GetByID(context.Background(), "abc")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestTenantRepoUpdate(t *testing.T) {
	t.Parallel()

	t.Run("partial", func(t *testing.T) {
		t.Parallel()

		repo, mock := newMockRepo(t)
		mock.ExpectExec("UPDATE tenants SET max_users = ?, name = ?, updated_at = ? WHERE id = ?").
			WithArgs(50, "Acme Cards", sqlmock.AnyArg(), "42").
			WillReturnResult(sqlmock.NewResult(0, 1))

		name, seats := "Acme Cards", 50
		ok, err := repo.Update(context.Background(), "42", domain.TenantPatch{Name: &name, MaxUsers: &seats})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("status on missing tenant", func(t *testing.T) {
		t.Parallel()

		repo, mock := newMockRepo(t)
		mock.ExpectExec("UPDATE tenants SET status = ?, updated_at = ? WHERE id = ?").
			WithArgs("inactive", sqlmock.AnyArg(), "9").
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.SetStatus(context.Background(), "9", domain.TenantInactive)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestTenantRepoList(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(selectTenant + " ORDER BY name, id").
		WillReturnRows(tenantRows().
			AddRow("1", "Acme", "acme", "free", 5, "active", now, now).
			AddRow("2", "Beta", "beta", "enterprise", 500, "active", now, now))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "beta", got[1].Slug)
}
