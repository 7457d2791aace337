package v1_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gosuda/cardvault/internal/accounts"
	"github.com/gosuda/cardvault/internal/auth"
	"github.com/gosuda/cardvault/internal/authz"
	"github.com/gosuda/cardvault/internal/catalog"
	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/tenancy"
)

// ---------------------------------------------------------------------------
// Context helpers: inject caller and tenant for DoCtx
// ---------------------------------------------------------------------------

var acmeCtx = domain.TenantContext{ID: "t1", Slug: "acme", Name: "Acme"}

func memberCtx() context.Context {
	ctx := authz.WithCaller(context.Background(), authz.Caller{
		UserID: "3", Username: "bob", PlatformRole: domain.PlatformMember, OrgRole: domain.OrgMember, TenantID: "t1",
	})
	return tenancy.WithTenant(ctx, acmeCtx)
}

func orgAdminCtx() context.Context {
	ctx := authz.WithCaller(context.Background(), authz.Caller{
		UserID: "2", Username: "alice", PlatformRole: domain.PlatformMember, OrgRole: domain.OrgAdmin, TenantID: "t1",
	})
	return tenancy.WithTenant(ctx, acmeCtx)
}

func platformAdminCtx() context.Context {
	return authz.WithCaller(context.Background(), authz.Caller{
		UserID: "1", Username: "root", PlatformRole: domain.PlatformAdmin,
	})
}

func decode[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(r).Decode(&v))
	return v
}

func ptr[T any](v T) *T { return &v }

// problemBody is the part of huma's error model the tests look at.
type problemBody struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Errors []struct {
		Message  string `json:"message"`
		Location string `json:"location"`
		Value    any    `json:"value"`
	} `json:"errors"`
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	loginFunc          func(ctx context.Context, username, password string) (*auth.Session, error)
	refreshFunc        func(ctx context.Context, refreshToken string) (*auth.Session, error)
	changePasswordFunc func(ctx context.Context, userID, current, next string) error
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*auth.Session, error) {
	return m.loginFunc(ctx, username, password)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	return m.refreshFunc(ctx, refreshToken)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	return m.changePasswordFunc(ctx, userID, current, next)
}

// ---------------------------------------------------------------------------
// Mock catalog services
// ---------------------------------------------------------------------------

type mockCatalog[T, In, P any] struct {
	listFunc   func(ctx context.Context) ([]*T, error)
	getFunc    func(ctx context.Context, id string) (*T, error)
	createFunc func(ctx context.Context, in In) (string, error)
	updateFunc func(ctx context.Context, id string, p P) (bool, error)
	deleteFunc func(ctx context.Context, id string) (bool, error)
}

func (m *mockCatalog[T, In, P]) List(ctx context.Context) ([]*T, error) { return m.listFunc(ctx) }
func (m *mockCatalog[T, In, P]) Get(ctx context.Context, id string) (*T, error) {
	return m.getFunc(ctx, id)
}
func (m *mockCatalog[T, In, P]) Create(ctx context.Context, in In) (string, error) {
	return m.createFunc(ctx, in)
}
func (m *mockCatalog[T, In, P]) Update(ctx context.Context, id string, p P) (bool, error) {
	return m.updateFunc(ctx, id, p)
}
func (m *mockCatalog[T, In, P]) Delete(ctx context.Context, id string) (bool, error) {
	return m.deleteFunc(ctx, id)
}

type mockCards struct {
	mockCatalog[domain.Card, domain.CardInput, domain.CardPatch]
	findFunc func(ctx context.Context, f catalog.CardFilter) ([]*domain.Card, error)
}

func (m *mockCards) Find(ctx context.Context, f catalog.CardFilter) ([]*domain.Card, error) {
	return m.findFunc(ctx, f)
}

// ---------------------------------------------------------------------------
// Mock UserService
// ---------------------------------------------------------------------------

type mockUsers struct {
	createFunc        func(ctx context.Context, in accounts.NewUser) (*domain.User, error)
	listFunc          func(ctx context.Context, tenantID string) ([]*domain.User, error)
	getFunc           func(ctx context.Context, id string) (*domain.User, error)
	updateProfileFunc func(ctx context.Context, id string, p domain.UserProfilePatch) (*domain.User, error)
	assignRolesFunc   func(ctx context.Context, id string, platform domain.PlatformRole, org domain.OrgRole) (*domain.User, error)
	deleteFunc        func(ctx context.Context, id string) error
}

func (m *mockUsers) Create(ctx context.Context, in accounts.NewUser) (*domain.User, error) {
	return m.createFunc(ctx, in)
}
func (m *mockUsers) List(ctx context.Context, tenantID string) ([]*domain.User, error) {
	return m.listFunc(ctx, tenantID)
}
func (m *mockUsers) Get(ctx context.Context, id string) (*domain.User, error) {
	return m.getFunc(ctx, id)
}
func (m *mockUsers) UpdateProfile(ctx context.Context, id string, p domain.UserProfilePatch) (*domain.User, error) {
	return m.updateProfileFunc(ctx, id, p)
}
func (m *mockUsers) AssignRoles(ctx context.Context, id string, platform domain.PlatformRole, org domain.OrgRole) (*domain.User, error) {
	return m.assignRolesFunc(ctx, id, platform, org)
}
func (m *mockUsers) Delete(ctx context.Context, id string) error { return m.deleteFunc(ctx, id) }

// ---------------------------------------------------------------------------
// Mock TenantService
// ---------------------------------------------------------------------------

type mockTenants struct {
	createFunc    func(ctx context.Context, in accounts.NewTenant) (*domain.Tenant, error)
	listFunc      func(ctx context.Context) ([]*domain.Tenant, error)
	getFunc       func(ctx context.Context, id string) (*domain.Tenant, error)
	updateFunc    func(ctx context.Context, id string, p domain.TenantPatch) (*domain.Tenant, error)
	setStatusFunc func(ctx context.Context, id string, s domain.TenantStatus) (*domain.Tenant, error)
}

func (m *mockTenants) Create(ctx context.Context, in accounts.NewTenant) (*domain.Tenant, error) {
	return m.createFunc(ctx, in)
}
func (m *mockTenants) List(ctx context.Context) ([]*domain.Tenant, error) { return m.listFunc(ctx) }
func (m *mockTenants) Get(ctx context.Context, id string) (*domain.Tenant, error) {
	return m.getFunc(ctx, id)
}
func (m *mockTenants) Update(ctx context.Context, id string, p domain.TenantPatch) (*domain.Tenant, error) {
	return m.updateFunc(ctx, id, p)
}
func (m *mockTenants) SetStatus(ctx context.Context, id string, s domain.TenantStatus) (*domain.Tenant, error) {
	return m.setStatusFunc(ctx, id, s)
}
