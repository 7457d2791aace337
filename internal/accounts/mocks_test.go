package accounts_test

import (
	"context"
	"strconv"
	"sync"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/tenancy"
)

// memUsers is an in-memory domain.UserRepository.
type memUsers struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
}

func newMemUsers(seed ...*domain.User) *memUsers {
	m := &memUsers{users: map[string]*domain.User{}}
	for _, u := range seed {
		m.seq++
		if u.ID == "" {
			u.ID = strconv.Itoa(m.seq)
		}
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, u *domain.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if other.Username == u.Username {
			return "", &domain.StorageError{Op: "insert", Backend: "mem", Unique: true}
		}
	}
	m.seq++
	u.ID = "u" + strconv.Itoa(m.seq)
	cp := *u
	m.users[u.ID] = &cp
	return u.ID, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "user", ID: id}
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "user", ID: username}
}

func (m *memUsers) List(_ context.Context, tenantID string) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.User
	for _, u := range m.users {
		if u.TenantID == tenantID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memUsers) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	users, err := m.List(ctx, tenantID)
	return len(users), err
}

func (m *memUsers) UpdateProfile(_ context.Context, id string, p domain.UserProfilePatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.DisplayName != nil {
		u.DisplayName = *p.DisplayName
	}
	if p.FavoriteTeamID != nil {
		u.FavoriteTeamID = emptyToNil(*p.FavoriteTeamID)
	}
	if p.FavoritePlayerID != nil {
		u.FavoritePlayerID = emptyToNil(*p.FavoritePlayerID)
	}
	return true, nil
}

func (m *memUsers) UpdateRoles(_ context.Context, id string, platform domain.PlatformRole, org domain.OrgRole) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	u.PlatformRole, u.OrgRole = platform, org
	return true, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	u.PasswordHash = hash
	return true, nil
}

func (m *memUsers) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	delete(m.users, id)
	return ok, nil
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mockTenantRepo lets each test stub only what it calls.
type mockTenantRepo struct {
	createFn    func(ctx context.Context, t *domain.Tenant) (string, error)
	getByIDFn   func(ctx context.Context, id string) (*domain.Tenant, error)
	getBySlugFn func(ctx context.Context, slug string) (*domain.Tenant, error)
	updateFn    func(ctx context.Context, id string, patch domain.TenantPatch) (bool, error)
	setStatusFn func(ctx context.Context, id string, status domain.TenantStatus) (bool, error)
	listFn      func(ctx context.Context) ([]*domain.Tenant, error)
}

func (m *mockTenantRepo) Create(ctx context.Context, t *domain.Tenant) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, t)
	}
	t.ID = "t-new"
	return t.ID, nil
}

func (m *mockTenantRepo) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, &domain.NotFoundError{Resource: "tenant", ID: id}
}

func (m *mockTenantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, &domain.NotFoundError{Resource: "tenant", ID: slug}
}

func (m *mockTenantRepo) Update(ctx context.Context, id string, patch domain.TenantPatch) (bool, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return true, nil
}

func (m *mockTenantRepo) SetStatus(ctx context.Context, id string, status domain.TenantStatus) (bool, error) {
	if m.setStatusFn != nil {
		return m.setStatusFn(ctx, id, status)
	}
	return true, nil
}

func (m *mockTenantRepo) List(ctx context.Context) ([]*domain.Tenant, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// tenantsByID serves GetByID from a fixed set.
func tenantsByID(ts ...*domain.Tenant) func(context.Context, string) (*domain.Tenant, error) {
	return func(_ context.Context, id string) (*domain.Tenant, error) {
		for _, t := range ts {
			if t.ID == id {
				cp := *t
				return &cp, nil
			}
		}
		return nil, &domain.NotFoundError{Resource: "tenant", ID: id}
	}
}

type mockRefs struct {
	calls []string
	// known maps table/id pairs that resolve, keyed "table:id".
	known map[string]bool
}

func (m *mockRefs) Check(ctx context.Context, field, table, id string) error {
	m.calls = append(m.calls, tenancy.TenantID(ctx)+"/"+table+":"+id)
	if !m.known[table+":"+id] {
		return &domain.ReferenceError{Field: field, ID: id}
	}
	return nil
}

type mockInvalidator struct {
	slugs []string
	err   error
}

func (m *mockInvalidator) Invalidate(_ context.Context, slugs ...string) error {
	m.slugs = append(m.slugs, slugs...)
	return m.err
}
