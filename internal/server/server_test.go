package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/cardvault/internal/api/v1"
	"github.com/gosuda/cardvault/internal/auth"
	"github.com/gosuda/cardvault/internal/config"
	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/metrics"
	"github.com/gosuda/cardvault/internal/server"
	"github.com/gosuda/cardvault/internal/tenancy"
)

type fakeAuth struct {
	claims map[string]*auth.Claims
}

func (f *fakeAuth) Authenticate(token string) (*auth.Claims, error) {
	if c, ok := f.claims[token]; ok {
		return c, nil
	}
	return nil, auth.ErrInvalidToken
}

func (f *fakeAuth) Login(context.Context, string, string) (*auth.Session, error) {
	return nil, domain.ErrInvalidCredentials
}

func (f *fakeAuth) Refresh(context.Context, string) (*auth.Session, error) {
	return nil, auth.ErrInvalidToken
}

func (f *fakeAuth) ChangePassword(context.Context, string, string, string) error { return nil }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Addr:         ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			CORSOrigins:  []string{"http://localhost:5173"},
			RateLimit:    100,
			RateBurst:    100,
		},
	}
}

func newServer(t *testing.T, ping pingFunc) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	deps := server.Deps{
		Auth: &fakeAuth{claims: map[string]*auth.Claims{
			"admin":    {UserID: "1", PlatformRole: domain.PlatformAdmin},
			"operator": {UserID: "2", PlatformRole: domain.PlatformOperator},
			"member":   {UserID: "3", PlatformRole: domain.PlatformMember, OrgRole: domain.OrgMember},
		}},
		Gatherer: reg,
	}
	if ping != nil {
		deps.Store = ping
	}
	return server.New(ctx, testConfig(), deps).Handler()
}

func do(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	healthy := newServer(t, func(context.Context) error { return nil })
	rec := do(healthy, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	down := newServer(t, func(context.Context) error { return errors.New("connection refused") })
	rec = do(down, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRequiresDashboardRole(t *testing.T) {
	t.Parallel()

	h := newServer(t, nil)

	tests := []struct {
		token string
		want  int
	}{
		{"", http.StatusUnauthorized},
		{"bogus", http.StatusUnauthorized},
		{"member", http.StatusForbidden},
		{"operator", http.StatusOK},
		{"admin", http.StatusOK},
	}
	for _, tt := range tests {
		rec := do(h, http.MethodGet, "/metrics", tt.token, "")
		assert.Equal(t, tt.want, rec.Code, "token %q", tt.token)
	}

	// Earlier requests went through the metrics middleware.
	rec := do(h, http.MethodGet, "/metrics", "admin", "")
	assert.Contains(t, rec.Body.String(), "cardvault_http_requests_total")
}

func TestAPIRequiresAuthentication(t *testing.T) {
	t.Parallel()

	h := newServer(t, nil)

	rec := do(h, http.MethodGet, "/api/v1/cards", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Login is reachable without a token; the fake rejects every password.
	rec = do(h, http.MethodPost, "/api/v1/auth/login", "", `{"username":"bob","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid username or password")
}

type lookupFunc func(ctx context.Context, slug string) (*domain.Tenant, error)

func (f lookupFunc) BySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return f(ctx, slug)
}

// tenantTeams records the tenant each List call runs under.
type tenantTeams struct {
	v1.TeamService

	mu   sync.Mutex
	seen []string
}

func (f *tenantTeams) List(ctx context.Context) ([]*domain.Team, error) {
	tc, _ := tenancy.FromContext(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, tc.ID)
	return []*domain.Team{}, nil
}

func TestTenantPathPrefix(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	acme := &domain.Tenant{ID: "t1", Name: "Acme", Slug: "acme", Status: domain.TenantActive}
	teams := &tenantTeams{}
	deps := server.Deps{
		Auth: &fakeAuth{claims: map[string]*auth.Claims{
			"admin": {UserID: "1", PlatformRole: domain.PlatformAdmin},
		}},
		Lookup: lookupFunc(func(_ context.Context, slug string) (*domain.Tenant, error) {
			if slug == acme.Slug {
				return acme, nil
			}
			return nil, &domain.NotFoundError{Resource: "tenant", ID: slug}
		}),
		Teams:    teams,
		Gatherer: prometheus.NewRegistry(),
	}
	h := server.New(ctx, testConfig(), deps).Handler()

	rec := do(h, http.MethodGet, "/acme/api/v1/teams", "admin", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(h, http.MethodGet, "/nope/api/v1/teams", "admin", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodGet, "/acme/api/v1/teams", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodGet, "/api/v1/teams", "admin", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"t1", ""}, teams.seen)
}
