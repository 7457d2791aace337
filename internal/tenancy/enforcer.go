package tenancy

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
)

// OwnedTables lists the tables whose rows belong to a tenant.
var OwnedTables = []string{"manufacturers", "teams", "players", "cards"}

// Enforcer confines statements against tenant-owned tables to the tenant in
// the request context.
//
// Every statement gets an explicit tenant predicate (or tenant_id column on
// insert). When the session marker is enabled and the backend supports it,
// the whole unit of work additionally runs on one pinned connection with the
// tenant marker set for row-level security.
type Enforcer struct {
	multiTenant   bool
	owned         map[string]struct{}
	sessionMarker atomic.Bool
}

func NewEnforcer(multiTenant, sessionMarker bool) *Enforcer {
	e := &Enforcer{multiTenant: multiTenant, owned: make(map[string]struct{}, len(OwnedTables))}
	for _, t := range OwnedTables {
		e.owned[t] = struct{}{}
	}
	e.sessionMarker.Store(multiTenant && sessionMarker)
	return e
}

func (e *Enforcer) MultiTenant() bool { return e.multiTenant }

// SessionMarker reports whether units of work are pinned with a tenant marker.
func (e *Enforcer) SessionMarker() bool { return e.sessionMarker.Load() }

func (e *Enforcer) isOwned(table string) bool {
	_, ok := e.owned[strings.ToLower(table)]
	return ok
}

// Apply rewrites stmt so it only touches rows of tenantID. In single-tenant
// mode the statement is returned unchanged.
func (e *Enforcer) Apply(stmt store.Statement, tenantID string) (store.Statement, error) {
	if !e.multiTenant {
		return stmt, nil
	}
	if tenantID == "" {
		return store.Statement{}, domain.ErrTenantRequired
	}
	return rewrite(stmt, tenantID, e.isOwned)
}

// Do runs fn with a Scope bound to the tenant in ctx.
func (e *Enforcer) Do(ctx context.Context, a *store.Adapter, fn func(*Scope) error) error {
	if !e.multiTenant {
		return fn(&Scope{adapter: a, enforcer: e})
	}

	tc, ok := FromContext(ctx)
	if !ok {
		return domain.ErrTenantRequired
	}

	if e.sessionMarker.Load() && a.SupportsSessionMarker() {
		if a.ValidID(tc.ID) {
			return a.Pin(ctx, tc.ID, func(pinned *store.Adapter) error {
				return fn(&Scope{adapter: pinned, enforcer: e, tenantID: tc.ID})
			})
		}
		if e.sessionMarker.CompareAndSwap(true, false) {
			log.Warn().Str("tenant_slug", tc.Slug).Msg("tenancy: malformed tenant id, session marker disabled; explicit tenant filtering only")
		}
	}

	return fn(&Scope{adapter: a, enforcer: e, tenantID: tc.ID})
}

// Scope executes statements confined to one tenant. It is only valid inside
// the Enforcer.Do callback that produced it.
type Scope struct {
	adapter  *store.Adapter
	enforcer *Enforcer
	tenantID string
}

// TenantID returns the tenant the scope is bound to, or "" in single-tenant
// mode.
func (s *Scope) TenantID() string { return s.tenantID }

func (s *Scope) Enforced() bool { return s.enforcer.multiTenant }

func (s *Scope) ValidID(id string) bool { return s.adapter.ValidID(id) }

func (s *Scope) Execute(ctx context.Context, stmt store.Statement) (store.Result, error) {
	scoped, err := s.enforcer.Apply(stmt, s.tenantID)
	if err != nil {
		return store.Result{}, err
	}
	return s.adapter.Execute(ctx, scoped)
}

func (s *Scope) FetchOne(ctx context.Context, stmt store.Statement, dest ...any) error {
	scoped, err := s.enforcer.Apply(stmt, s.tenantID)
	if err != nil {
		return err
	}
	return s.adapter.FetchOne(ctx, scoped, dest...)
}

func (s *Scope) FetchAll(ctx context.Context, stmt store.Statement, scan func(store.Rows) error) error {
	scoped, err := s.enforcer.Apply(stmt, s.tenantID)
	if err != nil {
		return err
	}
	return s.adapter.FetchAll(ctx, scoped, scan)
}
