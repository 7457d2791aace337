package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/cardvault/internal/authz"
	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/tenancy"
)

// TenantLookup maps a resolved slug to its tenant. *tenancy.Lookup
// satisfies it.
type TenantLookup interface {
	BySlug(ctx context.Context, slug string) (*domain.Tenant, error)
}

// Tenant attaches the tenant a request acts for. A slug named by the request
// (subdomain, path, header, query) wins; otherwise the tenant in the caller's
// token applies. Either way the tenant is looked up, so a suspended tenant is
// refused even while its tokens are still valid. Must run after Auth.
func Tenant(resolver *tenancy.Resolver, lookup TenantLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			caller, _ := authz.CallerFromContext(ctx)

			slug, ok := resolver.FromRequest(r)
			if !ok {
				tc, found := tokenTenant(ctx)
				if !found {
					next.ServeHTTP(w, r)
					return
				}
				slug = tc.Slug
			}

			t, err := lookup.BySlug(ctx, slug)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				problem(w, http.StatusNotFound, "unknown tenant")
				return
			case err != nil:
				log.Error().Err(err).Str("tenant_slug", slug).Msg("middleware: tenant lookup failed")
				problem(w, http.StatusServiceUnavailable, "tenant lookup unavailable")
				return
			}

			// A foreign tenant answers like a missing one.
			if !authz.CanViewTenantData(caller.PlatformRole, caller.TenantID, t.ID) {
				problem(w, http.StatusNotFound, "unknown tenant")
				return
			}
			if !t.Status.AllowsLogin() && !authz.CanManagePlatform(caller.PlatformRole) {
				problem(w, http.StatusForbidden, (&domain.TenantStatusError{Slug: t.Slug, Status: t.Status}).Error())
				return
			}

			ctx = tenancy.WithTenant(ctx, t.Context())
			zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("tenant_id", t.ID)
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenTenant(ctx context.Context) (domain.TenantContext, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return domain.TenantContext{}, false
	}
	return claims.Tenant()
}

// RequireTenant rejects requests that reach tenant-owned routes without a
// tenant context.
func RequireTenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := tenancy.FromContext(r.Context()); !ok {
				problem(w, http.StatusForbidden, "valid tenant required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
