package middleware

import (
	"net/http"

	"github.com/gosuda/cardvault/internal/authz"
)

// Require returns middleware that lets a request through only when allow
// accepts its caller. It must be chained after Auth.
//
// Returns 401 Unauthorized when no caller is in context and 403 Forbidden
// when allow rejects the caller.
func Require(allow func(authz.Caller) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := authz.CallerFromContext(r.Context())
			if !ok {
				problem(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !allow(c) {
				problem(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePlatformDashboards admits platform admins and operators.
func RequirePlatformDashboards() func(http.Handler) http.Handler {
	return Require(func(c authz.Caller) bool {
		return authz.CanViewPlatformDashboards(c.PlatformRole)
	})
}
