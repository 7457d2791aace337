package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gosuda/cardvault/internal/auth"
	"github.com/gosuda/cardvault/internal/authz"
)

// Authenticator validates access tokens. *auth.Service satisfies it.
type Authenticator interface {
	Authenticate(token string) (*auth.Claims, error)
}

// Auth requires a bearer access token and stores the caller it names in the
// request context. The token's tenant is kept alongside as the fallback for
// tenant resolution.
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" {
				problem(w, http.StatusUnauthorized, "missing or invalid credentials")
				return
			}

			claims, err := a.Authenticate(tok)
			if err != nil {
				problem(w, http.StatusUnauthorized, "missing or invalid credentials")
				return
			}

			ctx := authz.WithCaller(r.Context(), claims.Caller())
			ctx = withClaims(ctx, claims)
			zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("user_id", claims.UserID)
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
