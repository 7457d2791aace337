package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"

	v1 "github.com/gosuda/cardvault/internal/api/v1"
	"github.com/gosuda/cardvault/internal/config"
	"github.com/gosuda/cardvault/internal/metrics"
	"github.com/gosuda/cardvault/internal/server/middleware"
	"github.com/gosuda/cardvault/internal/tenancy"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AuthService issues sessions and validates access tokens. *auth.Service
// satisfies it.
type AuthService interface {
	v1.AuthService
	middleware.Authenticator
}

// Deps are the services the HTTP surface exposes. Lookup and Tenants are nil in
// single-tenant deployments.
type Deps struct {
	Auth          AuthService
	Lookup        middleware.TenantLookup
	Cards         v1.CardService
	Players       v1.PlayerService
	Teams         v1.TeamService
	Manufacturers v1.ManufacturerService
	Users         v1.UserService
	Tenants       v1.TenantService
	Store         Pinger
	Gatherer      prometheus.Gatherer
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with all routes wired. ctx bounds the background
// sweepers of the rate limiters.
func New(ctx context.Context, cfg *config.Config, deps Deps) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger)
	router.Use(chimw.Recoverer)
	router.Use(metrics.Middleware)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", tenancy.HeaderTenantSlug},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		},
	}

	// Mount API routes on /api/v1 with two sub-groups:
	// 1. Unauthenticated group for login and refresh.
	// 2. Authenticated group for everything else.
	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, cfg.Server.RateLimit, cfg.Server.RateBurst))
			registerAuthRoutes(humachi.New(r, apiConfig("cardvault Auth API", "/api/v1", false)), deps)
		})
		r.Group(func(r chi.Router) {
			mountAPI(ctx, r, cfg, deps, "/api/v1", true)
		})
	})

	// Multi-tenant deployments also serve the API under a leading tenant
	// segment, which the resolver reads as the tenant slug.
	if deps.Lookup != nil {
		router.Route("/{tenant}/api/v1", func(r chi.Router) {
			mountAPI(ctx, r, cfg, deps, "/{tenant}/api/v1", false)
		})
	}

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Auth))
		r.Use(middleware.RequirePlatformDashboards())
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	})

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if deps.Store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Store.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// mountAPI registers the authenticated API on r.
func mountAPI(ctx context.Context, r chi.Router, cfg *config.Config, deps Deps, prefix string, docs bool) {
	r.Use(middleware.Auth(deps.Auth))
	if deps.Lookup != nil {
		resolver := tenancy.NewResolver(cfg.Tenancy.BaseDomain, cfg.Tenancy.ReservedSubdomains, cfg.Tenancy.AllowQuery)
		r.Use(middleware.Tenant(resolver, deps.Lookup))
	}
	r.Use(middleware.RateLimit(ctx, cfg.Server.RateLimit, cfg.Server.RateBurst))
	registerAPIRoutes(humachi.New(r, apiConfig("cardvault API", prefix, docs)), deps)
}

// apiConfig builds the huma config for one route group. Groups sharing a mux
// must leave the OpenAPI document to one of them.
func apiConfig(title, prefix string, docs bool) huma.Config {
	c := huma.DefaultConfig(title, "1.0.0")
	c.Servers = []*huma.Server{{URL: prefix}}
	if !docs {
		c.OpenAPIPath = ""
		c.DocsPath = ""
		c.SchemasPath = ""
	}
	return c
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
