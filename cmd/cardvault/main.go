package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/cardvault/internal/accounts"
	"github.com/gosuda/cardvault/internal/auth"
	"github.com/gosuda/cardvault/internal/catalog"
	"github.com/gosuda/cardvault/internal/config"
	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/metrics"
	"github.com/gosuda/cardvault/internal/server"
	"github.com/gosuda/cardvault/internal/store"
	storeaccounts "github.com/gosuda/cardvault/internal/store/accounts"
	"github.com/gosuda/cardvault/internal/store/postgres"
	redisstore "github.com/gosuda/cardvault/internal/store/redis"
	"github.com/gosuda/cardvault/internal/store/sqlite"
	"github.com/gosuda/cardvault/internal/tenancy"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger
}

// opener builds the driver for a mode and brings its schema up to date.
func opener(cfg *config.Config) store.Opener {
	return func(ctx context.Context, mode store.Mode) (store.Driver, error) {
		if !mode.MultiTenant() {
			d, err := sqlite.Open(ctx, cfg.SQLite.Path)
			if err != nil {
				return nil, err
			}
			if err = d.Migrate(); err != nil {
				_ = d.Close()
				return nil, err
			}
			return d, nil
		}

		db := cfg.Database
		if db.MaxConns < 0 || db.MaxConns > math.MaxInt32 || db.MinConns < 0 || db.MinConns > math.MaxInt32 {
			return nil, fmt.Errorf("database pool bounds %d/%d out of int32 range", db.MinConns, db.MaxConns)
		}
		d, err := postgres.Open(ctx, postgres.Options{
			DSN:            db.DSN(),
			MaxConns:       int32(db.MaxConns), //nolint:gosec // bounds checked above
			MinConns:       int32(db.MinConns), //nolint:gosec // bounds checked above
			AcquireTimeout: db.AcquireTimeout,

			MaxConnIdleTime: db.MaxConnIdleTime,
			MaxConnLifetime: db.MaxConnLifetime,
		})
		if err != nil {
			return nil, err
		}
		if err = d.Migrate(); err != nil {
			_ = d.Close()
			return nil, err
		}
		return d, nil
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	multi := cfg.Mode.MultiTenant()

	factory := store.NewFactory(opener(cfg))
	db, err := factory.Instance(ctx, cfg.Mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := factory.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("closing store")
		}
	}()

	enforcer := tenancy.NewEnforcer(multi, cfg.Database.SessionMarker)

	users := storeaccounts.NewUserRepo(db)
	tenants := storeaccounts.NewTenantRepo(db)

	// The tenant cache is optional; without Redis every lookup reads the
	// tenants table.
	var (
		cache       tenancy.TenantCache
		invalidator accounts.SlugInvalidator
	)
	if multi && cfg.Redis.Addr != "" {
		rc, rerr := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TenantTTL)
		if rerr != nil {
			return rerr
		}
		defer rc.Close()
		cache, invalidator = rc, rc
	}

	// Single-tenant deployments have no tenants table.
	var (
		tenantGetter auth.TenantGetter
		userTenants  domain.TenantRepository
	)
	if multi {
		tenantGetter, userTenants = tenants, tenants
	}

	deps := server.Deps{
		Cards:         catalog.NewCardService(db, enforcer),
		Players:       catalog.NewPlayerService(db, enforcer),
		Teams:         catalog.NewTeamService(db, enforcer),
		Manufacturers: catalog.NewManufacturerService(db, enforcer),
		Users:         accounts.NewUsers(users, userTenants, catalog.NewReferences(db, enforcer)),
		Store:         db,
		Gatherer:      prometheus.DefaultGatherer,
	}
	if multi {
		deps.Lookup = tenancy.NewLookup(tenants, cache)
		deps.Tenants = accounts.NewTenants(tenants, invalidator)
	}
	deps.Auth = auth.NewService(users, tenantGetter, cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	if err = metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.New(ctx, cfg, deps)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("mode", string(cfg.Mode)).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
