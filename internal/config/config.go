package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/cardvault/internal/store"
	"github.com/gosuda/cardvault/internal/tenancy"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Mode     store.Mode
	SQLite   SQLiteConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Server   ServerConfig
	Tenancy  TenancyConfig
	Log      LogConfig
}

// SQLiteConfig holds the single-tenant database file location.
type SQLiteConfig struct {
	Path string
}

// DatabaseConfig holds PostgreSQL connection settings for multi-tenant mode.
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string //nolint:gosec // G117: DB connection config
	DBName         string
	SSLMode        string
	MaxConns       int
	MinConns       int
	AcquireTimeout time.Duration
	// MaxConnIdleTime and MaxConnLifetime bound how long pooled connections
	// are kept; zero keeps the pgx default.
	MaxConnIdleTime time.Duration
	MaxConnLifetime time.Duration
	// SessionMarker pins each unit of work to one connection and sets the
	// tenant marker used by row-level security.
	SessionMarker bool
}

// RedisConfig holds the optional tenant cache settings. An empty Addr
// disables the cache.
type RedisConfig struct {
	Addr      string
	Password  string //nolint:gosec // G117: Redis connection config
	DB        int
	TenantTTL time.Duration
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	// RateLimit is requests per second per tenant; RateBurst the bucket size.
	RateLimit float64
	RateBurst int
}

// TenancyConfig controls how a request names its tenant.
type TenancyConfig struct {
	BaseDomain         string
	ReservedSubdomains []string
	// AllowQuery enables the ?tenant= fallback. Meant for local debugging.
	AllowQuery bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables, after applying an
// optional .env file (CARDVAULT_ENV_FILE, default ".env"). Variables already
// set in the environment win over the file.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	if err := godotenv.Load(getEnv("CARDVAULT_ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: env file: %w", err)
	}

	mode, err := store.ParseMode(getEnv("CARDVAULT_MODE", string(store.ModeSingleTenant)))
	if err != nil {
		return nil, fmt.Errorf("config.Load: CARDVAULT_MODE: %w", err)
	}

	dbPort, err := getEnvInt("CARDVAULT_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("CARDVAULT_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMinConns, err := getEnvInt("CARDVAULT_DB_MIN_CONNS", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	acquireTimeout, err := getEnvDuration("CARDVAULT_DB_ACQUIRE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	maxConnIdle, err := getEnvDuration("CARDVAULT_DB_MAX_CONN_IDLE", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	maxConnLifetime, err := getEnvDuration("CARDVAULT_DB_MAX_CONN_LIFETIME", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	sessionMarker, err := getEnvBool("CARDVAULT_DB_SESSION_MARKER", true)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("CARDVAULT_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tenantTTL, err := getEnvDuration("CARDVAULT_REDIS_TENANT_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("CARDVAULT_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshTTL, err := getEnvDuration("CARDVAULT_JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("CARDVAULT_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("CARDVAULT_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateLimit, err := getEnvFloat("CARDVAULT_RATE_LIMIT", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateBurst, err := getEnvInt("CARDVAULT_RATE_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	allowQuery, err := getEnvBool("CARDVAULT_TENANT_QUERY", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Mode: mode,
		SQLite: SQLiteConfig{
			Path: getEnv("CARDVAULT_SQLITE_PATH", "cardvault.db"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("CARDVAULT_DB_HOST", "localhost"),
			Port:           dbPort,
			User:           getEnv("CARDVAULT_DB_USER", "cardvault"),
			Password:       getEnv("CARDVAULT_DB_PASSWORD", ""),
			DBName:         getEnv("CARDVAULT_DB_NAME", "cardvault"),
			SSLMode:        getEnv("CARDVAULT_DB_SSLMODE", "disable"),
			MaxConns:       dbMaxConns,
			MinConns:       dbMinConns,
			AcquireTimeout: acquireTimeout,
			SessionMarker:  sessionMarker,

			MaxConnIdleTime: maxConnIdle,
			MaxConnLifetime: maxConnLifetime,
		},
		Redis: RedisConfig{
			Addr:      getEnv("CARDVAULT_REDIS_ADDR", ""),
			Password:  getEnv("CARDVAULT_REDIS_PASSWORD", ""),
			DB:        redisDB,
			TenantTTL: tenantTTL,
		},
		JWT: JWTConfig{
			Secret:     getEnv("CARDVAULT_JWT_SECRET", ""),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("CARDVAULT_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("CARDVAULT_CORS_ORIGINS", []string{"http://localhost:5173"}),
			RateLimit:    rateLimit,
			RateBurst:    rateBurst,
		},
		Tenancy: TenancyConfig{
			BaseDomain:         getEnv("CARDVAULT_BASE_DOMAIN", ""),
			ReservedSubdomains: getEnvList("CARDVAULT_RESERVED_SUBDOMAINS", tenancy.DefaultReservedSubdomains),
			AllowQuery:         allowQuery,
		},
		Log: LogConfig{
			Level:  getEnv("CARDVAULT_LOG_LEVEL", "info"),
			Format: getEnv("CARDVAULT_LOG_FORMAT", "json"),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("CARDVAULT_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("CARDVAULT_JWT_SECRET must be at least 32 characters")
	}

	if c.Mode.MultiTenant() {
		if c.Database.SSLMode == "disable" {
			log.Warn().Msg("CARDVAULT_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("CARDVAULT_DB_PORT must be 1-65535, got %d", c.Database.Port)
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("CARDVAULT_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
		}
		if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
			return fmt.Errorf("CARDVAULT_DB_MIN_CONNS must be 0-%d, got %d", c.Database.MaxConns, c.Database.MinConns)
		}
		if c.Database.AcquireTimeout < 0 {
			return fmt.Errorf("CARDVAULT_DB_ACQUIRE_TIMEOUT must not be negative, got %s", c.Database.AcquireTimeout)
		}
		if c.Database.MaxConnIdleTime < 0 {
			return fmt.Errorf("CARDVAULT_DB_MAX_CONN_IDLE must not be negative, got %s", c.Database.MaxConnIdleTime)
		}
		if c.Database.MaxConnLifetime < 0 {
			return fmt.Errorf("CARDVAULT_DB_MAX_CONN_LIFETIME must not be negative, got %s", c.Database.MaxConnLifetime)
		}
	} else if c.SQLite.Path == "" {
		return errors.New("CARDVAULT_SQLITE_PATH is required in single-tenant mode")
	}

	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("CARDVAULT_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("CARDVAULT_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("CARDVAULT_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("CARDVAULT_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("CARDVAULT_RATE_LIMIT must be positive, got %g", c.Server.RateLimit)
	}
	if c.Server.RateBurst < 1 {
		return fmt.Errorf("CARDVAULT_RATE_BURST must be >= 1, got %d", c.Server.RateBurst)
	}
	if c.Redis.Addr != "" && c.Redis.TenantTTL <= 0 {
		return fmt.Errorf("CARDVAULT_REDIS_TENANT_TTL must be positive, got %s", c.Redis.TenantTTL)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("CARDVAULT_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	return nil
}

// DSN returns the PostgreSQL connection URL.
func (c *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
