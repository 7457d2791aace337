package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/argon2"

	"github.com/gosuda/cardvault/internal/domain"
)

// argon2id parameters following OWASP recommendations.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

const MinPasswordLength = 8

// TenantGetter loads a user's tenant. It is nil in single-tenant deployments.
type TenantGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
}

// Session is the result of a successful login or refresh.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         *domain.User
	Tenant       *domain.TenantContext
}

// Service provides authentication operations.
type Service struct {
	users      domain.UserRepository
	tenants    TenantGetter
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewService creates a new auth service. tenants may be nil when the
// deployment is single-tenant.
func NewService(users domain.UserRepository, tenants TenantGetter, jwtSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		users:      users,
		tenants:    tenants,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Login verifies username and password and issues a session. Unknown users
// and wrong passwords fail identically with domain.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrNotFound) {
		// Burn the same work as a real verification.
		verifyPassword(password, dummyHash())
		return nil, fmt.Errorf("auth.Login: %w", domain.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	if !verifyPassword(password, user.PasswordHash) {
		return nil, fmt.Errorf("auth.Login: %w", domain.ErrInvalidCredentials)
	}

	tc, err := s.tenantFor(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	sess, err := s.issue(user, tc)
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	log.Info().Str("user_id", user.ID).Str("tenant_id", user.TenantID).Msg("auth: login")
	return sess, nil
}

// Refresh re-issues a session from a refresh token. Claims are rebuilt from
// the persisted user row, so role changes made since the last login apply
// and roles are never carried over from the old token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := ValidateToken(s.jwtSecret, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}
	if claims.TokenType != tokenTypeRefresh {
		return nil, fmt.Errorf("auth.Refresh: %w", ErrInvalidToken)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("auth.Refresh: %w", ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}

	tc, err := s.tenantFor(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}

	sess, err := s.issue(user, tc)
	if err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}
	return sess, nil
}

// Authenticate validates an access token for request middleware.
func (s *Service) Authenticate(token string) (*Claims, error) {
	claims, err := ValidateToken(s.jwtSecret, token)
	if err != nil {
		return nil, fmt.Errorf("auth.Authenticate: %w", err)
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, fmt.Errorf("auth.Authenticate: %w", ErrInvalidToken)
	}
	return claims, nil
}

// ChangePassword replaces the password of userID after verifying the current
// one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("auth.ChangePassword: %w", err)
	}
	if !verifyPassword(current, user.PasswordHash) {
		return fmt.Errorf("auth.ChangePassword: %w", domain.ErrInvalidCredentials)
	}

	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("auth.ChangePassword: %w", err)
	}
	ok, err := s.users.UpdatePassword(ctx, userID, hash)
	if err != nil {
		return fmt.Errorf("auth.ChangePassword: %w", err)
	}
	if !ok {
		return fmt.Errorf("auth.ChangePassword: %w", &domain.NotFoundError{Resource: "user", ID: userID})
	}
	return nil
}

// tenantFor loads the user's tenant and applies status gating. Platform
// admins are exempt from gating.
func (s *Service) tenantFor(ctx context.Context, user *domain.User) (*domain.TenantContext, error) {
	if s.tenants == nil || user.TenantID == "" {
		return nil, nil
	}

	t, err := s.tenants.GetByID(ctx, user.TenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) && user.PlatformRole == domain.PlatformAdmin {
			return nil, nil
		}
		return nil, err
	}

	if !t.Status.AllowsLogin() && user.PlatformRole != domain.PlatformAdmin {
		return nil, &domain.TenantStatusError{Slug: t.Slug, Status: t.Status}
	}

	tc := t.Context()
	return &tc, nil
}

func (s *Service) issue(user *domain.User, tc *domain.TenantContext) (*Session, error) {
	now := s.now()

	access, err := signClaims(s.jwtSecret, newClaims(user, tc, tokenTypeAccess, now, s.accessTTL))
	if err != nil {
		return nil, err
	}
	refresh, err := signClaims(s.jwtSecret, newClaims(user, tc, tokenTypeRefresh, now, s.refreshTTL))
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.accessTTL),
		User:         user,
		Tenant:       tc,
	}, nil
}

// HashPassword generates an argon2id hash with a random salt.
// Format: hex(salt) + "$" + hex(hash)
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", &domain.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", MinPasswordLength)}
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

var dummyHash = sync.OnceValue(func() string {
	h, _ := HashPassword("cardvault-timing-equalizer")
	return h
})

// verifyPassword checks a password against an argon2id hash.
func verifyPassword(password, encoded string) bool {
	saltHex, hashHex, ok := strings.Cut(encoded, "$")
	if !ok || saltHex == "" || hashHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	expectedHash, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(computed, expectedHash) == 1
}
