package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gosuda/cardvault/internal/authz"
	"github.com/gosuda/cardvault/internal/domain"
)

const issuer = "cardvault"

// Claims is the session token payload. It carries both role dimensions, the
// tenant identity and the mutable profile pointers.
type Claims struct {
	jwt.RegisteredClaims
	UserID           string              `json:"uid"`
	Username         string              `json:"usr"`
	PlatformRole     domain.PlatformRole `json:"prole"`
	OrgRole          domain.OrgRole      `json:"orole,omitempty"`
	TenantID         string              `json:"tid,omitempty"`
	TenantSlug       string              `json:"tslug,omitempty"`
	TenantName       string              `json:"tname,omitempty"`
	FavoriteTeamID   string              `json:"fav_team,omitempty"`
	FavoritePlayerID string              `json:"fav_player,omitempty"`
	TokenType        string              `json:"typ"` // "access" or "refresh"
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// ErrInvalidToken is returned when a JWT cannot be parsed, has expired or is
// of the wrong type.
var ErrInvalidToken = fmt.Errorf("auth: invalid or expired token: %w", domain.ErrUnauthorized)

// Caller returns the authorization identity described by the claims.
func (c *Claims) Caller() authz.Caller {
	return authz.Caller{
		UserID:       c.UserID,
		Username:     c.Username,
		PlatformRole: c.PlatformRole,
		OrgRole:      c.OrgRole,
		TenantID:     c.TenantID,
	}
}

// Tenant returns the tenant the token was issued for, if any.
func (c *Claims) Tenant() (domain.TenantContext, bool) {
	if c.TenantID == "" {
		return domain.TenantContext{}, false
	}
	return domain.TenantContext{ID: c.TenantID, Slug: c.TenantSlug, Name: c.TenantName}, true
}

func newClaims(u *domain.User, tc *domain.TenantContext, tokenType string, now time.Time, ttl time.Duration) Claims {
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		UserID:       u.ID,
		Username:     u.Username,
		PlatformRole: u.PlatformRole,
		OrgRole:      u.OrgRole,
		TokenType:    tokenType,
	}
	if tc != nil {
		c.TenantID, c.TenantSlug, c.TenantName = tc.ID, tc.Slug, tc.Name
	}
	if u.FavoriteTeamID != nil {
		c.FavoriteTeamID = *u.FavoriteTeamID
	}
	if u.FavoritePlayerID != nil {
		c.FavoritePlayerID = *u.FavoritePlayerID
	}
	return c
}

func signClaims(secret string, c Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.signClaims: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT token string. Returns the embedded claims.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	return claims, nil
}

