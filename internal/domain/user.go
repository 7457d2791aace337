package domain

import (
	"context"
	"time"
)

// PlatformRole is the deployment-wide role of a user.
type PlatformRole string

const (
	PlatformAdmin    PlatformRole = "platform_admin"
	PlatformOperator PlatformRole = "platform_operator"
	PlatformMember   PlatformRole = "member"
)

func (r PlatformRole) Valid() bool {
	switch r {
	case PlatformAdmin, PlatformOperator, PlatformMember:
		return true
	}
	return false
}

// OrgRole is the role of a user within their organization (tenant). The zero
// value means the user belongs to no organization.
type OrgRole string

const (
	OrgAdmin  OrgRole = "org_admin"
	OrgMember OrgRole = "member"
	OrgNone   OrgRole = ""
)

func (r OrgRole) Valid() bool {
	return r == OrgAdmin || r == OrgMember
}

type User struct {
	ID               string       `json:"id"`
	Username         string       `json:"username"`
	Email            string       `json:"email,omitempty"`
	DisplayName      string       `json:"display_name,omitempty"`
	PasswordHash     string       `json:"-"`
	PlatformRole     PlatformRole `json:"platform_role"`
	TenantID         string       `json:"tenant_id,omitempty"`
	OrgRole          OrgRole      `json:"organization_role,omitempty"`
	FavoriteTeamID   *string      `json:"favorite_team_id,omitempty"`
	FavoritePlayerID *string      `json:"favorite_player_id,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// UserProfilePatch carries the self-service profile fields; nil means unchanged.
type UserProfilePatch struct {
	Email            *string
	DisplayName      *string
	FavoriteTeamID   *string
	FavoritePlayerID *string
}

func (p UserProfilePatch) Empty() bool {
	return p.Email == nil && p.DisplayName == nil && p.FavoriteTeamID == nil && p.FavoritePlayerID == nil
}

type UserRepository interface {
	Create(ctx context.Context, u *User) (string, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByUsername matches case-insensitively.
	GetByUsername(ctx context.Context, username string) (*User, error)
	// List returns the users of tenantID; an empty tenantID lists users
	// without an organization.
	List(ctx context.Context, tenantID string) ([]*User, error)
	CountByTenant(ctx context.Context, tenantID string) (int, error)
	UpdateProfile(ctx context.Context, id string, patch UserProfilePatch) (bool, error)
	UpdateRoles(ctx context.Context, id string, platform PlatformRole, org OrgRole) (bool, error)
	UpdatePassword(ctx context.Context, id, hash string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}
