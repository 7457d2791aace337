// Package authz holds the two-dimensional role model. Every decision is a
// pure function of the caller's platform role, organization role and tenant
// membership; nothing here touches storage or transport.
package authz

import (
	"context"

	"github.com/gosuda/cardvault/internal/domain"
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID       string
	Username     string
	PlatformRole domain.PlatformRole
	OrgRole      domain.OrgRole
	// TenantID is the caller's own organization, "" for none.
	TenantID string
}

type contextKey string

const callerKey contextKey = "caller"

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok && c.UserID != ""
}

// RequireCaller returns the caller in ctx or a PermissionError when the
// request is anonymous.
func RequireCaller(ctx context.Context) (Caller, error) {
	c, ok := CallerFromContext(ctx)
	if !ok {
		return Caller{}, &domain.PermissionError{Action: "act without an authenticated caller"}
	}
	return c, nil
}

// CanManagePlatform reports whether p may administer tenants and platform
// roles.
func CanManagePlatform(p domain.PlatformRole) bool {
	return p == domain.PlatformAdmin
}

func CanViewPlatformDashboards(p domain.PlatformRole) bool {
	return p == domain.PlatformAdmin || p == domain.PlatformOperator
}

// CanManageOrganizationUsers reports whether a caller may administer the
// users of targetTenant.
func CanManageOrganizationUsers(p domain.PlatformRole, o domain.OrgRole, callerTenant, targetTenant string) bool {
	if p == domain.PlatformAdmin {
		return true
	}
	return o == domain.OrgAdmin && callerTenant == targetTenant
}

// CanViewTenantData reports whether a caller may see rows owned by
// dataTenant. In single-tenant deployments both tenants are "" and every
// caller matches.
func CanViewTenantData(p domain.PlatformRole, callerTenant, dataTenant string) bool {
	if p == domain.PlatformAdmin {
		return true
	}
	return callerTenant == dataTenant
}

// CanCreateDomainResource requires organization membership: a platform admin
// without an organization has no tenant to own the new row.
func CanCreateDomainResource(_ domain.PlatformRole, o domain.OrgRole) bool {
	return o.Valid()
}

// CanDeleteUser never allows deleting oneself, whatever the roles.
func CanDeleteUser(c Caller, targetUserID, targetTenant string) bool {
	if c.UserID == targetUserID {
		return false
	}
	return CanManageOrganizationUsers(c.PlatformRole, c.OrgRole, c.TenantID, targetTenant)
}

// CanAssignRoles reports whether c may give target the roles platform and
// org. Organization admins only move organization roles inside their own
// tenant; any platform role change needs a platform admin.
func CanAssignRoles(c Caller, target *domain.User, platform domain.PlatformRole, org domain.OrgRole) bool {
	if !platform.Valid() {
		return false
	}
	if org != domain.OrgNone && !org.Valid() {
		return false
	}
	if platform != target.PlatformRole && !CanManagePlatform(c.PlatformRole) {
		return false
	}
	return CanManageOrganizationUsers(c.PlatformRole, c.OrgRole, c.TenantID, target.TenantID)
}
