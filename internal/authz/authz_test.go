package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gosuda/cardvault/internal/authz"
	"github.com/gosuda/cardvault/internal/domain"
)

const (
	tenantA = "tenant-a"
	tenantB = "tenant-b"
)

func TestCanManagePlatform(t *testing.T) {
	t.Parallel()

	assert.True(t, authz.CanManagePlatform(domain.PlatformAdmin))
	assert.False(t, authz.CanManagePlatform(domain.PlatformOperator))
	assert.False(t, authz.CanManagePlatform(domain.PlatformMember))
	assert.False(t, authz.CanManagePlatform(""))
}

func TestCanViewPlatformDashboards(t *testing.T) {
	t.Parallel()

	assert.True(t, authz.CanViewPlatformDashboards(domain.PlatformAdmin))
	assert.True(t, authz.CanViewPlatformDashboards(domain.PlatformOperator))
	assert.False(t, authz.CanViewPlatformDashboards(domain.PlatformMember))
}

func TestCanManageOrganizationUsers_Matrix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		platform   domain.PlatformRole
		org        domain.OrgRole
		sameTenant bool
		want       bool
	}{
		{domain.PlatformAdmin, domain.OrgAdmin, true, true},
		{domain.PlatformAdmin, domain.OrgAdmin, false, true},
		{domain.PlatformAdmin, domain.OrgMember, true, true},
		{domain.PlatformAdmin, domain.OrgMember, false, true},
		{domain.PlatformOperator, domain.OrgAdmin, true, true},
		{domain.PlatformOperator, domain.OrgAdmin, false, false},
		{domain.PlatformOperator, domain.OrgMember, true, false},
		{domain.PlatformOperator, domain.OrgMember, false, false},
		{domain.PlatformMember, domain.OrgAdmin, true, true},
		{domain.PlatformMember, domain.OrgAdmin, false, false},
		{domain.PlatformMember, domain.OrgMember, true, false},
		{domain.PlatformMember, domain.OrgMember, false, false},
	}

	for _, tt := range tests {
		target := tenantB
		if tt.sameTenant {
			target = tenantA
		}
		name := string(tt.platform) + "/" + string(tt.org) + "/" + target
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := authz.CanManageOrganizationUsers(tt.platform, tt.org, tenantA, target)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanViewTenantData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		platform domain.PlatformRole
		caller   string
		data     string
		want     bool
	}{
		{"admin sees any tenant", domain.PlatformAdmin, tenantA, tenantB, true},
		{"admin without tenant", domain.PlatformAdmin, "", tenantB, true},
		{"operator is not cross-tenant", domain.PlatformOperator, tenantA, tenantB, false},
		{"member of same tenant", domain.PlatformMember, tenantA, tenantA, true},
		{"member of other tenant", domain.PlatformMember, tenantA, tenantB, false},
		{"single tenant", domain.PlatformMember, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, authz.CanViewTenantData(tt.platform, tt.caller, tt.data))
		})
	}
}

func TestCanCreateDomainResource(t *testing.T) {
	t.Parallel()

	assert.True(t, authz.CanCreateDomainResource(domain.PlatformMember, domain.OrgMember))
	assert.True(t, authz.CanCreateDomainResource(domain.PlatformMember, domain.OrgAdmin))
	assert.True(t, authz.CanCreateDomainResource(domain.PlatformAdmin, domain.OrgMember))
	assert.False(t, authz.CanCreateDomainResource(domain.PlatformAdmin, domain.OrgNone))
	assert.False(t, authz.CanCreateDomainResource(domain.PlatformOperator, domain.OrgNone))
}

func TestCanDeleteUser(t *testing.T) {
	t.Parallel()

	orgAdmin := authz.Caller{UserID: "u1", PlatformRole: domain.PlatformMember, OrgRole: domain.OrgAdmin, TenantID: tenantA}
	platformAdmin := authz.Caller{UserID: "u9", PlatformRole: domain.PlatformAdmin, OrgRole: domain.OrgAdmin, TenantID: tenantA}

	t.Run("self deletion is refused for org admin", func(t *testing.T) {
		t.Parallel()
		assert.False(t, authz.CanDeleteUser(orgAdmin, "u1", tenantA))
	})

	t.Run("self deletion is refused for platform admin", func(t *testing.T) {
		t.Parallel()
		assert.False(t, authz.CanDeleteUser(platformAdmin, "u9", tenantA))
	})

	t.Run("org admin deletes in own tenant", func(t *testing.T) {
		t.Parallel()
		assert.True(t, authz.CanDeleteUser(orgAdmin, "u2", tenantA))
		assert.False(t, authz.CanDeleteUser(orgAdmin, "u2", tenantB))
	})

	t.Run("platform admin deletes anywhere", func(t *testing.T) {
		t.Parallel()
		assert.True(t, authz.CanDeleteUser(platformAdmin, "u2", tenantB))
	})
}

func TestCanAssignRoles(t *testing.T) {
	t.Parallel()

	member := &domain.User{ID: "u2", PlatformRole: domain.PlatformMember, OrgRole: domain.OrgMember, TenantID: tenantA}
	orgAdmin := authz.Caller{UserID: "u1", PlatformRole: domain.PlatformMember, OrgRole: domain.OrgAdmin, TenantID: tenantA}
	platformAdmin := authz.Caller{UserID: "u9", PlatformRole: domain.PlatformAdmin}

	tests := []struct {
		name     string
		caller   authz.Caller
		platform domain.PlatformRole
		org      domain.OrgRole
		want     bool
	}{
		{"org admin promotes within tenant", orgAdmin, domain.PlatformMember, domain.OrgAdmin, true},
		{"org admin cannot grant platform roles", orgAdmin, domain.PlatformOperator, domain.OrgMember, false},
		{"platform admin grants platform roles", platformAdmin, domain.PlatformOperator, domain.OrgMember, true},
		{"unknown platform role", platformAdmin, "root", domain.OrgMember, false},
		{"unknown org role", platformAdmin, domain.PlatformMember, "owner", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, authz.CanAssignRoles(tt.caller, member, tt.platform, tt.org))
		})
	}

	t.Run("org admin of another tenant", func(t *testing.T) {
		t.Parallel()

		other := orgAdmin
		other.TenantID = tenantB
		assert.False(t, authz.CanAssignRoles(other, member, domain.PlatformMember, domain.OrgAdmin))
	})
}

func TestCallerContext(t *testing.T) {
	t.Parallel()

	_, ok := authz.CallerFromContext(context.Background())
	assert.False(t, ok)

	ctx := authz.WithCaller(context.Background(), authz.Caller{UserID: "u1", Username: "alice"})
	c, ok := authz.CallerFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "alice", c.Username)

	_, ok = authz.CallerFromContext(authz.WithCaller(context.Background(), authz.Caller{}))
	assert.False(t, ok)
}

func TestRequireCaller(t *testing.T) {
	t.Parallel()

	_, err := authz.RequireCaller(context.Background())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	c, err := authz.RequireCaller(authz.WithCaller(context.Background(), authz.Caller{UserID: "u1"}))
	assert.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)
}
