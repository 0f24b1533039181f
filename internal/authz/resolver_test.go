package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/identity"
	"github.com/authgate/authgate/internal/permission"
	"github.com/authgate/authgate/internal/role"
	"github.com/authgate/authgate/internal/tenant"
)

// fixture is a small in-memory assignment graph. Map-backed fakes keep the
// test cases focused on the graph shape instead of mock choreography.
type fixture struct {
	tenants map[string]*tenant.Tenant
	users   map[string]*identity.UserIdentity // keyed by external user id
	roles   map[string]*role.Role
	perms   map[string]*permission.Definition // keyed by code
}

func (f *fixture) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	if t, ok := f.tenants[id]; ok {
		return t, nil
	}
	return nil, tenant.ErrTenantNotFound
}

type userDir struct{ f *fixture }

func (d userDir) GetByExternalID(ctx context.Context, tenantID, externalUserID string) (*identity.UserIdentity, error) {
	if u, ok := d.f.users[externalUserID]; ok && u.TenantID == tenantID {
		return u, nil
	}
	return nil, identity.ErrUserNotFound
}

type roleCat struct{ f *fixture }

func (c roleCat) GetByID(ctx context.Context, id string) (*role.Role, error) {
	if r, ok := c.f.roles[id]; ok {
		return r, nil
	}
	return nil, role.ErrRoleNotFound
}

type permCat struct{ f *fixture }

func (c permCat) GetByCode(ctx context.Context, tenantID, code string) (*permission.Definition, error) {
	if p, ok := c.f.perms[code]; ok && p.TenantID == tenantID {
		return p, nil
	}
	return nil, permission.ErrPermissionNotFound
}

func (c permCat) ListByIDs(ctx context.Context, tenantID string, ids []string) ([]*permission.Definition, error) {
	defs := make([]*permission.Definition, 0, len(ids))
	for _, p := range c.f.perms {
		for _, id := range ids {
			if p.ID == id && p.TenantID == tenantID {
				defs = append(defs, p)
			}
		}
	}
	return defs, nil
}

func newFixtureResolver(f *fixture) *Resolver {
	return NewResolver(f, userDir{f}, roleCat{f}, permCat{f})
}

// TestPurpose: Validates permission resolution through both grant paths.
// Scope: Unit Test
// Expected: Direct grants and role-carried grants both answer true; a code
// the user holds through neither path answers false.
// Test Case ID: RES-01
func TestAuthz_Resolver_HasPermission(t *testing.T) {
	tenantID := uuid.NewString()
	read := &permission.Definition{ID: uuid.NewString(), TenantID: tenantID, Code: "doc.read"}
	write := &permission.Definition{ID: uuid.NewString(), TenantID: tenantID, Code: "doc.write"}
	del := &permission.Definition{ID: uuid.NewString(), TenantID: tenantID, Code: "doc.delete"}
	editor := &role.Role{ID: uuid.NewString(), TenantID: tenantID, Name: "editor", Permissions: []string{write.ID}}
	f := &fixture{
		tenants: map[string]*tenant.Tenant{tenantID: {ID: tenantID, Enabled: true}},
		roles:   map[string]*role.Role{editor.ID: editor},
		perms:   map[string]*permission.Definition{"doc.read": read, "doc.write": write, "doc.delete": del},
		users: map[string]*identity.UserIdentity{
			"alice": {ID: uuid.NewString(), TenantID: tenantID, ExternalUserID: "alice",
				Roles: []string{editor.ID}, DirectPermissions: []string{read.ID}},
		},
	}
	resolver := newFixtureResolver(f)
	ctx := context.Background()

	t.Run("direct grant", func(t *testing.T) {
		ok, err := resolver.HasPermission(ctx, tenantID, "alice", "doc.read")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("role grant", func(t *testing.T) {
		ok, err := resolver.HasPermission(ctx, tenantID, "alice", "doc.write")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("not granted", func(t *testing.T) {
		ok, err := resolver.HasPermission(ctx, tenantID, "alice", "doc.delete")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

// TestPurpose: Validates fail-closed answers for unknown inputs.
// Scope: Unit Test
// Security: Unknown users and codes must deny without leaking which part
// was unknown; only a nonexistent tenant is an error.
// Test Case ID: RES-02
func TestAuthz_Resolver_HasPermission_Unknowns(t *testing.T) {
	tenantID := uuid.NewString()
	read := &permission.Definition{ID: uuid.NewString(), TenantID: tenantID, Code: "doc.read"}
	f := &fixture{
		tenants: map[string]*tenant.Tenant{tenantID: {ID: tenantID, Enabled: true}},
		perms:   map[string]*permission.Definition{"doc.read": read},
		users: map[string]*identity.UserIdentity{
			"alice": {ID: uuid.NewString(), TenantID: tenantID, ExternalUserID: "alice"},
		},
	}
	resolver := newFixtureResolver(f)
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		ok, err := resolver.HasPermission(ctx, tenantID, "ghost", "doc.read")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown code", func(t *testing.T) {
		ok, err := resolver.HasPermission(ctx, tenantID, "alice", "nope.read")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		_, err := resolver.HasPermission(ctx, uuid.NewString(), "alice", "doc.read")
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})
}

// TestPurpose: Validates that disabling a tenant suspends all resolution
// without touching stored assignments.
// Scope: Unit Test
// Security: Tenant kill switch must deny every check immediately.
// Test Case ID: RES-03
func TestAuthz_Resolver_DisabledTenant(t *testing.T) {
	tenantID := uuid.NewString()
	read := &permission.Definition{ID: uuid.NewString(), TenantID: tenantID, Code: "doc.read"}
	f := &fixture{
		tenants: map[string]*tenant.Tenant{tenantID: {ID: tenantID, Enabled: false}},
		perms:   map[string]*permission.Definition{"doc.read": read},
		users: map[string]*identity.UserIdentity{
			"alice": {ID: uuid.NewString(), TenantID: tenantID, ExternalUserID: "alice",
				DirectPermissions: []string{read.ID}},
		},
	}
	resolver := newFixtureResolver(f)
	ctx := context.Background()

	ok, err := resolver.HasPermission(ctx, tenantID, "alice", "doc.read")
	require.NoError(t, err)
	assert.False(t, ok)

	defs, err := resolver.ListEffectivePermissions(ctx, tenantID, "alice")
	require.NoError(t, err)
	assert.Empty(t, defs)
}

// TestPurpose: Validates the effective set is the deduplicated union of
// direct and role permissions, ordered by code, with dangling role
// assignments skipped.
// Scope: Unit Test
// Test Case ID: RES-04
func TestAuthz_Resolver_ListEffectivePermissions(t *testing.T) {
	tenantID := uuid.NewString()
	read := &permission.Definition{ID: uuid.NewString(), TenantID: tenantID, Code: "doc.read"}
	write := &permission.Definition{ID: uuid.NewString(), TenantID: tenantID, Code: "doc.write"}
	editor := &role.Role{ID: uuid.NewString(), TenantID: tenantID, Name: "editor",
		Permissions: []string{read.ID, write.ID}}
	deletedRoleID := uuid.NewString()
	f := &fixture{
		tenants: map[string]*tenant.Tenant{tenantID: {ID: tenantID, Enabled: true}},
		roles:   map[string]*role.Role{editor.ID: editor},
		perms:   map[string]*permission.Definition{"doc.read": read, "doc.write": write},
		users: map[string]*identity.UserIdentity{
			// doc.read held both directly and through the role; one stale
			// role assignment left behind by a deleted role.
			"alice": {ID: uuid.NewString(), TenantID: tenantID, ExternalUserID: "alice",
				Roles:             []string{editor.ID, deletedRoleID},
				DirectPermissions: []string{read.ID}},
		},
	}
	resolver := newFixtureResolver(f)

	defs, err := resolver.ListEffectivePermissions(context.Background(), tenantID, "alice")
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "doc.read", defs[0].Code)
	assert.Equal(t, "doc.write", defs[1].Code)
}

// TestPurpose: Validates claim flattening used when minting access tokens.
// Scope: Unit Test
// Expected: Sorted role names and sorted effective permission codes.
// Test Case ID: RES-05
func TestAuthz_Resolver_ResolveClaims(t *testing.T) {
	tenantID := uuid.NewString()
	read := &permission.Definition{ID: uuid.NewString(), TenantID: tenantID, Code: "doc.read"}
	write := &permission.Definition{ID: uuid.NewString(), TenantID: tenantID, Code: "doc.write"}
	viewer := &role.Role{ID: uuid.NewString(), TenantID: tenantID, Name: "viewer", Permissions: []string{read.ID}}
	editor := &role.Role{ID: uuid.NewString(), TenantID: tenantID, Name: "editor", Permissions: []string{write.ID}}
	f := &fixture{
		tenants: map[string]*tenant.Tenant{tenantID: {ID: tenantID, Enabled: true}},
		roles:   map[string]*role.Role{viewer.ID: viewer, editor.ID: editor},
		perms:   map[string]*permission.Definition{"doc.read": read, "doc.write": write},
		users: map[string]*identity.UserIdentity{
			"alice": {ID: uuid.NewString(), TenantID: tenantID, ExternalUserID: "alice",
				Roles: []string{viewer.ID, editor.ID}},
		},
	}
	resolver := newFixtureResolver(f)

	roles, codes, err := resolver.ResolveClaims(context.Background(), tenantID, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"editor", "viewer"}, roles)
	assert.Equal(t, []string{"doc.read", "doc.write"}, codes)
}
