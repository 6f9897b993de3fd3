package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rbac-admin/internal/model"
)

type fakeGrantSource struct {
	grants map[uint64][]model.RoleGrant
	err    error
}

func (f *fakeGrantSource) Grants(_ context.Context, userID uint64) ([]model.RoleGrant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.grants[userID], nil
}

func (f *fakeGrantSource) Roles(_ context.Context, userID uint64) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	grants := f.grants[userID]
	roles := make([]string, 0, len(grants))
	for _, g := range grants {
		roles = append(roles, g.Role)
	}
	return roles, nil
}

func TestHasAnyPermissionAnyOfSemantics(t *testing.T) {
	r := NewResolver(&fakeGrantSource{grants: map[uint64][]model.RoleGrant{
		1: {{Role: "Editor", Permissions: []string{model.PermUpdateUsers}}},
	}})

	// One required permission held is enough.
	assert.True(t, r.HasAnyPermission(context.Background(), 1,
		[]string{model.PermViewUsers, model.PermUpdateUsers}))
	assert.False(t, r.HasAnyPermission(context.Background(), 1,
		[]string{model.PermViewUsers, model.PermDeleteUsers}))
}

func TestHasAnyPermissionUnionAcrossRoles(t *testing.T) {
	r := NewResolver(&fakeGrantSource{grants: map[uint64][]model.RoleGrant{
		1: {
			{Role: "Viewer", Permissions: []string{model.PermViewUsers}},
			{Role: "Auditor", Permissions: []string{model.PermViewRoles, model.PermViewUsers}},
		},
	}})

	assert.True(t, r.HasAnyPermission(context.Background(), 1, []string{model.PermViewRoles}))
	assert.True(t, r.HasAnyPermission(context.Background(), 1, []string{model.PermViewUsers}))
	assert.False(t, r.HasAnyPermission(context.Background(), 1, []string{model.PermAddUsers}))
}

func TestHasAnyPermissionSuperAdminBypass(t *testing.T) {
	// SuperAdmin passes even with zero attached permission rows.
	r := NewResolver(&fakeGrantSource{grants: map[uint64][]model.RoleGrant{
		1: {{Role: model.RoleSuperAdmin, Permissions: nil}},
	}})

	assert.True(t, r.HasAnyPermission(context.Background(), 1, []string{model.PermDeleteRoles}))
	assert.True(t, r.HasAnyPermission(context.Background(), 1, []string{"some_future_permission"}))
}

func TestHasAnyPermissionFailsClosed(t *testing.T) {
	t.Run("no roles", func(t *testing.T) {
		r := NewResolver(&fakeGrantSource{grants: map[uint64][]model.RoleGrant{}})
		assert.False(t, r.HasAnyPermission(context.Background(), 1, []string{model.PermViewUsers}))
	})
	t.Run("lookup error", func(t *testing.T) {
		r := NewResolver(&fakeGrantSource{err: errors.New("connection refused")})
		assert.False(t, r.HasAnyPermission(context.Background(), 1, []string{model.PermViewUsers}))
	})
}

func TestGetUserRolesSwallowsErrors(t *testing.T) {
	r := NewResolver(&fakeGrantSource{err: errors.New("connection refused")})
	assert.Empty(t, r.GetUserRoles(context.Background(), 1))
}

func TestRolesAndPermissionsDeduplicates(t *testing.T) {
	r := NewResolver(&fakeGrantSource{grants: map[uint64][]model.RoleGrant{
		1: {
			{Role: "Viewer", Permissions: []string{model.PermViewUsers, model.PermViewRoles}},
			{Role: "Auditor", Permissions: []string{model.PermViewRoles}},
		},
	}})

	roles, perms, err := r.RolesAndPermissions(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Viewer", "Auditor"}, roles)
	assert.Equal(t, []string{model.PermViewUsers, model.PermViewRoles}, perms)
}
