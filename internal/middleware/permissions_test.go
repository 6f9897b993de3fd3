package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/rbac-admin/internal/auth"
	"github.com/iliyamo/rbac-admin/internal/model"
)

type fakeGrantSource struct {
	grants map[uint64][]model.RoleGrant
}

func (f *fakeGrantSource) Grants(_ context.Context, userID uint64) ([]model.RoleGrant, error) {
	return f.grants[userID], nil
}

func (f *fakeGrantSource) Roles(_ context.Context, userID uint64) ([]string, error) {
	grants := f.grants[userID]
	roles := make([]string, 0, len(grants))
	for _, g := range grants {
		roles = append(roles, g.Role)
	}
	return roles, nil
}

func permRequest(t *testing.T, resolver *auth.Resolver, table PermissionTable, userID uint64) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/users")
	if userID != 0 {
		c.Set(ctxUserID, userID)
		c.Set(ctxUsername, "tester")
	}

	handler := RequirePermissions(resolver, table)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	_ = handler(c)
	return rec
}

func TestRequirePermissionsAllowsGrantedUser(t *testing.T) {
	resolver := auth.NewResolver(&fakeGrantSource{grants: map[uint64][]model.RoleGrant{
		1: {{Role: "Admin", Permissions: []string{model.PermViewUsers}}},
	}})
	table := PermissionTable{RouteKey(http.MethodGet, "/v1/users"): {model.PermViewUsers}}

	rec := permRequest(t, resolver, table, 1)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermissionsDeniesUngrantedUser(t *testing.T) {
	resolver := auth.NewResolver(&fakeGrantSource{grants: map[uint64][]model.RoleGrant{
		1: {{Role: "Admin", Permissions: []string{model.PermViewRoles}}},
	}})
	table := PermissionTable{RouteKey(http.MethodGet, "/v1/users"): {model.PermViewUsers}}

	rec := permRequest(t, resolver, table, 1)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequirePermissionsSuperAdminBypass(t *testing.T) {
	resolver := auth.NewResolver(&fakeGrantSource{grants: map[uint64][]model.RoleGrant{
		1: {{Role: model.RoleSuperAdmin}},
	}})
	table := PermissionTable{RouteKey(http.MethodGet, "/v1/users"): {model.PermViewUsers}}

	rec := permRequest(t, resolver, table, 1)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermissionsDeniesAnonymous(t *testing.T) {
	resolver := auth.NewResolver(&fakeGrantSource{})
	table := PermissionTable{RouteKey(http.MethodGet, "/v1/users"): {model.PermViewUsers}}

	rec := permRequest(t, resolver, table, 0)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// A route without a table entry only requires authentication.
func TestRequirePermissionsUnlistedRoutePasses(t *testing.T) {
	resolver := auth.NewResolver(&fakeGrantSource{})

	rec := permRequest(t, resolver, PermissionTable{}, 1)
	assert.Equal(t, http.StatusOK, rec.Code)
}
