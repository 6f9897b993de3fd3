package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rbac-admin/internal/auth"
	"github.com/iliyamo/rbac-admin/internal/utils"
)

// PermissionTable maps "METHOD /route/path" to the permission names
// any one of which satisfies the route (ANY-of semantics). It is
// static route metadata built at registration time, never derived from
// request input.
type PermissionTable map[string][]string

// RouteKey builds the table key for a method and registered route path.
func RouteKey(method, path string) string { return method + " " + path }

// RequirePermissions returns the permission guard. Routes without an
// entry in the table pass through (authentication alone suffices);
// otherwise the resolver decides. A missing identity denies outright.
func RequirePermissions(resolver *auth.Resolver, table PermissionTable) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			required := table[RouteKey(c.Request().Method, c.Path())]
			if len(required) == 0 {
				return next(c)
			}
			id, ok := CurrentIdentity(c)
			if !ok {
				return utils.Fail(c, http.StatusForbidden, utils.MsgAccessDenied)
			}
			if !resolver.HasAnyPermission(c.Request().Context(), id.UserID, required) {
				return utils.Fail(c, http.StatusForbidden, utils.MsgAccessDenied)
			}
			return next(c)
		}
	}
}
