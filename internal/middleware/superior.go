package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rbac-admin/internal/auth"
	"github.com/iliyamo/rbac-admin/internal/model"
	"github.com/iliyamo/rbac-admin/internal/utils"
)

// SelfOrSuperior guards routes that address another user's record by
// id: when the target holds SuperAdmin, only another SuperAdmin may
// act on them. Unresolvable target ids and missing actor identity
// deny.
func SelfOrSuperior(resolver *auth.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentIdentity(c)
			if !ok {
				return utils.Fail(c, http.StatusForbidden, utils.MsgAccessDenied)
			}
			targetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
			if err != nil || targetID == 0 {
				return utils.Fail(c, http.StatusForbidden, utils.MsgAccessDenied)
			}

			ctx := c.Request().Context()
			targetRoles := resolver.GetUserRoles(ctx, targetID)
			if contains(targetRoles, model.RoleSuperAdmin) {
				actorRoles := resolver.GetUserRoles(ctx, id.UserID)
				if !contains(actorRoles, model.RoleSuperAdmin) {
					return utils.Fail(c, http.StatusForbidden, utils.MsgAccessDenied)
				}
			}
			return next(c)
		}
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
