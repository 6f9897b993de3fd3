// Package middleware contains the request-time authorization guards:
// bearer-token authentication, the route permission check and the
// self-or-superior rule for user-targeting routes. Guards are pure
// predicates over the request identity, route metadata and persisted
// role state; they never mutate anything and fail closed on any
// ambiguous input.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rbac-admin/internal/auth"
	"github.com/iliyamo/rbac-admin/internal/utils"
)

// Context keys set by Authenticate.
const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
)

// Authenticate returns an Echo middleware that validates a Bearer
// access token via the token service and injects the decoded identity
// into the request context. Handlers and downstream guards read it
// back through CurrentIdentity.
func Authenticate(tokens *auth.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := BearerToken(c)
			if !ok {
				return utils.Fail(c, http.StatusUnauthorized, utils.MsgAccessDenied)
			}
			id, ok := tokens.VerifyAccess(raw)
			if !ok {
				return utils.Fail(c, http.StatusUnauthorized, utils.MsgAccessDenied)
			}
			c.Set(ctxUserID, id.UserID)
			c.Set(ctxUsername, id.Username)
			return next(c)
		}
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// CurrentIdentity reads the authenticated identity placed in the
// context by Authenticate.
func CurrentIdentity(c echo.Context) (auth.Identity, bool) {
	uid, ok := c.Get(ctxUserID).(uint64)
	if !ok || uid == 0 {
		return auth.Identity{}, false
	}
	username, _ := c.Get(ctxUsername).(string)
	return auth.Identity{UserID: uid, Username: username}, true
}
