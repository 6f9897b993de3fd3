// Package router wires handlers, guards and route metadata onto an
// Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/rbac-admin/internal/auth"
	"github.com/iliyamo/rbac-admin/internal/cache"
	"github.com/iliyamo/rbac-admin/internal/config"
	"github.com/iliyamo/rbac-admin/internal/handler"
	"github.com/iliyamo/rbac-admin/internal/middleware"
	"github.com/iliyamo/rbac-admin/internal/model"
)

// Deps carries everything route registration needs.
type Deps struct {
	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	Roles       *handler.RoleHandler
	Permissions *handler.PermissionHandler
	Tokens      *auth.TokenService
	Resolver    *auth.Resolver
	CacheConfig config.CacheConfig
	CacheStore  cache.Store
}

// Permissions builds the static route-to-permission table. Routes not
// listed here only require authentication.
func Permissions() middleware.PermissionTable {
	return middleware.PermissionTable{
		middleware.RouteKey(echo.GET, "/v1/users"):                {model.PermViewUsers},
		middleware.RouteKey(echo.POST, "/v1/users"):               {model.PermAddUsers},
		middleware.RouteKey(echo.GET, "/v1/users/:id"):            {model.PermViewUsers},
		middleware.RouteKey(echo.GET, "/v1/users/:id/profile"):    {model.PermViewUsers},
		middleware.RouteKey(echo.PATCH, "/v1/users/:id"):          {model.PermUpdateUsers},
		middleware.RouteKey(echo.POST, "/v1/users/:id/roles"):     {model.PermUpdateUsers},
		middleware.RouteKey(echo.PATCH, "/v1/users/:id/password"): {model.PermUpdateUsers},
		middleware.RouteKey(echo.DELETE, "/v1/users/:id"):         {model.PermDeleteUsers},

		middleware.RouteKey(echo.GET, "/v1/roles"):                   {model.PermViewRoles},
		middleware.RouteKey(echo.POST, "/v1/roles"):                  {model.PermAddRoles},
		middleware.RouteKey(echo.GET, "/v1/roles/:id"):               {model.PermViewRoles},
		middleware.RouteKey(echo.PATCH, "/v1/roles/:id"):             {model.PermUpdateRoles},
		middleware.RouteKey(echo.DELETE, "/v1/roles/:id"):            {model.PermDeleteRoles},
		middleware.RouteKey(echo.PATCH, "/v1/roles/:id/permissions"): {model.PermUpdateRoles},

		middleware.RouteKey(echo.GET, "/v1/permissions"):        {model.PermViewPermissions},
		middleware.RouteKey(echo.POST, "/v1/permissions"):       {model.PermAddPermissions},
		middleware.RouteKey(echo.GET, "/v1/permissions/:id"):    {model.PermViewPermissions},
		middleware.RouteKey(echo.PATCH, "/v1/permissions/:id"):  {model.PermUpdatePermissions},
		middleware.RouteKey(echo.DELETE, "/v1/permissions/:id"): {model.PermDeletePermissions},
	}
}

// Register attaches every route to the Echo instance.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Unauthenticated session endpoints. Logout and refresh carry the
	// refresh token in the Authorization header and report failures in
	// the envelope rather than the status code.
	pub := e.Group("/v1/auth")
	pub.POST("/login", d.Auth.Login)
	pub.POST("/logout", d.Auth.Logout)
	pub.POST("/refresh-token", d.Auth.Refresh)

	v1 := e.Group("/v1")
	v1.Use(middleware.Authenticate(d.Tokens))
	v1.Use(middleware.RequirePermissions(d.Resolver, Permissions()))

	v1.POST("/auth/verify", d.Auth.Verify)

	listCache := middleware.ResponseCache(d.CacheConfig, d.CacheStore)
	selfOrSuperior := middleware.SelfOrSuperior(d.Resolver)

	v1.GET("/users", d.Users.List, listCache)
	v1.POST("/users", d.Users.Create)
	v1.GET("/users/me", d.Users.Me)
	v1.GET("/users/:id", d.Users.Get)
	v1.GET("/users/:id/profile", d.Users.GetProfile)
	v1.PATCH("/users/:id", d.Users.Update, selfOrSuperior)
	v1.POST("/users/:id/roles", d.Users.AssignRole, selfOrSuperior)
	v1.PATCH("/users/:id/password", d.Users.ChangePassword, selfOrSuperior)
	v1.DELETE("/users/:id", d.Users.Delete, selfOrSuperior)

	v1.GET("/roles", d.Roles.List, listCache)
	v1.POST("/roles", d.Roles.Create)
	v1.GET("/roles/:id", d.Roles.Get)
	v1.PATCH("/roles/:id", d.Roles.Update)
	v1.DELETE("/roles/:id", d.Roles.Delete)
	v1.PATCH("/roles/:id/permissions", d.Roles.UpdatePermissions)

	v1.GET("/permissions", d.Permissions.List, listCache)
	v1.POST("/permissions", d.Permissions.Create)
	v1.GET("/permissions/:id", d.Permissions.Get)
	v1.PATCH("/permissions/:id", d.Permissions.Update)
	v1.DELETE("/permissions/:id", d.Permissions.Delete)
}
