package model

import "time"

// RoleSuperAdmin is the sentinel role: a user holding it bypasses all
// fine-grained permission checks and the role itself cannot be deleted.
const RoleSuperAdmin = "SuperAdmin"

// Role mirrors the `roles` table.
type Role struct {
	ID          uint64    // roles.id
	Name        string    // roles.name (unique)
	Description string    // roles.description
	CreatedAt   time.Time // roles.created_at
	UpdatedAt   time.Time // roles.updated_at
}

// Permission mirrors the `permissions` table.
type Permission struct {
	ID          uint64    // permissions.id
	Name        string    // permissions.name (unique)
	Description string    // permissions.description
	CreatedAt   time.Time // permissions.created_at
	UpdatedAt   time.Time // permissions.updated_at
}

// RoleGrant is a role held by a user together with the names of the
// permissions attached to it. It is the unit the permission resolver
// works with: effective permissions are the union of Permissions over
// all grants.
type RoleGrant struct {
	Role        string
	Permissions []string
}

// Permission names seeded by cmd/seed and referenced by the route
// permission table.
const (
	PermViewUsers   = "view_users"
	PermAddUsers    = "add_users"
	PermUpdateUsers = "update_users"
	PermDeleteUsers = "delete_users"

	PermViewRoles   = "view_roles"
	PermAddRoles    = "add_roles"
	PermUpdateRoles = "update_roles"
	PermDeleteRoles = "delete_roles"

	PermViewPermissions   = "view_permissions"
	PermAddPermissions    = "add_permissions"
	PermUpdatePermissions = "update_permissions"
	PermDeletePermissions = "delete_permissions"
)

// AllPermissions lists every seeded permission name.
var AllPermissions = []string{
	PermViewUsers, PermAddUsers, PermUpdateUsers, PermDeleteUsers,
	PermViewRoles, PermAddRoles, PermUpdateRoles, PermDeleteRoles,
	PermViewPermissions, PermAddPermissions, PermUpdatePermissions, PermDeletePermissions,
}
