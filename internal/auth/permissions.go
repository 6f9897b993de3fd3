package auth

import (
	"context"
	"log"

	"github.com/iliyamo/rbac-admin/internal/model"
)

// GrantSource is the persistence collaborator for role and permission
// lookups. *repository.UserRepo satisfies it.
type GrantSource interface {
	Roles(ctx context.Context, userID uint64) ([]string, error)
	Grants(ctx context.Context, userID uint64) ([]model.RoleGrant, error)
}

// Resolver computes effective permissions: the union, over all roles
// held by a user, of the permissions attached to each role.
type Resolver struct {
	grants GrantSource
}

func NewResolver(grants GrantSource) *Resolver { return &Resolver{grants: grants} }

// HasAnyPermission reports whether the user satisfies any of the
// required permissions (ANY-of, not ALL-of). A user holding the
// SuperAdmin role passes unconditionally, before any permission
// computation. Fails closed: unknown users, users without roles and
// lookup errors all deny.
func (r *Resolver) HasAnyPermission(ctx context.Context, userID uint64, required []string) bool {
	grants, err := r.grants.Grants(ctx, userID)
	if err != nil {
		log.Printf("auth: permission lookup failed for user %d: %v", userID, err)
		return false
	}
	if len(grants) == 0 {
		return false
	}
	for _, g := range grants {
		if g.Role == model.RoleSuperAdmin {
			return true
		}
	}

	effective := effectiveSet(grants)
	for _, p := range required {
		if effective[p] {
			return true
		}
	}
	return false
}

// GetUserRoles returns the names of all roles held by the user, or an
// empty list on any failure (fail closed to "no special role").
func (r *Resolver) GetUserRoles(ctx context.Context, userID uint64) []string {
	roles, err := r.grants.Roles(ctx, userID)
	if err != nil {
		log.Printf("auth: role lookup failed for user %d: %v", userID, err)
		return []string{}
	}
	return roles
}

// RolesAndPermissions returns the user's role names alongside the
// deduplicated effective permission set, for profile-style responses.
func (r *Resolver) RolesAndPermissions(ctx context.Context, userID uint64) ([]string, []string, error) {
	grants, err := r.grants.Grants(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	roles := make([]string, 0, len(grants))
	for _, g := range grants {
		roles = append(roles, g.Role)
	}
	effective := effectiveSet(grants)
	perms := make([]string, 0, len(effective))
	for _, g := range grants {
		for _, p := range g.Permissions {
			if effective[p] {
				perms = append(perms, p)
				effective[p] = false // keep first occurrence, stable order
			}
		}
	}
	return roles, perms, nil
}

func effectiveSet(grants []model.RoleGrant) map[string]bool {
	set := make(map[string]bool)
	for _, g := range grants {
		for _, p := range g.Permissions {
			set[p] = true
		}
	}
	return set
}
