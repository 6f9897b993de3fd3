// Command seed provisions the baseline RBAC data: the SuperAdmin and
// Admin roles, the twelve CRUD permissions, and one SuperAdmin account.
// Every write is idempotent so the command is safe to re-run.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/iliyamo/rbac-admin/internal/config"
	"github.com/iliyamo/rbac-admin/internal/database"
	"github.com/iliyamo/rbac-admin/internal/model"
	"github.com/iliyamo/rbac-admin/internal/utils"
)

var permissionDescriptions = map[string]string{
	model.PermViewUsers:   "View users",
	model.PermAddUsers:    "Create users",
	model.PermUpdateUsers: "Update users",
	model.PermDeleteUsers: "Delete users",

	model.PermViewRoles:   "View roles",
	model.PermAddRoles:    "Create roles",
	model.PermUpdateRoles: "Update roles",
	model.PermDeleteRoles: "Delete roles",

	model.PermViewPermissions:   "View permissions",
	model.PermAddPermissions:    "Create permissions",
	model.PermUpdatePermissions: "Update permissions",
	model.PermDeletePermissions: "Delete permissions",
}

func strEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on process environment")
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	superRoleID := upsertRole(ctx, db, model.RoleSuperAdmin, "Full access, bypasses permission checks")
	adminRoleID := upsertRole(ctx, db, "Admin", "Administrative access via granted permissions")

	permIDs := make(map[string]uint64, len(model.AllPermissions))
	for _, name := range model.AllPermissions {
		permIDs[name] = upsertPermission(ctx, db, name, permissionDescriptions[name])
	}

	// Admin starts with every permission; trim via the API afterwards.
	for _, id := range permIDs {
		linkRolePermission(ctx, db, adminRoleID, id)
	}

	username := strEnv("SUPER_ADMIN_USERNAME", "superadmin")
	email := strEnv("SUPER_ADMIN_EMAIL", "superadmin@example.com")
	password := strEnv("SUPER_ADMIN_PASSWORD", "ChangeMe.123")

	userID := upsertUser(ctx, db, username, email, password, cfg.BcryptCost)
	linkUserRole(ctx, db, userID, superRoleID)

	fmt.Println("seed complete")
	fmt.Printf("roles:       %s (id=%d), Admin (id=%d)\n", model.RoleSuperAdmin, superRoleID, adminRoleID)
	fmt.Printf("permissions: %d\n", len(permIDs))
	fmt.Printf("super admin: %s / %s (id=%d)\n", username, password, userID)
}

func upsertRole(ctx context.Context, db *sql.DB, name, description string) uint64 {
	if _, err := db.ExecContext(ctx, `
		INSERT INTO roles (name, description) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE description = VALUES(description)
	`, name, description); err != nil {
		log.Fatalf("upsert role %s: %v", name, err)
	}
	return lookupID(ctx, db, "SELECT id FROM roles WHERE name = ?", name)
}

func upsertPermission(ctx context.Context, db *sql.DB, name, description string) uint64 {
	if _, err := db.ExecContext(ctx, `
		INSERT INTO permissions (name, description) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE description = VALUES(description)
	`, name, description); err != nil {
		log.Fatalf("upsert permission %s: %v", name, err)
	}
	return lookupID(ctx, db, "SELECT id FROM permissions WHERE name = ?", name)
}

func upsertUser(ctx context.Context, db *sql.DB, username, email, password string, cost int) uint64 {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	// Existing accounts keep their password; only the status is ensured.
	if _, err := db.ExecContext(ctx, `
		INSERT INTO users (username, email, password, status) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE status = VALUES(status)
	`, username, email, hash, model.StatusActive); err != nil {
		log.Fatalf("upsert user %s: %v", username, err)
	}
	id := lookupID(ctx, db, "SELECT id FROM users WHERE username = ?", username)
	if _, err := db.ExecContext(ctx, `
		INSERT IGNORE INTO user_profiles (user_id, first_name, last_name) VALUES (?, 'Super', 'Admin')
	`, id); err != nil {
		log.Fatalf("upsert profile for %s: %v", username, err)
	}
	return id
}

func linkRolePermission(ctx context.Context, db *sql.DB, roleID, permID uint64) {
	if _, err := db.ExecContext(ctx, `
		INSERT IGNORE INTO role_permissions (role_id, permission_id) VALUES (?, ?)
	`, roleID, permID); err != nil {
		log.Fatalf("link role %d permission %d: %v", roleID, permID, err)
	}
}

func linkUserRole(ctx context.Context, db *sql.DB, userID, roleID uint64) {
	if _, err := db.ExecContext(ctx, `
		INSERT IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)
	`, userID, roleID); err != nil {
		log.Fatalf("link user %d role %d: %v", userID, roleID, err)
	}
}

func lookupID(ctx context.Context, db *sql.DB, query string, arg any) uint64 {
	var id uint64
	if err := db.QueryRowContext(ctx, query, arg).Scan(&id); err != nil {
		log.Fatalf("lookup id (%s): %v", query, err)
	}
	return id
}
