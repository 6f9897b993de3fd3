package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/rbac-admin/internal/model"
)

type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// RolePermissionRow is a role_permissions join row enriched with the
// permission's name and description, as returned by role detail reads.
type RolePermissionRow struct {
	ID                    uint64 `json:"id"`
	RoleID                uint64 `json:"roleId"`
	PermissionID          uint64 `json:"permissionId"`
	PermissionName        string `json:"permissionName"`
	PermissionDescription string `json:"permissionDescription"`
}

// List returns one page of roles ordered by id, plus the total count.
func (r *RoleRepo) List(ctx context.Context, page, pageSize int) ([]model.Role, int64, error) {
	offset := (page - 1) * pageSize
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,description,created_at,updated_at FROM roles ORDER BY id LIMIT ? OFFSET ?",
		pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	roles := make([]model.Role, 0, pageSize)
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, 0, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM roles").Scan(&total); err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

// GetByID fetches one role.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,description,created_at,updated_at FROM roles WHERE id=? LIMIT 1",
		id).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err == sql.ErrNoRows {
		return role, ErrNotFound
	}
	return role, err
}

// PermissionsOf returns the permission links attached to a role.
func (r *RoleRepo) PermissionsOf(ctx context.Context, roleID uint64) ([]RolePermissionRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT rp.id, rp.role_id, rp.permission_id, p.name, p.description
		   FROM role_permissions rp
		   JOIN permissions p ON p.id = rp.permission_id
		  WHERE rp.role_id = ?
		  ORDER BY rp.id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make([]RolePermissionRow, 0)
	for rows.Next() {
		var link RolePermissionRow
		if err := rows.Scan(&link.ID, &link.RoleID, &link.PermissionID, &link.PermissionName, &link.PermissionDescription); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// Create inserts a role and fills in the generated id.
func (r *RoleRepo) Create(ctx context.Context, role *model.Role) error {
	role.Name = strings.TrimSpace(role.Name)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (name, description) VALUES (?,?)", role.Name, role.Description)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	role.ID = uint64(id)
	return nil
}

// Update rewrites name and description. Callers merge partial input
// into the current row first, so zero affected rows is not an error.
func (r *RoleRepo) Update(ctx context.Context, role model.Role) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE roles SET name=?, description=? WHERE id=?",
		strings.TrimSpace(role.Name), role.Description, role.ID)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// Delete removes a role; user and permission links cascade.
func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM roles WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplacePermissions reconciles a role's permission set against the
// given ids: links absent from the list are removed, missing ones are
// added. All referenced permissions must exist (ErrForeignKey
// otherwise) and the whole reconciliation runs in one transaction.
func (r *RoleRepo) ReplacePermissions(ctx context.Context, roleID uint64, permissionIDs []uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM roles WHERE id=? LIMIT 1", roleID).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}

	if len(permissionIDs) > 0 {
		placeholders := strings.Repeat("?,", len(permissionIDs))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]any, 0, len(permissionIDs))
		for _, id := range permissionIDs {
			args = append(args, id)
		}

		var count int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM permissions WHERE id IN ("+placeholders+")", args...).Scan(&count); err != nil {
			return err
		}
		if count != len(uniqueIDs(permissionIDs)) {
			return ErrForeignKey
		}

		delArgs := append([]any{roleID}, args...)
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM role_permissions WHERE role_id=? AND permission_id NOT IN ("+placeholders+")", delArgs...); err != nil {
			return err
		}
		for _, id := range permissionIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT IGNORE INTO role_permissions (role_id, permission_id) VALUES (?,?)", roleID, id); err != nil {
				return err
			}
		}
	} else {
		if _, err := tx.ExecContext(ctx, "DELETE FROM role_permissions WHERE role_id=?", roleID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
