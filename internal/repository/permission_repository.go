package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/rbac-admin/internal/model"
)

type PermissionRepo struct{ DB *sql.DB }

func NewPermissionRepo(db *sql.DB) *PermissionRepo { return &PermissionRepo{DB: db} }

// List returns one page of permissions plus the total count.
func (r *PermissionRepo) List(ctx context.Context, page, pageSize int) ([]model.Permission, int64, error) {
	offset := (page - 1) * pageSize
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,description,created_at,updated_at FROM permissions ORDER BY id LIMIT ? OFFSET ?",
		pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	perms := make([]model.Permission, 0, pageSize)
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM permissions").Scan(&total); err != nil {
		return nil, 0, err
	}
	return perms, total, nil
}

// GetByID fetches one permission.
func (r *PermissionRepo) GetByID(ctx context.Context, id uint64) (model.Permission, error) {
	var p model.Permission
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,description,created_at,updated_at FROM permissions WHERE id=? LIMIT 1",
		id).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// Create inserts a permission and fills in the generated id.
func (r *PermissionRepo) Create(ctx context.Context, p *model.Permission) error {
	p.Name = strings.TrimSpace(p.Name)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO permissions (name, description) VALUES (?,?)", p.Name, p.Description)
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
	p.ID = uint64(id)
	return nil
}

// Update rewrites name and description; callers merge partial input
// into the current row first.
func (r *PermissionRepo) Update(ctx context.Context, p model.Permission) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE permissions SET name=?, description=? WHERE id=?",
		strings.TrimSpace(p.Name), p.Description, p.ID)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// Delete removes a permission; role links cascade.
func (r *PermissionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM permissions WHERE id=?", id)
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
