package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/rbac-admin/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,email,password,status,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// Create inserts a user together with its profile in one transaction
// and fills in the generated ids.
func (r *UserRepo) Create(ctx context.Context, u *model.User, p *model.Profile) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (username, email, password, status) VALUES (?,?,?,?)",
		u.Username, u.Email, u.Password, u.Status)
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
	u.ID = uint64(id)

	res, err = tx.ExecContext(ctx,
		"INSERT INTO user_profiles (user_id, first_name, last_name, gender, birthday, address, phone, company, avatar_url) VALUES (?,?,?,?,?,?,?,?,?)",
		u.ID, p.FirstName, p.LastName, p.Gender, p.Birthday, p.Address, p.Phone, p.Company, p.AvatarURL)
	if err != nil {
		return err
	}
	pid, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(pid)
	p.UserID = u.ID

	return tx.Commit()
}

// GetByUsername fetches a user by its unique username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	username = strings.TrimSpace(username)
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// Exists reports whether a user row with the given id is present.
func (r *UserRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=? LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns one page of users ordered by most recently updated,
// plus the total row count for pagination metadata.
func (r *UserRepo) List(ctx context.Context, page, pageSize int) ([]model.User, int64, error) {
	offset := (page - 1) * pageSize
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY updated_at DESC LIMIT ? OFFSET ?",
		pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]model.User, 0, pageSize)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update rewrites the user's identity columns and profile in one
// transaction. The password column is left untouched.
func (r *UserRepo) Update(ctx context.Context, u model.User, p model.Profile) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET username=?, email=? WHERE id=?",
		strings.TrimSpace(u.Username), strings.ToLower(strings.TrimSpace(u.Email)), u.ID); err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE user_profiles SET first_name=?, last_name=?, gender=?, birthday=?, address=?, phone=?, company=?, avatar_url=? WHERE user_id=?",
		p.FirstName, p.LastName, p.Gender, p.Birthday, p.Address, p.Phone, p.Company, p.AvatarURL, u.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a user; profile, role links and refresh tokens go
// with it via ON DELETE CASCADE.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
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

// GetProfile fetches the profile row owned by a user.
func (r *UserRepo) GetProfile(ctx context.Context, userID uint64) (model.Profile, error) {
	var (
		p        model.Profile
		birthday sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,first_name,last_name,gender,birthday,address,phone,company,avatar_url,created_at,updated_at FROM user_profiles WHERE user_id=? LIMIT 1",
		userID).Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.Gender, &birthday,
		&p.Address, &p.Phone, &p.Company, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if birthday.Valid {
		t := birthday.Time
		p.Birthday = &t
	}
	return p, nil
}

// Roles returns the names of all roles held by a user.
func (r *UserRepo) Roles(ctx context.Context, userID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.name
		   FROM user_roles ur
		   JOIN roles r ON r.id = ur.role_id
		  WHERE ur.user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Grants loads the user's roles with the permissions attached to each
// role (two-level join). Roles without permissions still appear, with
// an empty permission list, so the SuperAdmin short-circuit works even
// when that role has no explicit rows.
func (r *UserRepo) Grants(ctx context.Context, userID uint64) ([]model.RoleGrant, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.name, p.name
		   FROM user_roles ur
		   JOIN roles r ON r.id = ur.role_id
		   LEFT JOIN role_permissions rp ON rp.role_id = r.id
		   LEFT JOIN permissions p ON p.id = rp.permission_id
		  WHERE ur.user_id = ?
		  ORDER BY r.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		grants []model.RoleGrant
		index  = map[string]int{}
	)
	for rows.Next() {
		var (
			role string
			perm sql.NullString
		)
		if err := rows.Scan(&role, &perm); err != nil {
			return nil, err
		}
		i, ok := index[role]
		if !ok {
			i = len(grants)
			index[role] = i
			grants = append(grants, model.RoleGrant{Role: role})
		}
		if perm.Valid {
			grants[i].Permissions = append(grants[i].Permissions, perm.String)
		}
	}
	return grants, rows.Err()
}

// AssignRole links a user to a role; duplicate links are ignored.
func (r *UserRepo) AssignRole(ctx context.Context, userID, roleID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO user_roles (user_id, role_id) VALUES (?,?)", userID, roleID)
	if isForeignKeyViolation(err) {
		return ErrForeignKey
	}
	return err
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, userID uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password=? WHERE id=?", hash, userID)
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
