package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists refresh tokens. The signed token string is the
// uniqueness key; rotation relies on the store's per-row atomicity
// (upsert keyed by token, conditional point lookups).
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Upsert inserts a refresh token row, or reactivates the existing row
// for the same token string while refreshing its expiry.
func (r *TokenRepo) Upsert(ctx context.Context, userID uint64, token string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token, is_active, expires_at)
		 VALUES (?,?,1,?)
		 ON DUPLICATE KEY UPDATE is_active=1, expires_at=VALUES(expires_at)`,
		userID, token, expiresAt)
	return err
}

// Deactivate marks a token row inactive. Idempotent: deactivating an
// already-inactive or missing row is not an error.
func (r *TokenRepo) Deactivate(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_active=0 WHERE token=?", token)
	return err
}

// IsValid reports whether an active, unexpired row exists for the
// token and is bound to the given user id.
func (r *TokenRepo) IsValid(ctx context.Context, userID uint64, token string, now time.Time) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM refresh_tokens WHERE token=? AND user_id=? AND is_active=1 AND expires_at > ? LIMIT 1",
		token, userID, now).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
