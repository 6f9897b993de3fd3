// Package auth implements the authentication and authorization core:
// credential verification, token issuance and refresh-token lifecycle,
// and permission resolution. Components return tagged outcomes instead
// of raising errors across their boundary; translating denials into
// HTTP responses is the guard layer's job.
package auth

import (
	"context"
	"errors"
	"log"

	"github.com/iliyamo/rbac-admin/internal/model"
	"github.com/iliyamo/rbac-admin/internal/repository"
	"github.com/iliyamo/rbac-admin/internal/utils"
)

// LoginStatus tags the outcome of a credential check.
type LoginStatus string

const (
	LoginSuccess       LoginStatus = "SUCCESS"
	LoginUserNotFound  LoginStatus = "USER_NOT_FOUND"
	LoginWrongPassword LoginStatus = "WRONG_PASSWORD"
	LoginAccountLocked LoginStatus = "ACCOUNT_LOCKED"
	LoginServerError   LoginStatus = "SERVER_ERROR"
)

// Identity is the minimal authenticated subject carried in token
// claims and the request context.
type Identity struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
}

// LoginResult is the outcome surfaced to the guard layer. Identity is
// populated only when Status is LoginSuccess.
type LoginResult struct {
	Status   LoginStatus
	Identity Identity
}

// UserSource is the persistence collaborator the verifier needs.
// *repository.UserRepo satisfies it.
type UserSource interface {
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// Verifier validates username/password pairs against stored bcrypt
// hashes.
type Verifier struct {
	users UserSource
}

func NewVerifier(users UserSource) *Verifier { return &Verifier{users: users} }

// Validate checks the credentials and reports a tagged outcome. The
// password is compared before the account status so that a locked
// account with a wrong password still reports WRONG_PASSWORD.
// Persistence failures collapse to SERVER_ERROR; internal detail is
// logged, never surfaced.
func (v *Verifier) Validate(ctx context.Context, username, password string) LoginResult {
	u, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{Status: LoginUserNotFound}
		}
		log.Printf("auth: user lookup failed for %q: %v", username, err)
		return LoginResult{Status: LoginServerError}
	}
	if !utils.VerifyPassword(u.Password, password) {
		return LoginResult{Status: LoginWrongPassword}
	}
	if u.Status != model.StatusActive {
		return LoginResult{Status: LoginAccountLocked}
	}
	return LoginResult{
		Status:   LoginSuccess,
		Identity: Identity{UserID: u.ID, Username: u.Username},
	}
}
