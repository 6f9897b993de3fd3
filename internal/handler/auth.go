package handler

import (
	"context"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rbac-admin/internal/auth"
	"github.com/iliyamo/rbac-admin/internal/metrics"
	"github.com/iliyamo/rbac-admin/internal/middleware"
	"github.com/iliyamo/rbac-admin/internal/queue"
	"github.com/iliyamo/rbac-admin/internal/utils"
)

// UserExistence is the lookup the verify endpoint needs.
// *repository.UserRepo satisfies it.
type UserExistence interface {
	Exists(ctx context.Context, id uint64) (bool, error)
}

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Verifier *auth.Verifier
	Tokens   *auth.TokenService
	Users    UserExistence
	Events   *queue.Publisher
}

func NewAuthHandler(v *auth.Verifier, t *auth.TokenService, u UserExistence, ev *queue.Publisher) *AuthHandler {
	return &AuthHandler{Verifier: v, Tokens: t, Users: u, Events: ev}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 100)),
	)
}

// Login handles POST /v1/auth/login: verify credentials, issue a token
// pair and persist the refresh row (best-effort).
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return utils.Fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res := h.Verifier.Validate(ctx, req.Username, req.Password)
	metrics.LoginOutcomes.WithLabelValues(string(res.Status)).Inc()

	switch res.Status {
	case auth.LoginSuccess:
		// proceed below
	case auth.LoginServerError:
		return utils.FailWith(c, http.StatusInternalServerError, utils.MsgInternalError,
			echo.Map{"status": res.Status})
	case auth.LoginUserNotFound:
		return utils.FailWith(c, http.StatusUnauthorized, utils.MsgUserNotFound,
			echo.Map{"status": res.Status})
	case auth.LoginWrongPassword:
		return utils.FailWith(c, http.StatusUnauthorized, utils.MsgWrongPassword,
			echo.Map{"status": res.Status})
	default: // LoginAccountLocked
		return utils.FailWith(c, http.StatusUnauthorized, utils.MsgUserNotActive,
			echo.Map{"status": res.Status})
	}

	pair, err := h.Tokens.IssuePair(ctx, res.Identity)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	h.Events.Emit(ctx, queue.EventLogin, res.Identity.UserID, res.Identity.Username, "")
	return utils.OK(c, http.StatusOK, utils.MsgTokenCreated, pair)
}

// Logout handles POST /v1/auth/logout. The refresh token travels in
// the Authorization header. Revocation is idempotent: logging out an
// already-inactive token still reports success, so the endpoint always
// answers 200 once a token is present.
func (h *AuthHandler) Logout(c echo.Context) error {
	token, ok := middleware.BearerToken(c)
	if !ok {
		return c.JSON(http.StatusOK, utils.Response{Success: false, Message: utils.MsgInvalidRequest})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	h.Tokens.RevokeRefreshToken(ctx, token)
	if id, ok := h.Tokens.VerifyRefresh(token); ok {
		h.Events.Emit(ctx, queue.EventLogout, id.UserID, id.Username, "")
	}
	return utils.OK(c, http.StatusOK, utils.MsgLogoutOK, nil)
}

// Refresh handles POST /v1/auth/refresh-token: rotation with reuse
// detection. A rotated, revoked, expired or unknown token yields a
// failure envelope; signature/expiry problems and database-state
// problems are indistinguishable to the client by design.
func (h *AuthHandler) Refresh(c echo.Context) error {
	token, ok := middleware.BearerToken(c)
	if !ok {
		return c.JSON(http.StatusOK, utils.Response{Success: false, Message: utils.MsgInvalidRequest})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, id, ok := h.Tokens.Rotate(ctx, token)
	if !ok {
		return c.JSON(http.StatusOK, utils.Response{Success: false, Message: utils.MsgInvalidRefresh})
	}
	h.Events.Emit(ctx, queue.EventTokenRotated, id.UserID, id.Username, "")
	return utils.OK(c, http.StatusOK, utils.MsgTokenRefreshed, pair)
}

// Verify handles POST /v1/auth/verify (behind the auth guard): it
// confirms the token's subject still exists.
func (h *AuthHandler) Verify(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return utils.Fail(c, http.StatusUnauthorized, utils.MsgAccessDenied)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	exists, err := h.Users.Exists(ctx, id.UserID)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	if !exists {
		return utils.Fail(c, http.StatusUnauthorized, utils.MsgAccessDenied)
	}
	return utils.OK(c, http.StatusOK, "Token verified successfully", id)
}
