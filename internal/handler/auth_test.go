package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/rbac-admin/internal/auth"
	"github.com/iliyamo/rbac-admin/internal/model"
	"github.com/iliyamo/rbac-admin/internal/repository"
	"github.com/iliyamo/rbac-admin/internal/utils"
)

type fakeAuthUsers struct {
	byName map[string]model.User
}

func (f *fakeAuthUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	u, ok := f.byName[username]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeAuthUsers) Exists(_ context.Context, id uint64) (bool, error) {
	for _, u := range f.byName {
		if u.ID == id {
			return true, nil
		}
	}
	return false, nil
}

type memTokenStore struct {
	mu   sync.Mutex
	rows map[string]memTokenRow
}

type memTokenRow struct {
	userID    uint64
	active    bool
	expiresAt time.Time
}

func newMemTokenStore() *memTokenStore { return &memTokenStore{rows: map[string]memTokenRow{}} }

func (m *memTokenStore) Upsert(_ context.Context, userID uint64, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[token] = memTokenRow{userID: userID, active: true, expiresAt: expiresAt}
	return nil
}

func (m *memTokenStore) Deactivate(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[token]; ok {
		row.active = false
		m.rows[token] = row
	}
	return nil
}

func (m *memTokenStore) IsValid(_ context.Context, userID uint64, token string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[token]
	return ok && row.userID == userID && row.active && row.expiresAt.After(now), nil
}

type envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func newAuthFixture(t *testing.T) (*AuthHandler, *auth.TokenService) {
	t.Helper()
	hash, err := utils.HashPassword("secret123", bcrypt.MinCost)
	require.NoError(t, err)

	users := &fakeAuthUsers{byName: map[string]model.User{
		"alice":  {ID: 1, Username: "alice", Password: hash, Status: model.StatusActive},
		"locked": {ID: 2, Username: "locked", Password: hash, Status: model.StatusLocked},
	}}
	tokens := auth.NewTokenService("access-secret", 15*time.Minute, "refresh-secret", 24*time.Hour,
		newMemTokenStore(), nil)
	return NewAuthHandler(auth.NewVerifier(users), tokens, users, nil), tokens
}

func postJSON(path, body, bearer string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req, httptest.NewRecorder()
}

func TestLoginSuccess(t *testing.T) {
	h, _ := newAuthFixture(t)
	e := echo.New()

	req, rec := postJSON("/v1/auth/login", `{"username":"alice","password":"secret123"}`, "")
	require.NoError(t, h.Login(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Data["access_token"])
	assert.NotEmpty(t, env.Data["refresh_token"])
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantCode   int
		wantStatus string
	}{
		{"unknown user", `{"username":"nobody","password":"secret123"}`, http.StatusUnauthorized, "USER_NOT_FOUND"},
		{"wrong password", `{"username":"alice","password":"not-it"}`, http.StatusUnauthorized, "WRONG_PASSWORD"},
		{"locked account", `{"username":"locked","password":"secret123"}`, http.StatusUnauthorized, "ACCOUNT_LOCKED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newAuthFixture(t)
			e := echo.New()

			req, rec := postJSON("/v1/auth/login", tt.body, "")
			require.NoError(t, h.Login(e.NewContext(req, rec)))

			assert.Equal(t, tt.wantCode, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantStatus, env.Data["status"])
		})
	}
}

func TestLoginRejectsInvalidBody(t *testing.T) {
	h, _ := newAuthFixture(t)
	e := echo.New()

	for _, body := range []string{`{}`, `{"username":"alice"}`, `{"password":"x"}`} {
		req, rec := postJSON("/v1/auth/login", body, "")
		require.NoError(t, h.Login(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	h, tokens := newAuthFixture(t)
	e := echo.New()

	pair, err := tokens.IssuePair(context.Background(), auth.Identity{UserID: 1, Username: "alice"})
	require.NoError(t, err)

	req, rec := postJSON("/v1/auth/refresh-token", "", pair.RefreshToken)
	require.NoError(t, h.Refresh(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Data["access_token"])
	assert.NotEmpty(t, env.Data["refresh_token"])
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	h, _ := newAuthFixture(t)
	e := echo.New()

	req, rec := postJSON("/v1/auth/refresh-token", "", "not-a-token")
	require.NoError(t, h.Refresh(e.NewContext(req, rec)))

	// The endpoint answers 200 with a failure envelope.
	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, utils.MsgInvalidRefresh, env.Message)
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	h, tokens := newAuthFixture(t)
	e := echo.New()

	pair, err := tokens.IssuePair(context.Background(), auth.Identity{UserID: 1, Username: "alice"})
	require.NoError(t, err)
	tokens.RevokeRefreshToken(context.Background(), pair.RefreshToken)

	req, rec := postJSON("/v1/auth/refresh-token", "", pair.RefreshToken)
	require.NoError(t, h.Refresh(e.NewContext(req, rec)))

	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
}

func TestRefreshWithoutTokenFails(t *testing.T) {
	h, _ := newAuthFixture(t)
	e := echo.New()

	req, rec := postJSON("/v1/auth/refresh-token", "", "")
	require.NoError(t, h.Refresh(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestLogoutRevokesToken(t *testing.T) {
	h, tokens := newAuthFixture(t)
	e := echo.New()

	pair, err := tokens.IssuePair(context.Background(), auth.Identity{UserID: 1, Username: "alice"})
	require.NoError(t, err)

	req, rec := postJSON("/v1/auth/logout", "", pair.RefreshToken)
	require.NoError(t, h.Logout(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)
	assert.False(t, tokens.IsRefreshTokenValid(context.Background(), 1, pair.RefreshToken))
}

// Logging out twice is harmless.
func TestLogoutIsIdempotent(t *testing.T) {
	h, tokens := newAuthFixture(t)
	e := echo.New()

	pair, err := tokens.IssuePair(context.Background(), auth.Identity{UserID: 1, Username: "alice"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		req, rec := postJSON("/v1/auth/logout", "", pair.RefreshToken)
		require.NoError(t, h.Logout(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeEnvelope(t, rec).Success)
	}
}

func TestVerifyConfirmsExistingSubject(t *testing.T) {
	h, _ := newAuthFixture(t)
	e := echo.New()

	req, rec := postJSON("/v1/auth/verify", "", "")
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(1))
	c.Set("username", "alice")
	require.NoError(t, h.Verify(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, float64(1), env.Data["user_id"])
}

func TestVerifyRejectsDeletedSubject(t *testing.T) {
	h, _ := newAuthFixture(t)
	e := echo.New()

	req, rec := postJSON("/v1/auth/verify", "", "")
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(99))
	c.Set("username", "ghost")
	require.NoError(t, h.Verify(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}
