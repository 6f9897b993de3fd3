package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokenStore struct {
	mu   sync.Mutex
	rows map[string]fakeTokenRow

	upsertErr error
}

type fakeTokenRow struct {
	userID    uint64
	active    bool
	expiresAt time.Time
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{rows: map[string]fakeTokenRow{}}
}

func (f *fakeTokenStore) Upsert(_ context.Context, userID uint64, token string, expiresAt time.Time) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[token] = fakeTokenRow{userID: userID, active: true, expiresAt: expiresAt}
	return nil
}

func (f *fakeTokenStore) Deactivate(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[token]; ok {
		row.active = false
		f.rows[token] = row
	}
	return nil
}

func (f *fakeTokenStore) IsValid(_ context.Context, userID uint64, token string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[token]
	return ok && row.userID == userID && row.active && row.expiresAt.After(now), nil
}

// steppedClock advances one second per call so consecutive signatures
// over the same identity never collide.
func steppedClock(start time.Time) func() time.Time {
	var n int64
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func newTestService(store TokenStore) *TokenService {
	s := NewTokenService("access-secret", 15*time.Minute, "refresh-secret", 7*24*time.Hour, store, nil)
	s.now = steppedClock(time.Now().UTC())
	return s
}

func TestAccessTokenRoundTrip(t *testing.T) {
	s := newTestService(newFakeTokenStore())
	id := Identity{UserID: 42, Username: "alice"}

	token, err := s.IssueAccessToken(id)
	require.NoError(t, err)

	got, ok := s.VerifyAccess(token)
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestTokenClassesAreNotInterchangeable(t *testing.T) {
	s := newTestService(newFakeTokenStore())
	id := Identity{UserID: 42, Username: "alice"}

	access, err := s.IssueAccessToken(id)
	require.NoError(t, err)
	refresh, err := s.IssueRefreshToken(id)
	require.NoError(t, err)

	_, ok := s.VerifyRefresh(access)
	assert.False(t, ok, "access token must not verify as refresh")
	_, ok = s.VerifyAccess(refresh)
	assert.False(t, ok, "refresh token must not verify as access")
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := newTestService(newFakeTokenStore())

	_, ok := s.VerifyAccess("not-a-jwt")
	assert.False(t, ok)
	_, ok = s.VerifyAccess("")
	assert.False(t, ok)
}

func TestVerifyRejectsExpired(t *testing.T) {
	s := newTestService(newFakeTokenStore())
	s.now = steppedClock(time.Now().UTC().Add(-48 * time.Hour))
	s.accessTTL = time.Minute

	token, err := s.IssueAccessToken(Identity{UserID: 1, Username: "a"})
	require.NoError(t, err)

	_, ok := s.VerifyAccess(token)
	assert.False(t, ok)
}

func TestIssuePairPersistsRefreshRow(t *testing.T) {
	store := newFakeTokenStore()
	s := newTestService(store)
	id := Identity{UserID: 9, Username: "carol"}

	pair, err := s.IssuePair(context.Background(), id)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	assert.True(t, s.IsRefreshTokenValid(context.Background(), 9, pair.RefreshToken))
	assert.False(t, s.IsRefreshTokenValid(context.Background(), 8, pair.RefreshToken),
		"row is bound to its user")
}

// An active row with a past expiry must fail validation.
func TestIsRefreshTokenValidRejectsExpiredRow(t *testing.T) {
	store := newFakeTokenStore()
	s := newTestService(store)

	store.rows["stale"] = fakeTokenRow{
		userID:    9,
		active:    true,
		expiresAt: time.Now().UTC().Add(-time.Hour),
	}

	assert.False(t, s.IsRefreshTokenValid(context.Background(), 9, "stale"))
}

// A bookkeeping failure must not fail the login flow.
func TestIssuePairSurvivesStoreFailure(t *testing.T) {
	store := newFakeTokenStore()
	store.upsertErr = errors.New("deadlock")
	s := newTestService(store)

	pair, err := s.IssuePair(context.Background(), Identity{UserID: 9, Username: "carol"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestRotateIssuesNewPairAndRevokesOld(t *testing.T) {
	store := newFakeTokenStore()
	s := newTestService(store)
	id := Identity{UserID: 5, Username: "dave"}

	first, err := s.IssuePair(context.Background(), id)
	require.NoError(t, err)

	second, gotID, ok := s.Rotate(context.Background(), first.RefreshToken)
	require.True(t, ok)
	assert.Equal(t, id, gotID)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	assert.False(t, s.IsRefreshTokenValid(context.Background(), 5, first.RefreshToken))
	assert.True(t, s.IsRefreshTokenValid(context.Background(), 5, second.RefreshToken))
}

// Replaying an already-rotated token is the reuse-detection case: the
// signature still verifies but the row is inactive, so rotation fails.
func TestRotateDetectsReuse(t *testing.T) {
	store := newFakeTokenStore()
	s := newTestService(store)

	first, err := s.IssuePair(context.Background(), Identity{UserID: 5, Username: "dave"})
	require.NoError(t, err)

	_, _, ok := s.Rotate(context.Background(), first.RefreshToken)
	require.True(t, ok)

	_, _, ok = s.Rotate(context.Background(), first.RefreshToken)
	assert.False(t, ok)
}

func TestRotateRejectsUnknownToken(t *testing.T) {
	s := newTestService(newFakeTokenStore())

	// Signed with the right secret but never persisted.
	refresh, err := s.IssueRefreshToken(Identity{UserID: 5, Username: "dave"})
	require.NoError(t, err)

	_, _, ok := s.Rotate(context.Background(), refresh)
	assert.False(t, ok)
}

func TestRotateRejectsRevokedToken(t *testing.T) {
	store := newFakeTokenStore()
	s := newTestService(store)

	pair, err := s.IssuePair(context.Background(), Identity{UserID: 5, Username: "dave"})
	require.NoError(t, err)

	s.RevokeRefreshToken(context.Background(), pair.RefreshToken)

	_, _, ok := s.Rotate(context.Background(), pair.RefreshToken)
	assert.False(t, ok)
}

func TestRevokeIsIdempotent(t *testing.T) {
	store := newFakeTokenStore()
	s := newTestService(store)

	pair, err := s.IssuePair(context.Background(), Identity{UserID: 5, Username: "dave"})
	require.NoError(t, err)

	s.RevokeRefreshToken(context.Background(), pair.RefreshToken)
	s.RevokeRefreshToken(context.Background(), pair.RefreshToken)
	assert.False(t, s.IsRefreshTokenValid(context.Background(), 5, pair.RefreshToken))
}
