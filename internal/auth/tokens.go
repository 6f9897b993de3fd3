package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/rbac-admin/internal/metrics"
)

// TokenStore is the persistence collaborator for refresh-token
// bookkeeping. *repository.TokenRepo satisfies it.
type TokenStore interface {
	Upsert(ctx context.Context, userID uint64, token string, expiresAt time.Time) error
	Deactivate(ctx context.Context, token string) error
	IsValid(ctx context.Context, userID uint64, token string, now time.Time) (bool, error)
}

// EventSink receives auth lifecycle events (best-effort, may be nil).
type EventSink interface {
	Emit(ctx context.Context, eventType string, userID uint64, username, detail string)
}

// TokenPair is a freshly issued access/refresh token couple.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService issues and validates the two token classes. Access and
// refresh tokens are signed with distinct secrets so a compromised
// access secret cannot forge refresh tokens.
type TokenService struct {
	accessSecret  string
	refreshSecret string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	store         TokenStore
	events        EventSink
	now           func() time.Time
}

func NewTokenService(accessSecret string, accessTTL time.Duration, refreshSecret string, refreshTTL time.Duration, store TokenStore, events EventSink) *TokenService {
	return &TokenService{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		store:         store,
		events:        events,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// IssueAccessToken signs a short-lived access token for the identity.
func (s *TokenService) IssueAccessToken(id Identity) (string, error) {
	return s.sign(id, s.accessSecret, s.accessTTL)
}

// IssueRefreshToken signs a long-lived refresh token for the identity.
func (s *TokenService) IssueRefreshToken(id Identity) (string, error) {
	return s.sign(id, s.refreshSecret, s.refreshTTL)
}

func (s *TokenService) sign(id Identity, secret string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id":  id.UserID,
		"username": id.Username,
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// VerifyAccess validates signature and expiry against the access
// secret and returns the embedded identity.
func (s *TokenService) VerifyAccess(token string) (Identity, bool) {
	return s.verify(token, s.accessSecret)
}

// VerifyRefresh validates signature and expiry against the refresh
// secret and returns the embedded identity.
func (s *TokenService) VerifyRefresh(token string) (Identity, bool) {
	return s.verify(token, s.refreshSecret)
}

// verify never lets a parse failure escape: any invalid token is
// logged and reported as not-ok, which callers treat as an
// authentication failure.
func (s *TokenService) verify(token, secret string) (Identity, bool) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		log.Printf("auth: token verification failed: %v", err)
		return Identity{}, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, false
	}
	return identityFromClaims(claims)
}

func identityFromClaims(claims jwt.MapClaims) (Identity, bool) {
	var id Identity
	// JWT numbers decode as float64.
	switch v := claims["user_id"].(type) {
	case float64:
		id.UserID = uint64(v)
	default:
		return Identity{}, false
	}
	username, ok := claims["username"].(string)
	if !ok || id.UserID == 0 {
		return Identity{}, false
	}
	id.Username = username
	return id, true
}

// decodeExpiry reads the exp claim without verifying the signature;
// bookkeeping stores the expiry of tokens this service just signed.
func (s *TokenService) decodeExpiry(token string) (time.Time, error) {
	tok, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, errors.New("missing exp claim")
	}
	return exp.Time, nil
}

// PersistRefreshToken upserts the refresh-token row keyed by the token
// string: an existing row is reactivated with a fresh expiry. The
// write is best-effort — a failure is logged, counted and published as
// an observability event, but never fails the surrounding login or
// refresh flow. The accepted risk: a crash here leaves the session
// unable to refresh even though login reported success.
func (s *TokenService) PersistRefreshToken(ctx context.Context, userID uint64, token string) {
	expiresAt, err := s.decodeExpiry(token)
	if err == nil {
		err = s.store.Upsert(ctx, userID, token, expiresAt)
	}
	if err != nil {
		log.Printf("auth: unable to save refresh token for user %d: %v", userID, err)
		metrics.RefreshBookkeepingFailures.Inc()
		if s.events != nil {
			s.events.Emit(ctx, "auth.refresh_bookkeeping_failed", userID, "", err.Error())
		}
	}
}

// RevokeRefreshToken marks the row inactive. Idempotent and
// best-effort for the same reason as PersistRefreshToken.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, token string) {
	if err := s.store.Deactivate(ctx, token); err != nil {
		log.Printf("auth: unable to revoke refresh token: %v", err)
		metrics.RefreshBookkeepingFailures.Inc()
		if s.events != nil {
			s.events.Emit(ctx, "auth.refresh_bookkeeping_failed", 0, "", err.Error())
		}
	}
}

// IsRefreshTokenValid reports whether an active, unexpired row bound
// to the given user exists for the token. Fails closed.
func (s *TokenService) IsRefreshTokenValid(ctx context.Context, userID uint64, token string) bool {
	ok, err := s.store.IsValid(ctx, userID, token, s.now())
	if err != nil {
		log.Printf("auth: refresh token lookup failed: %v", err)
		return false
	}
	return ok
}

// IssuePair signs a new access/refresh pair and persists the refresh
// row (best-effort).
func (s *TokenService) IssuePair(ctx context.Context, id Identity) (TokenPair, error) {
	access, err := s.IssueAccessToken(id)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.IssueRefreshToken(id)
	if err != nil {
		return TokenPair{}, err
	}
	s.PersistRefreshToken(ctx, id.UserID, refresh)
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Rotate exchanges a refresh token for a new pair. The old token's
// signature and expiry are checked first, then its database validity;
// on success the old row is deactivated and the new one persisted.
// Because the old row is deactivated immediately, replaying a rotated
// token fails the database check even while its signature is still
// valid (rotation with reuse detection).
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (TokenPair, Identity, bool) {
	id, ok := s.VerifyRefresh(refreshToken)
	if !ok {
		return TokenPair{}, Identity{}, false
	}
	if !s.IsRefreshTokenValid(ctx, id.UserID, refreshToken) {
		return TokenPair{}, Identity{}, false
	}
	pair, err := s.issuePairRotating(ctx, id, refreshToken)
	if err != nil {
		log.Printf("auth: token rotation failed for user %d: %v", id.UserID, err)
		return TokenPair{}, Identity{}, false
	}
	metrics.TokenRotations.Inc()
	return pair, id, true
}

func (s *TokenService) issuePairRotating(ctx context.Context, id Identity, oldToken string) (TokenPair, error) {
	access, err := s.IssueAccessToken(id)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.IssueRefreshToken(id)
	if err != nil {
		return TokenPair{}, err
	}
	s.RevokeRefreshToken(ctx, oldToken)
	s.PersistRefreshToken(ctx, id.UserID, refresh)
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
