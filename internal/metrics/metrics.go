// Package metrics exposes Prometheus counters for the auth core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginOutcomes counts credential checks by tagged outcome
	// (SUCCESS, USER_NOT_FOUND, WRONG_PASSWORD, ACCOUNT_LOCKED,
	// SERVER_ERROR).
	LoginOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_outcomes_total",
		Help: "Login attempts by outcome status.",
	}, []string{"status"})

	// TokenRotations counts successful refresh-token rotations.
	TokenRotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_rotations_total",
		Help: "Successful refresh token rotations.",
	})

	// RefreshBookkeepingFailures counts best-effort refresh-token
	// writes that failed. Login and refresh flows still report
	// success when this happens.
	RefreshBookkeepingFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_refresh_bookkeeping_failures_total",
		Help: "Failed best-effort refresh token persistence or revocation writes.",
	})
)
