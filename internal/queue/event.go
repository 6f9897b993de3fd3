// Package queue defines the auth event stream published to the
// message broker and the background consumer that records it.
package queue

// Event types published on the auth.events queue.
const (
	EventLogin              = "auth.login"
	EventLogout             = "auth.logout"
	EventTokenRotated       = "auth.token_rotated"
	EventBookkeepingFailure = "auth.refresh_bookkeeping_failed"
)

// AuthEvent describes an authentication lifecycle occurrence. Detail
// carries failure text for bookkeeping events and stays empty
// otherwise; consumers can log, alert or feed analytics without
// querying the primary database.
type AuthEvent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	UserID   uint64 `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Detail   string `json:"detail,omitempty"`
	At       string `json:"at"`
}
