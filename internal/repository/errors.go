// Package repository implements MySQL persistence for users, roles,
// permissions and refresh tokens. Sentinel errors let handlers map
// failures onto the HTTP taxonomy without inspecting driver detail.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested row does not exist.
// Handlers translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned on unique-constraint violations, e.g.
// creating a role whose name is already taken. Handlers translate
// this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrForeignKey is returned when a write references rows that do not
// exist, e.g. assigning unknown permission ids to a role. Handlers
// translate this into an HTTP 400 response.
var ErrForeignKey = errors.New("referenced row missing")

// MySQL reports duplicate keys as error 1062 and missing foreign keys
// as 1452. The driver error string carries the numeric code.
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1452")
}
