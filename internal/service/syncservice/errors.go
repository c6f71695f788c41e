package syncservice

import (
	"errors"
	"strings"
)

// ErrConflictNotFound is returned by ResolveConflict when the conflict
// id is unknown for the tenant or the conflict was already resolved.
var ErrConflictNotFound = errors.New("conflict not found or already resolved")

// ValidationError rejects a call before any store mutation. It carries
// one message per violation so a device can fix its whole batch at once.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid sync request: " + strings.Join(e.Errors, "; ")
}

// IsValidation reports whether err is a pre-write validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
