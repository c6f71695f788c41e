package syncservice

import (
	"fmt"

	"github.com/simple-pos/sync-api/internal/syncx"
)

// validatePush checks the whole batch before the transaction opens.
// A failure here aborts the entire call with no store side effects.
// Unknown entity names are deliberately not checked: they are a
// per-item rejection during processing, not a call-level failure.
func validatePush(deviceID string, changes []Change) error {
	var errs []string

	if deviceID == "" {
		errs = append(errs, "deviceId is required")
	}

	if len(changes) > MaxBatchSize {
		errs = append(errs, fmt.Sprintf("changes exceeds maximum batch size of %d", MaxBatchSize))
	}

	for i, c := range changes {
		switch c.Operation {
		case OpCreate, OpUpdate, OpDelete:
		default:
			errs = append(errs, fmt.Sprintf("changes[%d]: invalid operation %q", i, c.Operation))
		}

		if c.Version < 0 {
			errs = append(errs, fmt.Sprintf("changes[%d]: version must be non-negative", i))
		}

		if _, ok := syncx.ParseTimeToMs(c.Timestamp); !ok {
			errs = append(errs, fmt.Sprintf("changes[%d]: invalid timestamp %q", i, c.Timestamp))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
