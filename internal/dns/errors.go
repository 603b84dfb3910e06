package dns

import (
	"errors"
	"fmt"
)

// ErrConflict is returned by Replace when the server rejects the change set
// because the record it observed at apply time did not match basedOn.
// Another writer got there first; the caller refetches and retries.
var ErrConflict = errors.New("change set rejected: record changed concurrently")

// AuthError is an authentication or authorization failure that persisted
// through one forced token refresh. Surfaced to the caller of the failing
// operation.
type AuthError struct {
	StatusCode int
	Operation  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed with status %d after token refresh", e.Operation, e.StatusCode)
}

// TransientError marks a failure worth retrying with backoff: transport
// errors and server-side 5xx responses. Never fatal.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
