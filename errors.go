package ldapguard

import (
	"fmt"
	"time"
)

// ConnError represents a failure to establish the underlying LDAP
// connection, either at construction time or during an idle refresh.
// Establishment failures are never retried internally; they surface to
// the caller immediately so that credential problems are visible at
// startup.
type ConnError struct {
	message string
	cause   error
}

func (e *ConnError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *ConnError) Unwrap() error {
	return e.cause
}

// NewConnError creates a new connection establishment error.
func NewConnError(message string, cause error) *ConnError {
	return &ConnError{
		message: message,
		cause:   cause,
	}
}

// StaleError is returned by the guard when the connection has been idle
// longer than the configured idle timeout and idle refresh is disabled.
// It tells the caller to discard the whole guarded connection and
// acquire a fresh one; it is distinguishable from ordinary protocol
// errors so an outer retry layer can match on it.
type StaleError struct {
	// IdleAge is the measured time since the handle was last used.
	IdleAge time.Duration
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("ldap connection idle for %dms", e.IdleAge.Milliseconds())
}

// IsStaleError reports whether err indicates an idle-expired connection.
func IsStaleError(err error) bool {
	_, ok := err.(*StaleError)
	return ok
}

// TeardownError represents a failure while closing the underlying
// handle, either during an explicit Close or during pre-refresh
// teardown. Ownership of the handle is always released before this
// error is reported, so a failed teardown never leaves a half-dead
// handle behind.
type TeardownError struct {
	cause error
}

func (e *TeardownError) Error() string {
	return "failed to close ldap connection: " + e.cause.Error()
}

func (e *TeardownError) Unwrap() error {
	return e.cause
}
