package syncer

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by Sync when no calendar connection is
	// established.
	ErrNotConnected = errors.New("calendar not connected")
	// ErrSyncInProgress is returned when a connect or sync is already running.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrSyncFailed wraps failures while collecting or pushing events. The
	// aggregator status is set to error when it is returned.
	ErrSyncFailed = errors.New("sync failed")
	// ErrEventNotFound is returned when an event id is not in the feed.
	ErrEventNotFound = errors.New("event not found")
)

// ValidationError reports invalid input for an event operation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConnectionError reports a failed attempt to connect the external calendar.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect calendar: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
