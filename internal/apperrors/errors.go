package apperrors

import (
	"fmt"
)

// NotFoundError represents a lookup miss that is reported to the user
// rather than raised: an unknown order id, proxy address, or package.
type NotFoundError struct {
	Kind string
	Key  string
}

// Error returns the error message
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// MalformedDateError represents an order whose stored date cannot be parsed.
// The user sees a degraded "date not available" response; the process keeps
// running.
type MalformedDateError struct {
	OrderID string
	Value   string
}

// Error returns the error message
func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("malformed order date for %s: %q", e.OrderID, e.Value)
}

// DuplicateTicketError represents an open request from a user who already
// holds a live ticket. The request is rejected without mutating state.
type DuplicateTicketError struct {
	UserID int64
}

// Error returns the error message
func (e *DuplicateTicketError) Error() string {
	return fmt.Sprintf("user %d already has an open ticket", e.UserID)
}

// SnapshotError represents a missing or corrupt backing snapshot. Callers
// degrade to an empty dataset and log it.
type SnapshotError struct {
	Path string
	Err  error
}

// Error returns the error message
func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot %s unavailable: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *SnapshotError) Unwrap() error {
	return e.Err
}

// ProbeError represents a failed proxy probe. It is logged by the prober and
// classified as inactive; it is never surfaced to the validator.
type ProbeError struct {
	Address string
	Err     error
}

// Error returns the error message
func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe failed for %s: %v", e.Address, e.Err)
}

// Unwrap returns the underlying error
func (e *ProbeError) Unwrap() error {
	return e.Err
}
