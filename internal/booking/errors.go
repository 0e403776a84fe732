package booking

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnexpectedStatus is matched by every status error from this package.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError reports an endpoint answering with a status other than the one
// the operation requires.
type StatusError struct {
	Op       string
	Expected int
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: expected status %d, got %d", e.Op, e.Expected, e.Status)
}

// Is lets errors.Is(err, ErrUnexpectedStatus) match.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// CollisionError is a create that did not return 201. On the shared
// environment that usually means another tester holds the room for an
// overlapping range, so the message names the room, the dates and the status.
type CollisionError struct {
	Request Request
	Status  int
	Body    string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("Booking POST returned %d for %s. Shared env collision likely; try bumping base date offset.",
		e.Status, e.Request.Diagnostic())
}

// Is lets errors.Is(err, ErrUnexpectedStatus) match.
func (e *CollisionError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// IsCollision reports whether err is, or wraps, a CollisionError.
func IsCollision(err error) bool {
	var ce *CollisionError
	return errors.As(err, &ce)
}

// IsTimeout reports whether err came from a deadline running out, either the
// client's action timeout or the caller's context.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
