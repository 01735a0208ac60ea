package venue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrAnalyticsUnavailable signals that a venue cannot substantiate a derived
// figure (volume, TVL, APY). Callers must treat this as "no data", never as
// zero.
var ErrAnalyticsUnavailable = errors.New("venue analytics unavailable")

// NotInitializedError is returned by every adapter operation invoked before
// Initialize has completed. The adapter itself remains usable after a retry.
type NotInitializedError struct {
	Venue string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("%s adapter not initialized", e.Venue)
}

// NoPoolFoundError means the venue has no pool for the requested pair. It is
// permanent for that pair/venue combination.
type NoPoolFoundError struct {
	Venue      string
	InputMint  string
	OutputMint string
}

func (e *NoPoolFoundError) Error() string {
	return fmt.Sprintf("%s: no pool for %s -> %s", e.Venue, e.InputMint, e.OutputMint)
}

// TimeoutError means a read operation exceeded its deadline. Transient and
// retryable.
type TimeoutError struct {
	Op       string
	Deadline time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Deadline)
}

// VenueFailure records why one venue could not serve a routed request.
type VenueFailure struct {
	Venue  string
	Reason string
}

// NoRouteFoundError is raised by the router when no venue produced a valid
// quote. It carries the per-venue reasons so an operator can tell "no
// liquidity anywhere" apart from "everything unreachable".
type NoRouteFoundError struct {
	Failures []VenueFailure
}

func (e *NoRouteFoundError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %s", f.Venue, f.Reason)
	}
	return "no route found [" + strings.Join(parts, "; ") + "]"
}

// WrapReadError normalizes a read-path failure: context deadline expiry
// becomes a TimeoutError, anything else is wrapped with venue and operation.
func WrapReadError(venueName, op string, deadline time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: venueName + " " + op, Deadline: deadline}
	}
	return fmt.Errorf("%s %s: %w", venueName, op, err)
}
