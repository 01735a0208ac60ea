package venue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestWrapReadErrorMapsDeadlineToTimeout(t *testing.T) {
	err := WrapReadError("orca", "refresh pools", 5*time.Second, context.DeadlineExceeded)
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
	if timeout.Deadline != 5*time.Second {
		t.Fatalf("unexpected deadline: %s", timeout.Deadline)
	}
	if !strings.Contains(timeout.Error(), "orca refresh pools") {
		t.Fatalf("unexpected message: %s", timeout.Error())
	}
}

func TestWrapReadErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapReadError("raydium", "load reserves", time.Second, cause)
	if !errors.Is(err, cause) {
		t.Fatalf("wrapped error lost its cause: %v", err)
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		t.Fatalf("non-deadline error must not become TimeoutError")
	}
}

func TestNoRouteFoundErrorListsVenues(t *testing.T) {
	err := &NoRouteFoundError{Failures: []VenueFailure{
		{Venue: "orca", Reason: "no pool for A -> B"},
		{Venue: "raydium", Reason: "timed out"},
	}}
	msg := err.Error()
	if !strings.Contains(msg, "orca: no pool") || !strings.Contains(msg, "raydium: timed out") {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestNotInitializedErrorViaAs(t *testing.T) {
	var err error = fmt.Errorf("quote: %w", &NotInitializedError{Venue: "orca"})
	var notInit *NotInitializedError
	if !errors.As(err, &notInit) {
		t.Fatalf("expected NotInitializedError")
	}
	if notInit.Venue != "orca" {
		t.Fatalf("unexpected venue: %s", notInit.Venue)
	}
}
