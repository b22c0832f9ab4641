/*
errors.go - Centralized error types for the compliance engine

PURPOSE:
  All error types in one place. The engine favors total functions over
  errors wherever the regulatory domain has a well-defined answer:
  unknown countries are non-Schengen, over-limit is a negative integer,
  already-eligible is a nil date. The errors below cover the rest.

ERROR CATEGORIES:
  1. Search errors - the bounded earliest-safe-entry search found no answer
  2. Input errors  - malformed trips that static typing cannot prevent
     (zero entry date, exit parsed from a bad source)

These indicate upstream data problems, not normal business outcomes.
Validator hard errors and soft warnings are business-rule OUTPUTS and are
returned as data (see validate.go), never as Go errors.
*/
package schengen

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoSafeEntry is returned when the earliest-safe-entry search exceeds
	// its defensive cap without the window total dropping below the limit.
	// In practice this signals inconsistent upstream data (e.g. unbounded
	// presence), since a bounded history always resolves within 180 days of
	// the latest exit.
	ErrNoSafeEntry = errors.New("no safe entry date within search horizon")

	// ErrInvalidTrip is returned when a trip is structurally malformed in a
	// way the type system cannot prevent, e.g. a zero entry date.
	ErrInvalidTrip = errors.New("invalid trip")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTripError reports which trip field was malformed.
type InvalidTripError struct {
	TripID TripID
	Field  string
	Detail string
}

func (e *InvalidTripError) Error() string {
	return fmt.Sprintf("invalid trip %s: %s %s", e.TripID, e.Field, e.Detail)
}

func (e *InvalidTripError) Unwrap() error { return ErrInvalidTrip }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an engine defect.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTrip)
}

// checkTrip fails fast on structurally malformed trips. Called at the
// boundary of every operation that consumes raw trips.
func checkTrip(t Trip) error {
	if t.Entry.IsZero() {
		return &InvalidTripError{TripID: t.ID, Field: "entry", Detail: "is zero"}
	}
	if t.Exit != nil && t.Exit.IsZero() {
		return &InvalidTripError{TripID: t.ID, Field: "exit", Detail: "is zero"}
	}
	return nil
}
