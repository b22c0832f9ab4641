/*
validate.go - Pre-persistence trip validation

PURPOSE:
  Checks a candidate trip against the temporal-sanity invariants before the
  surrounding application persists it. Hard errors must block acceptance;
  soft warnings may be overridden by an administrator with a recorded reason.

HARD ERRORS:
  - exit before entry
  - date range overlaps an existing trip for the same traveler

SOFT WARNINGS:
  - open-ended trip (no exit date)
  - single trip longer than 90 days

BOUNDARY POLICY:
  Touching trips do NOT overlap: a traveler can exit Schengen and re-enter
  through another country on the same calendar day, so trip 2 starting on
  trip 1's exit day is allowed.

Results are data, not errors: the function never fails for well-formed date
inputs, and returns both lists even when empty so the caller (UI) decides
how to present them.
*/
package schengen

import "fmt"

// openEndSentinel stands in for the exit date of an ongoing trip when
// testing range overlap: an open trip conflicts with everything after its
// entry.
var openEndSentinel = NewDate(9999, 12, 31)

// ValidationResult carries the outcome of validating one candidate trip.
// Both slices are always non-nil.
type ValidationResult struct {
	Errors   []string // hard: block acceptance
	Warnings []string // soft: allowed with explicit override + reason
}

// OK reports whether the candidate may be persisted without an override.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0 && len(r.Warnings) == 0
}

// Blocked reports whether a hard error prevents persistence entirely.
func (r ValidationResult) Blocked() bool { return len(r.Errors) > 0 }

// ValidateTrip checks a candidate date range against the traveler's existing
// trips. excludeID skips one trip during overlap checks, so an edit does not
// collide with itself; pass "" when validating a new trip.
//
// Overlap is checked against every existing trip regardless of country: the
// Schengen gate decides which days COUNT, but a traveler is in one place at
// a time, so two trips may never cover the same day.
func ValidateTrip(existing []Trip, entry Date, exit *Date, excludeID TripID) ValidationResult {
	result := ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
	}

	if exit != nil && exit.Before(entry) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("exit date %s is before entry date %s", exit, entry))
		// Range is inverted; overlap math below would be meaningless.
		return result
	}

	candidateEnd := openEndSentinel
	if exit != nil {
		candidateEnd = *exit
	}

	for _, other := range existing {
		if excludeID != "" && other.ID == excludeID {
			continue
		}
		otherEnd := openEndSentinel
		if other.Exit != nil {
			otherEnd = *other.Exit
		}
		// Closed ranges [a1,b1], [a2,b2] conflict iff a1 < b2 AND a2 < b1.
		// Shared boundary days (b1 == a2 or b2 == a1) are allowed.
		if entry.Before(otherEnd) && other.Entry.Before(candidateEnd) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("dates overlap existing trip to %s (%s to %s)",
					other.Country, other.Entry, formatExit(other.Exit)))
		}
	}

	if exit == nil {
		result.Warnings = append(result.Warnings,
			"trip is open-ended; days will accrue until an exit date is recorded")
	} else if duration := DaysBetween(entry, *exit); duration > MaxStayDays {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("trip spans %d days, exceeding the %d-day allowance on its own",
				duration, MaxStayDays))
	}

	return result
}

func formatExit(exit *Date) string {
	if exit == nil {
		return "ongoing"
	}
	return exit.String()
}
