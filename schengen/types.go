/*
Package schengen implements the rolling 90/180-day compliance engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking employee
  presence in the Schengen Area and evaluating the EU short-stay rule: no more
  than 90 presence days in any rolling 180-day window. It converts trips into
  presence days, evaluates the trailing window at an arbitrary reference date,
  validates candidate trips, and answers what-if questions about future travel.

KEY CONCEPTS IN THIS FILE (types.go):
  - Trip: An immutable travel record (country, entry date, optional exit date)
  - DaySet: A set of calendar days spent inside the Schengen Area
  - Snapshot: The computed compliance state at a reference date
  - RiskConfig: Caller-supplied thresholds for risk classification

DESIGN PRINCIPLES:
  1. Purity: Every operation is a pure function over in-memory inputs.
     No I/O, no globals, no hidden state. Safe to call concurrently.
  2. Total functions: Unknown countries, negative remainders, and
     already-eligible travelers are well-defined answers, not errors.
  3. Explicit configuration: Risk thresholds are parameters, never
     package-level state.

USAGE:
  presence, err := schengen.PresenceDays(trips, today)
  snap := schengen.Evaluate(presence, today, schengen.DefaultRiskConfig())
  if snap.Risk == schengen.RiskRed {
      // traveler is at or over the limit
  }

SEE ALSO:
  - calendar.go: The authoritative Schengen member list
  - presence.go: Trip-to-presence-day conversion
  - window.go: Rolling window arithmetic and risk evaluation
  - validate.go: Pre-persistence trip validation
  - forecast.go: What-if evaluation for hypothetical trips
*/
package schengen

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TravelerID string
type TripID string

// =============================================================================
// TRIP - Immutable travel record
// =============================================================================

// Trip is one travel record for a traveler. Exit is nil for an ongoing trip.
// The engine treats trips as immutable snapshots; callers must not mutate a
// trip slice while a computation over it is in flight.
type Trip struct {
	ID         TripID
	TravelerID TravelerID
	Country    string // ISO-3166 alpha-2 code
	Entry      Date
	Exit       *Date // nil = open-ended/ongoing
	Note       string
}

// Open reports whether the trip has no exit date yet.
func (t Trip) Open() bool { return t.Exit == nil }

// Nights is unused by the window math (presence counts both endpoints) but
// callers display it; a one-day trip has zero nights.
func (t Trip) Nights() int {
	if t.Exit == nil {
		return 0
	}
	return DaysBetween(t.Entry, *t.Exit)
}

// =============================================================================
// DAY SET - Presence days with set semantics
// =============================================================================

// DaySet is a set of calendar days. Duplicate contributions from overlapping
// trips collapse naturally.
type DaySet map[Date]struct{}

func NewDaySet(days ...Date) DaySet {
	s := make(DaySet, len(days))
	for _, d := range days {
		s[d] = struct{}{}
	}
	return s
}

func (s DaySet) Add(d Date)           { s[d] = struct{}{} }
func (s DaySet) Contains(d Date) bool { _, ok := s[d]; return ok }
func (s DaySet) Len() int             { return len(s) }

// Union returns a new set containing the days of both sets.
func (s DaySet) Union(other DaySet) DaySet {
	out := make(DaySet, len(s)+len(other))
	for d := range s {
		out[d] = struct{}{}
	}
	for d := range other {
		out[d] = struct{}{}
	}
	return out
}

// =============================================================================
// RISK CLASSIFICATION
// =============================================================================

type RiskLevel string

const (
	RiskGreen RiskLevel = "green"
	RiskAmber RiskLevel = "amber"
	RiskRed   RiskLevel = "red"
)

// RiskConfig holds the days-remaining floors that drive risk coloring.
// Administrators tune these; the engine never hardcodes them.
type RiskConfig struct {
	GreenFloor int // remaining >= GreenFloor  => green
	AmberFloor int // remaining >= AmberFloor  => amber; below => red
}

// DefaultRiskConfig returns the stock thresholds: green at 30+ days
// remaining, amber at 10-29, red below 10 (including negative).
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{GreenFloor: 30, AmberFloor: 10}
}

// =============================================================================
// SNAPSHOT - Computed compliance state
// =============================================================================

// Snapshot is the compliance state for one traveler at one reference date.
// It is a pure function of its inputs: never persisted by the engine, never
// mutated, no identity of its own.
type Snapshot struct {
	RefDate       Date
	DaysUsed      int       // presence days inside [RefDate-180, RefDate-1]
	DaysRemaining int       // 90 - DaysUsed; negative = exceeded by that many
	Risk          RiskLevel
	EarliestEntry *Date // nil = eligible to enter now
	EntryUnknown  bool  // true when the bounded search found no answer
}
