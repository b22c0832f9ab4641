/*
window.go - Rolling 180-day window arithmetic

PURPOSE:
  Evaluates the regulatory question at the heart of the system: how many
  of the trailing 180 days were spent inside the Schengen Area, how many
  of the 90 allowed days remain, what risk tier that implies, and - when
  the traveler is at the limit - the first future date re-entry becomes
  legal again.

WINDOW DEFINITION:
  "Any 180-day period" is evaluated as the trailing window
  [ref-180, ref-1], inclusive on both ends, always excluding ref itself:
  the day of evaluation has not been "spent" when asking "how many days
  have I used as of the start of today". This follows the observed
  behavior of the production system; see DESIGN.md for the boundary
  discussion.

NUMERIC SEMANTICS:
  All counts are whole days. No rounding, no fractions, no timezones -
  dates only.
*/
package schengen

const (
	// WindowDays is the length of the rolling window, fixed by regulation.
	WindowDays = 180

	// MaxStayDays is the presence allowance within any window, fixed by
	// regulation.
	MaxStayDays = 90

	// entrySearchCap bounds the earliest-safe-entry scan. A bounded trip
	// history always resolves within 180 days of the latest exit, so
	// exceeding a full year signals inconsistent data upstream.
	entrySearchCap = 366
)

// DaysUsedInWindow counts the presence days falling within the 180-day
// window ending the day before ref. Always in [0, 180].
func DaysUsedInWindow(presence DaySet, ref Date) int {
	start := ref.AddDays(-WindowDays)
	end := ref.AddDays(-1)

	// Iterate over whichever side is smaller: the window is fixed at 180
	// days but the presence set may be far smaller.
	if presence.Len() < WindowDays {
		used := 0
		for d := range presence {
			if d.AfterOrEqual(start) && d.BeforeOrEqual(end) {
				used++
			}
		}
		return used
	}

	used := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if presence.Contains(d) {
			used++
		}
	}
	return used
}

// DaysRemaining returns 90 minus the window usage at ref. Negative means
// the traveler has exceeded the allowance by that many days; callers treat
// that as "over limit", not as an error.
func DaysRemaining(presence DaySet, ref Date) int {
	return MaxStayDays - DaysUsedInWindow(presence, ref)
}

// RiskFor classifies a days-remaining figure against caller-supplied
// thresholds. All negative remainders are red.
func RiskFor(remaining int, cfg RiskConfig) RiskLevel {
	switch {
	case remaining >= cfg.GreenFloor:
		return RiskGreen
	case remaining >= cfg.AmberFloor:
		return RiskAmber
	default:
		return RiskRed
	}
}

// EarliestSafeEntry returns the first date on or after today on which
// entering Schengen would not push the window total to 90 or beyond.
//
// Returns (nil, nil) when the traveler is already eligible: entering today
// leaves the trailing window at 89 or fewer used days. Otherwise advances
// day by day until old presence days fall out of the window. The scan is
// capped at one year; exceeding the cap returns ErrNoSafeEntry, which
// signals inconsistent upstream data rather than a business outcome.
func EarliestSafeEntry(presence DaySet, today Date) (*Date, error) {
	if DaysUsedInWindow(presence, today) < MaxStayDays {
		return nil, nil // eligible now, no wait needed
	}
	for offset := 1; offset <= entrySearchCap; offset++ {
		d := today.AddDays(offset)
		if DaysUsedInWindow(presence, d) < MaxStayDays {
			return &d, nil
		}
	}
	return nil, ErrNoSafeEntry
}

// Evaluate computes the full compliance snapshot for a presence set at a
// reference date. Pure: the snapshot has no identity beyond its inputs.
func Evaluate(presence DaySet, ref Date, cfg RiskConfig) Snapshot {
	used := DaysUsedInWindow(presence, ref)
	remaining := MaxStayDays - used

	snap := Snapshot{
		RefDate:       ref,
		DaysUsed:      used,
		DaysRemaining: remaining,
		Risk:          RiskFor(remaining, cfg),
	}

	earliest, err := EarliestSafeEntry(presence, ref)
	if err != nil {
		snap.EntryUnknown = true
		return snap
	}
	snap.EarliestEntry = earliest
	return snap
}
