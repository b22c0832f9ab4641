/*
presence.go - Trip-to-presence-day conversion

PURPOSE:
  Converts a collection of trips into the canonical data structure of the
  engine: the set of calendar days the traveler was physically present in
  a Schengen country. Everything downstream (window math, forecasting)
  operates on this set, never on raw trips.

CONSTRUCTION RULES:
  - Only trips to Schengen countries contribute (see calendar.go).
    An Ireland trip of any length contributes zero days.
  - A trip [entry, exit] contributes every day of the CLOSED interval:
    a one-day trip (entry == exit) is one presence day.
  - An open trip (no exit) is treated as ongoing through asOf.
  - A trip entirely after asOf contributes nothing here; hypothetical
    future travel is the forecast evaluator's job.
  - Overlapping trips union; duplicate days collapse (set semantics).
*/
package schengen

// PresenceDays returns the set of Schengen presence days for the given trips,
// counting no day later than asOf. Pure and deterministic: identical inputs
// yield identical sets. An empty trip collection yields an empty set.
//
// The only error path is a structurally malformed trip (zero entry date),
// which indicates an integration bug upstream rather than a domain case.
func PresenceDays(trips []Trip, asOf Date) (DaySet, error) {
	days := make(DaySet)
	for _, trip := range trips {
		if err := checkTrip(trip); err != nil {
			return nil, err
		}
		if !IsSchengen(trip.Country) {
			continue
		}
		if trip.Entry.After(asOf) {
			// Pure future trip; handled by Forecast, not by history.
			continue
		}
		end := asOf
		if trip.Exit != nil {
			end = MinDate(*trip.Exit, asOf)
		}
		for d := trip.Entry; d.BeforeOrEqual(end); d = d.AddDays(1) {
			days.Add(d)
		}
	}
	return days, nil
}
