/*
forecast.go - What-if evaluation for hypothetical trips

PURPOSE:
  Answers "if trip X were added, what would the compliance state be on
  date Y". Used for pre-booking checks and future-assignment risk alerts.
  Purely compositional over presence.go and window.go; no side effects.

REFERENCE DATES:
  The reference date may be past or future. Presence computation uses it
  as the as-of ceiling, so evaluating a future date correctly includes
  trips that have not happened yet, as long as their entry precedes it.
*/
package schengen

// Forecast evaluates the compliance snapshot that would result at ref if
// the hypothetical trip were added to the existing collection. The existing
// trips are not mutated; the hypothetical is appended to a copy.
func Forecast(trips []Trip, hypothetical Trip, ref Date, cfg RiskConfig) (Snapshot, error) {
	combined := make([]Trip, 0, len(trips)+1)
	combined = append(combined, trips...)
	combined = append(combined, hypothetical)

	presence, err := PresenceDays(combined, ref)
	if err != nil {
		return Snapshot{}, err
	}
	return Evaluate(presence, ref, cfg), nil
}
