/*
reports.go - CSV compliance report

PURPOSE:
  Renders the company-wide compliance report consumed by HR: one row per
  traveler with the current window usage, risk tier, earliest safe entry,
  and allowance utilization. Day counts stay integers end to end; only the
  utilization percentage needs sub-integer precision, computed with
  decimal arithmetic to keep 1-decimal rendering exact.
*/
package api

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/warp/schengen-engine/schengen"
)

var hundred = decimal.NewFromInt(100)

// utilizationPercent returns used/allowance as a percentage with one
// decimal place, e.g. 45 days -> "50.0".
func utilizationPercent(used int) string {
	return decimal.NewFromInt(int64(used)).
		Mul(hundred).
		Div(decimal.NewFromInt(schengen.MaxStayDays)).
		StringFixed(1)
}

// ComplianceReportCSV streams the compliance report for every traveler.
// GET /api/reports/compliance.csv?as_of=YYYY-MM-DD
func (h *Handler) ComplianceReportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ref := h.now()
	if asOf := r.URL.Query().Get("as_of"); asOf != "" {
		parsed, err := schengen.ParseDate(asOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
			return
		}
		ref = parsed
	}

	travelers, err := h.Store.ListTravelers(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list travelers", err)
		return
	}
	cfg, err := h.Store.GetRiskConfig(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load risk config", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		`attachment; filename="compliance-`+ref.String()+`.csv"`)

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{
		"traveler_id", "name", "as_of", "days_used", "days_remaining",
		"utilization_pct", "risk", "earliest_safe_entry",
	})

	for _, tr := range travelers {
		trips, err := h.Store.ListTrips(ctx, tr.ID)
		if err != nil {
			// Report generation is best-effort per row; a broken traveler
			// row must not abort the whole export.
			continue
		}
		presence, err := schengen.PresenceDays(trips, ref)
		if err != nil {
			continue
		}
		snap := schengen.Evaluate(presence, ref, cfg)

		earliest := ""
		if snap.EarliestEntry != nil {
			earliest = snap.EarliestEntry.String()
		} else if snap.EntryUnknown {
			earliest = "unknown"
		}

		cw.Write([]string{
			tr.ID,
			tr.Name,
			ref.String(),
			strconv.Itoa(snap.DaysUsed),
			strconv.Itoa(snap.DaysRemaining),
			utilizationPercent(snap.DaysUsed),
			string(snap.Risk),
			earliest,
		})
	}
}
