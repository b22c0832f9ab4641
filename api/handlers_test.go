/*
handlers_test.go - Unit tests for API handlers

Tests the full HTTP surface against an in-memory SQLite store:
- Trip creation with validation, override flow, and audit
- Compliance and forecast endpoints
- Risk config round trip
- GDPR export/erasure and retention purge
- CSV compliance report
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/schengen-engine/schengen"
	"github.com/warp/schengen-engine/store/sqlite"
)

// newTestServer returns a handler with a pinned clock and a router over an
// in-memory database.
func newTestServer(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store)
	h.now = func() schengen.Date { return schengen.NewDate(2025, time.July, 1) }
	return h, NewRouter(h)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func createTraveler(t *testing.T, router http.Handler, id, name string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/travelers",
		CreateTravelerRequest{ID: id, Name: name, Email: name + "@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func createTrip(t *testing.T, router http.Handler, travelerID string, req SaveTripRequest) TripDTO {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/travelers/"+travelerID+"/trips", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[TripDTO](t, rec)
}

func strPtr(s string) *string { return &s }

// =============================================================================
// TRIP FLOW
// =============================================================================

func TestTripLifecycle(t *testing.T) {
	_, router := newTestServer(t)
	createTraveler(t, router, "emp-1", "Ada")

	trip := createTrip(t, router, "emp-1", SaveTripRequest{
		Country:   "FR",
		EntryDate: "2025-01-01",
		ExitDate:  strPtr("2025-01-10"),
	})
	assert.NotEmpty(t, trip.ID)
	assert.True(t, trip.Schengen)

	// List
	rec := doJSON(t, router, http.MethodGet, "/api/travelers/emp-1/trips", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	trips := decode[[]TripDTO](t, rec)
	require.Len(t, trips, 1)

	// Update (shrink the range; must not collide with itself)
	rec = doJSON(t, router, http.MethodPut, "/api/trips/"+trip.ID, SaveTripRequest{
		Country:   "FR",
		EntryDate: "2025-01-02",
		ExitDate:  strPtr("2025-01-09"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Delete
	rec = doJSON(t, router, http.MethodDelete, "/api/trips/"+trip.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/travelers/emp-1/trips", nil)
	assert.Empty(t, decode[[]TripDTO](t, rec))
}

func TestCreateTrip_OverlapRejected(t *testing.T) {
	_, router := newTestServer(t)
	createTraveler(t, router, "emp-1", "Ada")
	createTrip(t, router, "emp-1", SaveTripRequest{
		Country: "FR", EntryDate: "2025-01-01", ExitDate: strPtr("2025-01-10"),
	})

	rec := doJSON(t, router, http.MethodPost, "/api/travelers/emp-1/trips", SaveTripRequest{
		Country: "DE", EntryDate: "2025-01-05", ExitDate: strPtr("2025-01-15"),
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "overlap")
}

func TestCreateTrip_TouchingBoundaryAccepted(t *testing.T) {
	_, router := newTestServer(t)
	createTraveler(t, router, "emp-1", "Ada")
	createTrip(t, router, "emp-1", SaveTripRequest{
		Country: "FR", EntryDate: "2025-01-01", ExitDate: strPtr("2025-01-10"),
	})

	// Same-day border crossing: new trip enters on the old trip's exit day.
	createTrip(t, router, "emp-1", SaveTripRequest{
		Country: "DE", EntryDate: "2025-01-10", ExitDate: strPtr("2025-01-20"),
	})
}

func TestCreateTrip_OverrideFlow(t *testing.T) {
	h, router := newTestServer(t)
	createTraveler(t, router, "emp-1", "Ada")

	// An open-ended trip warns and is refused without an override.
	rec := doJSON(t, router, http.MethodPost, "/api/travelers/emp-1/trips", SaveTripRequest{
		Country: "ES", EntryDate: "2025-06-01",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "override_required")

	// With override + reason it is accepted and the override is audited.
	rec = doJSON(t, router, http.MethodPost, "/api/travelers/emp-1/trips", SaveTripRequest{
		Country:        "ES",
		EntryDate:      "2025-06-01",
		Override:       true,
		OverrideReason: "secondment, exit date not yet known",
		Actor:          "hr-lead",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	entries, err := h.Store.ListAudit(context.Background(), "emp-1", 0)
	require.NoError(t, err)

	var foundOverride bool
	for _, e := range entries {
		if e.Action == sqlite.AuditWarningOverride {
			foundOverride = true
			assert.Equal(t, "hr-lead", e.Actor)
			assert.Equal(t, "secondment, exit date not yet known", e.Payload["reason"])
		}
	}
	assert.True(t, foundOverride, "override must be recorded in the audit log")
}

func TestCreateTrip_BadInput(t *testing.T) {
	_, router := newTestServer(t)
	createTraveler(t, router, "emp-1", "Ada")

	cases := []SaveTripRequest{
		{EntryDate: "2025-01-01"},                     // missing country
		{Country: "FR"},                               // missing entry
		{Country: "FR", EntryDate: "01/02/2025"},      // bad format
		{Country: "FR", EntryDate: "2025-01-01", ExitDate: strPtr("bad")}, // bad exit
	}
	for i, req := range cases {
		rec := doJSON(t, router, http.MethodPost, "/api/travelers/emp-1/trips", req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "case %d: %s", i, rec.Body.String())
	}

	// Unknown traveler
	rec := doJSON(t, router, http.MethodPost, "/api/travelers/ghost/trips", SaveTripRequest{
		Country: "FR", EntryDate: "2025-01-01", ExitDate: strPtr("2025-01-02"),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// COMPLIANCE & FORECAST
// =============================================================================

func TestCompliance_Snapshot(t *testing.T) {
	_, router := newTestServer(t)
	createTraveler(t, router, "emp-1", "Ada")
	createTrip(t, router, "emp-1", SaveTripRequest{
		Country: "FR", EntryDate: "2025-01-01", ExitDate: strPtr("2025-01-10"),
	})
	createTrip(t, router, "emp-1", SaveTripRequest{
		Country: "DE", EntryDate: "2025-02-01", ExitDate: strPtr("2025-02-05"),
	})
	// Ireland does not count toward the window.
	createTrip(t, router, "emp-1", SaveTripRequest{
		Country: "IE", EntryDate: "2025-02-10", ExitDate: strPtr("2025-02-20"),
	})

	rec := doJSON(t, router, http.MethodGet, "/api/travelers/emp-1/compliance?as_of=2025-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	snap := decode[SnapshotDTO](t, rec)
	assert.Equal(t, 15, snap.DaysUsed)
	assert.Equal(t, 75, snap.DaysRemaining)
	assert.Equal(t, "green", snap.Risk)
	assert.Nil(t, snap.EarliestSafeEntry)
}

func TestCompliance_DefaultsToToday(t *testing.T) {
	_, router := newTestServer(t)
	createTraveler(t, router, "emp-1", "Ada")
	// Ongoing trip started 10 days before the pinned "today" (2025-07-01).
	rec := doJSON(t, router, http.MethodPost, "/api/travelers/emp-1/trips", SaveTripRequest{
		Country: "IT", EntryDate: "2025-06-21", Override: true, OverrideReason: "ongoing",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/travelers/emp-1/compliance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[SnapshotDTO](t, rec)

	// June 21-30 fall inside the window ending June 30; July 1 itself is
	// excluded from its own window.
	assert.Equal(t, "2025-07-01", snap.RefDate)
	assert.Equal(t, 10, snap.DaysUsed)
}

func TestForecast_Endpoint(t *testing.T) {
	_, router := newTestServer(t)
	createTraveler(t, router, "emp-1", "Ada")
	createTrip(t, router, "emp-1", SaveTripRequest{
		Country: "FR", EntryDate: "2025-03-01", ExitDate: strPtr("2025-04-29"), // 60 days
	})

	rec := doJSON(t, router, http.MethodPost, "/api/travelers/emp-1/forecast", ForecastRequest{
		Country:   "IT",
		EntryDate: "2025-07-01",
		ExitDate:  strPtr("2025-07-20"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	snap := decode[SnapshotDTO](t, rec)
	// Default ref is the day after the hypothetical exit.
	assert.Equal(t, "2025-07-21", snap.RefDate)
	assert.Equal(t, 80, snap.DaysUsed)
	assert.Equal(t, 10, snap.DaysRemaining)
	assert.Equal(t, "amber", snap.Risk)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestRiskConfig_RoundTrip(t *testing.T) {
	_, router := newTestServer(t)

	// Defaults before anything is saved.
	rec := doJSON(t, router, http.MethodGet, "/api/config/risk", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decode[RiskConfigDTO](t, rec)
	assert.Equal(t, 30, cfg.GreenFloor)
	assert.Equal(t, 10, cfg.AmberFloor)

	// Update and read back.
	rec = doJSON(t, router, http.MethodPut, "/api/config/risk", RiskConfigDTO{GreenFloor: 45, AmberFloor: 20})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/config/risk", nil)
	cfg = decode[RiskConfigDTO](t, rec)
	assert.Equal(t, 45, cfg.GreenFloor)
	assert.Equal(t, 20, cfg.AmberFloor)

	// Nonsense thresholds are rejected.
	rec = doJSON(t, router, http.MethodPut, "/api/config/risk", RiskConfigDTO{GreenFloor: 5, AmberFloor: 20})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRiskConfig_AffectsSnapshot(t *testing.T) {
	_, router := newTestServer(t)
	createTraveler(t, router, "emp-1", "Ada")
	createTrip(t, router, "emp-1", SaveTripRequest{
		Country: "FR", EntryDate: "2025-01-01", ExitDate: strPtr("2025-02-14"), // 45 days
	})

	rec := doJSON(t, router, http.MethodGet, "/api/travelers/emp-1/compliance?as_of=2025-03-01", nil)
	snap := decode[SnapshotDTO](t, rec)
	require.Equal(t, 45, snap.DaysRemaining)
	assert.Equal(t, "green", snap.Risk)

	// A stricter policy turns the same facts amber.
	rec = doJSON(t, router, http.MethodPut, "/api/config/risk", RiskConfigDTO{GreenFloor: 60, AmberFloor: 30})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/travelers/emp-1/compliance?as_of=2025-03-01", nil)
	snap = decode[SnapshotDTO](t, rec)
	assert.Equal(t, "amber", snap.Risk)
}

// =============================================================================
// GDPR & RETENTION
// =============================================================================

func TestDSARExport(t *testing.T) {
	_, router := newTestServer(t)
	createTraveler(t, router, "emp-1", "Ada")
	createTrip(t, router, "emp-1", SaveTripRequest{
		Country: "FR", EntryDate: "2025-06-01", ExitDate: strPtr("2025-06-10"),
	})

	rec := doJSON(t, router, http.MethodGet, "/api/travelers/emp-1/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	export := decode[DSARExportDTO](t, rec)
	assert.Equal(t, "emp-1", export.Traveler.ID)
	require.Len(t, export.Trips, 1)
	assert.Equal(t, 10, export.Compliance.DaysUsed)
	assert.NotEmpty(t, export.AuditTrail, "trip creation must appear in the trail")
}

func TestErasure(t *testing.T) {
	_, router := newTestServer(t)
	createTraveler(t, router, "emp-1", "Ada")
	createTrip(t, router, "emp-1", SaveTripRequest{
		Country: "FR", EntryDate: "2025-06-01", ExitDate: strPtr("2025-06-10"),
	})

	rec := doJSON(t, router, http.MethodDelete, "/api/travelers/emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/travelers/emp-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/audit?traveler_id=emp-1", nil)
	body := decode[map[string][]AuditEntryDTO](t, rec)
	assert.Empty(t, body["entries"], "erasure must remove the traveler's audit trail")
}

func TestRetentionPurge(t *testing.T) {
	_, router := newTestServer(t)
	createTraveler(t, router, "emp-1", "Ada")
	// Ancient trip, well past any retention period.
	createTrip(t, router, "emp-1", SaveTripRequest{
		Country: "FR", EntryDate: "2018-01-01", ExitDate: strPtr("2018-01-10"),
	})
	// Recent trip stays.
	createTrip(t, router, "emp-1", SaveTripRequest{
		Country: "DE", EntryDate: "2025-06-01", ExitDate: strPtr("2025-06-05"),
	})

	rec := doJSON(t, router, http.MethodPost, "/api/admin/purge", PurgeRequest{Actor: "dpo"})
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), result["removed"])

	rec = doJSON(t, router, http.MethodGet, "/api/travelers/emp-1/trips", nil)
	trips := decode[[]TripDTO](t, rec)
	require.Len(t, trips, 1)
	assert.Equal(t, "DE", trips[0].Country)
}

// =============================================================================
// CSV REPORT
// =============================================================================

func TestComplianceReportCSV(t *testing.T) {
	_, router := newTestServer(t)
	createTraveler(t, router, "emp-1", "Ada")
	createTraveler(t, router, "emp-2", "Grace")
	createTrip(t, router, "emp-1", SaveTripRequest{
		Country: "FR", EntryDate: "2025-01-01", ExitDate: strPtr("2025-01-10"),
	})
	createTrip(t, router, "emp-1", SaveTripRequest{
		Country: "DE", EntryDate: "2025-02-01", ExitDate: strPtr("2025-02-05"),
	})

	rec := doJSON(t, router, http.MethodGet, "/api/reports/compliance.csv?as_of=2025-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3, "header plus one row per traveler")
	assert.Contains(t, lines[0], "utilization_pct")

	// Ada: 15 of 90 days = 16.7%
	adaRow := lines[1]
	assert.Contains(t, adaRow, "emp-1")
	assert.Contains(t, adaRow, fmt.Sprintf(",%d,", 15))
	assert.Contains(t, adaRow, "16.7")
	assert.Contains(t, adaRow, "green")

	// Grace has no trips: 0 used, 0.0%
	assert.Contains(t, lines[2], "emp-2")
	assert.Contains(t, lines[2], "0.0")
}

func TestUtilizationPercent(t *testing.T) {
	cases := map[int]string{
		0:  "0.0",
		15: "16.7",
		45: "50.0",
		90: "100.0",
		95: "105.6",
	}
	for used, want := range cases {
		if got := utilizationPercent(used); got != want {
			t.Errorf("utilizationPercent(%d) = %s, want %s", used, got, want)
		}
	}
}
