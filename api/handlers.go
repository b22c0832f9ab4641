/*
handlers.go - HTTP API handlers for the travel compliance system

PURPOSE:
  Exposes the compliance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Travelers:
    GET    /api/travelers                   List all travelers
    POST   /api/travelers                   Create traveler
    GET    /api/travelers/{id}              Get traveler details
    DELETE /api/travelers/{id}              GDPR erasure
    GET    /api/travelers/{id}/export       GDPR subject-access export

  Trips:
    GET    /api/travelers/{id}/trips        List trips
    POST   /api/travelers/{id}/trips        Create trip (validated)
    PUT    /api/trips/{id}                  Update trip (validated)
    DELETE /api/trips/{id}                  Delete trip

  Compliance:
    GET    /api/travelers/{id}/compliance   Rolling-window snapshot
    POST   /api/travelers/{id}/forecast     What-if evaluation

  Config & admin:
    GET    /api/config/risk                 Risk thresholds
    PUT    /api/config/risk                 Update thresholds
    GET    /api/audit                       Audit log
    POST   /api/admin/purge                 Retention purge
    GET    /api/reports/compliance.csv      CSV compliance report

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (presence, window, validator, forecast)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input (bad dates, missing fields)
  - 404: Resource not found
  - 409: Soft warnings requiring an explicit override
  - 422: Hard validation errors (overlap, inverted range)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - reports.go: CSV compliance report
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/schengen-engine/schengen"
	"github.com/warp/schengen-engine/store/sqlite"
)

// defaultRetentionDays is how long closed trips are kept before the
// retention purge removes them (5 years, aligned with HR record policy).
const defaultRetentionDays = 5 * 365

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	// now is injected so tests can pin the reference date.
	now func() schengen.Date

	// retentionDays drives the default purge cutoff.
	retentionDays int
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:         store,
		now:           schengen.Today,
		retentionDays: defaultRetentionDays,
	}
}

// =============================================================================
// TRAVELER HANDLERS
// =============================================================================

// ListTravelers returns all travelers.
func (h *Handler) ListTravelers(w http.ResponseWriter, r *http.Request) {
	travelers, err := h.Store.ListTravelers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list travelers", err)
		return
	}

	dtos := make([]TravelerDTO, len(travelers))
	for i, tr := range travelers {
		dtos[i] = toTravelerDTO(tr)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTraveler creates a new traveler.
func (h *Handler) CreateTraveler(w http.ResponseWriter, r *http.Request) {
	var req CreateTravelerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	tr := sqlite.Traveler{ID: req.ID, Name: req.Name, Email: req.Email}
	if err := h.Store.SaveTraveler(r.Context(), tr); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create traveler", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTravelerDTO(tr))
}

// GetTraveler returns a single traveler.
func (h *Handler) GetTraveler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tr, err := h.Store.GetTraveler(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get traveler", err)
		return
	}
	if tr == nil {
		writeError(w, http.StatusNotFound, "Traveler not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toTravelerDTO(*tr))
}

// EraseTraveler handles GDPR erasure: trips, audit trail, and the traveler
// record are removed. The erasure itself is recorded without personal data.
func (h *Handler) EraseTraveler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	tr, err := h.Store.GetTraveler(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get traveler", err)
		return
	}
	if tr == nil {
		writeError(w, http.StatusNotFound, "Traveler not found", nil)
		return
	}

	if err := h.Store.DeleteTraveler(ctx, id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to erase traveler", err)
		return
	}

	// Recorded after erasure with no traveler linkage, so the entry
	// survives the deletion it documents.
	h.audit(ctx, sqlite.AuditEntry{
		Actor:  actorOr(r.URL.Query().Get("actor")),
		Action: sqlite.AuditTravelerErased,
	})

	writeJSON(w, http.StatusOK, map[string]any{"status": "erased"})
}

// ExportTraveler returns the GDPR subject-access bundle: the traveler
// record, every trip, the current compliance snapshot, and the audit trail.
func (h *Handler) ExportTraveler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	tr, err := h.Store.GetTraveler(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get traveler", err)
		return
	}
	if tr == nil {
		writeError(w, http.StatusNotFound, "Traveler not found", nil)
		return
	}

	trips, err := h.Store.ListTrips(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list trips", err)
		return
	}
	snap, err := h.snapshotFor(r, trips, h.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute compliance", err)
		return
	}
	audit, err := h.Store.ListAudit(ctx, id, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list audit trail", err)
		return
	}

	writeJSON(w, http.StatusOK, DSARExportDTO{
		Traveler:   toTravelerDTO(*tr),
		Trips:      toTripDTOs(trips),
		Compliance: toSnapshotDTO(id, snap),
		AuditTrail: toAuditDTOs(audit),
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// TRIP HANDLERS
// =============================================================================

// ListTrips returns all trips for a traveler.
func (h *Handler) ListTrips(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	trips, err := h.Store.ListTrips(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list trips", err)
		return
	}
	writeJSON(w, http.StatusOK, toTripDTOs(trips))
}

// CreateTrip validates and persists a new trip for a traveler.
func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	h.saveTrip(w, r, chi.URLParam(r, "id"), "")
}

// UpdateTrip validates and persists changes to an existing trip. The trip
// being edited is excluded from overlap checks so it cannot collide with
// its own stored range.
func (h *Handler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tripID := chi.URLParam(r, "id")

	existing, err := h.Store.GetTrip(ctx, tripID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get trip", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Trip not found", nil)
		return
	}
	h.saveTrip(w, r, string(existing.TravelerID), schengen.TripID(tripID))
}

// saveTrip is the shared create/update path: parse, validate against the
// traveler's other trips, require an override for soft warnings, persist,
// and audit.
func (h *Handler) saveTrip(w http.ResponseWriter, r *http.Request, travelerID string, excludeID schengen.TripID) {
	ctx := r.Context()

	var req SaveTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Country == "" {
		writeError(w, http.StatusBadRequest, "country is required", nil)
		return
	}
	entry, err := schengen.ParseDate(req.EntryDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry_date", err)
		return
	}
	var exit *schengen.Date
	if req.ExitDate != nil && *req.ExitDate != "" {
		parsed, err := schengen.ParseDate(*req.ExitDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid exit_date", err)
			return
		}
		exit = &parsed
	}

	tr, err := h.Store.GetTraveler(ctx, travelerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get traveler", err)
		return
	}
	if tr == nil {
		writeError(w, http.StatusNotFound, "Traveler not found", nil)
		return
	}

	trips, err := h.Store.ListTrips(ctx, travelerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list trips", err)
		return
	}

	result := schengen.ValidateTrip(trips, entry, exit, excludeID)
	if result.Blocked() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "trip rejected",
			"code":       "validation_failed",
			"validation": ValidationDTO{Errors: result.Errors, Warnings: result.Warnings},
		})
		return
	}
	if len(result.Warnings) > 0 && !req.Override {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "trip has warnings; set override=true with a reason to accept",
			"code":       "override_required",
			"validation": ValidationDTO{Errors: result.Errors, Warnings: result.Warnings},
		})
		return
	}

	tripID := excludeID
	action := sqlite.AuditTripUpdated
	status := http.StatusOK
	if tripID == "" {
		tripID = schengen.TripID(uuid.NewString())
		action = sqlite.AuditTripCreated
		status = http.StatusCreated
	}

	trip := schengen.Trip{
		ID:         tripID,
		TravelerID: schengen.TravelerID(travelerID),
		Country:    req.Country,
		Entry:      entry,
		Exit:       exit,
		Note:       req.Note,
	}
	if err := h.Store.SaveTrip(ctx, trip); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save trip", err)
		return
	}

	actor := actorOr(req.Actor)
	h.audit(ctx, sqlite.AuditEntry{
		Actor:      actor,
		Action:     action,
		TravelerID: travelerID,
		TripID:     string(tripID),
		Payload: map[string]any{
			"country": req.Country,
			"entry":   entry.String(),
			"exit":    req.ExitDate,
		},
	})
	if len(result.Warnings) > 0 {
		h.audit(ctx, sqlite.AuditEntry{
			Actor:      actor,
			Action:     sqlite.AuditWarningOverride,
			TravelerID: travelerID,
			TripID:     string(tripID),
			Payload: map[string]any{
				"warnings": result.Warnings,
				"reason":   req.OverrideReason,
			},
		})
	}

	writeJSON(w, status, toTripDTO(trip))
}

// DeleteTrip removes a trip.
func (h *Handler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tripID := chi.URLParam(r, "id")

	trip, err := h.Store.GetTrip(ctx, tripID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get trip", err)
		return
	}
	if trip == nil {
		writeError(w, http.StatusNotFound, "Trip not found", nil)
		return
	}

	if err := h.Store.DeleteTrip(ctx, tripID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete trip", err)
		return
	}

	h.audit(ctx, sqlite.AuditEntry{
		Actor:      actorOr(r.URL.Query().Get("actor")),
		Action:     sqlite.AuditTripDeleted,
		TravelerID: string(trip.TravelerID),
		TripID:     tripID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// COMPLIANCE HANDLERS
// =============================================================================

// GetCompliance returns the rolling-window snapshot for a traveler.
// Optional query parameter as_of overrides the reference date.
func (h *Handler) GetCompliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	tr, err := h.Store.GetTraveler(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get traveler", err)
		return
	}
	if tr == nil {
		writeError(w, http.StatusNotFound, "Traveler not found", nil)
		return
	}

	ref := h.now()
	if asOf := r.URL.Query().Get("as_of"); asOf != "" {
		ref, err = schengen.ParseDate(asOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
			return
		}
	}

	trips, err := h.Store.ListTrips(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list trips", err)
		return
	}
	snap, err := h.snapshotFor(r, trips, ref)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute compliance", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(id, snap))
}

// Forecast evaluates a hypothetical trip for a traveler.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Country == "" {
		writeError(w, http.StatusBadRequest, "country is required", nil)
		return
	}
	entry, err := schengen.ParseDate(req.EntryDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry_date", err)
		return
	}
	var exit *schengen.Date
	if req.ExitDate != nil && *req.ExitDate != "" {
		parsed, err := schengen.ParseDate(*req.ExitDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid exit_date", err)
			return
		}
		exit = &parsed
	}

	// Default reference: the day after the hypothetical trip ends, which
	// is when the full trip has been "spent".
	var ref schengen.Date
	switch {
	case req.RefDate != "":
		ref, err = schengen.ParseDate(req.RefDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid ref_date", err)
			return
		}
	case exit != nil:
		ref = exit.AddDays(1)
	default:
		ref = h.now()
	}

	tr, err := h.Store.GetTraveler(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get traveler", err)
		return
	}
	if tr == nil {
		writeError(w, http.StatusNotFound, "Traveler not found", nil)
		return
	}

	trips, err := h.Store.ListTrips(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list trips", err)
		return
	}
	cfg, err := h.Store.GetRiskConfig(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load risk config", err)
		return
	}

	hypo := schengen.Trip{
		TravelerID: schengen.TravelerID(id),
		Country:    req.Country,
		Entry:      entry,
		Exit:       exit,
	}
	snap, err := schengen.Forecast(trips, hypo, ref, cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Forecast failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(id, snap))
}

// snapshotFor computes the snapshot for a trip set using the stored
// thresholds.
func (h *Handler) snapshotFor(r *http.Request, trips []schengen.Trip, ref schengen.Date) (schengen.Snapshot, error) {
	cfg, err := h.Store.GetRiskConfig(r.Context())
	if err != nil {
		return schengen.Snapshot{}, err
	}
	presence, err := schengen.PresenceDays(trips, ref)
	if err != nil {
		return schengen.Snapshot{}, err
	}
	return schengen.Evaluate(presence, ref, cfg), nil
}

// =============================================================================
// CONFIG HANDLERS
// =============================================================================

// GetRiskConfig returns the current thresholds.
func (h *Handler) GetRiskConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.GetRiskConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load risk config", err)
		return
	}
	writeJSON(w, http.StatusOK, RiskConfigDTO{GreenFloor: cfg.GreenFloor, AmberFloor: cfg.AmberFloor})
}

// UpdateRiskConfig stores new thresholds.
func (h *Handler) UpdateRiskConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RiskConfigDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.AmberFloor < 0 || req.GreenFloor <= req.AmberFloor {
		writeError(w, http.StatusBadRequest,
			"thresholds must satisfy green_floor > amber_floor >= 0", nil)
		return
	}

	cfg := schengen.RiskConfig{GreenFloor: req.GreenFloor, AmberFloor: req.AmberFloor}
	if err := h.Store.SaveRiskConfig(ctx, cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save risk config", err)
		return
	}

	h.audit(ctx, sqlite.AuditEntry{
		Actor:  actorOr(r.URL.Query().Get("actor")),
		Action: sqlite.AuditConfigChanged,
		Payload: map[string]any{
			"green_floor": req.GreenFloor,
			"amber_floor": req.AmberFloor,
		},
	})
	writeJSON(w, http.StatusOK, req)
}

// =============================================================================
// AUDIT & ADMIN HANDLERS
// =============================================================================

// ListAudit returns audit entries, optionally filtered by traveler.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, _ = strconv.Atoi(l)
	}

	entries, err := h.Store.ListAudit(r.Context(), r.URL.Query().Get("traveler_id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list audit entries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": toAuditDTOs(entries)})
}

// TriggerPurge removes closed trips older than the retention cutoff.
func (h *Handler) TriggerPurge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PurgeRequest
	json.NewDecoder(r.Body).Decode(&req)

	cutoff := h.now().AddDays(-h.retentionDays)
	if req.Before != "" {
		parsed, err := schengen.ParseDate(req.Before)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid before date", err)
			return
		}
		cutoff = parsed
	}

	removed, err := h.Store.PurgeTripsBefore(ctx, cutoff)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to purge trips", err)
		return
	}

	h.audit(ctx, sqlite.AuditEntry{
		Actor:  actorOr(req.Actor),
		Action: sqlite.AuditRetentionPurge,
		Payload: map[string]any{
			"cutoff":  cutoff.String(),
			"removed": removed,
		},
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"cutoff":  cutoff.String(),
		"removed": removed,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) audit(ctx context.Context, entry sqlite.AuditEntry) {
	entry.ID = uuid.NewString()
	// A failed audit write must not fail the user-facing operation.
	_ = h.Store.AppendAudit(ctx, entry)
}

func actorOr(actor string) string {
	if actor == "" {
		return "admin"
	}
	return actor
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
