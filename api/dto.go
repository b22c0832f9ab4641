/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - schengen: domain types these map from
*/
package api

import (
	"time"

	"github.com/warp/schengen-engine/schengen"
	"github.com/warp/schengen-engine/store/sqlite"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// TravelerDTO represents a traveler in API responses.
type TravelerDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateTravelerRequest is the request to create a traveler.
type CreateTravelerRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TripDTO represents a trip in API responses.
type TripDTO struct {
	ID         string  `json:"id"`
	TravelerID string  `json:"traveler_id"`
	Country    string  `json:"country"`
	Schengen   bool    `json:"schengen"`
	EntryDate  string  `json:"entry_date"`
	ExitDate   *string `json:"exit_date,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// SaveTripRequest is the request to create or update a trip. Soft validator
// warnings block persistence unless Override is set, in which case
// OverrideReason is recorded in the audit log.
type SaveTripRequest struct {
	Country        string  `json:"country"`
	EntryDate      string  `json:"entry_date"`
	ExitDate       *string `json:"exit_date,omitempty"`
	Note           string  `json:"note,omitempty"`
	Override       bool    `json:"override,omitempty"`
	OverrideReason string  `json:"override_reason,omitempty"`
	Actor          string  `json:"actor,omitempty"`
}

// ValidationDTO carries validator output when a trip is rejected.
type ValidationDTO struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// SnapshotDTO represents a compliance snapshot.
type SnapshotDTO struct {
	TravelerID         string  `json:"traveler_id"`
	RefDate            string  `json:"ref_date"`
	DaysUsed           int     `json:"days_used"`
	DaysRemaining      int     `json:"days_remaining"`
	Risk               string  `json:"risk"`
	EarliestSafeEntry  *string `json:"earliest_safe_entry,omitempty"`
	EntryDateUnknown   bool    `json:"entry_date_unknown,omitempty"`
}

// ForecastRequest asks "what would my compliance state be on ref_date if I
// took this trip". ref_date defaults to the day after the trip's exit.
type ForecastRequest struct {
	Country   string  `json:"country"`
	EntryDate string  `json:"entry_date"`
	ExitDate  *string `json:"exit_date,omitempty"`
	RefDate   string  `json:"ref_date,omitempty"`
}

// RiskConfigDTO represents risk thresholds.
type RiskConfigDTO struct {
	GreenFloor int `json:"green_floor"`
	AmberFloor int `json:"amber_floor"`
}

// AuditEntryDTO represents one audit log entry.
type AuditEntryDTO struct {
	ID         string         `json:"id"`
	At         string         `json:"at"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	TravelerID string         `json:"traveler_id,omitempty"`
	TripID     string         `json:"trip_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// PurgeRequest triggers a retention purge of trips that ended before the
// cutoff date. Empty cutoff defaults to the configured retention horizon.
type PurgeRequest struct {
	Before string `json:"before,omitempty"`
	Actor  string `json:"actor,omitempty"`
}

// DSARExportDTO is the GDPR subject-access bundle for one traveler.
type DSARExportDTO struct {
	Traveler   TravelerDTO     `json:"traveler"`
	Trips      []TripDTO       `json:"trips"`
	Compliance SnapshotDTO     `json:"compliance"`
	AuditTrail []AuditEntryDTO `json:"audit_trail"`
	ExportedAt string          `json:"exported_at"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTravelerDTO(tr sqlite.Traveler) TravelerDTO {
	dto := TravelerDTO{ID: tr.ID, Name: tr.Name, Email: tr.Email}
	if !tr.CreatedAt.IsZero() {
		dto.CreatedAt = tr.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toTripDTO(t schengen.Trip) TripDTO {
	dto := TripDTO{
		ID:         string(t.ID),
		TravelerID: string(t.TravelerID),
		Country:    t.Country,
		Schengen:   schengen.IsSchengen(t.Country),
		EntryDate:  t.Entry.String(),
		Note:       t.Note,
	}
	if t.Exit != nil {
		exit := t.Exit.String()
		dto.ExitDate = &exit
	}
	return dto
}

func toTripDTOs(trips []schengen.Trip) []TripDTO {
	dtos := make([]TripDTO, len(trips))
	for i, t := range trips {
		dtos[i] = toTripDTO(t)
	}
	return dtos
}

func toSnapshotDTO(travelerID string, snap schengen.Snapshot) SnapshotDTO {
	dto := SnapshotDTO{
		TravelerID:       travelerID,
		RefDate:          snap.RefDate.String(),
		DaysUsed:         snap.DaysUsed,
		DaysRemaining:    snap.DaysRemaining,
		Risk:             string(snap.Risk),
		EntryDateUnknown: snap.EntryUnknown,
	}
	if snap.EarliestEntry != nil {
		s := snap.EarliestEntry.String()
		dto.EarliestSafeEntry = &s
	}
	return dto
}

func toAuditDTOs(entries []sqlite.AuditEntry) []AuditEntryDTO {
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AuditEntryDTO{
			ID:         e.ID,
			At:         e.At.Format(time.RFC3339),
			Actor:      e.Actor,
			Action:     string(e.Action),
			TravelerID: e.TravelerID,
			TripID:     e.TripID,
			Payload:    e.Payload,
		}
	}
	return dtos
}
