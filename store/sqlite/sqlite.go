/*
Package sqlite provides a SQLite-backed implementation of the storage layer.

PURPOSE:
  Persists travelers, trips, risk thresholds, and the audit log. The
  compliance engine itself (package schengen) is pure and never touches
  storage; this package translates rows into the in-memory Trip shape
  before anything crosses into the engine.

KEY TABLES:
  travelers:    Employee records tracked for Schengen compliance
  trips:        Travel records (country, entry, optional exit)
  risk_config:  Single-row risk threshold configuration
  audit_log:    Append-only record of mutations and validator overrides

GDPR SUPPORT:
  DeleteTraveler performs erasure: trips, audit entries, and the traveler
  row are removed in one transaction. PurgeTripsBefore implements the
  retention policy by dropping trips whose exit predates a cutoff.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL
  (Write-Ahead Logging): multiple readers don't block, single writer at a
  time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/schengen.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - schengen: the pure engine consuming trips loaded here
  - api: handlers wiring HTTP to this store and the engine
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/schengen-engine/schengen"
)

// Store implements the storage layer using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases alive and sidesteps
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Travelers (employees tracked for compliance)
	CREATE TABLE IF NOT EXISTS travelers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		created_at TEXT NOT NULL
	);

	-- Trips
	CREATE TABLE IF NOT EXISTS trips (
		id TEXT PRIMARY KEY,
		traveler_id TEXT NOT NULL,
		country TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		exit_date TEXT,
		note TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trips_traveler
		ON trips(traveler_id);
	-- Range queries for validation and purge (hot path)
	CREATE INDEX IF NOT EXISTS idx_trips_traveler_entry
		ON trips(traveler_id, entry_date);
	CREATE INDEX IF NOT EXISTS idx_trips_exit
		ON trips(exit_date) WHERE exit_date IS NOT NULL;

	-- Risk thresholds (single row, id fixed at 1)
	CREATE TABLE IF NOT EXISTS risk_config (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		green_floor INTEGER NOT NULL,
		amber_floor INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Audit log (append-only)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		at TEXT NOT NULL,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		traveler_id TEXT,
		trip_id TEXT,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_traveler
		ON audit_log(traveler_id);
	CREATE INDEX IF NOT EXISTS idx_audit_at
		ON audit_log(at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRAVELERS
// =============================================================================

// Traveler is an employee whose Schengen presence is tracked.
type Traveler struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// SaveTraveler inserts or updates a traveler.
func (s *Store) SaveTraveler(ctx context.Context, tr Traveler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := tr.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO travelers (id, name, email, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email
	`, tr.ID, tr.Name, tr.Email, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save traveler: %w", err)
	}
	return nil
}

// GetTraveler returns a traveler by ID, or nil if not found.
func (s *Store) GetTraveler(ctx context.Context, id string) (*Traveler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, created_at FROM travelers WHERE id = ?
	`, id)

	var tr Traveler
	var createdAt string
	if err := row.Scan(&tr.ID, &tr.Name, &tr.Email, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get traveler: %w", err)
	}
	tr.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &tr, nil
}

// ListTravelers returns all travelers ordered by name.
func (s *Store) ListTravelers(ctx context.Context) ([]Traveler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, created_at FROM travelers ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list travelers: %w", err)
	}
	defer rows.Close()

	var travelers []Traveler
	for rows.Next() {
		var tr Traveler
		var createdAt string
		if err := rows.Scan(&tr.ID, &tr.Name, &tr.Email, &createdAt); err != nil {
			return nil, err
		}
		tr.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		travelers = append(travelers, tr)
	}
	return travelers, rows.Err()
}

// DeleteTraveler erases a traveler and all associated data (GDPR erasure).
// Trips, audit entries, and the traveler row are removed atomically.
func (s *Store) DeleteTraveler(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM trips WHERE traveler_id = ?`,
		`DELETE FROM audit_log WHERE traveler_id = ?`,
		`DELETE FROM travelers WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to erase traveler: %w", err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// TRIPS
// =============================================================================

// SaveTrip inserts or updates a trip.
func (s *Store) SaveTrip(ctx context.Context, trip schengen.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exit any
	if trip.Exit != nil {
		exit = trip.Exit.String()
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trips (id, traveler_id, country, entry_date, exit_date, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			country = excluded.country,
			entry_date = excluded.entry_date,
			exit_date = excluded.exit_date,
			note = excluded.note,
			updated_at = excluded.updated_at
	`, string(trip.ID), string(trip.TravelerID), trip.Country,
		trip.Entry.String(), exit, trip.Note, now, now)
	if err != nil {
		return fmt.Errorf("failed to save trip: %w", err)
	}
	return nil
}

// GetTrip returns a trip by ID, or nil if not found.
func (s *Store) GetTrip(ctx context.Context, id string) (*schengen.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, traveler_id, country, entry_date, exit_date, note
		FROM trips WHERE id = ?
	`, id)

	trip, err := scanTrip(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return trip, nil
}

// ListTrips returns all trips for a traveler ordered by entry date.
func (s *Store) ListTrips(ctx context.Context, travelerID string) ([]schengen.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, traveler_id, country, entry_date, exit_date, note
		FROM trips WHERE traveler_id = ? ORDER BY entry_date
	`, travelerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []schengen.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *trip)
	}
	return trips, rows.Err()
}

// DeleteTrip removes a single trip.
func (s *Store) DeleteTrip(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	return nil
}

// PurgeTripsBefore deletes closed trips whose exit date precedes the cutoff
// (retention policy). Open trips are never purged. Returns rows removed.
func (s *Store) PurgeTripsBefore(ctx context.Context, cutoff schengen.Date) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM trips WHERE exit_date IS NOT NULL AND exit_date < ?
	`, cutoff.String())
	if err != nil {
		return 0, fmt.Errorf("failed to purge trips: %w", err)
	}
	return res.RowsAffected()
}

// scanner abstracts *sql.Row and *sql.Rows for scanTrip.
type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(sc scanner) (*schengen.Trip, error) {
	var (
		id, travelerID, country, entryStr string
		exitStr, note                     sql.NullString
	)
	if err := sc.Scan(&id, &travelerID, &country, &entryStr, &exitStr, &note); err != nil {
		return nil, err
	}

	entry, err := schengen.ParseDate(entryStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt entry_date for trip %s: %w", id, err)
	}

	trip := schengen.Trip{
		ID:         schengen.TripID(id),
		TravelerID: schengen.TravelerID(travelerID),
		Country:    country,
		Entry:      entry,
		Note:       note.String,
	}
	if exitStr.Valid {
		exit, err := schengen.ParseDate(exitStr.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt exit_date for trip %s: %w", id, err)
		}
		trip.Exit = &exit
	}
	return &trip, nil
}

// =============================================================================
// RISK CONFIG
// =============================================================================

// GetRiskConfig returns the configured thresholds, or the engine defaults
// when nothing has been saved yet.
func (s *Store) GetRiskConfig(ctx context.Context) (schengen.RiskConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT green_floor, amber_floor FROM risk_config WHERE id = 1
	`)

	var cfg schengen.RiskConfig
	if err := row.Scan(&cfg.GreenFloor, &cfg.AmberFloor); err != nil {
		if err == sql.ErrNoRows {
			return schengen.DefaultRiskConfig(), nil
		}
		return schengen.RiskConfig{}, fmt.Errorf("failed to get risk config: %w", err)
	}
	return cfg, nil
}

// SaveRiskConfig stores the thresholds, replacing any previous row.
func (s *Store) SaveRiskConfig(ctx context.Context, cfg schengen.RiskConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_config (id, green_floor, amber_floor, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			green_floor = excluded.green_floor,
			amber_floor = excluded.amber_floor,
			updated_at = excluded.updated_at
	`, cfg.GreenFloor, cfg.AmberFloor, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save risk config: %w", err)
	}
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// AuditEntry records who did what when. The log is append-only; there is no
// update or delete path short of GDPR erasure.
type AuditEntry struct {
	ID         string
	At         time.Time
	Actor      string
	Action     AuditAction
	TravelerID string
	TripID     string
	Payload    map[string]any
}

type AuditAction string

const (
	AuditTripCreated     AuditAction = "trip_created"
	AuditTripUpdated     AuditAction = "trip_updated"
	AuditTripDeleted     AuditAction = "trip_deleted"
	AuditWarningOverride AuditAction = "warning_override"
	AuditConfigChanged   AuditAction = "config_changed"
	AuditTravelerErased  AuditAction = "traveler_erased"
	AuditRetentionPurge  AuditAction = "retention_purge"
)

// AppendAudit adds an entry to the audit log.
func (s *Store) AppendAudit(ctx context.Context, entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payloadJSON, _ := json.Marshal(entry.Payload)
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, at, actor, action, traveler_id, trip_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, at.Format(time.RFC3339), entry.Actor, string(entry.Action),
		entry.TravelerID, entry.TripID, string(payloadJSON))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns audit entries, newest first. travelerID may be empty to
// list across all travelers.
func (s *Store) ListAudit(ctx context.Context, travelerID string, limit int) ([]AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, at, actor, action, traveler_id, trip_id, payload_json
		FROM audit_log
	`
	args := []any{}
	if travelerID != "" {
		query += ` WHERE traveler_id = ?`
		args = append(args, travelerID)
	}
	query += ` ORDER BY at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			e           AuditEntry
			at, action  string
			payloadJSON sql.NullString
		)
		if err := rows.Scan(&e.ID, &at, &e.Actor, &action, &e.TravelerID, &e.TripID, &payloadJSON); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339, at)
		e.Action = AuditAction(action)
		if payloadJSON.Valid && payloadJSON.String != "" && payloadJSON.String != "null" {
			_ = json.Unmarshal([]byte(payloadJSON.String), &e.Payload)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
