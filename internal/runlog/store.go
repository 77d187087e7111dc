package runlog

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tessellate-ml/augment/internal/augment"
	"github.com/tessellate-ml/augment/internal/timeutil"
)

// Run describes one recorded augmentation session: a pipeline, the seed it
// was driven with, and the canonical input shape it ran against. Sample
// ledgers hang off the run by index.
type Run struct {
	RunID       string          `json:"run_id"`
	Pipeline    string          `json:"pipeline"`
	Seed        int64           `json:"seed"`
	ShapeJSON   json.RawMessage `json:"shape_json,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	DurationMs  *float64        `json:"duration_ms,omitempty"`
	CreatedAtNs int64           `json:"created_at_ns"`

	// Samples is the number of recorded sample ledgers, populated on read.
	Samples int `json:"samples"`
}

// SampleLedger pairs one recorded ledger with its position within a run.
type SampleLedger struct {
	RunID       string         `json:"run_id"`
	SampleIndex int            `json:"sample_index"`
	Ledger      augment.Ledger `json:"ledger"`
	CreatedAtNs int64          `json:"created_at_ns"`
}

// RunStore provides persistence for augmentation runs and their ledgers.
type RunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db, clock: timeutil.RealClock{}}
}

// WithClock replaces the store's time source and returns the store.
// Tests use it to pin created_at timestamps.
func (s *RunStore) WithClock(c timeutil.Clock) *RunStore {
	s.clock = c
	return s
}

// InsertRun creates a new run in the database.
// If run.RunID is empty, a new UUID is generated.
func (s *RunStore) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNs == 0 {
		run.CreatedAtNs = s.clock.Now().UnixNano()
	}

	query := `
		INSERT INTO runs (
			run_id, pipeline, seed, shape_json, notes, duration_ms, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		run.RunID,
		run.Pipeline,
		run.Seed,
		nullString(string(run.ShapeJSON)),
		nullString(run.Notes),
		nullFloat64(run.DurationMs),
		run.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(runID string) (*Run, error) {
	query := `
		SELECT r.run_id, r.pipeline, r.seed, r.shape_json, r.notes, r.duration_ms,
		       r.created_at_ns,
		       (SELECT COUNT(*) FROM run_ledgers l WHERE l.run_id = r.run_id) AS samples
		FROM runs r
		WHERE r.run_id = ?
	`

	var run Run
	var shapeJSON, notes sql.NullString
	var durationMs sql.NullFloat64

	err := s.db.QueryRow(query, runID).Scan(
		&run.RunID,
		&run.Pipeline,
		&run.Seed,
		&shapeJSON,
		&notes,
		&durationMs,
		&run.CreatedAtNs,
		&run.Samples,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	// Map nullable fields
	if shapeJSON.Valid && shapeJSON.String != "" {
		run.ShapeJSON = json.RawMessage(shapeJSON.String)
	}
	if notes.Valid {
		run.Notes = notes.String
	}
	if durationMs.Valid {
		v := durationMs.Float64
		run.DurationMs = &v
	}

	return &run, nil
}

// ListRuns retrieves all runs, optionally filtered by pipeline name.
func (s *RunStore) ListRuns(pipeline string) ([]*Run, error) {
	var query string
	var args []interface{}

	if pipeline != "" {
		query = `
			SELECT r.run_id, r.pipeline, r.seed, r.shape_json, r.notes, r.duration_ms,
			       r.created_at_ns,
			       (SELECT COUNT(*) FROM run_ledgers l WHERE l.run_id = r.run_id) AS samples
			FROM runs r
			WHERE r.pipeline = ?
			ORDER BY r.created_at_ns DESC
		`
		args = append(args, pipeline)
	} else {
		query = `
			SELECT r.run_id, r.pipeline, r.seed, r.shape_json, r.notes, r.duration_ms,
			       r.created_at_ns,
			       (SELECT COUNT(*) FROM run_ledgers l WHERE l.run_id = r.run_id) AS samples
			FROM runs r
			ORDER BY r.created_at_ns DESC
		`
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var shapeJSON, notes sql.NullString
		var durationMs sql.NullFloat64

		err := rows.Scan(
			&run.RunID,
			&run.Pipeline,
			&run.Seed,
			&shapeJSON,
			&notes,
			&durationMs,
			&run.CreatedAtNs,
			&run.Samples,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		if shapeJSON.Valid && shapeJSON.String != "" {
			run.ShapeJSON = json.RawMessage(shapeJSON.String)
		}
		if notes.Valid {
			run.Notes = notes.String
		}
		if durationMs.Valid {
			v := durationMs.Float64
			run.DurationMs = &v
		}

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs rows: %w", err)
	}

	return runs, nil
}

// SetRunDuration records the wall-clock duration of a completed run.
func (s *RunStore) SetRunDuration(runID string, durationMs float64) error {
	query := `UPDATE runs SET duration_ms = ? WHERE run_id = ?`

	result, err := s.db.Exec(query, durationMs, runID)
	if err != nil {
		return fmt.Errorf("set run duration: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}

	return nil
}

// DeleteRun deletes a run and its recorded ledgers.
func (s *RunStore) DeleteRun(runID string) error {
	// Ledgers first so a failed run delete never leaves orphans.
	if _, err := s.db.Exec(`DELETE FROM run_ledgers WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete run ledgers: %w", err)
	}

	result, err := s.db.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}

	return nil
}

// InsertLedger records the ledger of one sample within a run. Each
// (run, sample index) pair can be recorded once.
func (s *RunStore) InsertLedger(runID string, sampleIndex int, ledger augment.Ledger) error {
	payload, err := ledger.Marshal()
	if err != nil {
		return fmt.Errorf("insert ledger: %w", err)
	}

	query := `
		INSERT INTO run_ledgers (run_id, sample_index, ledger_json, created_at_ns)
		VALUES (?, ?, ?, ?)
	`

	_, err = s.db.Exec(query, runID, sampleIndex, string(payload), s.clock.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert ledger: %w", err)
	}

	return nil
}

// GetLedger restores the ledger recorded for one sample of a run.
func (s *RunStore) GetLedger(runID string, sampleIndex int) (augment.Ledger, error) {
	query := `
		SELECT ledger_json
		FROM run_ledgers
		WHERE run_id = ? AND sample_index = ?
	`

	var payload string
	err := s.db.QueryRow(query, runID, sampleIndex).Scan(&payload)
	if err == sql.ErrNoRows {
		return augment.Ledger{}, fmt.Errorf("ledger not found: run %s sample %d", runID, sampleIndex)
	}
	if err != nil {
		return augment.Ledger{}, fmt.Errorf("get ledger: %w", err)
	}

	ledger, err := augment.UnmarshalLedger([]byte(payload))
	if err != nil {
		return augment.Ledger{}, fmt.Errorf("get ledger: %w", err)
	}

	return ledger, nil
}

// ListLedgers retrieves all ledgers recorded for a run in sample order.
func (s *RunStore) ListLedgers(runID string) ([]*SampleLedger, error) {
	query := `
		SELECT run_id, sample_index, ledger_json, created_at_ns
		FROM run_ledgers
		WHERE run_id = ?
		ORDER BY sample_index ASC
	`

	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	defer rows.Close()

	var ledgers []*SampleLedger
	for rows.Next() {
		var sl SampleLedger
		var payload string

		if err := rows.Scan(&sl.RunID, &sl.SampleIndex, &payload, &sl.CreatedAtNs); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}

		ledger, err := augment.UnmarshalLedger([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		sl.Ledger = ledger

		ledgers = append(ledgers, &sl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ledgers rows: %w", err)
	}

	return ledgers, nil
}

// Helper functions for nullable values

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat64(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
