package state

import (
	"fmt"
	"time"

	"github.com/cascadekit/cascade/pkg/models"
)

// RunStore is the slice of the state layer the engine needs. Satisfied by
// *DB; mockable in tests.
type RunStore interface {
	// SaveRun persists one run record.
	SaveRun(rec models.RunRecord) error
}

// Verify DB implements RunStore at compile time.
var _ RunStore = (*DB)(nil)

// SaveRun inserts the run record. Saving the same run twice replaces the
// earlier row.
func (db *DB) SaveRun(rec models.RunRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO runs (
			run_id, timestamp, wave_count, item_count,
			succeeded, failed, timed_out, merge_conflicts,
			resources_created, resources_kept, resources_deleted, wall_clock_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, formatTime(rec.Timestamp), rec.WaveCount, rec.ItemCount,
		rec.Succeeded, rec.Failed, rec.TimedOut, rec.MergeConflicts,
		rec.ResourcesCreated, rec.ResourcesKept, rec.ResourcesDeleted,
		rec.WallClockDuration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", rec.RunID, err)
	}
	return nil
}

// ListRuns returns the most recent run records, newest first.
func (db *DB) ListRuns(limit int) ([]models.RunRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT run_id, timestamp, wave_count, item_count,
			succeeded, failed, timed_out, merge_conflicts,
			resources_created, resources_kept, resources_deleted, wall_clock_ms
		FROM runs ORDER BY timestamp DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []models.RunRecord
	for rows.Next() {
		var rec models.RunRecord
		var ts string
		var wallMs int64
		if err := rows.Scan(
			&rec.RunID, &ts, &rec.WaveCount, &rec.ItemCount,
			&rec.Succeeded, &rec.Failed, &rec.TimedOut, &rec.MergeConflicts,
			&rec.ResourcesCreated, &rec.ResourcesKept, &rec.ResourcesDeleted, &wallMs,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Timestamp = parseTime(ts)
		rec.WallClockDuration = time.Duration(wallMs) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetRun returns the record for a single run ID.
func (db *DB) GetRun(runID string) (*models.RunRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(`
		SELECT run_id, timestamp, wave_count, item_count,
			succeeded, failed, timed_out, merge_conflicts,
			resources_created, resources_kept, resources_deleted, wall_clock_ms
		FROM runs WHERE run_id = ?`, runID)

	var rec models.RunRecord
	var ts string
	var wallMs int64
	if err := row.Scan(
		&rec.RunID, &ts, &rec.WaveCount, &rec.ItemCount,
		&rec.Succeeded, &rec.Failed, &rec.TimedOut, &rec.MergeConflicts,
		&rec.ResourcesCreated, &rec.ResourcesKept, &rec.ResourcesDeleted, &wallMs,
	); err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	rec.Timestamp = parseTime(ts)
	rec.WallClockDuration = time.Duration(wallMs) * time.Millisecond
	return &rec, nil
}
