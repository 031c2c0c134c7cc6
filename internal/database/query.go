package database

import (
	"database/sql"
	"fmt"
	"time"
)

const selectColumns = `
	SELECT id, timestamp, run_name, kind, target, outcome, detail, error_message, duration_ms
	FROM steps
`

// GetRecentSteps returns the N most recent executed steps
func (d *StepDB) GetRecentSteps(limit int) ([]StepRecord, error) {
	return d.querySteps(selectColumns+`ORDER BY id DESC LIMIT ?`, limit)
}

// GetStepsByOutcome returns steps filtered by outcome (removed, absent, failed, dry-run)
func (d *StepDB) GetStepsByOutcome(outcome string) ([]StepRecord, error) {
	return d.querySteps(selectColumns+`WHERE outcome = ? ORDER BY id DESC`, outcome)
}

// GetStepsByKind returns steps filtered by step kind
func (d *StepDB) GetStepsByKind(kind string) ([]StepRecord, error) {
	return d.querySteps(selectColumns+`WHERE kind = ? ORDER BY id DESC`, kind)
}

// GetStepsByTarget returns steps matching a target pattern (SQL LIKE syntax)
func (d *StepDB) GetStepsByTarget(pattern string) ([]StepRecord, error) {
	return d.querySteps(selectColumns+`WHERE target LIKE ? ORDER BY id DESC`, pattern)
}

// RunStats summarizes executed steps over a recent window
type RunStats struct {
	StartDate time.Time
	EndDate   time.Time
	Total     int
	ByOutcome map[string]int
	ByKind    map[string]int
}

// GetRunStats aggregates step counts for the last N days
func (d *StepDB) GetRunStats(days int) (*RunStats, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	stats := &RunStats{
		StartDate: start,
		EndDate:   end,
		ByOutcome: map[string]int{},
		ByKind:    map[string]int{},
	}

	rows, err := d.db.Query(`
		SELECT outcome, kind, COUNT(*)
		FROM steps
		WHERE timestamp BETWEEN ? AND ?
		GROUP BY outcome, kind
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome, kind string
		var count int
		if err := rows.Scan(&outcome, &kind, &count); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		stats.ByOutcome[outcome] += count
		stats.ByKind[kind] += count
		stats.Total += count
	}
	return stats, rows.Err()
}

func (d *StepDB) querySteps(query string, args ...interface{}) ([]StepRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var records []StepRecord
	for rows.Next() {
		var r StepRecord
		var detail, errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.RunName, &r.Kind, &r.Target,
			&r.Outcome, &detail, &errMsg, &r.DurationMs); err != nil {
			return nil, fmt.Errorf("scan step row: %w", err)
		}
		r.Detail = detail.String
		r.ErrorMsg = errMsg.String
		records = append(records, r)
	}
	return records, rows.Err()
}
