package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const runColumns = `
	r.id, r.seq, r.case_name, r.satellites, r.state, r.verdict,
	r.error_kind, r.error_message, r.error_cycle,
	(SELECT COUNT(*) FROM assertions a WHERE a.run_id = r.id),
	(SELECT COUNT(*) FROM assertions a WHERE a.run_id = r.id AND a.passed = 0)
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var rec RunRecord
	var satsJSON string
	err := row.Scan(
		&rec.ID, &rec.Seq, &rec.Case, &satsJSON, &rec.State, &rec.Verdict,
		&rec.ErrorKind, &rec.ErrorMessage, &rec.ErrorCycle,
		&rec.Assertions, &rec.Failed,
	)
	if err != nil {
		return RunRecord{}, err
	}
	if err := json.Unmarshal([]byte(satsJSON), &rec.Satellites); err != nil {
		return RunRecord{}, fmt.Errorf("run %s: satellites: %w", rec.ID, err)
	}
	return rec, nil
}

// ReadRun returns a run with its assertions in recorded order.
// Returns ErrNotFound if no run has the ID.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	rec, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT passed, message, cycle, satellite
		FROM assertions
		WHERE run_id = ?
		ORDER BY idx ASC
	`, id)
	if err != nil {
		return RunRecord{}, fmt.Errorf("query assertions: %w", err)
	}
	defer rows.Close()

	rec.Records = []AssertionRecord{}
	for rows.Next() {
		var a AssertionRecord
		if err := rows.Scan(&a.Passed, &a.Message, &a.Cycle, &a.Satellite); err != nil {
			return RunRecord{}, fmt.Errorf("scan assertion: %w", err)
		}
		rec.Records = append(rec.Records, a)
	}
	if err := rows.Err(); err != nil {
		return RunRecord{}, fmt.Errorf("iterate assertions: %w", err)
	}
	return rec, nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run. Assertions are counted, not loaded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	return s.listRuns(ctx, `SELECT `+runColumns+` FROM runs r ORDER BY r.seq DESC LIMIT ?`, limitArg(limit))
}

// ListCaseRuns is ListRuns restricted to one case.
func (s *Store) ListCaseRuns(ctx context.Context, caseName string, limit int) ([]RunRecord, error) {
	return s.listRuns(ctx,
		`SELECT `+runColumns+` FROM runs r WHERE r.case_name = ? ORDER BY r.seq DESC LIMIT ?`,
		caseName, limitArg(limit))
}

func (s *Store) listRuns(ctx context.Context, query string, args ...any) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// limitArg maps "no limit" onto SQLite's LIMIT -1.
func limitArg(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
