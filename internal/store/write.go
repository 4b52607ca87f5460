package store

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// WriteRun stores a run and its assertions in one transaction and returns
// the seq assigned to it.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing a run ID that
// is already stored changes nothing and returns the existing seq.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord) (int64, error) {
	if rec.ID == "" {
		return 0, fmt.Errorf("write run: id is required")
	}

	sats := rec.Satellites
	if sats == nil {
		sats = []string{}
	}
	satsJSON, err := json.Marshal(sats)
	if err != nil {
		return 0, fmt.Errorf("write run: marshal satellites: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, case_name, satellites, state, verdict, error_kind, error_message, error_cycle)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		norm.NFC.String(rec.Case),
		string(satsJSON),
		rec.State,
		rec.Verdict,
		rec.ErrorKind,
		norm.NFC.String(rec.ErrorMessage),
		rec.ErrorCycle,
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	if inserted > 0 {
		for i, a := range rec.Records {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO assertions (run_id, idx, passed, message, cycle, satellite)
				VALUES (?, ?, ?, ?, ?, ?)
			`, rec.ID, i, a.Passed, norm.NFC.String(a.Message), a.Cycle, a.Satellite)
			if err != nil {
				return 0, fmt.Errorf("write run: assertion %d: %w", i, err)
			}
		}
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, rec.ID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: read seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}
