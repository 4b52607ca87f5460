package ptest

import (
	"fmt"
	"io"
	"strings"
)

// Summary is the one-line outcome of a run.
//
//	3 soft-assertions recorded, 1 failed
//	case errored: SIMULATION_STALL at cycle 12
func (r *Result) Summary() string {
	if r.Err != nil {
		return fmt.Sprintf("case errored: %s at cycle %d", r.Err.Kind, r.Err.Cycle)
	}
	return fmt.Sprintf("%d soft-assertions recorded, %d failed", len(r.Records), r.Failed())
}

// WriteReport writes a human-readable report of a run. Output is stable
// for a given Result.
func WriteReport(w io.Writer, r *Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "case: %s\n", r.Case)
	fmt.Fprintf(&b, "run: %s\n", r.RunID)
	fmt.Fprintf(&b, "satellites: %s\n", strings.Join(r.Satellites, ", "))

	states := make([]string, len(r.Transitions))
	for i, s := range r.Transitions {
		states[i] = string(s)
	}
	fmt.Fprintf(&b, "lifecycle: %s\n", strings.Join(states, " -> "))
	fmt.Fprintf(&b, "verdict: %s\n", r.Verdict)

	if len(r.Records) > 0 {
		b.WriteString("assertions:\n")
		for i, rec := range r.Records {
			mark := "ok"
			if !rec.Condition {
				mark = "FAIL"
			}
			where := fmt.Sprintf("cycle %d", rec.Cycle)
			if rec.Satellite != "" {
				where = rec.Satellite + " " + where
			}
			fmt.Fprintf(&b, "  %3d %-4s [%s] %s\n", i+1, mark, where, rec.Message)
		}
	}

	if r.Err != nil {
		fmt.Fprintf(&b, "error: %s\n", r.Err.Error())
	}
	fmt.Fprintf(&b, "summary: %s\n", r.Summary())

	_, err := io.WriteString(w, b.String())
	return err
}
