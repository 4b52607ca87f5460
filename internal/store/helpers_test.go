package store

import (
	"path/filepath"
	"testing"

	"github.com/pan-ssds/ptest/internal/ptest"
)

// createTestStore opens a fresh store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestResult builds a finished single-satellite result with one
// passing and one failing assertion.
func createTestResult(id, caseName string) *ptest.Result {
	return &ptest.Result{
		RunID:      id,
		Case:       caseName,
		Satellites: []string{"leader"},
		State:      ptest.StateFinished,
		Verdict:    ptest.VerdictFail,
		Records: []ptest.Record{
			{Condition: true, Message: "speed reached", Cycle: 3, Satellite: "leader"},
			{Condition: false, Message: "fix lost", Cycle: 7, Satellite: "leader"},
		},
		Transitions: []ptest.State{ptest.StateCreated, ptest.StateSetup, ptest.StateRunning, ptest.StateFinished},
	}
}
