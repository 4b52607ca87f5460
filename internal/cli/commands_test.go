package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pan-ssds/ptest/internal/sim"
	"github.com/pan-ssds/ptest/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestList_Text(t *testing.T) {
	opts := &ListOptions{RootOptions: &RootOptions{Format: "text"}, Catalog: testCatalog()}
	stdout, _, err := execute(t, newListCommand(opts))
	require.NoError(t, err)

	assert.Contains(t, stdout, "NAME")
	assert.Contains(t, stdout, "always_fails")
	assert.Regexp(t, `dual_sat_lockstep\s+2\s+Step leader and follower`, stdout)
	assert.Regexp(t, `spin_motors\s+1\s`, stdout)
}

func TestList_JSON(t *testing.T) {
	stdout, _, err := execute(t, NewListCommand(&RootOptions{Format: "json"}))
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			Name       string `json:"name"`
			Satellites string `json:"satellites"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 3)
	assert.Equal(t, "dual_sat_lockstep", resp.Data[0].Name)
	assert.Equal(t, "2", resp.Data[0].Satellites)
}

func TestEnums_OneDomain(t *testing.T) {
	stdout, _, err := execute(t, NewEnumsCommand(&RootOptions{Format: "text"}), "rwa_modes")
	require.NoError(t, err)
	assert.Equal(t, "rwa_modes:\n    0 RWA_DISABLED\n    1 RWA_SPEED_CTRL\n    2 RWA_ACCEL_CTRL\n", stdout)
}

func TestEnums_AllDomainsJSON(t *testing.T) {
	stdout, _, err := execute(t, NewEnumsCommand(&RootOptions{Format: "json"}))
	require.NoError(t, err)

	var resp struct {
		Data map[string][]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Len(t, resp.Data, 4)
	assert.Equal(t, "startup", resp.Data["mission_states"][0])
}

func TestEnums_UnknownDomain(t *testing.T) {
	_, _, err := execute(t, NewEnumsCommand(&RootOptions{Format: "text"}), "thruster_modes")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistory_RequiresDB(t *testing.T) {
	_, _, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestHistory_EmptyAndMissingRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")

	stdout, _, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", stdout)

	_, _, err = execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "run-9999")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no such run")
}

func TestHistory_ShowsOneRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	_, _, err := execute(t, newRunCommand(newTestRun("text")), "--db", db, "always_fails")
	require.Error(t, err)

	stdout, _, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "run-0001")
	require.NoError(t, err)
	assert.Contains(t, stdout, "case: always_fails\n")
	assert.Contains(t, stdout, "run: run-0001 (seq 1)\n")
	assert.Contains(t, stdout, "verdict: FAIL\n")
	assert.Contains(t, stdout, "    1 FAIL [sat1 cycle 1] never true\n")

	stdout, _, err = execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "--case", "spin_motors")
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", stdout)
}

func TestServeListener_ServesFreshControllers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveListener(ctx, ln, "sim", testLogger()) }()

	for i := 0; i < 2; i++ {
		conn, err := net.Dial("tcp", ln.Addr().String())
		require.NoError(t, err)
		console := sim.NewConsole(conn)

		require.NoError(t, console.Step(context.Background()))
		v, err := console.ReadState(sim.CycleField)
		require.NoError(t, err)
		assert.Equal(t, state.Int(1), v, "connection %d", i)
		require.NoError(t, console.Close())
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serveListener did not return after cancel")
	}
}
