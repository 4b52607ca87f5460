package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pan-ssds/ptest/internal/cases"
	"github.com/pan-ssds/ptest/internal/harness"
	"github.com/pan-ssds/ptest/internal/observability"
	"github.com/pan-ssds/ptest/internal/ptest"
	"github.com/pan-ssds/ptest/internal/sim"
	"github.com/pan-ssds/ptest/internal/store"
)

// consoleDialTimeout bounds connecting to a tcp:// console.
const consoleDialTimeout = 5 * time.Second

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Sats        int
	Database    string
	Consoles    []string
	MetricsFile string

	// Catalog overrides the built-in cases (for testing).
	Catalog *cases.Catalog

	// IDs overrides the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs ptest.IDGenerator
}

// RunSummary is the data of a run command in JSON output.
type RunSummary struct {
	Runs    []store.RunRecord `json:"runs"`
	Passed  int               `json:"passed"`
	Failed  int               `json:"failed"`
	Errored int               `json:"errored"`
	Total   int               `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <case|scenario.yaml>...",
		Short: "Run cases against flight controllers",
		Long: `Run one or more cases and report their verdicts.

Arguments name built-in cases (see "ptest list") or YAML scenario files.
Without --console every case gets freshly simulated controllers; --sats
overrides how many. With --console the cases share the given debug
consoles, one satellite per console. A console is a device path or
tcp://host:port.

Exit codes:
  0 - All cases passed
  1 - One or more cases failed or errored
  2 - Command error (unknown case, bad scenario, unreachable console)

Examples:
  ptest run spin_motors
  ptest run piksi_checkout --console /dev/ttyACM0
  ptest run dual_sat_lockstep --db ./history.db
  ptest run ./scenarios/spin.yaml --metrics-file ./ptest.prom`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCases(opts, args, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Sats, "sats", 0, "number of simulated satellites per case (default: what the case needs)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record runs in this SQLite database")
	cmd.Flags().StringArrayVar(&opts.Consoles, "console", nil, "debug console to drive (repeatable)")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	return cmd
}

func runCases(opts *RunOptions, args []string, cmd *cobra.Command) error {
	logger := opts.newLogger(cmd.ErrOrStderr())
	out := opts.formatter(cmd)

	if opts.Sats < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--sats must be positive, got %d", opts.Sats))
	}
	if opts.Sats > 0 && len(opts.Consoles) > 0 && opts.Sats != len(opts.Consoles) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("--sats %d does not match %d --console targets", opts.Sats, len(opts.Consoles)))
	}

	catalog := opts.Catalog
	if catalog == nil {
		catalog = cases.Default()
	}
	toRun := make([]ptest.Case, 0, len(args))
	for _, arg := range args {
		c, err := resolveCase(catalog, arg)
		if err != nil {
			return WrapExitError(ExitCommandError, "resolve case", err)
		}
		toRun = append(toRun, c)
	}

	ctx, cancel := withSignals(cmd.Context(), logger)
	defer cancel()

	var st *store.Store
	if opts.Database != "" {
		var err error
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	runnerOpts := []ptest.RunnerOption{
		ptest.WithLogger(logger),
		ptest.WithSink(ptest.NewSlogSink(logger)),
	}
	if opts.IDs != nil {
		runnerOpts = append(runnerOpts, ptest.WithIDGenerator(opts.IDs))
	}
	var metrics *observability.Collector
	if opts.MetricsFile != "" {
		var err error
		metrics, err = observability.NewCollector(prometheus.NewRegistry())
		if err != nil {
			return WrapExitError(ExitCommandError, "register metrics", err)
		}
		runnerOpts = append(runnerOpts, ptest.WithObserver(metrics))
	}
	runner := ptest.NewRunner(runnerOpts...)

	var consoles []ptest.Target
	if len(opts.Consoles) > 0 {
		var closeAll func()
		var err error
		consoles, closeAll, err = dialConsoles(opts.Consoles, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "connect console", err)
		}
		defer closeAll()
	}

	summary := RunSummary{Runs: make([]store.RunRecord, 0, len(toRun)), Total: len(toRun)}
	for _, c := range toRun {
		res, err := runOne(ctx, runner, c, opts, consoles, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("run %s", c.Name()), err)
		}

		rec := store.FromResult(res)
		if st != nil {
			seq, err := st.WriteRun(ctx, rec)
			if err != nil {
				return WrapExitError(ExitCommandError, "record run", err)
			}
			rec.Seq = seq
		}
		rec.Records = nil
		summary.Runs = append(summary.Runs, rec)

		switch res.Verdict {
		case ptest.VerdictPass:
			summary.Passed++
		case ptest.VerdictFail:
			summary.Failed++
		default:
			summary.Errored++
		}

		if !out.IsJSON() {
			if err := ptest.WriteReport(out.Writer, res); err != nil {
				return err
			}
			fmt.Fprintln(out.Writer)
		}
	}

	if metrics != nil {
		if err := metrics.WriteTextfile(opts.MetricsFile); err != nil {
			return WrapExitError(ExitCommandError, "export metrics", err)
		}
	}

	return outputRunSummary(out, summary)
}

// runOne runs c against the shared consoles, or against simulated
// controllers started for this case alone.
func runOne(ctx context.Context, runner *ptest.Runner, c ptest.Case, opts *RunOptions, consoles []ptest.Target, logger *slog.Logger) (*ptest.Result, error) {
	targets := consoles
	if targets == nil {
		n := opts.Sats
		if n == 0 {
			n = satellitesFor(c)
		}
		sims, stop, err := startSimulators(ctx, n, logger)
		if err != nil {
			return nil, err
		}
		defer stop()
		targets = sims
	}

	res, err := runner.Run(ctx, c, targets)
	if err != nil {
		return nil, err
	}
	logger.Info("case finished", "case", res.Case, "run", res.RunID, "verdict", res.Verdict)
	return res, nil
}

// resolveCase loads a YAML scenario or looks a name up in the catalog.
func resolveCase(catalog *cases.Catalog, arg string) (ptest.Case, error) {
	switch filepath.Ext(arg) {
	case ".yaml", ".yml":
		c, err := harness.LoadCase(arg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	c, ok := catalog.Lookup(arg)
	if !ok {
		return nil, fmt.Errorf("unknown case %q (known: %s)", arg, strings.Join(catalog.Names(), ", "))
	}
	return c, nil
}

// satellitesFor is the number of simulated controllers a case gets by
// default.
func satellitesFor(c ptest.Case) int {
	if fc, ok := c.(ptest.FixedCardinality); ok {
		return fc.Satellites()
	}
	if _, ok := c.(ptest.MultiSatCase); ok {
		return 2
	}
	return 1
}

// startSimulators starts n simulated controllers named sat1..satN.
func startSimulators(ctx context.Context, n int, logger *slog.Logger) ([]ptest.Target, func(), error) {
	targets := make([]ptest.Target, 0, n)
	stops := make([]func(), 0, n)
	stopAll := func() {
		for _, stop := range stops {
			stop()
		}
	}

	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("sat%d", i)
		ctrl, err := sim.NewController(sim.WithName(name), sim.WithLogger(logger.With("satellite", name)))
		if err != nil {
			stopAll()
			return nil, nil, fmt.Errorf("simulate %s: %w", name, err)
		}
		stops = append(stops, ctrl.Start(ctx))
		targets = append(targets, ptest.Target{Name: name, Controller: ctrl})
	}
	return targets, stopAll, nil
}

// dialConsoles opens every console address. Targets are named after the
// address.
func dialConsoles(addrs []string, logger *slog.Logger) ([]ptest.Target, func(), error) {
	targets := make([]ptest.Target, 0, len(addrs))
	consoles := make([]*sim.Console, 0, len(addrs))
	closeAll := func() {
		for _, c := range consoles {
			c.Close()
		}
	}

	for _, addr := range addrs {
		rw, err := openConsole(addr)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		con := sim.NewConsole(rw, sim.WithConsoleLogger(logger.With("satellite", addr)))
		consoles = append(consoles, con)
		targets = append(targets, ptest.Target{Name: addr, Controller: con})
	}
	return targets, closeAll, nil
}

func openConsole(addr string) (io.ReadWriteCloser, error) {
	if hostport, ok := strings.CutPrefix(addr, "tcp://"); ok {
		conn, err := net.DialTimeout("tcp", hostport, consoleDialTimeout)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", hostport, err)
		}
		return conn, nil
	}
	f, err := os.OpenFile(addr, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", addr, err)
	}
	return f, nil
}

func outputRunSummary(out *OutputFormatter, s RunSummary) error {
	notPassed := s.Failed + s.Errored
	msg := fmt.Sprintf("%d case(s) did not pass", notPassed)

	if out.IsJSON() {
		var err error
		if notPassed > 0 {
			err = out.Error("E_CASE_FAILED", msg, s)
		} else {
			err = out.Success(s)
		}
		if err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out.Writer, "Summary: %d passed, %d failed, %d errored, %d total\n",
			s.Passed, s.Failed, s.Errored, s.Total)
	}

	if notPassed > 0 {
		return NewExitError(ExitFailure, msg)
	}
	return nil
}

// withSignals returns a context cancelled on SIGINT or SIGTERM.
func withSignals(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
