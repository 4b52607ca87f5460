package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/spf13/cobra"

	"github.com/pan-ssds/ptest/internal/sim"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
	Name   string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose a simulated flight controller over TCP",
		Long: `Serve a simulated flight controller's debug console over TCP.

Each connection gets its own controller starting at cycle 0. Point
"ptest run --console tcp://ADDR" at it to exercise the console path
without hardware.

Examples:
  ptest serve --listen 127.0.0.1:5555
  ptest serve --listen :5555 --name leader --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "127.0.0.1:5555", "TCP address to listen on")
	cmd.Flags().StringVar(&opts.Name, "name", "sim", "controller name")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	logger := opts.newLogger(cmd.ErrOrStderr())

	ln, err := net.Listen("tcp", opts.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "listen", err)
	}

	ctx, cancel := withSignals(cmd.Context(), logger)
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving simulated controller on %s\n", ln.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := serveListener(ctx, ln, opts.Name, logger); err != nil {
		return WrapExitError(ExitFailure, "serve", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

// serveListener accepts connections until ctx is done, serving each with
// a fresh simulated controller. It closes ln and every open connection
// before returning.
func serveListener(ctx context.Context, ln net.Listener, name string, logger *slog.Logger) error {
	var (
		mu    sync.Mutex
		conns = make(map[net.Conn]struct{})
		wg    sync.WaitGroup
	)

	go func() {
		<-ctx.Done()
		ln.Close()
		mu.Lock()
		for c := range conns {
			c.Close()
		}
		mu.Unlock()
	}()

	var n int
	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		n++
		ctrlName := name
		if n > 1 {
			ctrlName = fmt.Sprintf("%s-%d", name, n)
		}
		ctrl, err := sim.NewController(sim.WithName(ctrlName), sim.WithLogger(logger.With("satellite", ctrlName)))
		if err != nil {
			conn.Close()
			return fmt.Errorf("simulate %s: %w", ctrlName, err)
		}

		mu.Lock()
		if ctx.Err() != nil {
			mu.Unlock()
			conn.Close()
			continue
		}
		conns[conn] = struct{}{}
		mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			stop := ctrl.Start(ctx)
			defer stop()
			defer func() {
				mu.Lock()
				delete(conns, conn)
				mu.Unlock()
				conn.Close()
			}()

			log := logger.With("remote", conn.RemoteAddr().String(), "satellite", ctrlName)
			log.Info("console connected")
			if err := sim.Serve(ctx, conn, ctrl, log); err != nil && !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				log.Warn("console session ended", "error", err)
				return
			}
			log.Info("console disconnected")
		}()
	}
}
