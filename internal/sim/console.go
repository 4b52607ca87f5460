package sim

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pan-ssds/ptest/internal/state"
)

// maxLineSize bounds one console line.
const maxLineSize = 1 << 20

// Console is a FlightController reached over a flight computer's debug
// console (a serial device, a TCP connection, or a pipe to Serve).
//
// Requests are serialized; each waits for its reply. Log lines arriving in
// between are re-emitted through the console's logger at the matching
// level.
type Console struct {
	w      io.Writer
	closer io.Closer
	logger *slog.Logger

	mu      sync.Mutex // one outstanding request
	replies chan message
	desync  bool

	quit      chan struct{}
	closeOnce sync.Once

	done    chan struct{}
	readErr error
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithConsoleLogger sets the logger device log lines are forwarded to.
func WithConsoleLogger(l *slog.Logger) ConsoleOption {
	return func(c *Console) { c.logger = l }
}

// NewConsole starts reading from rw. If rw is an io.Closer, Close closes it.
func NewConsole(rw io.ReadWriter, opts ...ConsoleOption) *Console {
	c := &Console{
		w:       rw,
		replies: make(chan message),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if cl, ok := rw.(io.Closer); ok {
		c.closer = cl
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop(rw)
	return c
}

func (c *Console) readLoop(r io.Reader) {
	defer close(c.done)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg message
		if err := json.Unmarshal(line, &msg); err != nil {
			c.logger.Warn("console: unparseable line", "line", string(line), "error", err)
			continue
		}
		if msg.isLog() {
			sev := Severity(msg.Severity)
			c.logger.Log(context.Background(), sev.Level(), msg.Msg,
				"severity", msg.Severity, "device_ms", msg.T)
			continue
		}

		select {
		case c.replies <- msg:
		case <-c.quit:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		c.readErr = err
	} else {
		c.readErr = io.EOF
	}
}

// Close stops the console and closes the underlying stream if it is
// closable.
func (c *Console) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// ReadState implements FlightController.
func (c *Console) ReadState(path string) (state.Value, error) {
	reply, err := c.roundTrip(context.Background(), request{RW: opRead, Field: path}, path)
	if err != nil {
		return nil, err
	}
	v, err := state.Decode(reply.Val)
	if err != nil {
		return nil, fmt.Errorf("console: read %s: %w", path, err)
	}
	return v, nil
}

// WriteState implements FlightController.
func (c *Console) WriteState(path string, v state.Value) error {
	raw, err := state.Encode(v)
	if err != nil {
		return fmt.Errorf("console: encode %s: %w", path, err)
	}
	_, err = c.roundTrip(context.Background(), request{RW: opWrite, Field: path, Val: raw}, path)
	return err
}

// Step implements FlightController by writing StartField and waiting for
// the device to report the new cycle counter.
func (c *Console) Step(ctx context.Context) error {
	_, err := c.roundTrip(ctx, request{RW: opWrite, Field: StartField, Val: json.RawMessage("true")}, CycleField)
	return err
}

func (c *Console) roundTrip(ctx context.Context, req request, wantField string) (message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.desync {
		return message{}, ErrConsoleDesync
	}

	line, err := json.Marshal(req)
	if err != nil {
		return message{}, fmt.Errorf("console: encode request: %w", err)
	}
	if _, err := c.w.Write(append(line, '\n')); err != nil {
		return message{}, fmt.Errorf("console: send %s: %w", req.Field, err)
	}

	var reply message
	select {
	case reply = <-c.replies:
	case <-c.done:
		return message{}, fmt.Errorf("console: connection lost: %w", c.readErr)
	case <-ctx.Done():
		// The reply may still arrive and would be taken for the answer
		// to the next request.
		c.desync = true
		return message{}, ctx.Err()
	}

	if reply.Err != "" {
		return message{}, &FieldError{
			Code:    FieldErrorCode(reply.Err),
			Field:   reply.Field,
			Message: reply.Msg,
		}
	}
	if reply.Field != wantField {
		return message{}, fmt.Errorf("console: reply for %q, expected %q", reply.Field, wantField)
	}
	return reply, nil
}

// ErrConsoleDesync is returned for every request after one was abandoned
// mid-flight.
var ErrConsoleDesync = errors.New("console: abandoned request, reply stream out of sync")

// IsConnectionLost reports whether err came from a console whose stream
// has ended.
func IsConnectionLost(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe)
}
