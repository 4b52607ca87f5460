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
	"time"

	"github.com/pan-ssds/ptest/internal/state"
)

// Server exposes a FlightController over the debug console protocol. It is
// the device side of Console.
type Server struct {
	ctrl   FlightController
	logger *slog.Logger
	start  time.Time
}

// NewServer creates a server for ctrl.
func NewServer(ctrl FlightController, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{ctrl: ctrl, logger: logger, start: time.Now()}
}

// Serve answers requests read from rw until the stream ends or ctx is
// done. Cancelling ctx does not interrupt a blocked read; close the stream
// to stop a server waiting for input. A clean end of stream returns nil.
func (s *Server) Serve(ctx context.Context, rw io.ReadWriter) error {
	sess := &session{srv: s, w: rw}

	scanner := bufio.NewScanner(rw)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := sess.handle(ctx, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("serve: read: %w", err)
	}
	return nil
}

// Serve is shorthand for NewServer(ctrl, logger).Serve(ctx, rw).
func Serve(ctx context.Context, rw io.ReadWriter, ctrl FlightController, logger *slog.Logger) error {
	return NewServer(ctrl, logger).Serve(ctx, rw)
}

type session struct {
	srv *Server
	mu  sync.Mutex
	w   io.Writer
}

func (s *session) handle(ctx context.Context, line []byte) error {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return s.log(SeverityWarning, fmt.Sprintf("malformed request: %v", err))
	}

	switch req.RW {
	case opRead:
		v, err := s.srv.ctrl.ReadState(req.Field)
		if err != nil {
			return s.replyErr(req.Field, err)
		}
		return s.replyValue(req.Field, v)

	case opWrite:
		v, err := state.Decode(req.Val)
		if err != nil {
			return s.replyErr(req.Field, &FieldError{Code: ErrCodeFieldType, Field: req.Field, Message: err.Error()})
		}
		if req.Field == StartField {
			return s.step(ctx, v)
		}
		if err := s.srv.ctrl.WriteState(req.Field, v); err != nil {
			return s.replyErr(req.Field, err)
		}
		return s.replyValue(req.Field, v)

	default:
		return s.log(SeverityWarning, fmt.Sprintf("unknown request direction %q", req.RW))
	}
}

func (s *session) step(ctx context.Context, v state.Value) error {
	if b, ok := v.(state.Bool); !ok || !bool(b) {
		return s.replyErr(StartField, &FieldError{Code: ErrCodeFieldType, Field: StartField, Message: "cycle start must be true"})
	}

	if err := s.srv.ctrl.Step(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return s.replyErr(CycleField, &FieldError{Code: ErrCodeStepFailed, Field: CycleField, Message: err.Error()})
	}

	cycle, err := s.srv.ctrl.ReadState(CycleField)
	if err != nil {
		return s.replyErr(CycleField, err)
	}
	if err := s.log(SeverityDebug, "cycle "+cycle.String()+" complete"); err != nil {
		return err
	}
	return s.replyValue(CycleField, cycle)
}

func (s *session) replyValue(field string, v state.Value) error {
	raw, err := state.Encode(v)
	if err != nil {
		return s.replyErr(field, &FieldError{Code: ErrCodeFieldType, Field: field, Message: err.Error()})
	}
	return s.send(message{Field: field, Val: raw})
}

func (s *session) replyErr(field string, err error) error {
	code := ErrCodeStepFailed
	msg := err.Error()
	var fe *FieldError
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	s.srv.logger.Debug("request rejected", "field", field, "code", code, "error", err)
	return s.send(message{Field: field, Err: string(code), Msg: msg})
}

func (s *session) log(sev Severity, msg string) error {
	return s.send(message{Severity: string(sev), Msg: msg})
}

func (s *session) send(m message) error {
	m.T = time.Since(s.srv.start).Milliseconds()
	line, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("serve: encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("serve: write: %w", err)
	}
	return nil
}
