package ptest

import "log/slog"

// Sink receives free-form case diagnostics. It never affects a verdict.
type Sink interface {
	Put(msg string)
}

// ScopedSink is a Sink that can tag messages with where they came from.
// The runner scopes a sink per satellite before handing it to a case.
type ScopedSink interface {
	Sink
	Scope(caseName, satellite string, cycle func() int64) Sink
}

// SlogSink writes diagnostics to a structured logger at Info.
type SlogSink struct {
	logger *slog.Logger
	cycle  func() int64
}

// NewSlogSink creates a sink over logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

// Put implements Sink.
func (s *SlogSink) Put(msg string) {
	if s.cycle != nil {
		s.logger.Info(msg, "cycle", s.cycle())
		return
	}
	s.logger.Info(msg)
}

// Scope implements ScopedSink.
func (s *SlogSink) Scope(caseName, satellite string, cycle func() int64) Sink {
	return &SlogSink{
		logger: s.logger.With("case", caseName, "satellite", satellite),
		cycle:  cycle,
	}
}

type discardSink struct{}

func (discardSink) Put(string) {}
