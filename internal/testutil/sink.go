package testutil

import "sync"

// CaptureSink records diagnostics lines for inspection.
type CaptureSink struct {
	mu    sync.Mutex
	lines []string
}

// Put records msg.
func (s *CaptureSink) Put(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, msg)
}

// Lines returns the recorded lines in order.
func (s *CaptureSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}
