package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns predictable run IDs for golden output.
//
// With a fixed ID every call returns it; otherwise IDs are numbered
// "run-0001", "run-0002", ...
//
// Thread-safety: safe for concurrent use.
type FixedIDGenerator struct {
	mu    sync.Mutex
	fixed string
	n     int
}

// NewFixedIDGenerator creates a generator. An empty id selects numbering.
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	return &FixedIDGenerator{fixed: id}
}

// Generate returns the next ID.
func (g *FixedIDGenerator) Generate() string {
	if g.fixed != "" {
		return g.fixed
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("run-%04d", g.n)
}
