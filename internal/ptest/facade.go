package ptest

import (
	"fmt"

	"github.com/pan-ssds/ptest/internal/sim"
	"github.com/pan-ssds/ptest/internal/state"
)

// StateStore is the case's view of one controller's named fields.
//
// It forwards every call: paths are not validated here and values are
// never cached, so each read observes the controller's committed state.
// Writes take effect on the controller's next cycle.
type StateStore struct {
	ctrl sim.FlightController
}

// NewStateStore wraps a controller.
func NewStateStore(ctrl sim.FlightController) *StateStore {
	return &StateStore{ctrl: ctrl}
}

// WriteField queues a field write on the controller.
func (s *StateStore) WriteField(path string, v state.Value) error {
	if err := s.ctrl.WriteState(path, v); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadField returns a field's current value.
func (s *StateStore) ReadField(path string) (state.Value, error) {
	v, err := s.ctrl.ReadState(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return v, nil
}
