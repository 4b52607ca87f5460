package harness

import (
	"fmt"

	"github.com/pan-ssds/ptest/internal/ptest"
	"github.com/pan-ssds/ptest/internal/state"
)

// Case runs a Scenario as a single-satellite ptest case.
type Case struct {
	scenario *Scenario
}

// NewCase wraps a validated scenario.
func NewCase(s *Scenario) *Case {
	return &Case{scenario: s}
}

// LoadCase loads a scenario file as a case.
func LoadCase(path string) (*Case, error) {
	s, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return NewCase(s), nil
}

func (c *Case) Name() string { return c.scenario.Name }

func (c *Case) Description() string { return c.scenario.Description }

func (c *Case) SetupSingleSat(t *ptest.T) error {
	for i, step := range c.scenario.Setup {
		if err := execute(t, &step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	return nil
}

func (c *Case) RunSingleSat(t *ptest.T) error {
	for i, step := range c.scenario.Run {
		if err := execute(t, &step); err != nil {
			return fmt.Errorf("run[%d]: %w", i, err)
		}
	}
	t.Finish()
	return nil
}

func execute(t *ptest.T, s *Step) error {
	switch {
	case s.Write != "":
		v, err := operand(t, s.Value, s.Enum)
		if err != nil {
			return err
		}
		t.WS(s.Write, v)

	case s.Cycle > 0:
		t.CycleN(s.Cycle)

	case s.Expect != nil:
		ok, msg, err := evaluate(t, s.Expect)
		if err != nil {
			return err
		}
		t.SoftAssert(ok, "%s", msg)

	case s.Require != nil:
		ok, msg, err := evaluate(t, s.Require)
		if err != nil {
			return err
		}
		if !ok {
			t.Fail("required: %s", msg)
		}

	case s.Log != "":
		t.Log("%s", s.Log)

	case len(s.Print) > 0:
		t.PrintRS(s.Print...)
	}
	return nil
}

func operand(t *ptest.T, value any, enum *EnumRef) (state.Value, error) {
	if enum != nil {
		return state.Int(t.Enum(enum.Domain, enum.Name)), nil
	}
	return state.FromAny(value)
}

// evaluate reads the checked field and compares it with the expected value.
func evaluate(t *ptest.T, c *Check) (bool, string, error) {
	want, err := operand(t, c.Value, c.Enum)
	if err != nil {
		return false, "", err
	}
	got := t.RS(c.Field)

	ok, err := compare(c.Op, got, want)
	if err != nil {
		return false, "", fmt.Errorf("%s: %w", c.Field, err)
	}

	msg := c.Message
	if msg == "" {
		wantText := want.String()
		if c.Enum != nil {
			wantText = c.Enum.String()
		}
		msg = fmt.Sprintf("%s %s %s (got %s)", c.Field, c.Op, wantText, got)
	}
	return ok, msg, nil
}

// compare applies op to got and want.
//
// Numbers compare by value across Int and Float. Vectors support eq and ne
// element-wise; ordering operators compare their magnitudes. Booleans
// support eq and ne only.
func compare(op string, got, want state.Value) (bool, error) {
	if gv, ok := got.(state.Vector); ok {
		switch w := want.(type) {
		case state.Vector:
			if op == OpEq || op == OpNe {
				return state.Equal(gv, w) == (op == OpEq), nil
			}
			return ordered(op, ptest.MagOf(gv), ptest.MagOf(w))
		default:
			wf, isNum := state.AsFloat(want)
			if !isNum || op == OpEq || op == OpNe {
				return false, fmt.Errorf("cannot compare vector with %s using %s", want.Kind(), op)
			}
			return ordered(op, ptest.MagOf(gv), wf)
		}
	}

	if gb, ok := got.(state.Bool); ok {
		wb, isBool := want.(state.Bool)
		if !isBool || (op != OpEq && op != OpNe) {
			return false, fmt.Errorf("cannot compare bool with %s using %s", want.Kind(), op)
		}
		return (gb == wb) == (op == OpEq), nil
	}

	gf, okG := state.AsFloat(got)
	wf, okW := state.AsFloat(want)
	if !okG || !okW {
		return false, fmt.Errorf("cannot compare %s with %s", got.Kind(), want.Kind())
	}
	return ordered(op, gf, wf)
}

func ordered(op string, a, b float64) (bool, error) {
	switch op {
	case OpEq:
		return a == b, nil
	case OpNe:
		return a != b, nil
	case OpLt:
		return a < b, nil
	case OpLe:
		return a <= b, nil
	case OpGt:
		return a > b, nil
	case OpGe:
		return a >= b, nil
	default:
		return false, fmt.Errorf("unknown op %q", op)
	}
}
