package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pan-ssds/ptest/internal/ptest"
)

// Collector bundles the case-run counters.
type Collector struct {
	gatherer prometheus.Gatherer

	CaseRuns       *prometheus.CounterVec
	Cycles         prometheus.Counter
	SoftAssertions *prometheus.CounterVec
}

var _ ptest.Observer = (*Collector)(nil)

// NewCollector registers the counters against reg, defaulting to the
// global registry when nil. Registering twice on the same registry reuses
// the existing counters.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ptest_case_runs_total",
		Help: "Finished case runs, labeled by case and verdict.",
	}, []string{"case", "verdict"}), "ptest_case_runs_total")
	if err != nil {
		return nil, err
	}

	cycles, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ptest_cycles_total",
		Help: "Control cycles advanced by cases, summed over satellites.",
	}), "ptest_cycles_total")
	if err != nil {
		return nil, err
	}

	asserts, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ptest_soft_assertions_total",
		Help: "Soft assertions recorded by cases, labeled by result (pass or fail).",
	}, []string{"result"}), "ptest_soft_assertions_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		CaseRuns:       runs,
		Cycles:         cycles,
		SoftAssertions: asserts,
	}, nil
}

// Gatherer returns the gatherer the counters were registered with.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.gatherer
}

// CycleAdvanced counts one cycle.
func (c *Collector) CycleAdvanced(_, _ string, _ int64) {
	if c == nil {
		return
	}
	c.Cycles.Inc()
}

// CaseFinished counts the run and its soft assertions.
func (c *Collector) CaseFinished(res *ptest.Result) {
	if c == nil || res == nil {
		return
	}
	c.CaseRuns.WithLabelValues(res.Case, string(res.Verdict)).Inc()

	failed := res.Failed()
	if passed := len(res.Records) - failed; passed > 0 {
		c.SoftAssertions.WithLabelValues("pass").Add(float64(passed))
	}
	if failed > 0 {
		c.SoftAssertions.WithLabelValues("fail").Add(float64(failed))
	}
}

// WriteTextfile writes every metric the collector's gatherer holds to path
// in the text exposition format. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
