package ptest

// Verdict is the outcome of a case run.
type Verdict string

const (
	VerdictPass  Verdict = "PASS"
	VerdictFail  Verdict = "FAIL"
	VerdictError Verdict = "ERROR"
)

// Record is one soft assertion.
type Record struct {
	Condition bool   `json:"condition"`
	Message   string `json:"message"`
	Cycle     int64  `json:"cycle"`
	Satellite string `json:"satellite,omitempty"`
}

// Accumulator collects the soft assertions of one case run. It is owned by
// the running case and is not safe for concurrent use.
type Accumulator struct {
	records []Record
}

// Record appends an assertion and returns its condition.
func (a *Accumulator) Record(cond bool, msg string, cycle int64, satellite string) bool {
	a.records = append(a.records, Record{
		Condition: cond,
		Message:   msg,
		Cycle:     cycle,
		Satellite: satellite,
	})
	return cond
}

// Records returns the assertions in the order they were made.
func (a *Accumulator) Records() []Record {
	out := make([]Record, len(a.records))
	copy(out, a.records)
	return out
}

// Len returns the number of assertions recorded.
func (a *Accumulator) Len() int { return len(a.records) }

// Failed returns the number of assertions whose condition was false.
func (a *Accumulator) Failed() int {
	n := 0
	for _, r := range a.records {
		if !r.Condition {
			n++
		}
	}
	return n
}

// Verdict derives PASS or FAIL from the records. A run with no
// assertions passes.
func (a *Accumulator) Verdict() Verdict {
	if a.Failed() > 0 {
		return VerdictFail
	}
	return VerdictPass
}
