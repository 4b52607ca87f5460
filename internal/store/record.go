package store

import (
	"github.com/pan-ssds/ptest/internal/ptest"
)

// RunRecord is one stored case run.
type RunRecord struct {
	ID         string   `json:"id"`
	Seq        int64    `json:"seq"`
	Case       string   `json:"case"`
	Satellites []string `json:"satellites"`
	State      string   `json:"state"`
	Verdict    string   `json:"verdict"`

	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ErrorCycle   int64  `json:"error_cycle,omitempty"`

	// Assertions and Failed are counts filled in on read.
	Assertions int `json:"assertions"`
	Failed     int `json:"failed"`

	// Records holds the soft assertions. Only ReadRun loads them.
	Records []AssertionRecord `json:"records,omitempty"`
}

// AssertionRecord is one stored soft assertion.
type AssertionRecord struct {
	Passed    bool   `json:"passed"`
	Message   string `json:"message"`
	Cycle     int64  `json:"cycle"`
	Satellite string `json:"satellite,omitempty"`
}

// FromResult converts a case result for storage.
func FromResult(res *ptest.Result) RunRecord {
	rec := RunRecord{
		ID:         res.RunID,
		Case:       res.Case,
		Satellites: append([]string(nil), res.Satellites...),
		State:      string(res.State),
		Verdict:    string(res.Verdict),
		Records:    make([]AssertionRecord, len(res.Records)),
		Assertions: len(res.Records),
		Failed:     res.Failed(),
	}
	if res.Err != nil {
		rec.ErrorKind = string(res.Err.Kind)
		rec.ErrorMessage = res.Err.Message
		rec.ErrorCycle = res.Err.Cycle
	}
	for i, r := range res.Records {
		rec.Records[i] = AssertionRecord{
			Passed:    r.Condition,
			Message:   r.Message,
			Cycle:     r.Cycle,
			Satellite: r.Satellite,
		}
	}
	return rec
}
