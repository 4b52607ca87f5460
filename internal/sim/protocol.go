package sim

import (
	"encoding/json"
	"log/slog"
)

// Debug console wire format. Every message is one JSON object per line.
//
//	request  {"r/w":"r","field":F}
//	         {"r/w":"w","field":F,"val":V}
//	reply    {"t":ms,"field":F,"val":V}
//	         {"t":ms,"field":F,"err":CODE,"msg":M}
//	log      {"t":ms,"svrty":S,"msg":M}
//
// A cycle is requested by writing true to StartField; the device answers
// with the new value of CycleField once the cycle has run.

// StartField is written by the console to request one cycle.
const StartField = "cycle.start"

// Request directions.
const (
	opRead  = "r"
	opWrite = "w"
)

// ErrCodeStepFailed is the reply code for a cycle the device could not run.
const ErrCodeStepFailed FieldErrorCode = "STEP_FAILED"

type request struct {
	RW    string          `json:"r/w"`
	Field string          `json:"field"`
	Val   json.RawMessage `json:"val,omitempty"`
}

type message struct {
	T        int64           `json:"t"`
	Field    string          `json:"field,omitempty"`
	Val      json.RawMessage `json:"val,omitempty"`
	Err      string          `json:"err,omitempty"`
	Msg      string          `json:"msg,omitempty"`
	Severity string          `json:"svrty,omitempty"`
}

func (m message) isLog() bool { return m.Severity != "" }

// Severity is a syslog severity as printed by the flight computer.
type Severity string

const (
	SeverityDebug     Severity = "DEBUG"
	SeverityInfo      Severity = "INFO"
	SeverityNotice    Severity = "NOTICE"
	SeverityWarning   Severity = "WARNING"
	SeverityError     Severity = "ERROR"
	SeverityCritical  Severity = "CRITICAL"
	SeverityAlert     Severity = "ALERT"
	SeverityEmergency Severity = "EMERGENCY"
)

// Level maps a severity onto the closest slog level. Unknown severities
// are treated as Info.
func (s Severity) Level() slog.Level {
	switch s {
	case SeverityDebug:
		return slog.LevelDebug
	case SeverityInfo, SeverityNotice:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityError, SeverityCritical, SeverityAlert, SeverityEmergency:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
