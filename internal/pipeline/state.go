package pipeline

import "github.com/callgrade/callgrade/internal/grade"

// Status is the lifecycle phase of a run. Transitions only move forward:
// pending → success or pending → error, never back.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Error kinds produced by the pipeline. Every failure a stage reports
// carries exactly one of these.
const (
	ErrKindSourceNotFound  = "source_not_found"
	ErrKindSourceEmpty     = "source_empty"
	ErrKindMissingColumns  = "missing_columns"
	ErrKindZeroDenominator = "zero_denominator"
	ErrKindAnomalousData   = "anomalous_data"
	ErrKindUnexpected      = "unexpected_failure"
)

// Stats holds the aggregated call-volume totals and the derived response
// rate. ResponseRate is rounded to two decimals after the full
// divide-then-multiply, never earlier.
type Stats struct {
	IncomingTotal int64
	AnsweredTotal int64
	ResponseRate  float64
}

// State is the shared record flowing through the pipeline. It is created
// once per run, handed stage to stage by the executor, and discarded when
// the run ends.
type State struct {
	// Inputs, set once when the run starts.
	SourceRef string      // human-readable source reference for diagnostics
	Goal      grade.Grade // target grade the run is evaluated against
	Scenario  string      // optional caller-supplied annotation, verbatim

	// Stage outputs.
	Stats      Stats
	Grade      grade.Grade // empty until the loader computes it
	Status     Status
	ErrKind    string
	ErrMessage string
	Log        []string // ordered diagnostic messages
	Report     string   // rendered report text
}

// NewState builds the initial pending state from caller inputs.
func NewState(sourceRef string, goal grade.Grade, scenario string) State {
	return State{
		SourceRef: sourceRef,
		Goal:      goal,
		Scenario:  scenario,
		Status:    StatusPending,
	}
}

// Failed reports whether the run has entered the error status.
func (s *State) Failed() bool { return s.Status == StatusError }

// Update is a stage's partial output. Nil or zero fields leave the state
// untouched; Log entries are appended, never replaced.
type Update struct {
	Stats      *Stats
	Grade      *grade.Grade
	Status     Status // empty means "leave as is"
	ErrKind    string
	ErrMessage string
	Log        []string
	Report     *string
}

// Fail builds an error Update for the given kind and message, with a
// matching diagnostic log entry.
func Fail(kind, message string) Update {
	return Update{
		Status:     StatusError,
		ErrKind:    kind,
		ErrMessage: message,
		Log:        []string{kind + ": " + message},
	}
}

// apply merges an Update into the state, field by field.
//
// Status never moves backward: error is terminal, and success can only be
// reached from pending. A fault in a later stage may still degrade a
// successful run to error (the recover path), but nothing ever clears an
// error.
func (s *State) apply(u Update) {
	if u.Stats != nil {
		s.Stats = *u.Stats
	}
	if u.Grade != nil {
		s.Grade = *u.Grade
	}
	switch {
	case u.Status == "" || s.Status == StatusError:
		// nothing to do, or the state is terminal
	case u.Status == StatusError:
		s.Status = StatusError
	case s.Status == StatusPending:
		s.Status = u.Status
	}
	if u.ErrKind != "" {
		s.ErrKind = u.ErrKind
	}
	if u.ErrMessage != "" {
		s.ErrMessage = u.ErrMessage
	}
	if u.Report != nil {
		s.Report = *u.Report
	}
	s.Log = append(s.Log, u.Log...)
}

// Result is the caller-facing outcome of one run.
type Result struct {
	Success       bool        `json:"success"`
	Report        string      `json:"report,omitempty"`
	Grade         grade.Grade `json:"grade,omitempty"`
	IncomingTotal int64       `json:"incoming_total"`
	AnsweredTotal int64       `json:"answered_total"`
	Error         string      `json:"error,omitempty"`
}

// resultOf converts the final state into a Result.
func resultOf(s State) Result {
	if s.Failed() {
		return Result{
			Success: false,
			Report:  s.Report,
			Error:   s.ErrMessage,
		}
	}
	return Result{
		Success:       true,
		Report:        s.Report,
		Grade:         s.Grade,
		IncomingTotal: s.Stats.IncomingTotal,
		AnsweredTotal: s.Stats.AnsweredTotal,
	}
}
