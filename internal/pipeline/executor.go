package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// StageFunc maps the current state to a partial update. Implementations
// must not retain the State value past the call.
type StageFunc func(ctx context.Context, st State) Update

// Stage is one named step in the pipeline.
type Stage struct {
	// Name identifies the stage in logs and panic diagnostics.
	Name string

	// RunOnError opts the stage in to running after the state has already
	// entered the error status. The report stage sets this so a failed run
	// still produces a failure report.
	RunOnError bool

	Run StageFunc
}

// Executor invokes stages in fixed order, merging each stage's partial
// output into the state and short-circuiting on the failure flag.
type Executor struct {
	stages []Stage
}

// NewExecutor builds an Executor over the given stages. Order is execution
// order.
func NewExecutor(stages ...Stage) *Executor {
	return &Executor{stages: stages}
}

// Execute runs the pipeline over the initial state and returns the
// caller-facing Result.
//
// No stage failure escapes as a panic or error: stage-level faults are
// recovered into an unexpected_failure update, and the whole invocation is
// guarded once more so a residual fault still yields a structured Result.
func (e *Executor) Execute(ctx context.Context, initial State) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline: run aborted by unexpected fault", "panic", r)
			res = Result{
				Success: false,
				Error:   fmt.Sprintf("unexpected failure: %v", r),
			}
		}
	}()

	st := initial
	for _, stage := range e.stages {
		if st.Failed() && !stage.RunOnError {
			slog.Debug("pipeline: skipping stage after failure", "stage", stage.Name)
			continue
		}
		st.apply(e.runStage(ctx, stage, st))
	}
	return resultOf(st)
}

// runStage invokes one stage, converting a panic into an error update so the
// fault stays contained at the stage boundary.
func (e *Executor) runStage(ctx context.Context, stage Stage, st State) (u Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline: stage panicked", "stage", stage.Name, "panic", r)
			u = Fail(ErrKindUnexpected, fmt.Sprintf("stage %s: %v", stage.Name, r))
		}
	}()
	return stage.Run(ctx, st)
}
