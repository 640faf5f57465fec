package sla

import (
	"context"
	"time"

	"github.com/callgrade/callgrade/internal/grade"
	"github.com/callgrade/callgrade/internal/loader"
	"github.com/callgrade/callgrade/internal/pipeline"
	"github.com/callgrade/callgrade/internal/report"
	"github.com/callgrade/callgrade/internal/source"
)

// Options configures one Analyzer.
type Options struct {
	// Source supplies the call-volume CSV.
	Source source.Source

	// Goal is the target grade the run is evaluated against.
	Goal grade.Grade

	// Strict rejects data where answered calls exceed incoming calls.
	Strict bool

	// Now supplies the report clock. Nil uses time.Now.
	Now func() time.Time
}

// Analyzer runs the SLA pipeline over a fixed source and goal. One Analyzer
// serves any number of runs; each run gets its own state.
type Analyzer struct {
	opts Options
	exec *pipeline.Executor
}

// New builds an Analyzer from the given options.
func New(opts Options) *Analyzer {
	ld := &loader.Loader{Source: opts.Source, Strict: opts.Strict}
	gen := &report.Generator{Now: opts.Now}
	return &Analyzer{
		opts: opts,
		exec: pipeline.NewExecutor(ld.Stage(), gen.Stage()),
	}
}

// Run executes one full pipeline pass. scenario, when non-empty, is
// included verbatim in the rendered report. Run never panics: any fault is
// returned as a failed Result.
func (a *Analyzer) Run(ctx context.Context, scenario string) pipeline.Result {
	st := pipeline.NewState(a.opts.Source.Ref(), a.opts.Goal, scenario)
	return a.exec.Execute(ctx, st)
}
