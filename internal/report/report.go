package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/callgrade/callgrade/internal/grade"
	"github.com/callgrade/callgrade/internal/pipeline"
)

const title = "# Call Center SLA Report"

// Generator renders the completed run state into report text.
type Generator struct {
	// Now supplies the current time. Inject a fixed clock in tests;
	// nil falls back to time.Now.
	Now func() time.Time
}

// Stage wraps the generator as a pipeline stage. RunOnError is set: a
// failed run still gets a failure report.
func (g *Generator) Stage() pipeline.Stage {
	return pipeline.Stage{Name: "report", RunOnError: true, Run: g.Run}
}

// Run renders either the full report or, for a failed run, a minimal
// failure report that never touches the zero-default numeric fields.
// A formatting fault inside rendering is recovered into the failure path.
func (g *Generator) Run(ctx context.Context, st pipeline.State) (u pipeline.Update) {
	defer func() {
		if r := recover(); r != nil {
			text := renderFailure(fmt.Sprintf("report rendering failed: %v", r))
			u = pipeline.Fail(pipeline.ErrKindUnexpected, fmt.Sprintf("render report: %v", r))
			u.Report = &text
		}
	}()

	if st.Failed() {
		text := renderFailure(st.ErrMessage)
		return pipeline.Update{
			Report: &text,
			Log:    []string{"report: rendered failure report"},
		}
	}

	text := g.render(st)
	return pipeline.Update{
		Report: &text,
		Log:    []string{"report: rendered"},
	}
}

// render builds the success report. The reference date is one calendar day
// before the injected current time — the report describes yesterday's calls.
func (g *Generator) render(st pipeline.State) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	refDate := now().AddDate(0, 0, -1).Format("2006-01-02")

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", title)
	fmt.Fprintf(&b, "## Reference Date\n%s\n\n", refDate)
	fmt.Fprintf(&b, "## Overall Statistics\n")
	fmt.Fprintf(&b, "- Incoming calls: %s\n", humanize.Comma(st.Stats.IncomingTotal))
	fmt.Fprintf(&b, "- Answered calls: %s\n", humanize.Comma(st.Stats.AnsweredTotal))
	fmt.Fprintf(&b, "- Response rate: %.2f%%\n", st.Stats.ResponseRate)
	fmt.Fprintf(&b, "- Current grade: %s\n", st.Grade)
	fmt.Fprintf(&b, "- Goal grade: %s\n\n", st.Goal)

	fmt.Fprintf(&b, "## Goal Verdict\n%s\n", verdict(st.Grade, st.Goal))

	if st.Scenario != "" {
		fmt.Fprintf(&b, "\n## Scenario\n%s\n", st.Scenario)
	}
	return b.String()
}

// verdict phrases the goal comparison.
func verdict(current, goal grade.Grade) string {
	if grade.GoalMet(current, goal) {
		return fmt.Sprintf("Goal achieved: current grade %s meets goal %s.", current, goal)
	}
	return fmt.Sprintf("Goal not achieved: current grade %s is below goal %s.", current, goal)
}

// renderFailure builds the minimal error report. Only the error message is
// shown — no numeric fields, since the zero defaults are not results.
func renderFailure(message string) string {
	return fmt.Sprintf("%s\n\nReport unavailable: %s\n", title, message)
}
