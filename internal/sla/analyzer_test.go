package sla

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/callgrade/callgrade/internal/grade"
	"github.com/callgrade/callgrade/internal/source"
)

func fixedNow() time.Time {
	return time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
}

func fileSource(t *testing.T, content string) source.FileSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calls.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return source.FileSource{Path: path}
}

func TestRun_EndToEnd(t *testing.T) {
	src := fileSource(t, strings.Join([]string{
		"hour,incoming calls,answered calls",
		"9,100,95",
		"10,100,95",
		"11,100,95",
	}, "\n"))

	a := New(Options{Source: src, Goal: grade.S, Now: fixedNow})
	res := a.Run(context.Background(), "")

	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}
	if res.Grade != grade.S {
		t.Errorf("Grade = %s, want S", res.Grade)
	}
	if res.IncomingTotal != 300 || res.AnsweredTotal != 285 {
		t.Errorf("totals = %d/%d, want 300/285", res.IncomingTotal, res.AnsweredTotal)
	}
	for _, want := range []string{"Response rate: 95.00%", "Goal achieved"} {
		if !strings.Contains(res.Report, want) {
			t.Errorf("report missing %q:\n%s", want, res.Report)
		}
	}
}

func TestRun_ZeroDenominatorIsStructuredFailure(t *testing.T) {
	src := fileSource(t, "incoming calls,answered calls\n0,0\n")

	res := New(Options{Source: src, Goal: grade.A, Now: fixedNow}).Run(context.Background(), "")

	if res.Success {
		t.Fatal("run must fail on zero incoming total")
	}
	if !strings.Contains(res.Error, "0") {
		t.Errorf("error %q does not mark the zero denominator", res.Error)
	}
	if !strings.Contains(res.Report, "Report unavailable") {
		t.Errorf("expected a failure report, got:\n%s", res.Report)
	}
}

func TestRun_MissingColumnNamed(t *testing.T) {
	src := fileSource(t, "hour,incoming calls\n9,100\n")

	res := New(Options{Source: src, Goal: grade.A, Now: fixedNow}).Run(context.Background(), "")

	if res.Success {
		t.Fatal("run must fail on a missing column")
	}
	if !strings.Contains(res.Error, "answered calls") {
		t.Errorf("error %q does not name the missing column", res.Error)
	}
}

func TestRun_Idempotent(t *testing.T) {
	src := fileSource(t, "incoming calls,answered calls\n130,117\n120,108\n")
	a := New(Options{Source: src, Goal: grade.A, Now: fixedNow})

	first := a.Run(context.Background(), "note")
	second := a.Run(context.Background(), "note")

	if first.Report != second.Report {
		t.Error("identical input and clock must yield byte-identical reports")
	}
	if first != second {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestRun_ScenarioFlowsThrough(t *testing.T) {
	src := fileSource(t, "incoming calls,answered calls\n100,90\n")
	a := New(Options{Source: src, Goal: grade.A, Now: fixedNow})

	res := a.Run(context.Background(), "blizzard forecast for the evening shift")

	if !strings.Contains(res.Report, "blizzard forecast for the evening shift") {
		t.Errorf("scenario missing from report:\n%s", res.Report)
	}
}
