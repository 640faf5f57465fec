package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/callgrade/callgrade/internal/grade"
	"github.com/callgrade/callgrade/internal/pipeline"
	"github.com/callgrade/callgrade/internal/source"
)

// Required header column names, matched case-insensitively after trimming.
const (
	ColumnIncoming = "incoming calls"
	ColumnAnswered = "answered calls"
)

// Loader is the ingestion stage. It owns the data source and the input
// strictness policy.
type Loader struct {
	Source source.Source

	// Strict rejects data where the answered total exceeds the incoming
	// total. Off by default: the anomaly is accepted and graded as-is,
	// matching live traffic where transferred calls can inflate answers.
	Strict bool
}

// Stage wraps the loader as a pipeline stage.
func (l *Loader) Stage() pipeline.Stage {
	return pipeline.Stage{Name: "load", Run: l.Run}
}

// Run reads, validates, and aggregates the source. It reports failures
// through the returned update rather than panicking, leaving the stats at
// their zero defaults on any failure.
func (l *Loader) Run(ctx context.Context, st pipeline.State) pipeline.Update {
	rc, err := l.Source.Open(ctx)
	if err != nil {
		return pipeline.Fail(pipeline.ErrKindSourceNotFound,
			fmt.Sprintf("cannot read source %s: %v", l.Source.Ref(), err))
	}
	defer rc.Close()

	records, err := csv.NewReader(rc).ReadAll()
	if err != nil {
		return pipeline.Fail(pipeline.ErrKindUnexpected,
			fmt.Sprintf("parse csv %s: %v", l.Source.Ref(), err))
	}
	if len(records) <= 1 {
		return pipeline.Fail(pipeline.ErrKindSourceEmpty,
			fmt.Sprintf("source %s has no data rows", l.Source.Ref()))
	}

	incomingIdx, answeredIdx, missing := columnIndexes(records[0])
	if len(missing) > 0 {
		return pipeline.Fail(pipeline.ErrKindMissingColumns,
			fmt.Sprintf("source %s is missing required column(s): %s",
				l.Source.Ref(), strings.Join(missing, ", ")))
	}

	stats, err := aggregate(records[1:], incomingIdx, answeredIdx)
	if err != nil {
		return pipeline.Fail(pipeline.ErrKindUnexpected, err.Error())
	}

	// The denominator check must come before any division.
	if stats.IncomingTotal == 0 {
		return pipeline.Fail(pipeline.ErrKindZeroDenominator,
			"incoming call total is 0: response rate cannot be computed")
	}
	if l.Strict && stats.AnsweredTotal > stats.IncomingTotal {
		return pipeline.Fail(pipeline.ErrKindAnomalousData,
			fmt.Sprintf("answered total %d exceeds incoming total %d",
				stats.AnsweredTotal, stats.IncomingTotal))
	}

	// Divide, multiply, then round — rounding any earlier loses precision.
	rate := float64(stats.AnsweredTotal) / float64(stats.IncomingTotal) * 100
	stats.ResponseRate = math.Round(rate*100) / 100

	g := grade.FromRate(stats.ResponseRate)

	slog.Info("loader: aggregated source",
		"source", l.Source.Ref(),
		"rows", len(records)-1,
		"incoming", stats.IncomingTotal,
		"answered", stats.AnsweredTotal,
		"response_rate", stats.ResponseRate,
		"grade", g,
	)

	return pipeline.Update{
		Stats:  &stats,
		Grade:  &g,
		Status: pipeline.StatusSuccess,
		Log: []string{fmt.Sprintf("load: %d rows aggregated, response rate %.2f%%, grade %s",
			len(records)-1, stats.ResponseRate, g)},
	}
}

// columnIndexes locates the required columns in the header row and lists
// any that are absent.
func columnIndexes(header []string) (incoming, answered int, missing []string) {
	incoming, answered = -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case ColumnIncoming:
			incoming = i
		case ColumnAnswered:
			answered = i
		}
	}
	if incoming < 0 {
		missing = append(missing, ColumnIncoming)
	}
	if answered < 0 {
		missing = append(missing, ColumnAnswered)
	}
	return incoming, answered, missing
}

// aggregate sums the two required columns across all data rows. Counts are
// taken as given — no sign validation.
func aggregate(rows [][]string, incomingIdx, answeredIdx int) (pipeline.Stats, error) {
	var stats pipeline.Stats
	for n, row := range rows {
		incoming, err := cellInt(row, incomingIdx)
		if err != nil {
			return pipeline.Stats{}, fmt.Errorf("row %d: %s: %w", n+2, ColumnIncoming, err)
		}
		answered, err := cellInt(row, answeredIdx)
		if err != nil {
			return pipeline.Stats{}, fmt.Errorf("row %d: %s: %w", n+2, ColumnAnswered, err)
		}
		stats.IncomingTotal += incoming
		stats.AnsweredTotal += answered
	}
	return stats, nil
}

// cellInt parses one numeric cell. A row shorter than the header or a
// non-numeric value is a data fault, reported with its row number.
func cellInt(row []string, idx int) (int64, error) {
	if idx >= len(row) {
		return 0, fmt.Errorf("cell missing")
	}
	v, err := strconv.ParseInt(strings.TrimSpace(row[idx]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q as count: %w", row[idx], err)
	}
	return v, nil
}
