package metrics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/callgrade/callgrade/internal/grade"
	"github.com/callgrade/callgrade/internal/pipeline"
)

// Write encodes the run result as Prometheus metrics and writes it to path
// atomically. goal is included as the grade label on callgrade_goal_met.
func Write(path string, res pipeline.Result, goal grade.Grade) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".callgrade-*.prom")
	if err != nil {
		return fmt.Errorf("metrics: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, res, goal); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("metrics: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("metrics: rename into place: %w", err)
	}
	return nil
}

// Encode writes the run result to w in text exposition format.
//
// Emitted families:
//
//	callgrade_run_success           1 if the run succeeded
//	callgrade_incoming_calls        aggregated incoming total (successful runs)
//	callgrade_answered_calls        aggregated answered total (successful runs)
//	callgrade_response_rate_percent answered/incoming*100, two decimals
//	callgrade_goal_met{current,goal} 1 if the current grade meets the goal
func Encode(w io.Writer, res pipeline.Result, goal grade.Grade) error {
	families := []*dto.MetricFamily{
		gaugeFamily("callgrade_run_success", "Whether the last SLA run succeeded.",
			boolValue(res.Success), nil),
	}

	if res.Success {
		rate := float64(res.AnsweredTotal) / float64(res.IncomingTotal) * 100
		families = append(families,
			gaugeFamily("callgrade_incoming_calls", "Total incoming calls in the last run.",
				float64(res.IncomingTotal), nil),
			gaugeFamily("callgrade_answered_calls", "Total answered calls in the last run.",
				float64(res.AnsweredTotal), nil),
			gaugeFamily("callgrade_response_rate_percent", "Response rate of the last run.",
				rate, nil),
			gaugeFamily("callgrade_goal_met", "Whether the current grade meets the goal grade.",
				boolValue(grade.GoalMet(res.Grade, goal)),
				map[string]string{"current": string(res.Grade), "goal": string(goal)}),
		)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// gaugeFamily builds a single-sample gauge MetricFamily.
func gaugeFamily(name, help string, value float64, labels map[string]string) *dto.MetricFamily {
	m := &dto.Metric{
		Gauge: &dto.Gauge{Value: proto.Float64(value)},
	}
	for k, v := range labels {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(k),
			Value: proto.String(v),
		})
	}
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{m},
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
