package grade

import "fmt"

// Grade is a discrete SLA classification. Grades are totally ordered:
// S > A > B > C > D.
type Grade string

// The closed set of grades, best first.
const (
	S Grade = "S"
	A Grade = "A"
	B Grade = "B"
	C Grade = "C"
	D Grade = "D"
)

// threshold is one row of the grade table: the lowest response rate (in
// percent) that still earns the grade.
type threshold struct {
	grade Grade
	min   float64
}

// thresholds is the authoritative grade table, ordered best grade first.
// FromRate walks it top-down and returns the first grade whose bound the
// rate meets. D is the fall-through and has no explicit bound.
var thresholds = []threshold{
	{S, 95.0},
	{A, 90.0},
	{B, 80.0},
	{C, 70.0},
}

// ranks maps each grade to its position in the total order. Symbols outside
// the closed set are absent and therefore rank 0 — below D.
var ranks = map[Grade]int{
	S: 5,
	A: 4,
	B: 3,
	C: 2,
	D: 1,
}

// FromRate classifies a response rate (percent) into a Grade.
//
// Bounds are inclusive: exactly 95.0 is S, exactly 90.0 is A, and so on.
// Values below 70 — including negative or otherwise out-of-range input —
// resolve to D. FromRate never fails.
func FromRate(rate float64) Grade {
	for _, t := range thresholds {
		if rate >= t.min {
			return t.grade
		}
	}
	return D
}

// GoalMet reports whether current meets or exceeds goal in the grade order.
//
// A symbol outside {S,A,B,C,D} ranks below D: an unknown current grade never
// meets a real goal, and any real grade meets an unknown goal. GoalMet never
// fails.
func GoalMet(current, goal Grade) bool {
	return ranks[current] >= ranks[goal]
}

// Parse validates a grade symbol supplied from config or the CLI.
func Parse(s string) (Grade, error) {
	g := Grade(s)
	if _, ok := ranks[g]; !ok {
		return "", fmt.Errorf("grade: unknown symbol %q: want one of S|A|B|C|D", s)
	}
	return g, nil
}
