package sample

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
)

// hours is the operating window: 09:00 through 23:00, then past midnight
// to 02:00.
var hours = func() []int {
	h := make([]int, 0, 18)
	for i := 9; i < 24; i++ {
		h = append(h, i)
	}
	for i := 0; i < 3; i++ {
		h = append(h, i)
	}
	return h
}()

// volumeFor returns the incoming-call range for an hour of day.
func volumeFor(hour int) (lo, hi int) {
	switch {
	case hour >= 12 && hour <= 14: // lunch peak
		return 80, 120
	case hour >= 19 && hour <= 21: // evening peak
		return 70, 100
	case hour <= 2: // small hours
		return 10, 25
	case hour >= 22: // late night
		return 20, 40
	default:
		return 50, 80
	}
}

// Generate writes one day of hourly call-volume rows to w. rng drives all
// randomness, so a seeded generator produces identical output.
//
// Answered counts land between 75% and 98% of incoming, mirroring a center
// that mostly keeps up but drops calls at peak.
func Generate(w io.Writer, rng *rand.Rand) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"hour", "incoming calls", "answered calls", "staff"}); err != nil {
		return fmt.Errorf("sample: write header: %w", err)
	}

	for _, hour := range hours {
		lo, hi := volumeFor(hour)
		incoming := lo + rng.Intn(hi-lo+1)
		answered := int(float64(incoming) * (0.75 + rng.Float64()*0.23))

		staff := 10 + rng.Intn(6)
		if hour <= 2 {
			staff = 3 + rng.Intn(3)
		} else if hour >= 22 {
			staff = 5 + rng.Intn(4)
		}

		row := []string{
			strconv.Itoa(hour),
			strconv.Itoa(incoming),
			strconv.Itoa(answered),
			strconv.Itoa(staff),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("sample: write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile generates a sample CSV at path with time-seeded randomness.
func WriteFile(path string, seed int64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sample: create %q: %w", path, err)
	}
	if err := Generate(f, rand.New(rand.NewSource(seed))); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
