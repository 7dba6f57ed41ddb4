package attendance

import (
	"fmt"
	"time"

	"github.com/yacine-dev/attendclass/models"
)

// Phase names for a seance relative to a point in time.
const (
	PhaseBefore = "before"
	PhaseDuring = "during"
	PhaseAfter  = "after"
)

// Decision is the outcome of evaluating a seance schedule.
type Decision struct {
	ShouldRun bool
	Phase     string
	Remaining time.Duration
}

// Evaluate decides whether recognition should run for the seance at the
// given moment. Recognition runs only on the seance's date between its
// start and end times, both inclusive.
func Evaluate(seance *models.Seance, now time.Time) (Decision, error) {
	date, err := time.ParseInLocation("2006-01-02", seance.Date, now.Location())
	if err != nil {
		return Decision{}, fmt.Errorf("invalid seance date %q: %w", seance.Date, err)
	}
	start, err := parseClock(seance.StartTime)
	if err != nil {
		return Decision{}, fmt.Errorf("invalid seance start time %q: %w", seance.StartTime, err)
	}
	end, err := parseClock(seance.EndTime)
	if err != nil {
		return Decision{}, fmt.Errorf("invalid seance end time %q: %w", seance.EndTime, err)
	}

	y1, m1, d1 := date.Date()
	y2, m2, d2 := now.Date()
	clock := time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second

	switch {
	case y2 < y1 || (y2 == y1 && (m2 < m1 || (m2 == m1 && d2 < d1))):
		return Decision{Phase: PhaseBefore}, nil
	case y2 > y1 || (y2 == y1 && (m2 > m1 || (m2 == m1 && d2 > d1))):
		return Decision{Phase: PhaseAfter}, nil
	case clock < start:
		return Decision{Phase: PhaseBefore, Remaining: start - clock}, nil
	case clock > end:
		return Decision{Phase: PhaseAfter}, nil
	default:
		return Decision{ShouldRun: true, Phase: PhaseDuring, Remaining: end - clock}, nil
	}
}

// parseClock converts "HH:MM:SS" into an offset from midnight.
func parseClock(value string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", value)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

// RemainingString formats a duration as HH:MM:SS for display.
func RemainingString(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
