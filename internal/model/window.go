package model

import (
	"fmt"
	"strings"
	"time"
)

// TimeWindow is an inclusive [Start, End] range sampled every IntervalMinutes.
type TimeWindow struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	IntervalMinutes int       `json:"interval_minutes"`
}

// Interval returns the sampling step as a duration.
func (w TimeWindow) Interval() time.Duration {
	return time.Duration(w.IntervalMinutes) * time.Minute
}

// Validate checks Start <= End and a positive interval.
func (w TimeWindow) Validate() error {
	if w.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: interval %d minutes", ErrInvalidWindow, w.IntervalMinutes)
	}
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("%w: zero bound", ErrInvalidWindow)
	}
	if w.Start.After(w.End) {
		return fmt.Errorf("%w: start %s after end %s", ErrInvalidWindow,
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}

// Ticks returns the number of sample instants in the window, both ends included.
// Returns 0 for an invalid window.
func (w TimeWindow) Ticks() int {
	if w.Validate() != nil {
		return 0
	}
	return int(w.End.Sub(w.Start)/w.Interval()) + 1
}

// TimeRange is the dashboard's range selector.
type TimeRange string

const (
	RangeDay   TimeRange = "day"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeYear  TimeRange = "year"
)

// TimeRanges lists every supported range in display order.
var TimeRanges = []TimeRange{RangeDay, RangeWeek, RangeMonth, RangeYear}

// ParseTimeRange parses a range name. Empty input selects RangeDay.
func ParseTimeRange(s string) (TimeRange, error) {
	switch r := TimeRange(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RangeDay, nil
	case RangeDay, RangeWeek, RangeMonth, RangeYear:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown range %q", ErrInvalidWindow, s)
	}
}

// Lookback returns how far back the range reaches and its sampling interval in minutes.
func (r TimeRange) Lookback() (time.Duration, int) {
	switch r {
	case RangeWeek:
		return 7 * 24 * time.Hour, 30
	case RangeMonth:
		return 30 * 24 * time.Hour, 120
	case RangeYear:
		return 365 * 24 * time.Hour, 24 * 60
	default:
		return 24 * time.Hour, 5
	}
}

// Window maps the range onto a concrete window ending at now.
func (r TimeRange) Window(now time.Time) TimeWindow {
	back, interval := r.Lookback()
	return TimeWindow{
		Start:           now.Add(-back),
		End:             now,
		IntervalMinutes: interval,
	}
}
