package core

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock anchor such as 12:00.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" in 24h format.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// on returns the anchor on the calendar day of the given date, in loc.
func (t TimeOfDay) on(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, t.Hour, t.Minute, 0, 0, loc)
}

// Window is a closed reporting range.
type Window struct {
	Start time.Time
	End   time.Time
}

// DailyWindow returns the one-day window ending at the most recent occurrence
// of anchor at or before now. Calendar arithmetic happens in now's location.
func DailyWindow(now time.Time, anchor TimeOfDay) Window {
	loc := now.Location()
	y, m, d := now.Date()
	end := anchor.on(y, m, d, loc)
	if end.After(now) {
		d--
		end = anchor.on(y, m, d, loc)
	}
	return Window{
		Start: anchor.on(y, m, d-1, loc),
		End:   end,
	}
}

// Filter converts the window into an inclusive store filter.
func (w Window) Filter() Filter {
	start, end := w.Start, w.End
	return Filter{StartDate: &start, EndDate: &end}
}

func (w Window) String() string {
	return w.Start.Format(time.RFC3339) + ".." + w.End.Format(time.RFC3339)
}
