package campaign

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Window is the campaign's active period. Start and End are calendar days
// in Location and both are inclusive.
type Window struct {
	Start    time.Time
	End      time.Time
	Location *time.Location
}

// NewWindow parses start and end as YYYY-MM-DD (or RFC3339, truncated to
// its calendar day) in the named timezone.
func NewWindow(start, end, tz string) (Window, error) {
	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return Window{}, fmt.Errorf("campaign timezone %q: %w", tz, err)
		}
		loc = l
	}

	s, err := parseDay(start, loc)
	if err != nil {
		return Window{}, fmt.Errorf("campaign start: %w", err)
	}
	e, err := parseDay(end, loc)
	if err != nil {
		return Window{}, fmt.Errorf("campaign end: %w", err)
	}
	if e.Before(s) {
		return Window{}, fmt.Errorf("campaign end %s is before start %s", end, start)
	}

	return Window{Start: s, End: e, Location: loc}, nil
}

func parseDay(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, v, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable date %q", v)
	}
	return day(t, loc), nil
}

func day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func (w Window) loc() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// StartsAt is the first instant of the campaign, in UTC.
func (w Window) StartsAt() time.Time {
	return w.Start.UTC()
}

// Contains reports whether now falls on a calendar day within the window.
func (w Window) Contains(now time.Time) bool {
	d := day(now, w.loc())
	return !d.Before(day(w.Start, w.loc())) && !d.After(day(w.End, w.loc()))
}

// IsFinalDay reports whether now is on the campaign's last calendar day.
func (w Window) IsFinalDay(now time.Time) bool {
	return day(now, w.loc()).Equal(day(w.End, w.loc()))
}
