package schedule

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// DateLayout is the canonical YYYY-MM-DD key shared by the date picker and the backend.
const DateLayout = "2006-01-02"

// FormatDate renders d as a zero-padded YYYY-MM-DD key. Every date-to-string
// conversion in the dashboard and the API goes through here.
func FormatDate(d civil.Date) string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseDate reads a YYYY-MM-DD key back into a calendar date.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// Today returns the calendar date of now in now's own location.
func Today(now time.Time) civil.Date {
	return civil.DateOf(now)
}

// DayBounds returns [start, end) of d in loc.
func DayBounds(d civil.Date, loc *time.Location) (time.Time, time.Time) {
	start := d.In(loc)
	return start, d.AddDays(1).In(loc)
}
