package billing

import (
	"time"

	ierr "rentbill-backend/internal/errors"
)

// DateLayout is the wire format of calendar dates (yyyy-mm-dd).
const DateLayout = "2006-01-02"

// ParseDate converts a yyyy-mm-dd string into a UTC calendar date.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, ierr.WithError(err).
			WithHint("Dates must use the yyyy-mm-dd format").
			WithReportableDetails(map[string]interface{}{"value": value}).
			Mark(ierr.ErrValidation)
	}
	return d, nil
}

// DateOnly drops the clock part of t, keeping the calendar date as seen in t's
// own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WithinInclusive reports whether the calendar date of t lies in [start, end].
func WithinInclusive(t, start, end time.Time) bool {
	day := DateOnly(t)
	return !day.Before(DateOnly(start)) && !day.After(DateOnly(end))
}

// InclusiveDays counts calendar days in [start, end], both ends included.
func InclusiveDays(start, end time.Time) int {
	s, e := DateOnly(start), DateOnly(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}
