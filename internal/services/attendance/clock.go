package attendance

import (
	"fmt"
	"time"
)

// DateLayout is the ISO form logical dates are stored in.
const DateLayout = "2006-01-02"

// Clock attributes instants to logical attendance dates.
//
// The logical date is the calendar date in the configured timezone, except
// that instants with a local hour strictly below the rollover hour belong
// to the previous date. This keeps a night shift's punch-out on the same
// record as its punch-in.
type Clock struct {
	loc          *time.Location
	rolloverHour int
	now          func() time.Time
}

// NewClock creates a clock for the given IANA timezone and rollover hour.
func NewClock(timezone string, rolloverHour int) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load attendance timezone %q: %w", timezone, err)
	}
	if rolloverHour < 0 || rolloverHour > 23 {
		return nil, fmt.Errorf("rollover hour must be in 0..23, got %d", rolloverHour)
	}
	return &Clock{loc: loc, rolloverHour: rolloverHour, now: time.Now}, nil
}

// WithNow overrides the time source. Used by tests.
func (c *Clock) WithNow(now func() time.Time) *Clock {
	c.now = now
	return c
}

// Now returns the current instant in the attendance timezone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// LogicalDate returns the logical date an instant belongs to.
func (c *Clock) LogicalDate(t time.Time) string {
	local := t.In(c.loc)
	if local.Hour() < c.rolloverHour {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format(DateLayout)
}

// Today returns the logical date of the current instant.
func (c *Clock) Today() string {
	return c.LogicalDate(c.now())
}

// PreviousDate returns the date one day before an ISO date string.
func PreviousDate(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	return t.AddDate(0, 0, -1).Format(DateLayout), nil
}
