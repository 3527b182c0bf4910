package core

import (
	"time"
)

// DateLayout is the wire format for ledger dates.
const DateLayout = "2006-01-02"

// MonthLayout is the truncated year-month used by aggregations.
const MonthLayout = "2006-01"

type (
	// Date is a calendar date with day precision.
	Date struct {
		time.Time
	}

	// Month is a date truncated to year-month, formatted "YYYY-MM".
	Month string
)

// ParseDate parses an ISO YYYY-MM-DD date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today truncates now to a calendar date.
func Today(now time.Time) Date {
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Month returns the date truncated to its year-month.
func (d Date) Month() Month {
	return Month(d.Format(MonthLayout))
}

// ParseMonth validates a "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	if _, err := time.Parse(MonthLayout, s); err != nil {
		return "", ErrInvalidDate
	}
	return Month(s), nil
}
