// Package dates provides a calendar date with day resolution, the native
// granularity of end-of-day market data. Using a dedicated type instead of
// time.Time keeps time zones and intraday clock values out of series keys.
package dates

import (
	"fmt"
	"time"
)

const layout = "2006-01-02"

// Date is a calendar day. The zero value is treated as "unset" throughout.
// Fields are exported so the type serializes cleanly through gob-based
// storage.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the given date, normalized the way time.Date normalizes, so
// New(2020, 12, 32) is 2021-01-01.
func New(year int, month time.Month, day int) Date {
	return fromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Epoch is the earliest date the data provider serves history for.
func Epoch() Date {
	return Date{Year: 1900, Month: time.January, Day: 1}
}

// Today returns the current date in UTC.
func Today() Date {
	return fromTime(time.Now().UTC())
}

// Parse parses an ISO 8601 date ("2006-01-02").
func Parse(s string) (Date, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return fromTime(t), nil
}

// MustParse is Parse for hardcoded literals. It panics on error.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) toTime() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Add returns the date shifted by the given number of days, which may be
// negative. The result is normalized across month and year boundaries.
func (d Date) Add(days int) Date {
	return fromTime(d.toTime().AddDate(0, 0, days))
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

// After reports whether d is later than other.
func (d Date) After(other Date) bool {
	return d.Compare(other) > 0
}

// Compare orders two dates chronologically, returning -1, 0 or 1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// DaysUntil returns the number of days from d to other, negative when other
// is earlier.
func (d Date) DaysUntil(other Date) int {
	return int(other.toTime().Sub(d.toTime()).Hours() / 24)
}

// String formats the date as ISO 8601.
func (d Date) String() string {
	return d.toTime().Format(layout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
