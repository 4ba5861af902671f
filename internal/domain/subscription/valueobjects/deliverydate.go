package valueobjects

import (
	"errors"
	"fmt"
	"time"

	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
)

// DeliveryDate is a timezone-agnostic calendar date (year/month/day).
// Delivery scheduling compares calendar dates, never instants; an instant is
// derived only at explicit points (cutoffs, the end-of-day boundary) through
// the business timezone.
type DeliveryDate struct {
	year  int
	month time.Month
	day   int
}

// NewDeliveryDate creates a calendar date. Out-of-range components are
// normalized the way time.Date normalizes them.
func NewDeliveryDate(year int, month time.Month, day int) DeliveryDate {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return DeliveryDate{year: t.Year(), month: t.Month(), day: t.Day()}
}

// DateOf returns the business-timezone calendar date the instant falls on.
func DateOf(t time.Time) DeliveryDate {
	bt := t.In(biztime.Location())
	return DeliveryDate{year: bt.Year(), month: bt.Month(), day: bt.Day()}
}

// ErrInvalidDate is returned for a date string that is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid delivery date")

// ParseDeliveryDate parses a YYYY-MM-DD date string.
func ParseDeliveryDate(s string) (DeliveryDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return DeliveryDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DeliveryDate{year: t.Year(), month: t.Month(), day: t.Day()}, nil
}

func (d DeliveryDate) Year() int         { return d.year }
func (d DeliveryDate) Month() time.Month { return d.month }
func (d DeliveryDate) Day() int          { return d.day }

func (d DeliveryDate) IsZero() bool {
	return d.year == 0 && d.month == 0 && d.day == 0
}

func (d DeliveryDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

// Compare returns -1, 0 or +1 ordering two calendar dates.
func (d DeliveryDate) Compare(other DeliveryDate) int {
	switch {
	case d.year != other.year:
		if d.year < other.year {
			return -1
		}
		return 1
	case d.month != other.month:
		if d.month < other.month {
			return -1
		}
		return 1
	case d.day != other.day:
		if d.day < other.day {
			return -1
		}
		return 1
	}
	return 0
}

func (d DeliveryDate) Equal(other DeliveryDate) bool  { return d.Compare(other) == 0 }
func (d DeliveryDate) Before(other DeliveryDate) bool { return d.Compare(other) < 0 }
func (d DeliveryDate) After(other DeliveryDate) bool  { return d.Compare(other) > 0 }

// AddDays returns the date n calendar days later (or earlier for negative n).
func (d DeliveryDate) AddDays(n int) DeliveryDate {
	t := time.Date(d.year, d.month, d.day+n, 0, 0, 0, 0, time.UTC)
	return DeliveryDate{year: t.Year(), month: t.Month(), day: t.Day()}
}

// AddMonths returns the date n calendar months later, with time.AddDate
// normalization for short months.
func (d DeliveryDate) AddMonths(n int) DeliveryDate {
	t := time.Date(d.year, d.month+time.Month(n), d.day, 0, 0, 0, 0, time.UTC)
	return DeliveryDate{year: t.Year(), month: t.Month(), day: t.Day()}
}

// DaysUntil returns the number of calendar days from d to other.
// Negative when other is earlier.
func (d DeliveryDate) DaysUntil(other DeliveryDate) int {
	a := time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
	b := time.Date(other.year, other.month, other.day, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// AtHour returns the instant at the given business-local clock hour on this
// calendar day, in UTC.
func (d DeliveryDate) AtHour(hour int) time.Time {
	return time.Date(d.year, d.month, d.day, hour, 0, 0, 0, biztime.Location()).UTC()
}

// StartOfDay returns business-local midnight of this date, in UTC.
func (d DeliveryDate) StartOfDay() time.Time {
	return d.AtHour(0)
}
