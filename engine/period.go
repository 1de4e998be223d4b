package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day, the ledger's time granularity
// =============================================================================

// Date is a plain calendar day. The ledger never needs finer granularity
// than a day, so no time-of-day or timezone is carried.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses the canonical YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string { return d.Time().Format("2006-01-02") }

func (d Date) Before(other Date) bool { return d.Time().Before(other.Time()) }
func (d Date) After(other Date) bool  { return d.Time().After(other.Time()) }

func (d Date) IsWeekend() bool {
	wd := d.Time().Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) IsZero() bool { return d == Date{} }

// In reports whether the day falls inside the given month.
func (d Date) In(m Month) bool { return d.Year == m.Year && d.Month == m.Month }

// MonthOf returns the month the day belongs to.
func (d Date) MonthOf() Month { return Month{Year: d.Year, Month: d.Month} }

// =============================================================================
// MONTH - Lock and aggregation boundary
// =============================================================================

// Month identifies one calendar month. Monthly locks and bulk
// month-replace both operate on this boundary.
type Month struct {
	Year  int
	Month time.Month
}

func NewMonth(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

func (m Month) First() Date { return Date{Year: m.Year, Month: m.Month, Day: 1} }

func (m Month) Last() Date {
	t := time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (m Month) Days() int { return m.Last().Day }

func (m Month) String() string { return m.First().Time().Format("2006-01") }

// Valid reports whether the month component is a real calendar month.
func (m Month) Valid() bool {
	return m.Month >= time.January && m.Month <= time.December && m.Year > 0
}
