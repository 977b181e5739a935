package calendar

import "time"

// DaysInMonth returns the number of days in the given month. The month may be
// out of range; it is normalized by carry (month 13 of 2024 is January 2025).
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of the target month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekdayOfMonth returns the weekday of the 1st of the month, Sunday=0.
func FirstWeekdayOfMonth(year int, month time.Month) time.Weekday {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()
}

// StartOfWeek returns the Sunday on or before d.
func StartOfWeek(d Date) Date {
	return StartOfWeekOn(d, time.Sunday)
}

// StartOfWeekOn returns the first day of the week containing d, for weeks
// that begin on weekStart.
func StartOfWeekOn(d Date, weekStart time.Weekday) Date {
	offset := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return AddDays(d, -offset)
}

// AddDays returns d shifted by n days.
func AddDays(d Date, n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// AddMonths returns d shifted by n months. The day is clamped to the length
// of the target month, so 2024-01-31 plus one month is 2024-02-29 and never
// spills into March.
func AddMonths(d Date, n int) Date {
	first := NewDate(d.Year, d.Month+time.Month(n), 1)
	day := d.Day
	if last := DaysInMonth(first.Year, first.Month); day > last {
		day = last
	}
	return Date{Year: first.Year, Month: first.Month, Day: day}
}

// IsSameDay compares the wall-clock year, month and day of a and b, each in
// its own location. Time of day is ignored.
func IsSameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the number of days from a to b (negative if b is
// before a).
func DaysBetween(a, b Date) int {
	return int(b.utc().Sub(a.utc()).Hours() / 24)
}
