package caltime

import "time"

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the number of days in month of year.
func DaysIn(year int, month time.Month) int {
	switch month {
	case time.February:
		if IsLeap(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	}
	return 31
}

// DaysInYear returns 365 or 366.
func DaysInYear(year int) int {
	if IsLeap(year) {
		return 366
	}
	return 365
}

// DaysBetween returns the number of calendar days from a to b, ignoring
// the time of day.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// WeekStart returns midnight of the first day of the week containing t,
// weeks beginning on wkst.
func WeekStart(t time.Time, wkst time.Weekday) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	back := (int(day.Weekday()) - int(wkst) + 7) % 7
	return day.AddDate(0, 0, -back)
}

// FirstWeekStart returns the first day of week 1 of year: the first week
// starting on wkst that holds at least four days of the year.
func FirstWeekStart(year int, wkst time.Weekday) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	back := (int(jan1.Weekday()) - int(wkst) + 7) % 7
	start := jan1.AddDate(0, 0, -back)
	if back > 3 {
		start = start.AddDate(0, 0, 7)
	}
	return start
}

// WeeksInYear returns 52 or 53.
func WeeksInYear(year int, wkst time.Weekday) int {
	return DaysBetween(FirstWeekStart(year, wkst), FirstWeekStart(year+1, wkst)) / 7
}

// WeekNumber returns the week-numbering year and the week number of t.
// Days before week 1 belong to the last week of the previous year and days
// from the next year's week 1 onwards belong to the next year.
func WeekNumber(t time.Time, wkst time.Weekday) (year, week int) {
	year = t.Year()
	start := FirstWeekStart(year, wkst)
	if DaysBetween(start, t) < 0 {
		year--
		start = FirstWeekStart(year, wkst)
	} else if next := FirstWeekStart(year+1, wkst); DaysBetween(next, t) >= 0 {
		year++
		start = next
	}
	return year, DaysBetween(start, t)/7 + 1
}
