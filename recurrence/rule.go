package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/icalrecur/caltime"
	"github.com/samber/mo"
)

// Frequency is the FREQ rule part, ordered from the finest unit to the
// coarsest.
type Frequency int

const (
	FrequencyNone Frequency = iota
	Secondly
	Minutely
	Hourly
	Daily
	Weekly
	Monthly
	Yearly
)

var frequencyNames = map[Frequency]string{
	Secondly: "SECONDLY",
	Minutely: "MINUTELY",
	Hourly:   "HOURLY",
	Daily:    "DAILY",
	Weekly:   "WEEKLY",
	Monthly:  "MONTHLY",
	Yearly:   "YEARLY",
}

func (f Frequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

// ParseFrequency parses a FREQ value.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for f, name := range frequencyNames {
		if name == s {
			return f, nil
		}
	}
	return FrequencyNone, fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
}

var weekdayCodes = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// WeekdayNum is a BYDAY entry: a weekday with an optional signed ordinal.
// A missing ordinal selects every matching weekday in scope.
type WeekdayNum struct {
	Day     time.Weekday
	Ordinal mo.Option[int]
}

// Every returns a BYDAY entry without ordinal.
func Every(day time.Weekday) WeekdayNum {
	return WeekdayNum{Day: day}
}

// Nth returns a BYDAY entry for the nth (or nth from last, if negative)
// weekday in scope.
func Nth(n int, day time.Weekday) WeekdayNum {
	return WeekdayNum{Day: day, Ordinal: mo.Some(n)}
}

func (w WeekdayNum) String() string {
	code := weekdayCodes[w.Day%7]
	if n, ok := w.Ordinal.Get(); ok {
		return strconv.Itoa(n) + code
	}
	return code
}

// Rule is an RRULE or EXRULE value. Empty BY-part slices are absent.
type Rule struct {
	Freq     Frequency
	Interval mo.Option[int]
	Count    mo.Option[int]
	Until    mo.Option[caltime.DateTime]

	BySecond   []int
	ByMinute   []int
	ByHour     []int
	ByDay      []WeekdayNum
	ByMonthDay []int
	ByYearDay  []int
	ByWeekNo   []int
	ByMonth    []int
	BySetPos   []int

	WeekStart mo.Option[time.Weekday]
}

// IntervalOrDefault returns INTERVAL, defaulting to 1.
func (r Rule) IntervalOrDefault() int {
	return r.Interval.OrElse(1)
}

// WeekStartOrDefault returns WKST, defaulting to Monday.
func (r Rule) WeekStartOrDefault() time.Weekday {
	return r.WeekStart.OrElse(time.Monday)
}

type intRange struct {
	part     string
	min, max int
	signed   bool
}

// Validate checks the rule-level invariants and the range of every BY-part
// value. A value inside its range that does not exist in some period (the
// 31st of April) is not an error; such periods contribute nothing.
func (r Rule) Validate() error {
	if _, ok := frequencyNames[r.Freq]; !ok {
		return fmt.Errorf("%w: %v", ErrInvalidFrequency, r.Freq)
	}
	if r.Count.IsPresent() && r.Until.IsPresent() {
		return fmt.Errorf("%w: COUNT and UNTIL are mutually exclusive", ErrInvalidRule)
	}
	if n, ok := r.Count.Get(); ok && n < 1 {
		return fmt.Errorf("%w: COUNT=%d", ErrInvalidRule, n)
	}
	if n, ok := r.Interval.Get(); ok && n < 1 {
		return fmt.Errorf("%w: INTERVAL=%d", ErrInvalidRule, n)
	}
	if wkst, ok := r.WeekStart.Get(); ok && (wkst < time.Sunday || wkst > time.Saturday) {
		return fmt.Errorf("%w: WKST=%d", ErrInvalidRule, wkst)
	}

	checks := []struct {
		values []int
		rng    intRange
	}{
		{r.BySecond, intRange{"BYSECOND", 0, 60, false}},
		{r.ByMinute, intRange{"BYMINUTE", 0, 59, false}},
		{r.ByHour, intRange{"BYHOUR", 0, 23, false}},
		{r.ByMonthDay, intRange{"BYMONTHDAY", 1, 31, true}},
		{r.ByYearDay, intRange{"BYYEARDAY", 1, 366, true}},
		{r.ByWeekNo, intRange{"BYWEEKNO", 1, 53, true}},
		{r.ByMonth, intRange{"BYMONTH", 1, 12, false}},
		{r.BySetPos, intRange{"BYSETPOS", 1, 366, true}},
	}
	for _, c := range checks {
		for _, v := range c.values {
			if !c.rng.contains(v) {
				return &BySpecError{Part: c.rng.part, Value: v}
			}
		}
	}
	for _, wd := range r.ByDay {
		if wd.Day < time.Sunday || wd.Day > time.Saturday {
			return &BySpecError{Part: "BYDAY", Value: int(wd.Day)}
		}
		if n, ok := wd.Ordinal.Get(); ok && (n == 0 || n > 53 || n < -53) {
			return &BySpecError{Part: "BYDAY", Value: n}
		}
	}
	return nil
}

func (rng intRange) contains(v int) bool {
	if rng.signed && v < 0 {
		v = -v
	}
	return v >= rng.min && v <= rng.max
}

// String formats the rule as RRULE text, without the "RRULE:" prefix.
func (r Rule) String() string {
	parts := []string{"FREQ=" + r.Freq.String()}
	if n, ok := r.Interval.Get(); ok {
		parts = append(parts, "INTERVAL="+strconv.Itoa(n))
	}
	if n, ok := r.Count.Get(); ok {
		parts = append(parts, "COUNT="+strconv.Itoa(n))
	}
	if until, ok := r.Until.Get(); ok {
		parts = append(parts, "UNTIL="+until.String())
	}
	lists := []struct {
		name   string
		values []int
	}{
		{"BYSECOND", r.BySecond},
		{"BYMINUTE", r.ByMinute},
		{"BYHOUR", r.ByHour},
	}
	for _, l := range lists {
		if len(l.values) > 0 {
			parts = append(parts, l.name+"="+joinInts(l.values))
		}
	}
	if len(r.ByDay) > 0 {
		days := make([]string, len(r.ByDay))
		for i, wd := range r.ByDay {
			days[i] = wd.String()
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	lists = []struct {
		name   string
		values []int
	}{
		{"BYMONTHDAY", r.ByMonthDay},
		{"BYYEARDAY", r.ByYearDay},
		{"BYWEEKNO", r.ByWeekNo},
		{"BYMONTH", r.ByMonth},
		{"BYSETPOS", r.BySetPos},
	}
	for _, l := range lists {
		if len(l.values) > 0 {
			parts = append(parts, l.name+"="+joinInts(l.values))
		}
	}
	if wkst, ok := r.WeekStart.Get(); ok {
		parts = append(parts, "WKST="+weekdayCodes[wkst%7])
	}
	return strings.Join(parts, ";")
}

func joinInts(values []int) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ",")
}
