package recurrence

import (
	"slices"
	"sort"
	"time"

	"github.com/cyp0633/icalrecur/caltime"
)

// expander generates the candidates of one rule, one seed period at a time.
// Seeds are the start of each FREQ period (Jan 1, the 1st of the month, the
// WKST-aligned week start, midnight, the hour, the minute, the second) and
// every time value is a wall-clock reading in time.UTC.
type expander struct {
	freq     Frequency
	interval int
	wkst     time.Weekday
	hasTime  bool

	byMonth    []int
	byWeekNo   []int
	byYearDay  []int
	byMonthDay []int
	byDay      []WeekdayNum
	byHour     []int
	byMinute   []int
	bySecond   []int
	bySetPos   []int

	// Set when the list came from the rule rather than from the anchor.
	explicitHour, explicitMinute, explicitSecond bool
}

// newExpander applies the anchor defaults: BY-parts left empty are pinned to
// the anchor instead of acting as wildcards.
func newExpander(r Rule, anchor time.Time, hasTime bool) *expander {
	x := &expander{
		freq:           r.Freq,
		interval:       r.IntervalOrDefault(),
		wkst:           r.WeekStartOrDefault(),
		hasTime:        hasTime,
		byMonth:        r.ByMonth,
		byWeekNo:       r.ByWeekNo,
		byYearDay:      r.ByYearDay,
		byMonthDay:     r.ByMonthDay,
		byDay:          r.ByDay,
		byHour:         sortedInts(r.ByHour),
		byMinute:       sortedInts(r.ByMinute),
		bySecond:       sortedInts(r.BySecond),
		bySetPos:       r.BySetPos,
		explicitHour:   len(r.ByHour) > 0,
		explicitMinute: len(r.ByMinute) > 0,
		explicitSecond: len(r.BySecond) > 0,
	}

	// Unset BY-parts are pinned to the anchor. A YEARLY rule keeps the
	// anchor's month even when BYMONTHDAY is given; BYWEEKNO leaves both
	// the month and the day of month free.
	if x.freq == Weekly && len(r.ByDay) == 0 {
		x.byDay = []WeekdayNum{Every(anchor.Weekday())}
	}
	if x.freq >= Monthly && len(r.ByWeekNo) == 0 && len(r.ByYearDay) == 0 && len(r.ByDay) == 0 {
		if len(r.ByMonthDay) == 0 {
			x.byMonthDay = []int{anchor.Day()}
		}
		if x.freq == Yearly && len(r.ByMonth) == 0 {
			x.byMonth = []int{int(anchor.Month())}
		}
	}

	if hasTime {
		if x.freq > Hourly && len(x.byHour) == 0 {
			x.byHour = []int{anchor.Hour()}
		}
		if x.freq > Minutely && len(x.byMinute) == 0 {
			x.byMinute = []int{anchor.Minute()}
		}
		if x.freq > Secondly && len(x.bySecond) == 0 {
			x.bySecond = []int{anchor.Second()}
		}
	}
	return x
}

func sortedInts(values []int) []int {
	out := slices.Clone(values)
	slices.Sort(out)
	return out
}

// periodStart returns the seed of the period containing t.
func (x *expander) periodStart(t time.Time) time.Time {
	y, m, d := t.Date()
	switch x.freq {
	case Yearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case Weekly:
		return caltime.WeekStart(t, x.wkst)
	case Daily:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case Hourly:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, time.UTC)
	case Minutely:
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, time.UTC)
	}
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// advance moves seed forward by n periods. Yearly and monthly seeds sit on
// the first day, so adding months never overflows into the next month.
func (x *expander) advance(seed time.Time, n int) time.Time {
	switch x.freq {
	case Yearly:
		return seed.AddDate(n, 0, 0)
	case Monthly:
		return seed.AddDate(0, n, 0)
	case Weekly:
		return seed.AddDate(0, 0, 7*n)
	case Daily:
		return seed.AddDate(0, 0, n)
	}
	return seed.Add(time.Duration(n) * x.unit())
}

func (x *expander) next(seed time.Time) time.Time {
	return x.advance(seed, x.interval)
}

func (x *expander) unit() time.Duration {
	switch x.freq {
	case Hourly:
		return time.Hour
	case Minutely:
		return time.Minute
	case Secondly:
		return time.Second
	}
	return 24 * time.Hour
}

// fastForward returns the last seed on the interval lattice whose period
// does not start after the period containing target.
func (x *expander) fastForward(seed, target time.Time) time.Time {
	var k int
	switch x.freq {
	case Yearly:
		k = target.Year() - seed.Year()
	case Monthly:
		k = (target.Year()-seed.Year())*12 + int(target.Month()) - int(seed.Month())
	case Weekly:
		k = caltime.DaysBetween(seed, caltime.WeekStart(target, x.wkst)) / 7
	case Daily:
		k = caltime.DaysBetween(seed, target)
	default:
		k = int(target.Sub(seed) / x.unit())
	}
	if k <= 0 {
		return seed
	}
	return x.advance(seed, k/x.interval*x.interval)
}

// skip applies the day, hour and minute filters to the seed of a daily or
// finer rule before it is expanded. When the seed cannot yield anything it
// returns the first seed on the interval lattice past the failing month,
// day, hour or minute.
func (x *expander) skip(seed time.Time) (time.Time, bool) {
	if x.freq > Daily {
		return seed, false
	}
	y, m, d := seed.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var boundary time.Time
	switch {
	case len(x.byMonth) > 0 && !slices.Contains(x.byMonth, int(m)):
		boundary = time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
	case !x.dayMatches(day):
		boundary = day.AddDate(0, 0, 1)
	case x.freq < Daily && x.explicitHour && !slices.Contains(x.byHour, seed.Hour()):
		boundary = time.Date(y, m, d, seed.Hour()+1, 0, 0, 0, time.UTC)
	case x.freq < Hourly && x.explicitMinute && !slices.Contains(x.byMinute, seed.Minute()):
		boundary = time.Date(y, m, d, seed.Hour(), seed.Minute()+1, 0, 0, time.UTC)
	default:
		return seed, false
	}

	if x.freq == Daily {
		days := caltime.DaysBetween(seed, boundary)
		return x.advance(seed, ceilDiv(days, x.interval)*x.interval), true
	}
	step := x.unit() * time.Duration(x.interval)
	n := ceilDiv(int(boundary.Sub(seed)/time.Second), int(step/time.Second))
	return seed.Add(time.Duration(n) * step), true
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 1
	}
	return (a + b - 1) / b
}

// days returns the calendar days of the seed period.
func (x *expander) days(seed time.Time) []time.Time {
	var first time.Time
	var n int
	switch x.freq {
	case Yearly:
		first, n = seed, caltime.DaysInYear(seed.Year())
	case Monthly:
		first, n = seed, caltime.DaysIn(seed.Year(), seed.Month())
	case Weekly:
		first, n = seed, 7
	default:
		y, m, d := seed.Date()
		first, n = time.Date(y, m, d, 0, 0, 0, 0, time.UTC), 1
	}
	out := make([]time.Time, n)
	for i := range out {
		out[i] = first.AddDate(0, 0, i)
	}
	return out
}

// dayMatches applies BYMONTH, BYWEEKNO, BYYEARDAY, BYMONTHDAY and BYDAY to
// one calendar day.
func (x *expander) dayMatches(day time.Time) bool {
	if len(x.byMonth) > 0 && !slices.Contains(x.byMonth, int(day.Month())) {
		return false
	}
	if len(x.byWeekNo) > 0 && !x.weekNoMatches(day) {
		return false
	}
	if len(x.byYearDay) > 0 && !signedMatch(x.byYearDay, day.YearDay(), caltime.DaysInYear(day.Year())) {
		return false
	}
	if len(x.byMonthDay) > 0 && !signedMatch(x.byMonthDay, day.Day(), caltime.DaysIn(day.Year(), day.Month())) {
		return false
	}
	if len(x.byDay) > 0 && !x.weekdayMatches(day) {
		return false
	}
	return true
}

// signedMatch reports whether pos (1-based, out of size) is selected by
// values, where negative values count back from the end.
func signedMatch(values []int, pos, size int) bool {
	for _, v := range values {
		if v == pos || (v < 0 && size+v+1 == pos) {
			return true
		}
	}
	return false
}

func (x *expander) weekNoMatches(day time.Time) bool {
	year, week := caltime.WeekNumber(day, x.wkst)
	return signedMatch(x.byWeekNo, week, caltime.WeeksInYear(year, x.wkst))
}

type byDayScope int

const (
	scopeDay byDayScope = iota
	scopeWeek
	scopeMonth
	scopeYear
)

// scope decides what an ordinal in BYDAY counts within.
func (x *expander) scope() byDayScope {
	switch x.freq {
	case Yearly:
		if len(x.byWeekNo) > 0 {
			return scopeWeek
		}
		if len(x.byMonth) > 0 {
			return scopeMonth
		}
		return scopeYear
	case Monthly:
		return scopeMonth
	case Weekly:
		return scopeWeek
	}
	return scopeDay
}

func (x *expander) weekdayMatches(day time.Time) bool {
	scope := x.scope()
	for _, wd := range x.byDay {
		if wd.Day != day.Weekday() {
			continue
		}
		n, ok := wd.Ordinal.Get()
		if !ok || scope == scopeDay {
			return true
		}
		var index, fromEnd int
		switch scope {
		case scopeWeek:
			index, fromEnd = 1, 1
		case scopeMonth:
			dim := caltime.DaysIn(day.Year(), day.Month())
			index, fromEnd = (day.Day()-1)/7+1, (dim-day.Day())/7+1
		case scopeYear:
			diy := caltime.DaysInYear(day.Year())
			index, fromEnd = (day.YearDay()-1)/7+1, (diy-day.YearDay())/7+1
		}
		if n == index || n == -fromEnd {
			return true
		}
	}
	return false
}

// times returns the candidate readings of one matching day.
func (x *expander) times(seed, day time.Time) []time.Time {
	y, m, d := day.Date()
	if !x.hasTime {
		return []time.Time{day}
	}

	hours, minutes, seconds := x.byHour, x.byMinute, x.bySecond
	if x.freq <= Hourly {
		if x.explicitHour && !slices.Contains(x.byHour, seed.Hour()) {
			return nil
		}
		hours = []int{seed.Hour()}
	}
	if x.freq <= Minutely {
		if x.explicitMinute && !slices.Contains(x.byMinute, seed.Minute()) {
			return nil
		}
		minutes = []int{seed.Minute()}
	}
	if x.freq == Secondly {
		if x.explicitSecond && !slices.Contains(x.bySecond, seed.Second()) {
			return nil
		}
		seconds = []int{seed.Second()}
	}

	out := make([]time.Time, 0, len(hours)*len(minutes)*len(seconds))
	for _, h := range hours {
		for _, mi := range minutes {
			for _, s := range seconds {
				out = append(out, time.Date(y, m, d, h, mi, s, 0, time.UTC))
			}
		}
	}
	return out
}

// candidates returns the sorted, de-duplicated candidates of the seed
// period with BYSETPOS applied.
func (x *expander) candidates(seed time.Time) []time.Time {
	var out []time.Time
	for _, day := range x.days(seed) {
		if !x.dayMatches(day) {
			continue
		}
		out = append(out, x.times(seed, day)...)
	}
	out = sortUnique(out)
	if len(x.bySetPos) > 0 {
		out = applySetPos(out, x.bySetPos)
	}
	return out
}

func sortUnique(values []time.Time) []time.Time {
	if len(values) < 2 {
		return values
	}
	sort.Slice(values, func(i, j int) bool { return values[i].Before(values[j]) })
	out := values[:1]
	for _, v := range values[1:] {
		if !v.Equal(out[len(out)-1]) {
			out = append(out, v)
		}
	}
	return out
}

func applySetPos(set []time.Time, positions []int) []time.Time {
	var out []time.Time
	for _, pos := range positions {
		i := pos - 1
		if pos < 0 {
			i = len(set) + pos
		}
		if i >= 0 && i < len(set) {
			out = append(out, set[i])
		}
	}
	return sortUnique(out)
}
