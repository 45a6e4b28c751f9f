package caltime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// Duration is an iCalendar duration. Weeks and days are nominal (they move
// the calendar date), hours, minutes and seconds are exact. Absent fields
// are None; all present fields share one sign.
type Duration struct {
	Weeks   mo.Option[int]
	Days    mo.Option[int]
	Hours   mo.Option[int]
	Minutes mo.Option[int]
	Seconds mo.Option[int]
}

// Days returns a duration of n nominal days.
func Days(n int) Duration {
	return Duration{Days: mo.Some(n)}
}

// FromStd converts an exact time.Duration, truncated to whole seconds.
func FromStd(d time.Duration) Duration {
	secs := int(d / time.Second)
	if secs == 0 {
		return Duration{Seconds: mo.Some(0)}
	}
	var out Duration
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if h != 0 {
		out.Hours = mo.Some(h)
	}
	if m != 0 {
		out.Minutes = mo.Some(m)
	}
	if s != 0 {
		out.Seconds = mo.Some(s)
	}
	return out
}

func (d Duration) fields() []mo.Option[int] {
	return []mo.Option[int]{d.Weeks, d.Days, d.Hours, d.Minutes, d.Seconds}
}

// Validate checks that all present fields share one sign.
func (d Duration) Validate() error {
	sign := 0
	for _, f := range d.fields() {
		v, ok := f.Get()
		if !ok || v == 0 {
			continue
		}
		s := 1
		if v < 0 {
			s = -1
		}
		if sign != 0 && s != sign {
			return fmt.Errorf("%w: duration mixes signs", ErrInvalidValue)
		}
		sign = s
	}
	return nil
}

// Sign returns -1, 0 or +1.
func (d Duration) Sign() int {
	for _, f := range d.fields() {
		if v := f.OrEmpty(); v > 0 {
			return 1
		} else if v < 0 {
			return -1
		}
	}
	return 0
}

// HasDatePart reports whether weeks or days are present.
func (d Duration) HasDatePart() bool {
	return d.Weeks.IsPresent() || d.Days.IsPresent()
}

// HasTimePart reports whether hours, minutes or seconds are present.
func (d Duration) HasTimePart() bool {
	return d.Hours.IsPresent() || d.Minutes.IsPresent() || d.Seconds.IsPresent()
}

// IsZero reports whether d spans no time.
func (d Duration) IsZero() bool { return d.Sign() == 0 }

// NominalDays returns weeks*7 + days.
func (d Duration) NominalDays() int {
	return d.Weeks.OrEmpty()*7 + d.Days.OrEmpty()
}

// Exact returns the time part as a time.Duration.
func (d Duration) Exact() time.Duration {
	return time.Duration(d.Hours.OrEmpty())*time.Hour +
		time.Duration(d.Minutes.OrEmpty())*time.Minute +
		time.Duration(d.Seconds.OrEmpty())*time.Second
}

// Negate flips the sign of every present field.
func (d Duration) Negate() Duration {
	neg := func(o mo.Option[int]) mo.Option[int] {
		if v, ok := o.Get(); ok {
			return mo.Some(-v)
		}
		return o
	}
	return Duration{
		Weeks:   neg(d.Weeks),
		Days:    neg(d.Days),
		Hours:   neg(d.Hours),
		Minutes: neg(d.Minutes),
		Seconds: neg(d.Seconds),
	}
}

// DurationBetween returns the span from start to end. Between dates the
// result is in days. Between date-times of the same frame it is whole days
// plus an exact remainder of the wall-clock difference; across frames it is
// the exact instant difference.
func DurationBetween(start, end DateTime) (Duration, error) {
	if !start.HasTime() || !end.HasTime() {
		return Days(DaysBetween(start.Wall(), end.Wall())), nil
	}
	var diff time.Duration
	if start.Zone().Same(end.Zone()) {
		days := DaysBetween(start.Wall(), end.Wall())
		rest := end.Wall().Sub(start.Wall().AddDate(0, 0, days))
		if days > 0 && rest < 0 {
			days--
			rest += 24 * time.Hour
		} else if days < 0 && rest > 0 {
			days++
			rest -= 24 * time.Hour
		}
		out := FromStd(rest)
		if days != 0 {
			out.Days = mo.Some(days)
			if rest == 0 {
				out.Seconds = mo.None[int]()
			}
		}
		return out, nil
	}
	a, err := start.Instant()
	if err != nil {
		return Duration{}, err
	}
	b, err := end.Instant()
	if err != nil {
		return Duration{}, err
	}
	diff = b.Sub(a)
	return FromStd(diff), nil
}

// ParseDuration parses RFC 5545 duration text such as "P1W", "-PT15M" or
// "P1DT2H30M".
func ParseDuration(text string) (Duration, error) {
	s := strings.TrimSpace(text)
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") || len(s) < 3 {
		return Duration{}, fmt.Errorf("%w: duration %q", ErrInvalidValue, text)
	}
	s = s[1:]

	var d Duration
	inTime := false
	num := ""
	for _, ch := range s {
		switch {
		case ch >= '0' && ch <= '9':
			num += string(ch)
			continue
		case ch == 'T':
			if inTime || num != "" {
				return Duration{}, fmt.Errorf("%w: duration %q", ErrInvalidValue, text)
			}
			inTime = true
			continue
		}
		if num == "" {
			return Duration{}, fmt.Errorf("%w: duration %q", ErrInvalidValue, text)
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return Duration{}, fmt.Errorf("%w: duration %q", ErrInvalidValue, text)
		}
		num = ""
		if neg {
			n = -n
		}
		switch {
		case ch == 'W' && !inTime:
			d.Weeks = mo.Some(n)
		case ch == 'D' && !inTime:
			d.Days = mo.Some(n)
		case ch == 'H' && inTime:
			d.Hours = mo.Some(n)
		case ch == 'M' && inTime:
			d.Minutes = mo.Some(n)
		case ch == 'S' && inTime:
			d.Seconds = mo.Some(n)
		default:
			return Duration{}, fmt.Errorf("%w: duration %q", ErrInvalidValue, text)
		}
	}
	if num != "" || (inTime && !d.HasTimePart()) || (!d.HasDatePart() && !d.HasTimePart()) {
		return Duration{}, fmt.Errorf("%w: duration %q", ErrInvalidValue, text)
	}
	return d, nil
}

// String formats d as RFC 5545 duration text.
func (d Duration) String() string {
	var b strings.Builder
	if d.Sign() < 0 {
		b.WriteByte('-')
	}
	b.WriteByte('P')
	abs := func(v int) int {
		if v < 0 {
			return -v
		}
		return v
	}
	if v, ok := d.Weeks.Get(); ok {
		fmt.Fprintf(&b, "%dW", abs(v))
	}
	if v, ok := d.Days.Get(); ok {
		fmt.Fprintf(&b, "%dD", abs(v))
	}
	if d.HasTimePart() {
		b.WriteByte('T')
		if v, ok := d.Hours.Get(); ok {
			fmt.Fprintf(&b, "%dH", abs(v))
		}
		if v, ok := d.Minutes.Get(); ok {
			fmt.Fprintf(&b, "%dM", abs(v))
		}
		if v, ok := d.Seconds.Get(); ok {
			fmt.Fprintf(&b, "%dS", abs(v))
		}
	}
	if !d.HasDatePart() && !d.HasTimePart() {
		b.WriteString("T0S")
	}
	return b.String()
}
