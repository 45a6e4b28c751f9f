package caltime

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
)

// ParseValue parses an iCalendar DATE or DATE-TIME value. A trailing "Z"
// yields a UTC value, otherwise tzid decides between zoned and floating.
func ParseValue(text, tzid string) (DateTime, error) {
	text = strings.TrimSpace(text)
	switch {
	case len(text) == len(dateLayout):
		t, err := time.Parse(dateLayout, text)
		if err != nil {
			return DateTime{}, fmt.Errorf("%w: date %q", ErrInvalidValue, text)
		}
		return FromWall(t, false, FloatingZone()), nil
	case strings.HasSuffix(text, "Z"):
		t, err := time.Parse(dateTimeLayout, strings.TrimSuffix(text, "Z"))
		if err != nil {
			return DateTime{}, fmt.Errorf("%w: date-time %q", ErrInvalidValue, text)
		}
		return FromWall(t, true, UTCZone()), nil
	default:
		t, err := time.Parse(dateTimeLayout, text)
		if err != nil {
			return DateTime{}, fmt.Errorf("%w: date-time %q", ErrInvalidValue, text)
		}
		return FromWall(t, true, NamedZone(tzid)), nil
	}
}

// ParseValueList parses a comma separated list of DATE or DATE-TIME values.
func ParseValueList(text, tzid string) ([]DateTime, error) {
	var out []DateTime
	for _, part := range strings.Split(text, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		v, err := ParseValue(part, tzid)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ParsePeriod parses an iCalendar PERIOD value, either "start/end" or
// "start/duration".
func ParsePeriod(text, tzid string) (Period, error) {
	startText, rest, ok := strings.Cut(strings.TrimSpace(text), "/")
	if !ok {
		return Period{}, fmt.Errorf("%w: period %q", ErrInvalidValue, text)
	}
	start, err := ParseValue(startText, tzid)
	if err != nil {
		return Period{}, err
	}
	if strings.HasPrefix(rest, "P") || strings.HasPrefix(rest, "+P") || strings.HasPrefix(rest, "-P") {
		d, err := ParseDuration(rest)
		if err != nil {
			return Period{}, err
		}
		return NewPeriodWithDuration(start, d)
	}
	end, err := ParseValue(rest, tzid)
	if err != nil {
		return Period{}, err
	}
	return NewPeriod(start, end)
}
