// Package caltime provides the civil date/time values of iCalendar: dates and
// date-times that are floating, UTC or bound to a TZID, nominal/exact
// durations, periods and period lists.
package caltime

import (
	"fmt"
	"time"
)

// DateTime is an immutable civil date or date-time.
//
// The wall field always holds the local reading in time.UTC; the zone field
// says how that reading maps to an instant. Date-only values are always
// floating.
type DateTime struct {
	wall    time.Time
	hasTime bool
	zone    Zone
	zones   ZoneTable
}

// Date returns a date-only value.
func Date(year int, month time.Month, day int) DateTime {
	return DateTime{wall: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// NewDateTime returns a date-time value in the given zone.
func NewDateTime(year int, month time.Month, day, hour, min, sec int, zone Zone) DateTime {
	return DateTime{
		wall:    time.Date(year, month, day, hour, min, sec, 0, time.UTC),
		hasTime: true,
		zone:    zone,
	}
}

// FromWall builds a value from a wall-clock reading. The location of wall is
// ignored; only its fields are used.
func FromWall(wall time.Time, hasTime bool, zone Zone) DateTime {
	d := DateTime{hasTime: hasTime, zone: zone}
	if hasTime {
		d.wall = time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, time.UTC)
	} else {
		d.wall = time.Date(wall.Year(), wall.Month(), wall.Day(), 0, 0, 0, 0, time.UTC)
		d.zone = FloatingZone()
	}
	return d
}

// FromTime converts a time.Time. Values in time.UTC become UTC, values in
// time.Local become floating and anything else is zoned by location name.
func FromTime(t time.Time) DateTime {
	var zone Zone
	switch t.Location() {
	case time.UTC:
		zone = UTCZone()
	case time.Local:
		zone = FloatingZone()
	default:
		zone = NamedZone(t.Location().String())
	}
	return FromWall(t, true, zone)
}

// IsZero reports whether d is the zero value.
func (d DateTime) IsZero() bool { return d.wall.IsZero() }

// Wall returns the local reading as a time.Time in time.UTC.
func (d DateTime) Wall() time.Time { return d.wall }

// HasTime reports whether d carries a time of day.
func (d DateTime) HasTime() bool { return d.hasTime }

// Zone returns the disposition of d. Date-only values are floating.
func (d DateTime) Zone() Zone { return d.zone }

// Year and the accessors below read fields of the wall reading.
func (d DateTime) Year() int { return d.wall.Year() }
func (d DateTime) Month() time.Month { return d.wall.Month() }
func (d DateTime) Day() int { return d.wall.Day() }
func (d DateTime) Hour() int { return d.wall.Hour() }
func (d DateTime) Minute() int { return d.wall.Minute() }
func (d DateTime) Second() int { return d.wall.Second() }
func (d DateTime) Weekday() time.Weekday { return d.wall.Weekday() }
func (d DateTime) YearDay() int { return d.wall.YearDay() }
func (d DateTime) Date() (int, time.Month, int) { return d.wall.Date() }

// Zones returns the zone table associated with d, or DefaultZones.
func (d DateTime) Zones() ZoneTable {
	if d.zones == nil {
		return DefaultZones
	}
	return d.zones
}

// WithZoneTable associates a zone table with d. The table is only used for
// lookups; d does not own it.
func (d DateTime) WithZoneTable(zt ZoneTable) DateTime {
	d.zones = zt
	return d
}

// WithZone re-stamps the reading with another zone without converting it.
// Date-only values stay floating.
func (d DateTime) WithZone(z Zone) DateTime {
	if d.hasTime {
		d.zone = z
	}
	return d
}

// DateOnly drops the time of day.
func (d DateTime) DateOnly() DateTime {
	return FromWall(d.wall, false, FloatingZone()).WithZoneTable(d.zones)
}

// WithTime sets the time of day, turning a date into a date-time.
func (d DateTime) WithTime(hour, min, sec int) DateTime {
	y, m, day := d.wall.Date()
	d.wall = time.Date(y, m, day, hour, min, sec, 0, time.UTC)
	d.hasTime = true
	return d
}

// AddYears adds n years, clamping Feb 29 to Feb 28 in non-leap years.
func (d DateTime) AddYears(n int) DateTime {
	return d.addMonths(12 * n)
}

// AddMonths adds n months, clamping the day to the length of the target
// month (Jan 31 + 1 month is Feb 28 or 29).
func (d DateTime) AddMonths(n int) DateTime {
	return d.addMonths(n)
}

func (d DateTime) addMonths(n int) DateTime {
	y, m, day := d.wall.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	if dim := DaysIn(first.Year(), first.Month()); day > dim {
		day = dim
	}
	d.wall = time.Date(first.Year(), first.Month(), day, d.wall.Hour(), d.wall.Minute(), d.wall.Second(), 0, time.UTC)
	return d
}

// AddDays adds n calendar days, keeping the wall clock.
func (d DateTime) AddDays(n int) DateTime {
	d.wall = d.wall.AddDate(0, 0, n)
	return d
}

// AddHours moves the wall clock by n hours.
func (d DateTime) AddHours(n int) DateTime {
	return d.addClock(time.Duration(n) * time.Hour)
}

// AddMinutes moves the wall clock by n minutes.
func (d DateTime) AddMinutes(n int) DateTime {
	return d.addClock(time.Duration(n) * time.Minute)
}

// AddSeconds moves the wall clock by n seconds.
func (d DateTime) AddSeconds(n int) DateTime {
	return d.addClock(time.Duration(n) * time.Second)
}

// addClock moves the wall reading. Date-only values keep only the date part
// of the result.
func (d DateTime) addClock(delta time.Duration) DateTime {
	d.wall = d.wall.Add(delta)
	if !d.hasTime {
		y, m, day := d.wall.Date()
		d.wall = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	}
	return d
}

// AddDuration adds a Duration. Weeks and days are nominal and move the wall
// date; hours, minutes and seconds are exact, so for zoned values they are
// applied to the UTC instant and converted back.
func (d DateTime) AddDuration(dur Duration) (DateTime, error) {
	out := d.AddDays(dur.NominalDays())
	exact := dur.Exact()
	if exact == 0 {
		return out, nil
	}
	if !out.hasTime || out.zone.kind != Zoned {
		return out.addClock(exact), nil
	}
	u, err := out.AsUTC()
	if err != nil {
		return DateTime{}, err
	}
	return u.addClock(exact).ToZone(out.zone)
}

// Instant returns the absolute instant of d. Floating readings and dates are
// read as if they were UTC.
func (d DateTime) Instant() (time.Time, error) {
	if !d.hasTime || d.zone.kind != Zoned {
		return d.wall, nil
	}
	off, err := d.Zones().LocalOffset(d.zone.id, d.wall)
	if err != nil {
		return time.Time{}, err
	}
	return d.wall.Add(-off), nil
}

// AsUTC projects d to UTC. Floating readings are stamped UTC unchanged and
// dates are returned as they are.
func (d DateTime) AsUTC() (DateTime, error) {
	if !d.hasTime || d.zone.kind == UTC {
		return d, nil
	}
	instant, err := d.Instant()
	if err != nil {
		return DateTime{}, err
	}
	d.wall = instant
	d.zone = UTCZone()
	return d, nil
}

// ToZone converts d to another disposition, keeping the instant. Converting
// to floating keeps the UTC reading of the instant. Dates are returned as
// they are.
func (d DateTime) ToZone(z Zone) (DateTime, error) {
	if !d.hasTime || d.zone.Same(z) {
		return d, nil
	}
	instant, err := d.Instant()
	if err != nil {
		return DateTime{}, err
	}
	if z.kind == Zoned {
		off, err := d.Zones().UTCOffset(z.id, instant)
		if err != nil {
			return DateTime{}, err
		}
		instant = instant.Add(off)
	}
	d.wall = instant
	d.zone = z
	return d, nil
}

// Compare returns -1, 0 or +1. If either value is date-only the comparison
// is made at date granularity on the values' own dates. Values in different
// frames are compared as instants.
func (d DateTime) Compare(o DateTime) (int, error) {
	if !d.hasTime || !o.hasTime {
		return compareDates(d.wall, o.wall), nil
	}
	if d.zone.Same(o.zone) {
		return d.wall.Compare(o.wall), nil
	}
	a, err := d.Instant()
	if err != nil {
		return 0, err
	}
	b, err := o.Instant()
	if err != nil {
		return 0, err
	}
	return a.Compare(b), nil
}

// Equal reports whether d and o denote the same instant and are of the same
// kind; a date is never equal to a date-time.
func (d DateTime) Equal(o DateTime) (bool, error) {
	if d.hasTime != o.hasTime {
		return false, nil
	}
	c, err := d.Compare(o)
	return c == 0, err
}

// Before reports whether d sorts before o under Compare.
func (d DateTime) Before(o DateTime) (bool, error) {
	c, err := d.Compare(o)
	return c < 0, err
}

// After reports whether d sorts after o under Compare.
func (d DateTime) After(o DateTime) (bool, error) {
	c, err := d.Compare(o)
	return c > 0, err
}

func compareDates(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	switch {
	case ay != by:
		return cmpInt(ay, by)
	case am != bm:
		return cmpInt(int(am), int(bm))
	default:
		return cmpInt(ad, bd)
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

// String formats d the way iCalendar writes it, prefixing the TZID for
// zoned values: "20250101", "20250101T090000", "20250101T090000Z",
// "Europe/Paris:20250101T090000".
func (d DateTime) String() string {
	if !d.hasTime {
		return d.wall.Format(dateLayout)
	}
	switch d.zone.kind {
	case UTC:
		return d.wall.Format(dateTimeLayout) + "Z"
	case Zoned:
		return fmt.Sprintf("%s:%s", d.zone.id, d.wall.Format(dateTimeLayout))
	}
	return d.wall.Format(dateTimeLayout)
}
