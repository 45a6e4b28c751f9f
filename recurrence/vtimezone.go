package recurrence

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cyp0633/icalrecur/caltime"
	"github.com/emersion/go-ical"
)

const (
	compStandard = "STANDARD"
	compDaylight = "DAYLIGHT"

	propOffsetFrom = "TZOFFSETFROM"
	propOffsetTo   = "TZOFFSETTO"
)

// onsetHorizon bounds the expansion of observance rules.
var onsetHorizon = caltime.NewDateTime(2100, time.January, 1, 0, 0, 0, caltime.FloatingZone())

// VTimezoneTable is a caltime.ZoneTable built from the VTIMEZONE components
// of a calendar. Identifiers it does not define are passed to the fallback
// table. It is safe for concurrent use; transitions are computed the first
// time a zone is looked up.
type VTimezoneTable struct {
	zones    map[string]*vtimezone
	fallback caltime.ZoneTable
	engine   *Engine
}

type vtimezone struct {
	id          string
	observances []observance

	once        sync.Once
	transitions []transition
	offsets     []time.Duration
	err         error
}

// observance is a STANDARD or DAYLIGHT sub-component.
type observance struct {
	start      caltime.DateTime
	offsetFrom time.Duration
	offsetTo   time.Duration
	rules      []Rule
	dates      []caltime.DateTime
}

// transition is one onset, as an absolute instant.
type transition struct {
	at         time.Time
	offsetFrom time.Duration
	offsetTo   time.Duration
}

// NewVTimezoneTable collects the VTIMEZONE children of cal. A nil fallback
// makes unknown identifiers an error.
func NewVTimezoneTable(cal *ical.Component, fallback caltime.ZoneTable) *VTimezoneTable {
	t := &VTimezoneTable{
		zones:    make(map[string]*vtimezone),
		fallback: fallback,
		engine:   NewEngine(),
	}
	if cal == nil {
		return t
	}
	for _, child := range cal.Children {
		if child.Name != ical.CompTimezone {
			continue
		}
		prop := child.Props.Get(ical.PropTimezoneID)
		if prop == nil || prop.Value == "" {
			continue
		}
		t.zones[prop.Value] = &vtimezone{id: prop.Value, observances: observances(child)}
	}
	return t
}

// observances reads the sub-components. Malformed ones are kept with what
// could be read; a missing offset reads as zero.
func observances(tz *ical.Component) []observance {
	var out []observance
	for _, sub := range tz.Children {
		if sub.Name != compStandard && sub.Name != compDaylight {
			continue
		}
		var ob observance
		if prop := sub.Props.Get(ical.PropDateTimeStart); prop != nil {
			if v, err := caltime.ParseValue(prop.Value, ""); err == nil {
				ob.start = v
			}
		}
		if prop := sub.Props.Get(propOffsetFrom); prop != nil {
			ob.offsetFrom = parseOffset(prop.Value)
		}
		if prop := sub.Props.Get(propOffsetTo); prop != nil {
			ob.offsetTo = parseOffset(prop.Value)
		}
		for _, prop := range sub.Props[ical.PropRecurrenceRule] {
			if r, err := ParseRule(prop.Value); err == nil {
				ob.rules = append(ob.rules, r)
			}
		}
		for _, prop := range sub.Props[ical.PropRecurrenceDates] {
			if values, err := caltime.ParseValueList(prop.Value, ""); err == nil {
				ob.dates = append(ob.dates, values...)
			}
		}
		if !ob.start.IsZero() {
			out = append(out, ob)
		}
	}
	return out
}

// parseOffset parses a UTC offset such as "+0100", "-0500" or "+013045".
func parseOffset(offset string) time.Duration {
	offset = strings.TrimSpace(offset)
	if len(offset) < 5 {
		return 0
	}
	sign := time.Duration(1)
	switch offset[0] {
	case '-':
		sign = -1
	case '+':
	default:
		return 0
	}
	digits := offset[1:]
	hours, err := strconv.Atoi(digits[:2])
	if err != nil {
		return 0
	}
	minutes, err := strconv.Atoi(digits[2:4])
	if err != nil {
		return 0
	}
	seconds := 0
	if len(digits) >= 6 {
		if s, err := strconv.Atoi(digits[4:6]); err == nil {
			seconds = s
		}
	}
	return sign * (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second)
}

// IDs returns the identifiers defined by the calendar, sorted.
func (t *VTimezoneTable) IDs() []string {
	ids := make([]string, 0, len(t.zones))
	for id := range t.zones {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (t *VTimezoneTable) zone(id string) (*vtimezone, error) {
	z, ok := t.zones[id]
	if !ok {
		return nil, nil
	}
	z.once.Do(func() { z.err = z.build(t.engine) })
	return z, z.err
}

// UTCOffset implements caltime.ZoneTable.
func (t *VTimezoneTable) UTCOffset(id string, instant time.Time) (time.Duration, error) {
	z, err := t.zone(id)
	if err != nil {
		return 0, err
	}
	if z == nil {
		if t.fallback == nil {
			return 0, fmt.Errorf("%w: %q", caltime.ErrUnresolvedTimeZone, id)
		}
		return t.fallback.UTCOffset(id, instant)
	}
	return z.utcOffset(instant), nil
}

// LocalOffset implements caltime.ZoneTable. An ambiguous reading takes its
// first occurrence and a reading inside a gap takes the offset in effect
// before the gap.
func (t *VTimezoneTable) LocalOffset(id string, wall time.Time) (time.Duration, error) {
	z, err := t.zone(id)
	if err != nil {
		return 0, err
	}
	if z == nil {
		if t.fallback == nil {
			return 0, fmt.Errorf("%w: %q", caltime.ErrUnresolvedTimeZone, id)
		}
		return t.fallback.LocalOffset(id, wall)
	}
	return z.localOffset(wall), nil
}

// build expands every observance into onsets up to the horizon.
func (z *vtimezone) build(engine *Engine) error {
	if len(z.observances) == 0 {
		return fmt.Errorf("%w: VTIMEZONE %q has no observances", caltime.ErrUnresolvedTimeZone, z.id)
	}
	seen := make(map[time.Duration]bool)
	for _, ob := range z.observances {
		starts := []caltime.DateTime{ob.start}
		for _, r := range ob.rules {
			values, err := engine.Evaluate(r, ob.start, ob.start, onsetHorizon)
			if err != nil {
				return fmt.Errorf("VTIMEZONE %q: %w", z.id, err)
			}
			starts = append(starts, values...)
		}
		starts = append(starts, ob.dates...)
		for _, s := range starts {
			z.transitions = append(z.transitions, transition{
				at:         s.Wall().Add(-ob.offsetFrom),
				offsetFrom: ob.offsetFrom,
				offsetTo:   ob.offsetTo,
			})
		}
		for _, off := range []time.Duration{ob.offsetFrom, ob.offsetTo} {
			if !seen[off] {
				seen[off] = true
				z.offsets = append(z.offsets, off)
			}
		}
	}
	sort.Slice(z.transitions, func(i, j int) bool {
		return z.transitions[i].at.Before(z.transitions[j].at)
	})
	return nil
}

func (z *vtimezone) utcOffset(instant time.Time) time.Duration {
	i := sort.Search(len(z.transitions), func(i int) bool {
		return z.transitions[i].at.After(instant)
	})
	if i == 0 {
		return z.transitions[0].offsetFrom
	}
	return z.transitions[i-1].offsetTo
}

func (z *vtimezone) localOffset(wall time.Time) time.Duration {
	var best time.Duration
	found := false
	for _, off := range z.offsets {
		if z.utcOffset(wall.Add(-off)) == off && (!found || off > best) {
			best, found = off, true
		}
	}
	if found {
		return best
	}
	largest := z.offsets[0]
	for _, off := range z.offsets[1:] {
		if off > largest {
			largest = off
		}
	}
	return z.utcOffset(wall.Add(-largest))
}
