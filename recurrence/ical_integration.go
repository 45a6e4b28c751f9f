package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/icalrecur/caltime"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// ErrMissingStart is returned for a component without DTSTART (or DUE, for
// a VTODO).
var ErrMissingStart = errors.New("component has no start")

const propExceptionRule = "EXRULE"

var ruleFrequencies = map[rrule.Frequency]Frequency{
	rrule.YEARLY:   Yearly,
	rrule.MONTHLY:  Monthly,
	rrule.WEEKLY:   Weekly,
	rrule.DAILY:    Daily,
	rrule.HOURLY:   Hourly,
	rrule.MINUTELY: Minutely,
	rrule.SECONDLY: Secondly,
}

// ParseRule parses RRULE or EXRULE text such as "FREQ=WEEKLY;BYDAY=MO,FR".
// A leading "RRULE:" or "EXRULE:" is accepted.
func ParseRule(text string) (Rule, error) {
	text = strings.TrimSpace(text)
	if name, rest, ok := strings.Cut(text, ":"); ok && !strings.Contains(name, "=") {
		text = rest
	}
	opt, err := rrule.StrToROption(text)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return ruleFromOption(opt, text)
}

// ruleFromOption converts a parsed option set. UNTIL and WKST are read from
// the text: the parsed form loses the date-only flag of UNTIL and cannot
// tell an explicit WKST=MO from none.
func ruleFromOption(opt *rrule.ROption, text string) (Rule, error) {
	if opt == nil {
		return Rule{}, fmt.Errorf("%w: empty rule", ErrInvalidRule)
	}
	freq, ok := ruleFrequencies[opt.Freq]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %v", ErrInvalidFrequency, opt.Freq)
	}
	r := Rule{
		Freq:       freq,
		BySecond:   opt.Bysecond,
		ByMinute:   opt.Byminute,
		ByHour:     opt.Byhour,
		ByMonthDay: opt.Bymonthday,
		ByYearDay:  opt.Byyearday,
		ByWeekNo:   opt.Byweekno,
		ByMonth:    opt.Bymonth,
		BySetPos:   opt.Bysetpos,
	}
	if opt.Interval > 0 {
		r.Interval = mo.Some(opt.Interval)
	}
	if opt.Count > 0 {
		r.Count = mo.Some(opt.Count)
	}
	for _, wd := range opt.Byweekday {
		day := time.Weekday((wd.Day() + 1) % 7)
		if n := wd.N(); n != 0 {
			r.ByDay = append(r.ByDay, Nth(n, day))
		} else {
			r.ByDay = append(r.ByDay, Every(day))
		}
	}

	for _, part := range strings.Split(text, ";") {
		key, value, _ := strings.Cut(part, "=")
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "UNTIL":
			until, err := caltime.ParseValue(value, "")
			if err != nil {
				return Rule{}, fmt.Errorf("%w: UNTIL: %v", ErrInvalidRule, err)
			}
			r.Until = mo.Some(until)
		case "WKST":
			day, ok := weekdayFromCode(value)
			if !ok {
				return Rule{}, fmt.Errorf("%w: WKST=%s", ErrInvalidRule, value)
			}
			r.WeekStart = mo.Some(day)
		}
	}
	return r, r.Validate()
}

func weekdayFromCode(code string) (time.Weekday, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for i, c := range weekdayCodes {
		if c == code {
			return time.Weekday(i), true
		}
	}
	return time.Sunday, false
}

// ItemFromComponent builds an Item from a VEVENT, VTODO or VJOURNAL. Values
// are resolved against zones, or caltime.DefaultZones when zones is nil.
func ItemFromComponent(comp *ical.Component, zones caltime.ZoneTable) (*Item, error) {
	if zones == nil {
		zones = caltime.DefaultZones
	}
	item := &Item{Component: comp}

	if prop := comp.Props.Get(ical.PropUID); prop != nil && prop.Value != "" {
		item.UID = prop.Value
	} else {
		item.UID = uuid.NewString()
	}

	start, ok, err := dateTimeProp(comp, ical.PropDateTimeStart, zones)
	if err != nil {
		return nil, err
	}
	if !ok && comp.Name == ical.CompToDo {
		start, ok, err = dateTimeProp(comp, ical.PropDue, zones)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrMissingStart, comp.Name, item.UID)
	}
	item.Start = start

	if end, ok, err := dateTimeProp(comp, ical.PropDateTimeEnd, zones); err != nil {
		return nil, err
	} else if ok {
		if _, err := caltime.NewPeriod(start, end); err != nil {
			return nil, err
		}
		item.End = mo.Some(end)
	} else if prop := comp.Props.Get(ical.PropDuration); prop != nil {
		d, err := caltime.ParseDuration(prop.Value)
		if err != nil {
			return nil, err
		}
		if _, err := caltime.NewPeriodWithDuration(start, d); err != nil {
			return nil, err
		}
		item.Duration = mo.Some(d)
	}

	for _, prop := range comp.Props[ical.PropRecurrenceRule] {
		r, err := anchoredRule(prop.Value, start)
		if err != nil {
			return nil, err
		}
		item.RRules = append(item.RRules, r)
	}
	for _, prop := range comp.Props[propExceptionRule] {
		r, err := anchoredRule(prop.Value, start)
		if err != nil {
			return nil, err
		}
		item.ExRules = append(item.ExRules, r)
	}
	for _, prop := range comp.Props[ical.PropRecurrenceDates] {
		list, err := periodListProp(prop, zones)
		if err != nil {
			return nil, err
		}
		item.RDates = append(item.RDates, list)
	}
	for _, prop := range comp.Props[ical.PropExceptionDates] {
		list, err := periodListProp(prop, zones)
		if err != nil {
			return nil, err
		}
		if list.Kind() == caltime.KindPeriod {
			return nil, fmt.Errorf("%w: EXDATE cannot hold periods", caltime.ErrInconsistentPeriod)
		}
		item.ExDates = append(item.ExDates, list)
	}
	return item, nil
}

// anchoredRule parses a rule of an item starting at start and stores a
// date-time UNTIL in UTC. A floating UNTIL of a zoned item is read in the
// item's zone. Date-only UNTIL values and those of floating items stay as
// written, since they have no instant of their own.
func anchoredRule(text string, start caltime.DateTime) (Rule, error) {
	r, err := ParseRule(text)
	if err != nil {
		return Rule{}, err
	}
	until, ok := r.Until.Get()
	if !ok || !until.HasTime() || until.Zone().IsUTC() || start.Zone().IsFloating() {
		return r, nil
	}
	if until.Zone().IsFloating() {
		until = until.WithZone(start.Zone())
	}
	utc, err := until.WithZoneTable(start.Zones()).AsUTC()
	if err != nil {
		return Rule{}, fmt.Errorf("UNTIL: %w", err)
	}
	r.Until = mo.Some(utc)
	return r, nil
}

// ItemsFromCalendar builds one Item per UID from the calendar's events,
// to-dos and journals. Components carrying RECURRENCE-ID become overrides
// of the item with the same UID; an override without a master becomes an
// item of its own. With a nil zones the calendar's VTIMEZONEs are used,
// backed by caltime.DefaultZones.
func ItemsFromCalendar(cal *ical.Calendar, zones caltime.ZoneTable) ([]*Item, error) {
	if zones == nil {
		zones = NewVTimezoneTable(cal.Component, caltime.DefaultZones)
	}

	var items []*Item
	byUID := make(map[string]*Item)
	var overrides []*ical.Component
	for _, child := range cal.Children {
		switch child.Name {
		case ical.CompEvent, ical.CompToDo, ical.CompJournal:
		default:
			continue
		}
		if child.Props.Get(ical.PropRecurrenceID) != nil {
			overrides = append(overrides, child)
			continue
		}
		item, err := ItemFromComponent(child, zones)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		byUID[item.UID] = item
	}

	for _, child := range overrides {
		ov, err := overrideFromComponent(child, zones)
		if err != nil {
			return nil, err
		}
		uid := ""
		if prop := child.Props.Get(ical.PropUID); prop != nil {
			uid = prop.Value
		}
		if master, ok := byUID[uid]; ok {
			master.Overrides = append(master.Overrides, ov)
			continue
		}
		item, err := ItemFromComponent(child, zones)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func overrideFromComponent(comp *ical.Component, zones caltime.ZoneTable) (Override, error) {
	rid, _, err := dateTimeProp(comp, ical.PropRecurrenceID, zones)
	if err != nil {
		return Override{}, err
	}
	ov := Override{RecurrenceID: rid, Start: rid, Component: comp}
	if start, ok, err := dateTimeProp(comp, ical.PropDateTimeStart, zones); err != nil {
		return Override{}, err
	} else if ok {
		ov.Start = start
	}
	if end, ok, err := dateTimeProp(comp, ical.PropDateTimeEnd, zones); err != nil {
		return Override{}, err
	} else if ok {
		ov.End = mo.Some(end)
	} else if prop := comp.Props.Get(ical.PropDuration); prop != nil {
		d, err := caltime.ParseDuration(prop.Value)
		if err != nil {
			return Override{}, err
		}
		end, err := ov.Start.AddDuration(d)
		if err != nil {
			return Override{}, err
		}
		ov.End = mo.Some(end)
	}
	return ov, nil
}

func dateTimeProp(comp *ical.Component, name string, zones caltime.ZoneTable) (caltime.DateTime, bool, error) {
	prop := comp.Props.Get(name)
	if prop == nil || prop.Value == "" {
		return caltime.DateTime{}, false, nil
	}
	v, err := caltime.ParseValue(prop.Value, prop.Params.Get("TZID"))
	if err != nil {
		return caltime.DateTime{}, false, fmt.Errorf("%s: %w", name, err)
	}
	return v.WithZoneTable(zones), true, nil
}

// periodListProp parses one RDATE or EXDATE property into a list.
func periodListProp(prop ical.Prop, zones caltime.ZoneTable) (*caltime.PeriodList, error) {
	tzid := prop.Params.Get("TZID")
	list := &caltime.PeriodList{}
	for _, part := range strings.Split(prop.Value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var p caltime.Period
		if strings.EqualFold(prop.Params.Get("VALUE"), "PERIOD") || strings.Contains(part, "/") {
			var err error
			if p, err = caltime.ParsePeriod(part, tzid); err != nil {
				return nil, fmt.Errorf("%s: %w", prop.Name, err)
			}
		} else {
			v, err := caltime.ParseValue(part, tzid)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", prop.Name, err)
			}
			p = caltime.NewInstant(v.WithZoneTable(zones))
		}
		if err := list.Add(p); err != nil {
			return nil, fmt.Errorf("%s: %w", prop.Name, err)
		}
	}
	return list, nil
}
