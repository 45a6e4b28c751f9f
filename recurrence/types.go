package recurrence

import (
	"github.com/cyp0633/icalrecur/caltime"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

// Item is a recurring calendar item: its anchor, its span and the four
// recurrence sources.
type Item struct {
	UID string

	// Start is the anchor (DTSTART). It is always the first instance.
	Start caltime.DateTime
	// End and Duration are mutually exclusive; without either every
	// occurrence is an instant.
	End      mo.Option[caltime.DateTime]
	Duration mo.Option[caltime.Duration]

	RRules  []Rule
	ExRules []Rule
	RDates  []*caltime.PeriodList
	ExDates []*caltime.PeriodList

	// Overrides are the RECURRENCE-ID instances sharing this item's UID.
	Overrides []Override

	// Component is the source component, when built from one.
	Component *ical.Component

	composer *Composer
}

// Override replaces one generated instance.
type Override struct {
	RecurrenceID caltime.DateTime
	Start        caltime.DateTime
	End          mo.Option[caltime.DateTime]
	Component    *ical.Component
}

// IsRecurring reports whether the item has any source besides its anchor.
func (i *Item) IsRecurring() bool {
	return len(i.RRules) > 0 || len(i.RDates) > 0
}

// Occurrences returns the item's occurrences starting in [from, to). The
// item keeps its own Composer, so it must not be queried concurrently.
func (i *Item) Occurrences(from, to caltime.DateTime) ([]Occurrence, error) {
	if i.composer == nil {
		i.composer = NewComposer(i)
	}
	return i.composer.Occurrences(from, to)
}

// ClearEvaluation drops the cached occurrences. Call it after changing any
// of the item's rules or date lists.
func (i *Item) ClearEvaluation() {
	if i.composer != nil {
		i.composer.Invalidate()
	}
}

// Source tells where an occurrence came from.
type Source int

const (
	SourceAnchor Source = iota
	SourceRule
	SourceDate
)

func (s Source) String() string {
	switch s {
	case SourceAnchor:
		return "DTSTART"
	case SourceRule:
		return "RRULE"
	case SourceDate:
		return "RDATE"
	}
	return "unknown"
}

// Occurrence is one materialized instance of an item.
type Occurrence struct {
	Period caltime.Period
	Item   *Item
	Source Source
	// RecurrenceID is the generated start, before any override moved it.
	RecurrenceID caltime.DateTime
	// Override is set when a RECURRENCE-ID instance replaced this one.
	Override *Override
}

// Start returns the start of the occurrence's period.
func (o Occurrence) Start() caltime.DateTime {
	return o.Period.Start()
}

// End resolves the end of the occurrence's period.
func (o Occurrence) End() (caltime.DateTime, error) {
	return o.Period.End()
}
