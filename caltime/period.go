package caltime

import (
	"fmt"

	"github.com/samber/mo"
)

// PeriodKind is the derived shape of a Period.
type PeriodKind int

const (
	// KindDateOnly is a bare date with no end.
	KindDateOnly PeriodKind = iota
	// KindDateTime is a bare date-time with no end.
	KindDateTime
	// KindPeriod carries an explicit end or a duration.
	KindPeriod
)

func (k PeriodKind) String() string {
	switch k {
	case KindDateOnly:
		return "DATE"
	case KindDateTime:
		return "DATE-TIME"
	case KindPeriod:
		return "PERIOD"
	}
	return fmt.Sprintf("PeriodKind(%d)", int(k))
}

// Period is a start with an optional explicit end or duration, never both.
type Period struct {
	start    DateTime
	end      mo.Option[DateTime]
	duration mo.Option[Duration]
}

// NewInstant returns a period with neither end nor duration.
func NewInstant(start DateTime) Period {
	return Period{start: start}
}

// NewPeriod returns a period with an explicit end. The end must be of the
// same kind as the start and not before it.
func NewPeriod(start, end DateTime) (Period, error) {
	if start.HasTime() != end.HasTime() {
		return Period{}, fmt.Errorf("%w: start %s and end %s differ in kind", ErrInconsistentPeriod, start, end)
	}
	c, err := end.Compare(start)
	if err != nil {
		return Period{}, err
	}
	if c < 0 {
		return Period{}, fmt.Errorf("%w: end %s before start %s", ErrInconsistentPeriod, end, start)
	}
	return Period{start: start, end: mo.Some(end)}, nil
}

// NewPeriodWithDuration returns a period with a duration. The duration must
// not be negative and may only carry a time part if start has a time.
func NewPeriodWithDuration(start DateTime, d Duration) (Period, error) {
	if err := d.Validate(); err != nil {
		return Period{}, fmt.Errorf("%w: %v", ErrInconsistentPeriod, err)
	}
	if d.Sign() < 0 {
		return Period{}, fmt.Errorf("%w: negative duration %s", ErrInconsistentPeriod, d)
	}
	if d.HasTimePart() && !start.HasTime() {
		return Period{}, fmt.Errorf("%w: duration %s has a time part but start %s is a date", ErrInconsistentPeriod, d, start)
	}
	return Period{start: start, duration: mo.Some(d)}, nil
}

// Start returns the start of the period.
func (p Period) Start() DateTime { return p.start }

// ExplicitEnd returns the end the period was built with, if any.
func (p Period) ExplicitEnd() mo.Option[DateTime] { return p.end }

// ExplicitDuration returns the duration the period was built with, if any.
func (p Period) ExplicitDuration() mo.Option[Duration] { return p.duration }

// Kind classifies the period by its start and whether it spans time.
func (p Period) Kind() PeriodKind {
	switch {
	case p.end.IsPresent() || p.duration.IsPresent():
		return KindPeriod
	case p.start.HasTime():
		return KindDateTime
	}
	return KindDateOnly
}

// End resolves the end: the explicit end, start plus the duration, or the
// start itself.
func (p Period) End() (DateTime, error) {
	if end, ok := p.end.Get(); ok {
		return end, nil
	}
	if d, ok := p.duration.Get(); ok {
		return p.start.AddDuration(d)
	}
	return p.start, nil
}

// WithStart moves the period to a new start, keeping its span.
func (p Period) WithStart(start DateTime) (Period, error) {
	if end, ok := p.end.Get(); ok {
		d, err := DurationBetween(p.start, end)
		if err != nil {
			return Period{}, err
		}
		e, err := start.AddDuration(d)
		if err != nil {
			return Period{}, err
		}
		return NewPeriod(start, e)
	}
	p.start = start
	return p, nil
}

// ToZone converts the start, and an explicit end, to z.
func (p Period) ToZone(z Zone) (Period, error) {
	start, err := p.start.ToZone(z)
	if err != nil {
		return Period{}, err
	}
	if end, ok := p.end.Get(); ok {
		e, err := end.ToZone(z)
		if err != nil {
			return Period{}, err
		}
		p.end = mo.Some(e)
	}
	p.start = start
	return p, nil
}

// Overlaps reports whether the period intersects [from, to). Instants
// overlap when they fall inside the window.
func (p Period) Overlaps(from, to DateTime) (bool, error) {
	end, err := p.End()
	if err != nil {
		return false, err
	}
	startsBeforeTo, err := p.start.Before(to)
	if err != nil || !startsBeforeTo {
		return false, err
	}
	if p.Kind() != KindPeriod {
		c, err := p.start.Compare(from)
		return c >= 0, err
	}
	return end.After(from)
}

// Equal reports whether both periods have equal starts and resolved ends.
func (p Period) Equal(o Period) (bool, error) {
	eq, err := p.start.Equal(o.start)
	if err != nil || !eq {
		return false, err
	}
	if p.Kind() != o.Kind() {
		return false, nil
	}
	a, err := p.End()
	if err != nil {
		return false, err
	}
	b, err := o.End()
	if err != nil {
		return false, err
	}
	return a.Equal(b)
}

func (p Period) String() string {
	if end, ok := p.end.Get(); ok {
		return p.start.String() + "/" + end.String()
	}
	if d, ok := p.duration.Get(); ok {
		return p.start.String() + "/" + d.String()
	}
	return p.start.String()
}
