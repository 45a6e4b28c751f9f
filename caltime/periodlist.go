package caltime

import (
	"fmt"
	"sort"
)

// PeriodList is an ordered, duplicate-free group of periods sharing one
// zone and one kind, as found in an RDATE or EXDATE property. The zone and
// kind are fixed by the first period added.
type PeriodList struct {
	zone    Zone
	kind    PeriodKind
	periods []Period
}

// NewPeriodList builds a list from periods, rejecting the first one that
// does not match.
func NewPeriodList(periods ...Period) (*PeriodList, error) {
	l := &PeriodList{}
	for _, p := range periods {
		if err := l.Add(p); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// DateList builds a list of bare dates or date-times.
func DateList(values ...DateTime) (*PeriodList, error) {
	periods := make([]Period, 0, len(values))
	for _, v := range values {
		periods = append(periods, NewInstant(v))
	}
	return NewPeriodList(periods...)
}

// Zone returns the disposition shared by every period, fixed by the first.
func (l *PeriodList) Zone() Zone { return l.zone }

// Kind returns the kind shared by every period, fixed by the first.
func (l *PeriodList) Kind() PeriodKind { return l.kind }

// Len returns the number of periods.
func (l *PeriodList) Len() int { return len(l.periods) }

// Periods returns a copy of the periods in start order.
func (l *PeriodList) Periods() []Period {
	out := make([]Period, len(l.periods))
	copy(out, l.periods)
	return out
}

// Add inserts p in start order. Duplicates are ignored; a period of another
// zone or kind is rejected with ErrInconsistentPeriod.
func (l *PeriodList) Add(p Period) error {
	if len(l.periods) == 0 {
		l.zone = p.Start().Zone()
		l.kind = p.Kind()
		l.periods = append(l.periods, p)
		return nil
	}
	if !p.Start().Zone().Same(l.zone) {
		return fmt.Errorf("%w: zone %s does not match list zone %s", ErrInconsistentPeriod, p.Start().Zone(), l.zone)
	}
	if p.Kind() != l.kind {
		return fmt.Errorf("%w: kind %s does not match list kind %s", ErrInconsistentPeriod, p.Kind(), l.kind)
	}

	// Shared zone and kind: starts compare on their wall readings.
	i := sort.Search(len(l.periods), func(i int) bool {
		return !l.periods[i].Start().Wall().Before(p.Start().Wall())
	})
	for j := i; j < len(l.periods) && l.periods[j].Start().Wall().Equal(p.Start().Wall()); j++ {
		eq, err := l.periods[j].Equal(p)
		if err != nil {
			return err
		}
		if eq {
			return nil
		}
	}
	l.periods = append(l.periods, Period{})
	copy(l.periods[i+1:], l.periods[i:])
	l.periods[i] = p
	return nil
}

// Remove deletes p and reports whether it was present.
func (l *PeriodList) Remove(p Period) bool {
	for i, q := range l.periods {
		if eq, err := q.Equal(p); err == nil && eq {
			l.periods = append(l.periods[:i], l.periods[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether a period equal to p is in the list.
func (l *PeriodList) Contains(p Period) bool {
	for _, q := range l.periods {
		if eq, err := q.Equal(p); err == nil && eq {
			return true
		}
	}
	return false
}

// Starts returns the start of every period.
func (l *PeriodList) Starts() []DateTime {
	out := make([]DateTime, 0, len(l.periods))
	for _, p := range l.periods {
		out = append(out, p.Start())
	}
	return out
}
