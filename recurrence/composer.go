package recurrence

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/cyp0633/icalrecur/caltime"
	"github.com/samber/mo"
)

type window struct {
	from, to caltime.DateTime
}

// Composer builds the occurrence set of one item and caches it over the
// widest window computed so far. It is not safe for concurrent use.
type Composer struct {
	item   *Item
	engine *Engine
	logger *slog.Logger

	bounds mo.Option[window]
	cached []Occurrence
}

// NewComposer returns a composer for item. Without WithEngine the package
// default engine is used.
func NewComposer(item *Item, opts ...Option) *Composer {
	o := buildOptions(opts)
	if o.engine == nil {
		o.engine = defaultEngine
	}
	return &Composer{item: item, engine: o.engine, logger: o.logger}
}

// Invalidate drops the cached bounds and occurrences.
func (c *Composer) Invalidate() {
	c.logger.Debug("composer invalidated", "uid", c.item.UID)
	c.bounds = mo.None[window]()
	c.cached = nil
}

// Occurrences returns the occurrences whose generated start lies in
// [from, to), ordered by start.
func (c *Composer) Occurrences(from, to caltime.DateTime) ([]Occurrence, error) {
	zones := c.item.Start.Zones()
	from, to = from.WithZoneTable(zones), to.WithZoneTable(zones)
	if ok, err := from.Before(to); err != nil || !ok {
		return nil, err
	}
	if err := c.extend(from, to); err != nil {
		return nil, err
	}

	var out []Occurrence
	for _, occ := range c.cached {
		in, err := inWindow(occ.RecurrenceID, from, to)
		if err != nil {
			return nil, err
		}
		if in {
			out = append(out, occ)
		}
	}
	return out, nil
}

// HasOccurrenceIn reports whether any occurrence overlaps [from, to),
// including one that started earlier and is still running at from.
func (c *Composer) HasOccurrenceIn(from, to caltime.DateTime) (bool, error) {
	zones := c.item.Start.Zones()
	from, to = from.WithZoneTable(zones), to.WithZoneTable(zones)
	lookback := from
	if span, ok := c.span(); ok && !span.IsZero() {
		var err error
		if lookback, err = from.AddDuration(span.Negate()); err != nil {
			return false, err
		}
	}
	occs, err := c.Occurrences(lookback, to)
	if err != nil {
		return false, err
	}
	for _, occ := range occs {
		ok, err := occ.Period.Overlaps(from, to)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// extend makes the cache cover [from, to), evaluating only what is missing.
// A window disjoint from the cached bounds replaces them.
func (c *Composer) extend(from, to caltime.DateTime) error {
	b, ok := c.bounds.Get()
	if ok {
		disjoint, err := disjoint(b, from, to)
		if err != nil {
			return err
		}
		ok = !disjoint
	}
	if !ok {
		occs, err := c.evaluate(from, to)
		if err != nil {
			return err
		}
		c.bounds = mo.Some(window{from: from, to: to})
		c.cached = occs
		return nil
	}

	merged := c.cached
	if before, err := from.Before(b.from); err != nil {
		return err
	} else if before {
		c.logger.Debug("composer extending window", "uid", c.item.UID, "from", from.String(), "to", b.from.String())
		head, err := c.evaluate(from, b.from)
		if err != nil {
			return err
		}
		merged = append(head, merged...)
		b.from = from
	}
	if after, err := to.After(b.to); err != nil {
		return err
	} else if after {
		c.logger.Debug("composer extending window", "uid", c.item.UID, "from", b.to.String(), "to", to.String())
		tail, err := c.evaluate(b.to, to)
		if err != nil {
			return err
		}
		merged = append(merged, tail...)
		b.to = to
	}
	if err := sortOccurrences(merged); err != nil {
		return err
	}
	c.bounds = mo.Some(b)
	c.cached = merged
	return nil
}

func disjoint(b window, from, to caltime.DateTime) (bool, error) {
	if before, err := to.Before(b.from); err != nil || before {
		return before, err
	}
	return from.After(b.to)
}

func inWindow(v, from, to caltime.DateTime) (bool, error) {
	c, err := v.Compare(from)
	if err != nil || c < 0 {
		return false, err
	}
	return v.Before(to)
}

type candidate struct {
	start  caltime.DateTime
	source Source
	period mo.Option[caltime.Period]
}

// evaluate composes the occurrence set over [from, to): anchor, RRULE and
// RDATE starts are united, EXRULE and EXDATE starts removed, the rest sorted
// and turned into periods.
func (c *Composer) evaluate(from, to caltime.DateTime) ([]Occurrence, error) {
	item := c.item
	anchor := item.Start
	zones := anchor.Zones()
	from, to = from.WithZoneTable(zones), to.WithZoneTable(zones)

	var set []candidate
	add := func(cand candidate) error {
		in, err := inWindow(cand.start, from, to)
		if err == nil && in {
			set = append(set, cand)
		}
		return err
	}

	if err := add(candidate{start: anchor, source: SourceAnchor}); err != nil {
		return nil, err
	}
	for _, rule := range item.RRules {
		values, err := c.engine.Evaluate(rule, anchor, from, to)
		if err != nil {
			return nil, fmt.Errorf("RRULE %s: %w", rule, err)
		}
		for _, v := range values {
			if err := add(candidate{start: v, source: SourceRule}); err != nil {
				return nil, err
			}
		}
	}
	for _, list := range item.RDates {
		for _, p := range list.Periods() {
			p, err := c.restamp(p)
			if err != nil {
				return nil, err
			}
			cand := candidate{start: p.Start(), source: SourceDate}
			if p.Kind() == caltime.KindPeriod {
				cand.period = mo.Some(p)
			}
			if err := add(cand); err != nil {
				return nil, err
			}
		}
	}

	for _, rule := range item.ExRules {
		values, err := c.engine.Evaluate(rule, anchor, from, to)
		if err != nil {
			return nil, fmt.Errorf("EXRULE %s: %w", rule, err)
		}
		for _, v := range values {
			if set, err = removeMatching(set, v, false); err != nil {
				return nil, err
			}
		}
	}
	for _, list := range item.ExDates {
		for _, ex := range list.Starts() {
			var err error
			if set, err = removeMatching(set, ex.WithZoneTable(zones), !ex.HasTime()); err != nil {
				return nil, err
			}
		}
	}

	return c.materialize(set)
}

// restamp rebuilds an RDATE period against the anchor's zone table and
// converts it to the anchor's zone. Dates and date-only anchors keep their
// readings.
func (c *Composer) restamp(p caltime.Period) (caltime.Period, error) {
	anchor := c.item.Start
	zones := anchor.Zones()
	start := p.Start().WithZoneTable(zones)

	var err error
	if end, ok := p.ExplicitEnd().Get(); ok {
		p, err = caltime.NewPeriod(start, end.WithZoneTable(zones))
	} else if d, ok := p.ExplicitDuration().Get(); ok {
		p, err = caltime.NewPeriodWithDuration(start, d)
	} else {
		p = caltime.NewInstant(start)
	}
	if err != nil {
		return caltime.Period{}, err
	}
	if !anchor.HasTime() || !start.HasTime() {
		return p, nil
	}
	return p.ToZone(anchor.Zone())
}

// removeMatching drops every candidate starting at v. With byDate, any
// candidate on v's date matches.
func removeMatching(set []candidate, v caltime.DateTime, byDate bool) ([]candidate, error) {
	out := set[:0]
	for _, cand := range set {
		var match bool
		if byDate {
			y, m, d := cand.start.Date()
			vy, vm, vd := v.Date()
			match = y == vy && m == vm && d == vd
		} else {
			var err error
			if match, err = cand.start.Equal(v); err != nil {
				return nil, err
			}
		}
		if !match {
			out = append(out, cand)
		}
	}
	return out, nil
}

// span is the duration every generated occurrence lasts.
func (c *Composer) span() (caltime.Duration, bool) {
	if d, ok := c.item.Duration.Get(); ok {
		return d, true
	}
	if end, ok := c.item.End.Get(); ok {
		d, err := caltime.DurationBetween(c.item.Start, end)
		if err == nil && d.Sign() >= 0 {
			return d, true
		}
	}
	return caltime.Duration{}, false
}

func (c *Composer) period(start caltime.DateTime) caltime.Period {
	if d, ok := c.span(); ok {
		if p, err := caltime.NewPeriodWithDuration(start, d); err == nil {
			return p
		}
	}
	return caltime.NewInstant(start)
}

// materialize sorts the candidates, drops repeated starts keeping the
// first, and applies overrides.
func (c *Composer) materialize(set []candidate) ([]Occurrence, error) {
	var sortErr error
	sort.SliceStable(set, func(i, j int) bool {
		cmp, err := set[i].start.Compare(set[j].start)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return cmp < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}

	out := make([]Occurrence, 0, len(set))
	for i, cand := range set {
		if i > 0 {
			dup, err := cand.start.Equal(set[i-1].start)
			if err != nil {
				return nil, err
			}
			if dup {
				continue
			}
		}
		occ := Occurrence{
			Period:       cand.period.OrElse(c.period(cand.start)),
			Item:         c.item,
			Source:       cand.source,
			RecurrenceID: cand.start,
		}
		if err := c.applyOverride(&occ); err != nil {
			return nil, err
		}
		out = append(out, occ)
	}
	if err := sortOccurrences(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Composer) applyOverride(occ *Occurrence) error {
	for i := range c.item.Overrides {
		ov := &c.item.Overrides[i]
		match, err := ov.RecurrenceID.WithZoneTable(c.item.Start.Zones()).Equal(occ.RecurrenceID)
		if err != nil {
			return err
		}
		if !match {
			continue
		}
		p := c.period(ov.Start)
		if end, ok := ov.End.Get(); ok {
			if p, err = caltime.NewPeriod(ov.Start, end); err != nil {
				return err
			}
		}
		occ.Period = p
		occ.Override = ov
		return nil
	}
	return nil
}

func sortOccurrences(occs []Occurrence) error {
	var sortErr error
	sort.SliceStable(occs, func(i, j int) bool {
		cmp, err := occs[i].Start().Compare(occs[j].Start())
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return cmp < 0
	})
	return sortErr
}
