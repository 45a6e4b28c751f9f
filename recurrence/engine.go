package recurrence

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/cyp0633/icalrecur/caltime"
)

// Expansion is the result of expanding one rule over a window.
type Expansion struct {
	// Values are ascending, de-duplicated and carry the anchor's zone.
	Values []caltime.DateTime
	// Aborted is set when the empty-seed bound stopped the expansion.
	Aborted bool
	// Truncated is set when MaxOccurrences cut the result short.
	Truncated bool
}

// Err returns ErrEvaluationAborted for an aborted expansion.
func (x Expansion) Err() error {
	if x.Aborted {
		return ErrEvaluationAborted
	}
	return nil
}

func (x Expansion) clone() Expansion {
	x.Values = slices.Clone(x.Values)
	return x
}

// Engine expands recurrence rules. It holds no per-rule state and is safe
// for concurrent use.
type Engine struct {
	config EngineConfig
	cache  *ExpansionCache
	logger *slog.Logger
}

type options struct {
	logger *slog.Logger
	engine *Engine
}

// Option configures an Engine or a Composer.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEngine makes a Composer expand its rules with e.
func WithEngine(e *Engine) Option {
	return func(o *options) { o.engine = e }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// NewEngine creates an engine without caching and with the default bounds.
func NewEngine(opts ...Option) *Engine {
	return NewEngineWithConfig(DisabledCacheConfig, opts...)
}

// NewEngineWithConfig creates an engine with custom configuration.
func NewEngineWithConfig(config EngineConfig, opts ...Option) *Engine {
	config.Normalize()
	o := buildOptions(opts)
	e := &Engine{config: config, logger: o.logger}
	if config.CacheEnabled {
		e.cache = NewExpansionCache(config.CacheConfig)
	}
	return e
}

// Config returns the normalized configuration of e.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// CacheStats returns the cache statistics, or zero stats without a cache.
func (e *Engine) CacheStats() CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.Stats()
}

// Close releases the cache, if any.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

var defaultEngine = NewEngine()

// Evaluate expands rule anchored at anchor over [from, to) with the default
// engine.
func Evaluate(rule Rule, anchor, from, to caltime.DateTime) ([]caltime.DateTime, error) {
	return defaultEngine.Evaluate(rule, anchor, from, to)
}

// Evaluate returns the values of rule anchored at anchor that fall in
// [from, to). An aborted expansion is not an error; it yields the values
// found before the bound tripped.
func (e *Engine) Evaluate(rule Rule, anchor, from, to caltime.DateTime) ([]caltime.DateTime, error) {
	x, err := e.Expand(rule, anchor, from, to)
	if err != nil {
		return nil, err
	}
	return x.Values, nil
}

// Expand is Evaluate with the abort and truncation flags.
func (e *Engine) Expand(rule Rule, anchor, from, to caltime.DateTime) (Expansion, error) {
	if err := rule.Validate(); err != nil {
		return Expansion{}, err
	}
	if anchor.IsZero() {
		return Expansion{}, fmt.Errorf("%w: missing anchor", ErrInvalidRule)
	}
	if !anchor.HasTime() && rule.Freq < Daily {
		return Expansion{}, fmt.Errorf("%w: %v needs a date-time anchor", ErrInvalidFrequency, rule.Freq)
	}

	if e.cache != nil {
		if cached, ok := e.cache.Get(rule, anchor, from, to); ok {
			e.logger.Debug("expansion cache hit", "rule", rule.String(), "anchor", anchor.String())
			return cached, nil
		}
	}

	result, err := e.expand(rule, anchor, from, to)
	if err != nil {
		return Expansion{}, err
	}
	if result.Aborted {
		e.logger.Warn("expansion aborted",
			"rule", rule.String(),
			"anchor", anchor.String(),
			"max_empty_seeds", e.config.MaxEmptySeeds,
			"values", len(result.Values))
	}
	if e.cache != nil {
		e.cache.Set(rule, anchor, from, to, result)
	}
	return result, nil
}

// frame reads every bound as a wall clock of the anchor's zone.
type frame struct {
	anchor  caltime.DateTime
	hasTime bool
}

func (f frame) wall(v caltime.DateTime) (time.Time, error) {
	if f.hasTime && v.HasTime() {
		conv, err := v.WithZoneTable(f.anchor.Zones()).ToZone(f.anchor.Zone())
		if err != nil {
			return time.Time{}, err
		}
		return conv.Wall(), nil
	}
	y, m, d := v.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// untilCutoff returns the first wall reading past UNTIL. A date-only UNTIL
// admits its whole day.
func (f frame) untilCutoff(until caltime.DateTime) (time.Time, error) {
	w, err := f.wall(until)
	if err != nil {
		return time.Time{}, err
	}
	if !f.hasTime || !until.HasTime() {
		return w.AddDate(0, 0, 1), nil
	}
	return w.Add(time.Second), nil
}

func (e *Engine) expand(rule Rule, anchor, from, to caltime.DateTime) (Expansion, error) {
	f := frame{anchor: anchor, hasTime: anchor.HasTime()}
	start, err := f.wall(anchor)
	if err != nil {
		return Expansion{}, err
	}
	fromWall, err := f.wall(from)
	if err != nil {
		return Expansion{}, err
	}
	toWall, err := f.wall(to)
	if err != nil {
		return Expansion{}, err
	}
	cutoff := time.Time{}
	if until, ok := rule.Until.Get(); ok {
		if cutoff, err = f.untilCutoff(until); err != nil {
			return Expansion{}, err
		}
	}
	if !fromWall.Before(toWall) {
		return Expansion{}, nil
	}

	x := newExpander(rule, start, anchor.HasTime())
	seed := x.periodStart(start)
	remaining, counted := rule.Count.Get()
	if !counted && fromWall.After(start) {
		seed = x.fastForward(seed, fromWall)
	}

	e.logger.Debug("expanding rule",
		"rule", rule.String(),
		"anchor", anchor.String(),
		"from", fromWall,
		"to", toWall)

	var (
		result Expansion
		values []time.Time
		empty  int
	)
	stop := func(t time.Time) bool {
		return !t.Before(toWall) || (!cutoff.IsZero() && !t.Before(cutoff))
	}

loop:
	for !stop(seed) {
		if next, ok := x.skip(seed); ok {
			empty++
			if empty >= e.config.MaxEmptySeeds {
				result.Aborted = true
				break
			}
			seed = next
			continue
		}

		candidates := x.candidates(seed)
		if len(candidates) == 0 {
			empty++
			if empty >= e.config.MaxEmptySeeds {
				result.Aborted = true
				break
			}
			seed = x.next(seed)
			continue
		}
		empty = 0

		for _, c := range candidates {
			if c.Before(start) {
				continue
			}
			if stop(c) {
				break loop
			}
			if counted {
				if remaining == 0 {
					break loop
				}
				remaining--
			}
			if c.Before(fromWall) {
				continue
			}
			values = append(values, c)
			if limit := e.config.MaxOccurrences; limit > 0 && len(values) >= limit {
				result.Truncated = true
				break loop
			}
		}
		if counted && remaining == 0 {
			break
		}
		seed = x.next(seed)
	}

	result.Values = make([]caltime.DateTime, len(values))
	for i, v := range values {
		result.Values[i] = caltime.FromWall(v, anchor.HasTime(), anchor.Zone()).WithZoneTable(anchor.Zones())
	}
	return result, nil
}
