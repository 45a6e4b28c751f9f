package recurrence

import (
	"testing"
	"time"

	"github.com/cyp0633/icalrecur/caltime"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	january  = floating(2025, 1, 1, 0, 0)
	february = floating(2025, 2, 1, 0, 0)
)

func mustList(t *testing.T, values ...caltime.DateTime) *caltime.PeriodList {
	t.Helper()
	l, err := caltime.DateList(values...)
	require.NoError(t, err)
	return l
}

func starts(occs []Occurrence) []string {
	out := make([]string, len(occs))
	for i, occ := range occs {
		out[i] = occ.Start().String()
	}
	return out
}

func ends(t *testing.T, occs []Occurrence) []string {
	t.Helper()
	out := make([]string, len(occs))
	for i, occ := range occs {
		end, err := occ.End()
		require.NoError(t, err)
		out[i] = end.String()
	}
	return out
}

func TestComposer_Exclusions(t *testing.T) {
	tests := []struct {
		name     string
		item     func(t *testing.T) *Item
		expected []string
	}{
		{
			name: "exdate removes an instance",
			item: func(t *testing.T) *Item {
				return &Item{
					Start:   floating(2025, 1, 1, 9, 0),
					RRules:  []Rule{mustRule(t, "FREQ=DAILY;COUNT=3")},
					ExDates: []*caltime.PeriodList{mustList(t, floating(2025, 1, 2, 9, 0))},
				}
			},
			expected: []string{"20250101T090000", "20250103T090000"},
		},
		{
			name: "date exdate removes the whole day",
			item: func(t *testing.T) *Item {
				return &Item{
					Start:   floating(2025, 1, 1, 9, 0),
					RRules:  []Rule{mustRule(t, "FREQ=DAILY;COUNT=3")},
					ExDates: []*caltime.PeriodList{mustList(t, caltime.Date(2025, 1, 2))},
				}
			},
			expected: []string{"20250101T090000", "20250103T090000"},
		},
		{
			name: "exdate at another time keeps the instance",
			item: func(t *testing.T) *Item {
				return &Item{
					Start:   floating(2025, 1, 1, 9, 0),
					RRules:  []Rule{mustRule(t, "FREQ=DAILY;COUNT=3")},
					ExDates: []*caltime.PeriodList{mustList(t, floating(2025, 1, 2, 10, 0))},
				}
			},
			expected: []string{"20250101T090000", "20250102T090000", "20250103T090000"},
		},
		{
			name: "exdate removes the anchor",
			item: func(t *testing.T) *Item {
				return &Item{
					Start:   floating(2025, 1, 1, 9, 0),
					RRules:  []Rule{mustRule(t, "FREQ=DAILY;COUNT=3")},
					ExDates: []*caltime.PeriodList{mustList(t, floating(2025, 1, 1, 9, 0))},
				}
			},
			expected: []string{"20250102T090000", "20250103T090000"},
		},
		{
			name: "exrule removes weekends",
			item: func(t *testing.T) *Item {
				return &Item{
					Start:   floating(2025, 1, 6, 9, 0),
					RRules:  []Rule{mustRule(t, "FREQ=DAILY;COUNT=10")},
					ExRules: []Rule{mustRule(t, "FREQ=WEEKLY;BYDAY=SA,SU")},
				}
			},
			expected: []string{
				"20250106T090000", "20250107T090000", "20250108T090000", "20250109T090000",
				"20250110T090000", "20250113T090000", "20250114T090000", "20250115T090000",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occs, err := NewComposer(tt.item(t)).Occurrences(january, february)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, starts(occs))
		})
	}
}

func TestComposer_RecurrenceDates(t *testing.T) {
	t.Run("rdate adds an instance", func(t *testing.T) {
		item := &Item{
			Start:  floating(2025, 1, 1, 9, 0),
			RRules: []Rule{mustRule(t, "FREQ=DAILY;COUNT=2")},
			RDates: []*caltime.PeriodList{mustList(t, floating(2025, 1, 10, 14, 0))},
		}
		occs, err := NewComposer(item).Occurrences(january, february)
		require.NoError(t, err)
		require.Equal(t, []string{"20250101T090000", "20250102T090000", "20250110T140000"}, starts(occs))
		assert.Equal(t, SourceAnchor, occs[0].Source)
		assert.Equal(t, SourceRule, occs[1].Source)
		assert.Equal(t, SourceDate, occs[2].Source)
		assert.Same(t, item, occs[2].Item)
	})

	t.Run("rdate on a generated instance is merged", func(t *testing.T) {
		item := &Item{
			Start:  floating(2025, 1, 1, 9, 0),
			RRules: []Rule{mustRule(t, "FREQ=DAILY;COUNT=2")},
			RDates: []*caltime.PeriodList{mustList(t, floating(2025, 1, 2, 9, 0))},
		}
		occs, err := NewComposer(item).Occurrences(january, february)
		require.NoError(t, err)
		require.Len(t, occs, 2)
		assert.Equal(t, SourceRule, occs[1].Source)
	})

	t.Run("rdate is converted to the anchor zone", func(t *testing.T) {
		item := &Item{
			Start:  caltime.NewDateTime(2025, 1, 1, 9, 0, 0, caltime.NamedZone("Test/Plus2")).WithZoneTable(testZones),
			RDates: []*caltime.PeriodList{mustList(t, caltime.NewDateTime(2025, 1, 5, 10, 0, 0, caltime.UTCZone()))},
		}
		require.True(t, item.IsRecurring())

		occs, err := NewComposer(item).Occurrences(january, february)
		require.NoError(t, err)
		assert.Equal(t, []string{"Test/Plus2:20250101T090000", "Test/Plus2:20250105T120000"}, starts(occs))
	})
}

// Each rule selects positions within its own month, before the window cuts.
func TestComposer_SetPositionPerRule(t *testing.T) {
	item := func(t *testing.T) *Item {
		return &Item{
			Start: floating(2025, 1, 1, 9, 0),
			RRules: []Rule{
				mustRule(t, "FREQ=MONTHLY;BYDAY=MO,TU,WE,TH,FR;BYSETPOS=1"),
				mustRule(t, "FREQ=MONTHLY;BYDAY=MO,TU,WE,TH,FR;BYSETPOS=-1"),
			},
		}
	}

	tests := []struct {
		name     string
		from, to caltime.DateTime
		expected []string
	}{
		{
			name: "first and last weekday of every month",
			from: january,
			to:   floating(2025, 4, 1, 0, 0),
			expected: []string{
				"20250101T090000", "20250131T090000",
				"20250203T090000", "20250228T090000",
				"20250303T090000", "20250331T090000",
			},
		},
		{
			name:     "window inside a month keeps the month's positions",
			from:     floating(2025, 2, 10, 0, 0),
			to:       floating(2025, 3, 1, 0, 0),
			expected: []string{"20250228T090000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occs, err := NewComposer(item(t)).Occurrences(tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, starts(occs))
		})
	}
}

func TestComposer_Periods(t *testing.T) {
	hour := caltime.FromStd(time.Hour)

	tests := []struct {
		name     string
		item     func(t *testing.T) *Item
		expected []string
	}{
		{
			name: "instants without end or duration",
			item: func(t *testing.T) *Item {
				return &Item{
					Start:  floating(2025, 1, 1, 9, 0),
					RRules: []Rule{mustRule(t, "FREQ=DAILY;COUNT=2")},
				}
			},
			expected: []string{"20250101T090000", "20250102T090000"},
		},
		{
			name: "duration",
			item: func(t *testing.T) *Item {
				return &Item{
					Start:    floating(2025, 1, 1, 9, 0),
					Duration: mo.Some(hour),
					RRules:   []Rule{mustRule(t, "FREQ=DAILY;COUNT=2")},
				}
			},
			expected: []string{"20250101T100000", "20250102T100000"},
		},
		{
			name: "end",
			item: func(t *testing.T) *Item {
				return &Item{
					Start:  floating(2025, 1, 1, 9, 0),
					End:    mo.Some(floating(2025, 1, 1, 10, 30)),
					RRules: []Rule{mustRule(t, "FREQ=DAILY;COUNT=2")},
				}
			},
			expected: []string{"20250101T103000", "20250102T103000"},
		},
		{
			name: "rdate period keeps its own span",
			item: func(t *testing.T) *Item {
				p, err := caltime.NewPeriod(floating(2025, 1, 10, 14, 0), floating(2025, 1, 10, 18, 0))
				require.NoError(t, err)
				list, err := caltime.NewPeriodList(p)
				require.NoError(t, err)
				return &Item{
					Start:    floating(2025, 1, 1, 9, 0),
					Duration: mo.Some(hour),
					RDates:   []*caltime.PeriodList{list},
				}
			},
			expected: []string{"20250101T100000", "20250110T180000"},
		},
		{
			name: "all-day",
			item: func(t *testing.T) *Item {
				return &Item{
					Start:    caltime.Date(2025, 1, 1),
					Duration: mo.Some(caltime.Days(1)),
					RRules:   []Rule{mustRule(t, "FREQ=WEEKLY;COUNT=2")},
				}
			},
			expected: []string{"20250102", "20250109"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occs, err := NewComposer(tt.item(t)).Occurrences(january, february)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ends(t, occs))
		})
	}
}

func TestComposer_Bounds(t *testing.T) {
	item := &Item{
		Start:  floating(2025, 1, 1, 9, 0),
		RRules: []Rule{mustRule(t, "FREQ=DAILY")},
	}
	c := NewComposer(item)

	occs, err := c.Occurrences(january, february)
	require.NoError(t, err)
	assert.Len(t, occs, 31)

	t.Run("subset is served from the cache", func(t *testing.T) {
		occs, err := c.Occurrences(floating(2025, 1, 10, 0, 0), floating(2025, 1, 15, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, []string{
			"20250110T090000", "20250111T090000", "20250112T090000", "20250113T090000", "20250114T090000",
		}, starts(occs))

		b, ok := c.bounds.Get()
		require.True(t, ok)
		assert.Equal(t, "20250101T000000", b.from.String())
		assert.Equal(t, "20250201T000000", b.to.String())
	})

	t.Run("overlap extends the cache", func(t *testing.T) {
		from, to := floating(2025, 1, 20, 0, 0), floating(2025, 3, 1, 0, 0)
		occs, err := c.Occurrences(from, to)
		require.NoError(t, err)
		assert.Len(t, occs, 40)

		b, ok := c.bounds.Get()
		require.True(t, ok)
		assert.Equal(t, "20250101T000000", b.from.String())
		assert.Equal(t, "20250301T000000", b.to.String())

		fresh, err := NewComposer(item).Occurrences(from, to)
		require.NoError(t, err)
		assert.Equal(t, starts(fresh), starts(occs))
	})

	t.Run("earlier overlap extends the cache", func(t *testing.T) {
		occs, err := c.Occurrences(floating(2024, 12, 1, 0, 0), floating(2025, 1, 3, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, []string{"20250101T090000", "20250102T090000"}, starts(occs))
		assert.Equal(t, SourceAnchor, occs[0].Source)
		assert.Len(t, c.cached, 59)
	})

	t.Run("disjoint window replaces the cache", func(t *testing.T) {
		occs, err := c.Occurrences(floating(2026, 1, 1, 0, 0), floating(2026, 1, 5, 0, 0))
		require.NoError(t, err)
		assert.Len(t, occs, 4)
		assert.Len(t, c.cached, 4)
	})

	t.Run("empty window", func(t *testing.T) {
		occs, err := c.Occurrences(february, january)
		require.NoError(t, err)
		assert.Empty(t, occs)
	})
}

func TestItem_ClearEvaluation(t *testing.T) {
	item := &Item{
		Start:  floating(2025, 1, 1, 9, 0),
		RRules: []Rule{mustRule(t, "FREQ=DAILY;COUNT=3")},
	}
	occs, err := item.Occurrences(january, february)
	require.NoError(t, err)
	assert.Len(t, occs, 3)

	item.ExDates = append(item.ExDates, mustList(t, floating(2025, 1, 3, 9, 0)))
	occs, err = item.Occurrences(january, february)
	require.NoError(t, err)
	assert.Len(t, occs, 3, "stale until cleared")

	item.ClearEvaluation()
	occs, err = item.Occurrences(january, february)
	require.NoError(t, err)
	assert.Equal(t, []string{"20250101T090000", "20250102T090000"}, starts(occs))
}

func TestComposer_Overrides(t *testing.T) {
	item := &Item{
		Start:    floating(2025, 1, 1, 9, 0),
		Duration: mo.Some(caltime.FromStd(time.Hour)),
		RRules:   []Rule{mustRule(t, "FREQ=DAILY;COUNT=4")},
		Overrides: []Override{
			{RecurrenceID: floating(2025, 1, 2, 9, 0), Start: floating(2025, 1, 2, 15, 0)},
			{
				RecurrenceID: floating(2025, 1, 3, 9, 0),
				Start:        floating(2025, 1, 3, 8, 0),
				End:          mo.Some(floating(2025, 1, 3, 12, 0)),
			},
			{RecurrenceID: floating(2025, 1, 4, 9, 0), Start: floating(2025, 2, 10, 9, 0)},
		},
	}

	occs, err := NewComposer(item).Occurrences(january, february)
	require.NoError(t, err)
	assert.Equal(t, []string{"20250101T090000", "20250102T150000", "20250103T080000", "20250210T090000"}, starts(occs))
	assert.Equal(t, []string{"20250101T100000", "20250102T160000", "20250103T120000", "20250210T100000"}, ends(t, occs))

	assert.Nil(t, occs[0].Override)
	require.NotNil(t, occs[1].Override)
	assert.Equal(t, "20250102T090000", occs[1].RecurrenceID.String())
	assert.Equal(t, "20250104T090000", occs[3].RecurrenceID.String())

	later, err := NewComposer(item).Occurrences(february, floating(2025, 3, 1, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, later)
}

func TestComposer_HasOccurrenceIn(t *testing.T) {
	recurring := &Item{
		Start:    floating(2025, 1, 1, 9, 0),
		Duration: mo.Some(caltime.FromStd(2 * time.Hour)),
		RRules:   []Rule{mustRule(t, "FREQ=DAILY;COUNT=3")},
	}
	single := &Item{Start: floating(2025, 1, 1, 9, 0)}

	tests := []struct {
		name     string
		item     *Item
		from, to caltime.DateTime
		expected bool
	}{
		{"instance still running", recurring, floating(2025, 1, 2, 10, 0), floating(2025, 1, 2, 10, 30), true},
		{"instance starting inside", recurring, floating(2025, 1, 3, 8, 0), floating(2025, 1, 3, 9, 30), true},
		{"between instances", recurring, floating(2025, 1, 2, 12, 0), floating(2025, 1, 2, 13, 0), false},
		{"after the last instance", recurring, floating(2025, 1, 5, 0, 0), floating(2025, 1, 6, 0, 0), false},
		{"non-recurring in range", single, floating(2024, 12, 31, 0, 0), floating(2025, 1, 2, 0, 0), true},
		{"non-recurring out of range", single, floating(2025, 1, 2, 0, 0), floating(2025, 1, 3, 0, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := NewComposer(tt.item).HasOccurrenceIn(tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestComposer_NonRecurring(t *testing.T) {
	item := &Item{Start: floating(2025, 1, 1, 9, 0)}
	assert.False(t, item.IsRecurring())

	occs, err := item.Occurrences(january, february)
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, SourceAnchor, occs[0].Source)
	assert.Equal(t, "DTSTART", occs[0].Source.String())
}

func TestComposer_EngineErrors(t *testing.T) {
	item := &Item{
		Start:  caltime.Date(2025, 1, 1),
		RRules: []Rule{{Freq: Hourly}},
	}
	_, err := NewComposer(item, WithEngine(NewEngine())).Occurrences(january, february)
	assert.ErrorIs(t, err, ErrInvalidFrequency)
}
