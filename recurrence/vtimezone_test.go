package recurrence

import (
	"testing"
	"time"

	"github.com/cyp0633/icalrecur/caltime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parisTable(t *testing.T, fallback caltime.ZoneTable) *VTimezoneTable {
	t.Helper()
	cal := decodeCalendar(t, parisTimezone...)
	return NewVTimezoneTable(cal.Component, fallback)
}

func TestVTimezoneTable_UTCOffset(t *testing.T) {
	table := parisTable(t, nil)
	assert.Equal(t, []string{"Test/Paris"}, table.IDs())

	tests := []struct {
		name     string
		instant  time.Time
		expected time.Duration
	}{
		{"winter", time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC), time.Hour},
		{"summer", time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC), 2 * time.Hour},
		{"just before daylight", time.Date(2025, 3, 30, 0, 59, 59, 0, time.UTC), time.Hour},
		{"daylight onset", time.Date(2025, 3, 30, 1, 0, 0, 0, time.UTC), 2 * time.Hour},
		{"standard onset", time.Date(2025, 10, 26, 1, 0, 0, 0, time.UTC), time.Hour},
		{"before the first onset", time.Date(1970, 6, 1, 0, 0, 0, 0, time.UTC), time.Hour},
		{"far future", time.Date(2099, 7, 1, 0, 0, 0, 0, time.UTC), 2 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off, err := table.UTCOffset("Test/Paris", tt.instant)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, off)
		})
	}
}

func TestVTimezoneTable_LocalOffset(t *testing.T) {
	table := parisTable(t, nil)

	tests := []struct {
		name     string
		wall     time.Time
		expected time.Duration
	}{
		{"winter", time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC), time.Hour},
		{"summer", time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC), 2 * time.Hour},
		{"gap takes the offset before it", time.Date(2025, 3, 30, 2, 30, 0, 0, time.UTC), time.Hour},
		{"ambiguous takes the first occurrence", time.Date(2025, 10, 26, 2, 30, 0, 0, time.UTC), 2 * time.Hour},
		{"after the repeated hour", time.Date(2025, 10, 26, 3, 0, 0, 0, time.UTC), time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off, err := table.LocalOffset("Test/Paris", tt.wall)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, off)
		})
	}
}

func TestVTimezoneTable_Conversions(t *testing.T) {
	table := parisTable(t, nil)
	paris := caltime.NamedZone("Test/Paris")

	gap, err := caltime.NewDateTime(2025, 3, 30, 2, 30, 0, paris).WithZoneTable(table).AsUTC()
	require.NoError(t, err)
	assert.Equal(t, "20250330T013000Z", gap.String())

	summer, err := utc(2025, 7, 1, 12, 0).WithZoneTable(table).ToZone(paris)
	require.NoError(t, err)
	assert.Equal(t, "Test/Paris:20250701T140000", summer.String())
}

func TestVTimezoneTable_Fallback(t *testing.T) {
	t.Run("unknown id uses the fallback", func(t *testing.T) {
		table := parisTable(t, testZones)
		off, err := table.LocalOffset("Test/Plus2", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, 2*time.Hour, off)
	})

	t.Run("unknown id without fallback", func(t *testing.T) {
		table := parisTable(t, nil)
		_, err := table.UTCOffset("Test/Nowhere", time.Now())
		assert.ErrorIs(t, err, caltime.ErrUnresolvedTimeZone)
		_, err = table.LocalOffset("Test/Nowhere", time.Now())
		assert.ErrorIs(t, err, caltime.ErrUnresolvedTimeZone)
	})

	t.Run("zone without observances", func(t *testing.T) {
		cal := decodeCalendar(t, "BEGIN:VTIMEZONE", "TZID:Test/Empty", "END:VTIMEZONE")
		table := NewVTimezoneTable(cal.Component, caltime.DefaultZones)
		_, err := table.UTCOffset("Test/Empty", time.Now())
		assert.ErrorIs(t, err, caltime.ErrUnresolvedTimeZone)
	})

	t.Run("nil calendar", func(t *testing.T) {
		table := NewVTimezoneTable(nil, testZones)
		assert.Empty(t, table.IDs())
		off, err := table.UTCOffset("Test/Plus2", time.Now())
		require.NoError(t, err)
		assert.Equal(t, 2*time.Hour, off)
	})
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		offset   string
		expected time.Duration
	}{
		{"+0100", time.Hour},
		{"-0500", -5 * time.Hour},
		{"+0530", 5*time.Hour + 30*time.Minute},
		{"+013045", time.Hour + 30*time.Minute + 45*time.Second},
		{"0100", 0},
		{"+01", 0},
		{"bogus", 0},
	}
	for _, tt := range tests {
		t.Run(tt.offset, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseOffset(tt.offset))
		})
	}
}
