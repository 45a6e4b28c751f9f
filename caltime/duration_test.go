package caltime

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func someInt(n int) mo.Option[int] { return mo.Some(n) }

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected Duration
		days     int
		exact    time.Duration
	}{
		{"P1W", Duration{Weeks: someInt(1)}, 7, 0},
		{"P2D", Duration{Days: someInt(2)}, 2, 0},
		{"PT15M", Duration{Minutes: someInt(15)}, 0, 15 * time.Minute},
		{"-PT15M", Duration{Minutes: someInt(-15)}, 0, -15 * time.Minute},
		{"+P1DT2H30M", Duration{Days: someInt(1), Hours: someInt(2), Minutes: someInt(30)}, 1, 2*time.Hour + 30*time.Minute},
		{"PT1H0M5S", Duration{Hours: someInt(1), Minutes: someInt(0), Seconds: someInt(5)}, 0, time.Hour + 5*time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseDuration(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
			assert.Equal(t, tt.days, d.NominalDays())
			assert.Equal(t, tt.exact, d.Exact())
		})
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	for _, input := range []string{"", "P", "PT", "1D", "P1H", "PT1D", "P1DT", "P1D2", "PxD"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDuration(input)
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}
}

func TestDuration_String(t *testing.T) {
	tests := []struct {
		d        Duration
		expected string
	}{
		{Duration{Weeks: someInt(2)}, "P2W"},
		{Duration{Days: someInt(1), Hours: someInt(12)}, "P1DT12H"},
		{Duration{Minutes: someInt(-15)}, "-PT15M"},
		{Duration{}, "PT0S"},
		{FromStd(90 * time.Minute), "PT1H30M"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.d.String())
	}
}

func TestDuration_Derived(t *testing.T) {
	d := Duration{Days: someInt(1), Hours: someInt(2)}
	assert.True(t, d.HasDatePart())
	assert.True(t, d.HasTimePart())
	assert.Equal(t, 1, d.Sign())
	assert.Equal(t, -1, d.Negate().Sign())
	assert.Equal(t, "-P1DT2H", d.Negate().String())

	assert.True(t, Duration{Seconds: someInt(0)}.IsZero())
	assert.False(t, Days(3).HasTimePart())
}

func TestDuration_ValidateMixedSigns(t *testing.T) {
	d := Duration{Days: someInt(1), Hours: someInt(-2)}
	assert.ErrorIs(t, d.Validate(), ErrInvalidValue)
	assert.NoError(t, Duration{Days: someInt(-1), Hours: someInt(-2)}.Validate())
}

func TestDurationBetween(t *testing.T) {
	tests := []struct {
		name       string
		start, end DateTime
		expected   string
	}{
		{"dates", Date(2025, 1, 1), Date(2025, 1, 4), "P3D"},
		{"same frame whole days", NewDateTime(2025, 1, 1, 9, 0, 0, FloatingZone()), NewDateTime(2025, 1, 3, 9, 0, 0, FloatingZone()), "P2D"},
		{"same frame with remainder", NewDateTime(2025, 1, 1, 22, 0, 0, FloatingZone()), NewDateTime(2025, 1, 3, 1, 30, 0, FloatingZone()), "P1DT3H30M"},
		{"same frame under a day", NewDateTime(2025, 1, 1, 9, 0, 0, UTCZone()), NewDateTime(2025, 1, 1, 10, 0, 0, UTCZone()), "PT1H"},
		{"across frames is exact", NewDateTime(2025, 1, 1, 9, 0, 0, NamedZone("Test/Plus2")), NewDateTime(2025, 1, 1, 9, 0, 0, UTCZone()), "PT2H"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := DurationBetween(tt.start.WithZoneTable(testZones), tt.end.WithZoneTable(testZones))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d.String())

			end, err := tt.start.WithZoneTable(testZones).AddDuration(d)
			require.NoError(t, err)
			c, err := end.Compare(tt.end.WithZoneTable(testZones))
			require.NoError(t, err)
			assert.Equal(t, 0, c)
		})
	}
}
