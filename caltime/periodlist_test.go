package caltime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateList_OrderedAndDeduplicated(t *testing.T) {
	list, err := DateList(Date(2025, 1, 3), Date(2025, 1, 1), Date(2025, 1, 3))
	require.NoError(t, err)

	assert.Equal(t, 2, list.Len())
	assert.Equal(t, KindDateOnly, list.Kind())
	assert.True(t, list.Zone().IsFloating())

	starts := list.Starts()
	assert.Equal(t, "20250101", starts[0].String())
	assert.Equal(t, "20250103", starts[1].String())
}

func TestPeriodList_RejectsMismatch(t *testing.T) {
	dates, err := DateList(Date(2025, 1, 1))
	require.NoError(t, err)
	err = dates.Add(NewInstant(NewDateTime(2025, 1, 2, 9, 0, 0, FloatingZone())))
	assert.ErrorIs(t, err, ErrInconsistentPeriod)

	utc, err := DateList(NewDateTime(2025, 1, 1, 9, 0, 0, UTCZone()))
	require.NoError(t, err)
	err = utc.Add(NewInstant(NewDateTime(2025, 1, 2, 9, 0, 0, NamedZone("Europe/Paris"))))
	assert.ErrorIs(t, err, ErrInconsistentPeriod)

	start := NewDateTime(2025, 1, 3, 9, 0, 0, UTCZone())
	withEnd, err := NewPeriod(start, start.AddHours(1))
	require.NoError(t, err)
	err = utc.Add(withEnd)
	assert.ErrorIs(t, err, ErrInconsistentPeriod)

	assert.Equal(t, 1, utc.Len())
}

func TestPeriodList_ContainsRemove(t *testing.T) {
	a := NewInstant(NewDateTime(2025, 1, 1, 9, 0, 0, UTCZone()))
	b := NewInstant(NewDateTime(2025, 1, 2, 9, 0, 0, UTCZone()))
	list, err := NewPeriodList(b, a)
	require.NoError(t, err)

	assert.True(t, list.Contains(a))
	assert.True(t, list.Remove(a))
	assert.False(t, list.Contains(a))
	assert.False(t, list.Remove(a))
	assert.Equal(t, []Period{b}, list.Periods())
}
