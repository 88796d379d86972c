package timeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/course"
)

func TestToMinutes(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"00:00", 0},
		{"09:05", 545},
		{"23:59", 1439},
		{"12:30", 750},
	}
	for _, c := range cases {
		got, err := ToMinutes(c.raw)
		require.NoError(t, err, c.raw)
		assert.Equal(t, c.want, got, c.raw)
	}
}

func TestToMinutesRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"24:00", "12:60", "9:05", "12-30", "", "ab:cd", "12:3"} {
		_, err := ToMinutes(raw)
		require.Error(t, err, raw)
		var badTime *ErrBadTime
		require.ErrorAs(t, err, &badTime)
	}
}

func TestFormatMinutesRoundTrips(t *testing.T) {
	for _, raw := range []string{"00:00", "09:05", "23:59"} {
		minutes, err := ToMinutes(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, FormatMinutes(minutes))
	}
}

func TestOverlapDifferentWeekdaysNeverOverlap(t *testing.T) {
	a := course.Session{Weekday: 1, StartMinutes: 0, EndMinutes: 1440}
	b := course.Session{Weekday: 2, StartMinutes: 0, EndMinutes: 1440}
	assert.False(t, Overlap(a, b))
}

func TestOverlapTouchingBoundaryIsNotOverlap(t *testing.T) {
	a := course.Session{Weekday: 1, StartMinutes: 480, EndMinutes: 540}
	b := course.Session{Weekday: 1, StartMinutes: 540, EndMinutes: 600}
	assert.False(t, Overlap(a, b), "touching sessions must not count as overlap")
	assert.False(t, Overlap(b, a))
}

func TestOverlapDetectsGenuineOverlap(t *testing.T) {
	a := course.Session{Weekday: 1, StartMinutes: 480, EndMinutes: 600}
	b := course.Session{Weekday: 1, StartMinutes: 540, EndMinutes: 660}
	assert.True(t, Overlap(a, b))
	assert.True(t, Overlap(b, a))
}

func TestGroupsOverlap(t *testing.T) {
	a := []course.Session{{Weekday: 1, StartMinutes: 480, EndMinutes: 600}}
	b := []course.Session{
		{Weekday: 2, StartMinutes: 480, EndMinutes: 600},
		{Weekday: 1, StartMinutes: 590, EndMinutes: 610},
	}
	assert.True(t, GroupsOverlap(a, b))
	assert.False(t, GroupsOverlap(a, []course.Session{{Weekday: 1, StartMinutes: 600, EndMinutes: 700}}))
}
