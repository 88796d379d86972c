package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/course"
)

func sample() []course.InformativeSchedule {
	return []course.InformativeSchedule{
		{Index: 1, AmountDays: 2, AmountGaps: 0, GapsTimeMinutes: 0, AvgStartMinutes: 540, AvgEndMinutes: 600},
		{Index: 2, AmountDays: 5, AmountGaps: 3, GapsTimeMinutes: 90, AvgStartMinutes: 480, AvgEndMinutes: 720},
	}
}

func TestOpenCreatesSchemaAndSeedsScheduleSet(t *testing.T) {
	s, err := Open(context.Background(), "run-1")
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.Query(context.Background(), "SELECT schedule_index FROM schedule", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoadSchedulesAndQueryRoundTrip(t *testing.T) {
	s, err := Open(context.Background(), "run-2")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.LoadSchedules(context.Background(), sample()))

	rows, err := s.Query(context.Background(), "SELECT schedule_index FROM schedule WHERE amount_days > ? ORDER BY schedule_index", []any{3})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, rows)
}

func TestQueryReturnsEmptyWhenNothingMatches(t *testing.T) {
	s, err := Open(context.Background(), "run-3")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.LoadSchedules(context.Background(), sample()))

	rows, err := s.Query(context.Background(), "SELECT schedule_index FROM schedule WHERE amount_gaps > ?", []any{100})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCloseIsIdempotentFree(t *testing.T) {
	s, err := Open(context.Background(), "run-4")
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
