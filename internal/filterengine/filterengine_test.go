package filterengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/course"
)

func scheduleFixture(index, amountDays, amountGaps, gapsTime, avgStart, avgEnd int) course.InformativeSchedule {
	return course.InformativeSchedule{
		Index: index, AmountDays: amountDays, AmountGaps: amountGaps,
		GapsTimeMinutes: gapsTime, AvgStartMinutes: avgStart, AvgEndMinutes: avgEnd,
	}
}

func TestApplyDaysToStudy(t *testing.T) {
	schedules := []course.InformativeSchedule{
		scheduleFixture(1, 5, 0, 0, 0, 0),
		scheduleFixture(2, 2, 0, 0, 0, 0),
	}
	c := Criteria{}
	c.DaysToStudy.Enabled = true
	c.DaysToStudy.Value = 3
	out := Apply(schedules, c)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].Index)
}

func TestApplyCompositionIsIntersection(t *testing.T) {
	schedules := []course.InformativeSchedule{
		scheduleFixture(1, 2, 1, 0, 600, 0),
		scheduleFixture(2, 2, 5, 0, 600, 0),
		scheduleFixture(3, 6, 1, 0, 600, 0),
	}
	onlyDays := Criteria{}
	onlyDays.DaysToStudy.Enabled = true
	onlyDays.DaysToStudy.Value = 3
	onlyGaps := Criteria{}
	onlyGaps.TotalGaps.Enabled = true
	onlyGaps.TotalGaps.Value = 2

	both := Criteria{}
	both.DaysToStudy.Enabled = true
	both.DaysToStudy.Value = 3
	both.TotalGaps.Enabled = true
	both.TotalGaps.Value = 2

	a := Apply(schedules, onlyDays)
	b := Apply(schedules, onlyGaps)
	combined := Apply(schedules, both)

	inBoth := map[int]bool{}
	for _, s := range a {
		for _, t := range b {
			if s.Index == t.Index {
				inBoth[s.Index] = true
			}
		}
	}
	for _, s := range combined {
		assert.True(t, inBoth[s.Index])
	}
	assert.Equal(t, len(inBoth), len(combined))
}

func TestApplyAvgStartVacuousWhenZeroDays(t *testing.T) {
	schedules := []course.InformativeSchedule{scheduleFixture(1, 0, 0, 0, 0, 0)}
	c := Criteria{}
	c.AvgDayStart.Enabled = true
	c.AvgDayStart.Value = 600
	out := Apply(schedules, c)
	require.Len(t, out, 1)
}

func TestSortByAmountDaysAscending(t *testing.T) {
	schedules := []course.InformativeSchedule{
		scheduleFixture(1, 5, 0, 0, 0, 0),
		scheduleFixture(2, 1, 0, 0, 0, 0),
		scheduleFixture(3, 3, 0, 0, 0, 0),
	}
	out := Sort(schedules, SortAmountDays, true, nil)
	assert.Equal(t, []int{1, 3, 5}, []int{out[0].AmountDays, out[1].AmountDays, out[2].AmountDays})
}

func TestSortDirectionFlipReversesInPlace(t *testing.T) {
	schedules := []course.InformativeSchedule{
		scheduleFixture(1, 1, 0, 0, 0, 0),
		scheduleFixture(2, 2, 0, 0, 0, 0),
		scheduleFixture(3, 3, 0, 0, 0, 0),
	}
	sorted := Sort(schedules, SortAmountDays, true, nil)
	prior := &PriorSort{Key: SortAmountDays, Ascending: true}
	flipped := Sort(sorted, SortAmountDays, false, prior)
	assert.Equal(t, []int{3, 2, 1}, []int{flipped[0].AmountDays, flipped[1].AmountDays, flipped[2].AmountDays})
}

func TestSortIdempotentFlipTwiceRestoresOrder(t *testing.T) {
	schedules := []course.InformativeSchedule{
		scheduleFixture(1, 1, 0, 0, 0, 0),
		scheduleFixture(2, 2, 0, 0, 0, 0),
	}
	first := Sort(append([]course.InformativeSchedule(nil), schedules...), SortAmountDays, true, nil)
	prior := &PriorSort{Key: SortAmountDays, Ascending: true}
	flipped := Sort(append([]course.InformativeSchedule(nil), first...), SortAmountDays, false, prior)
	prior2 := &PriorSort{Key: SortAmountDays, Ascending: false}
	back := Sort(append([]course.InformativeSchedule(nil), flipped...), SortAmountDays, true, prior2)
	assert.Equal(t, first, back)
}

func TestValidateSQLQueryAcceptsWellFormed(t *testing.T) {
	err := ValidateSQLQuery("SELECT schedule_index FROM schedule WHERE amount_days < ?")
	require.NoError(t, err)
}

func TestValidateSQLQueryRejectsForbiddenKeyword(t *testing.T) {
	err := ValidateSQLQuery("SELECT schedule_index FROM schedule; DROP TABLE schedule")
	require.Error(t, err)
}

func TestValidateSQLQueryRejectsCaseMixedForbiddenKeyword(t *testing.T) {
	err := ValidateSQLQuery("SELECT schedule_index FROM schedule WHERE 1=1; DrOp TABLE schedule")
	require.Error(t, err)
}

func TestValidateSQLQueryRejectsKeywordSplitAcrossComment(t *testing.T) {
	err := ValidateSQLQuery("SELECT schedule_index FROM schedule; dr/**/op table schedule")
	require.Error(t, err)
}

func TestValidateSQLQueryRejectsNonWhitelistedTable(t *testing.T) {
	err := ValidateSQLQuery("SELECT schedule_index FROM users")
	require.Error(t, err)
}

func TestValidateSQLQueryRejectsMissingScheduleIndex(t *testing.T) {
	err := ValidateSQLQuery("SELECT amount_days FROM schedule")
	require.Error(t, err)
}

func TestValidateSQLQueryRejectsInlineLiteral(t *testing.T) {
	err := ValidateSQLQuery("SELECT schedule_index FROM schedule WHERE amount_days < 5")
	require.Error(t, err)
}

func TestValidateSQLQueryRejectsNonWhitelistedColumn(t *testing.T) {
	err := ValidateSQLQuery("SELECT schedule_index, secret_column FROM schedule")
	require.Error(t, err)
}

func TestValidateSQLQueryRejectsEmpty(t *testing.T) {
	require.Error(t, ValidateSQLQuery(""))
}
