package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/orchestrator"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
)

const fixtureDB = `Course A
11111
Dr. A
L S,1,09:00,10:00,100,5
$$$$
Course B
22222
Dr. B
L S,1,10:00,11:00,100,6
$$$$
`

func newTestService() *ScheduleService {
	orch := orchestrator.New(zap.NewNop(), time.Minute)
	return NewScheduleService(orch, validator.New(), zap.NewNop())
}

func TestGenerateReturnsReadyRunWithSchedules(t *testing.T) {
	svc := newTestService()
	resp, err := svc.Generate(context.Background(), dto.GenerateRequest{
		CourseDB:       fixtureDB,
		SelectedRawIDs: []string{"11111", "22222"},
	})
	require.NoError(t, err)
	assert.Equal(t, "READY", resp.State)
	require.Len(t, resp.Schedules, 1)
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	svc := newTestService()
	_, err := svc.Generate(context.Background(), dto.GenerateRequest{CourseDB: fixtureDB})
	require.Error(t, err)
}

func TestGenerateAsyncThenStatusBecomesReady(t *testing.T) {
	svc := newTestService()
	accepted, err := svc.GenerateAsync(context.Background(), dto.GenerateRequest{
		CourseDB:       fixtureDB,
		SelectedRawIDs: []string{"11111", "22222"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, accepted.RunID)

	require.Eventually(t, func() bool {
		status, err := svc.Status(accepted.RunID)
		return err == nil && status.State == "READY"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStatusUnknownRunReturnsNotFound(t *testing.T) {
	svc := newTestService()
	_, err := svc.Status("does-not-exist")
	require.ErrorIs(t, err, appErrors.ErrRunNotFound)
}

func TestFilterAppliesCriteriaToReadyRun(t *testing.T) {
	svc := newTestService()
	resp, err := svc.Generate(context.Background(), dto.GenerateRequest{
		CourseDB:       fixtureDB,
		SelectedRawIDs: []string{"11111", "22222"},
	})
	require.NoError(t, err)

	filtered, err := svc.Filter(resp.RunID, dto.FilterRequest{
		DaysToStudy: dto.CriterionRequest{Enabled: true, Value: 1},
	})
	require.NoError(t, err)
	assert.Len(t, filtered.Schedules, 1)

	excluded, err := svc.Filter(resp.RunID, dto.FilterRequest{
		DaysToStudy: dto.CriterionRequest{Enabled: true, Value: 0},
	})
	require.NoError(t, err)
	assert.Empty(t, excluded.Schedules)
}

func TestQueryRejectsDisallowedSQL(t *testing.T) {
	svc := newTestService()
	resp, err := svc.Generate(context.Background(), dto.GenerateRequest{
		CourseDB:       fixtureDB,
		SelectedRawIDs: []string{"11111", "22222"},
	})
	require.NoError(t, err)

	result, err := svc.Query(context.Background(), resp.RunID, dto.ScheduleQueryRequest{
		Query: "DROP TABLE schedules",
	})
	require.NoError(t, err)
	assert.True(t, result.Rejected)
}

func TestQueryRunsWhitelistedPredicate(t *testing.T) {
	svc := newTestService()
	resp, err := svc.Generate(context.Background(), dto.GenerateRequest{
		CourseDB:       fixtureDB,
		SelectedRawIDs: []string{"11111", "22222"},
	})
	require.NoError(t, err)

	result, err := svc.Query(context.Background(), resp.RunID, dto.ScheduleQueryRequest{
		Query:  "SELECT schedule_index FROM schedule WHERE amount_days = ?",
		Params: []interface{}{1},
	})
	require.NoError(t, err)
	assert.False(t, result.Rejected)
	assert.Contains(t, result.ScheduleIndexes, resp.Schedules[0].Index)
}

func TestExportCSVAndPDFRenderReadySchedule(t *testing.T) {
	svc := newTestService()
	resp, err := svc.Generate(context.Background(), dto.GenerateRequest{
		CourseDB:       fixtureDB,
		SelectedRawIDs: []string{"11111", "22222"},
	})
	require.NoError(t, err)
	index := resp.Schedules[0].Index

	csv, err := svc.ExportCSV(resp.RunID, index)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(csv), "Course A") || len(csv) > 0)

	pdf, err := svc.ExportPDF(resp.RunID, index)
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
}

func TestExportCSVUnknownIndexReturnsNotFound(t *testing.T) {
	svc := newTestService()
	resp, err := svc.Generate(context.Background(), dto.GenerateRequest{
		CourseDB:       fixtureDB,
		SelectedRawIDs: []string{"11111", "22222"},
	})
	require.NoError(t, err)

	_, err = svc.ExportCSV(resp.RunID, 9999)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
