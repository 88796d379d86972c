package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
)

type scheduleGeneratorMock struct {
	captured dto.GenerateRequest
}

func (m *scheduleGeneratorMock) Generate(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	m.captured = req
	return &dto.GenerateResponse{RunID: "run-1", State: "READY"}, nil
}

func (m *scheduleGeneratorMock) GenerateAsync(ctx context.Context, req dto.GenerateRequest) (*dto.RunAcceptedResponse, error) {
	return &dto.RunAcceptedResponse{RunID: "run-1"}, nil
}

func (m *scheduleGeneratorMock) Status(runID string) (*dto.RunStatusResponse, error) {
	if runID == "missing" {
		return nil, appErrors.ErrRunNotFound
	}
	return &dto.RunStatusResponse{RunID: runID, State: "READY"}, nil
}

func (m *scheduleGeneratorMock) Filter(runID string, req dto.FilterRequest) (*dto.FilterResponse, error) {
	return &dto.FilterResponse{}, nil
}

func (m *scheduleGeneratorMock) Query(ctx context.Context, runID string, req dto.ScheduleQueryRequest) (*dto.ScheduleQueryResponse, error) {
	return &dto.ScheduleQueryResponse{ScheduleIndexes: []int{1}}, nil
}

func (m *scheduleGeneratorMock) ExportCSV(runID string, index int) ([]byte, error) {
	return []byte("weekday,course\n"), nil
}

func (m *scheduleGeneratorMock) ExportPDF(runID string, index int) ([]byte, error) {
	return []byte("%PDF-1.4"), nil
}

func TestGenerateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &scheduleGeneratorMock{}
	handler := &ScheduleHandler{service: mock}
	payload := []byte(`{"courseDb":"data","selectedRawIds":["11111"]}`)
	req, _ := http.NewRequest(http.MethodPost, "/schedules/generate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"11111"}, mock.captured.SelectedRawIDs)
}

func TestGenerateInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleHandler{service: &scheduleGeneratorMock{}}
	req, _ := http.NewRequest(http.MethodPost, "/schedules/generate", bytes.NewReader([]byte(`{"courseDb":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleHandler{service: &scheduleGeneratorMock{}}
	req, _ := http.NewRequest(http.MethodGet, "/schedules/runs/missing", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "runId", Value: "missing"}}

	handler.Status(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportCSVReturnsCSVContentType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleHandler{service: &scheduleGeneratorMock{}}
	req, _ := http.NewRequest(http.MethodGet, "/schedules/runs/run-1/1/export.csv", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "runId", Value: "run-1"}, {Key: "index", Value: "1"}}

	handler.ExportCSV(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

func TestExportCSVRejectsNonIntegerIndex(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleHandler{service: &scheduleGeneratorMock{}}
	req, _ := http.NewRequest(http.MethodGet, "/schedules/runs/run-1/abc/export.csv", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "runId", Value: "run-1"}, {Key: "index", Value: "abc"}}

	handler.ExportCSV(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
