package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/service"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
	"github.com/noah-isme/sma-adp-api/pkg/response"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error)
	GenerateAsync(ctx context.Context, req dto.GenerateRequest) (*dto.RunAcceptedResponse, error)
	Status(runID string) (*dto.RunStatusResponse, error)
	Filter(runID string, req dto.FilterRequest) (*dto.FilterResponse, error)
	Query(ctx context.Context, runID string, req dto.ScheduleQueryRequest) (*dto.ScheduleQueryResponse, error)
	ExportCSV(runID string, index int) ([]byte, error)
	ExportPDF(runID string, index int) ([]byte, error)
}

// ScheduleHandler exposes the generation pipeline over HTTP.
type ScheduleHandler struct {
	service scheduleGenerator
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Generate handles POST /schedules/generate.
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// GenerateAsync handles POST /schedules/generate/async.
func (h *ScheduleHandler) GenerateAsync(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.GenerateAsync(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Status handles GET /schedules/runs/:runId.
func (h *ScheduleHandler) Status(c *gin.Context) {
	result, err := h.service.Status(c.Param("runId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Filter handles POST /schedules/runs/:runId/filter.
func (h *ScheduleHandler) Filter(c *gin.Context) {
	var req dto.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid filter payload"))
		return
	}
	result, err := h.service.Filter(c.Param("runId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Query handles POST /schedules/runs/:runId/query.
func (h *ScheduleHandler) Query(c *gin.Context) {
	var req dto.ScheduleQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query payload"))
		return
	}
	result, err := h.service.Query(c.Request.Context(), c.Param("runId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// ExportCSV handles GET /schedules/runs/:runId/:index/export.csv.
func (h *ScheduleHandler) ExportCSV(c *gin.Context) {
	index, err := parseIndex(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := h.service.ExportCSV(c.Param("runId"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "text/csv", data)
}

// ExportPDF handles GET /schedules/runs/:runId/:index/export.pdf.
func (h *ScheduleHandler) ExportPDF(c *gin.Context) {
	index, err := parseIndex(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := h.service.ExportPDF(c.Param("runId"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", data)
}

func parseIndex(c *gin.Context) (int, error) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "index must be an integer")
	}
	return index, nil
}
