// Package service wires the generation pipeline, the filter/sort engine,
// and the export contract behind request validation and domain-error
// translation, mirroring the teacher's ScheduleGeneratorService shape
// (validator.Struct, injected *zap.Logger, typed pkg/errors returns).
package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/course"
	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/filterengine"
	"github.com/noah-isme/sma-adp-api/internal/orchestrator"
	"github.com/noah-isme/sma-adp-api/internal/selection"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
	"github.com/noah-isme/sma-adp-api/pkg/export"
)

// ScheduleService exposes the generation pipeline and post-generation
// filtering/export over the DTO boundary.
type ScheduleService struct {
	orch      *orchestrator.Orchestrator
	validator *validator.Validate
	logger    *zap.Logger
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
}

// NewScheduleService wires an orchestrator behind request validation.
func NewScheduleService(orch *orchestrator.Orchestrator, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		orch:      orch,
		validator: validate,
		logger:    logger,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
}

func toBlockWindows(reqs []dto.BlockWindowRequest) []selection.BlockWindow {
	out := make([]selection.BlockWindow, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, selection.BlockWindow{
			Weekday: r.Weekday,
			Start:   r.StartMinutes,
			End:     r.EndMinutes,
		})
	}
	return out
}

func (s *ScheduleService) toInput(req dto.GenerateRequest) orchestrator.Input {
	return orchestrator.Input{
		CourseDB:       strings.NewReader(req.CourseDB),
		SelectedRawIDs: req.SelectedRawIDs,
		BlockWindows:   toBlockWindows(req.BlockWindows),
	}
}

// Generate runs the pipeline synchronously and returns the finished result.
func (s *ScheduleService) Generate(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}

	run := s.orch.Run(ctx, s.toInput(req))
	if run.State == orchestrator.StateFailed {
		s.logger.Warn("generation run failed", zap.String("run_id", run.ID), zap.Error(run.Err))
		return nil, run.Err
	}

	return &dto.GenerateResponse{
		RunID:       run.ID,
		State:       string(run.State),
		Schedules:   toInformativeResponses(run.Schedules),
		Diagnostics: toDiagnosticResponses(run.Diagnostics),
		Conflicts:   run.Conflicts,
	}, nil
}

// GenerateAsync starts the pipeline in the background and returns the run id.
func (s *ScheduleService) GenerateAsync(ctx context.Context, req dto.GenerateRequest) (*dto.RunAcceptedResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}

	id := s.orch.RunAsync(ctx, s.toInput(req))
	return &dto.RunAcceptedResponse{RunID: id}, nil
}

// Status reports a run's current state and, once READY or FAILED, its result.
func (s *ScheduleService) Status(runID string) (*dto.RunStatusResponse, error) {
	run, ok := s.orch.Status(runID)
	if !ok {
		return nil, appErrors.ErrRunNotFound
	}

	resp := &dto.RunStatusResponse{
		RunID:       run.ID,
		State:       string(run.State),
		Diagnostics: toDiagnosticResponses(run.Diagnostics),
		Conflicts:   run.Conflicts,
	}
	if run.State == orchestrator.StateReady {
		resp.Schedules = toInformativeResponses(run.Schedules)
	}
	if run.State == orchestrator.StateFailed && run.Err != nil {
		resp.Error = &dto.ErrorResponse{Code: run.Err.Code, Message: run.Err.Message}
	}
	return resp, nil
}

func toCriteria(req dto.FilterRequest) filterengine.Criteria {
	var c filterengine.Criteria
	c.DaysToStudy.Enabled, c.DaysToStudy.Value = req.DaysToStudy.Enabled, req.DaysToStudy.Value
	c.TotalGaps.Enabled, c.TotalGaps.Value = req.TotalGaps.Enabled, req.TotalGaps.Value
	c.MaxGapTime.Enabled, c.MaxGapTime.Value = req.MaxGapTime.Enabled, req.MaxGapTime.Value
	c.AvgDayStart.Enabled, c.AvgDayStart.Value = req.AvgDayStart.Enabled, req.AvgDayStart.Value
	c.AvgDayEnd.Enabled, c.AvgDayEnd.Value = req.AvgDayEnd.Enabled, req.AvgDayEnd.Value
	return c
}

// Filter applies metric predicates and a single-key sort to a run's
// already-built schedules, without touching the pipeline again.
func (s *ScheduleService) Filter(runID string, req dto.FilterRequest) (*dto.FilterResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter payload")
	}
	run, ok := s.orch.Status(runID)
	if !ok {
		return nil, appErrors.ErrRunNotFound
	}
	if run.State != orchestrator.StateReady {
		return nil, appErrors.Clone(appErrors.ErrConflict, "run has not reached READY")
	}

	filtered := filterengine.Apply(run.Schedules, toCriteria(req))
	if req.SortKey != "" {
		filtered = filterengine.Sort(filtered, filterengine.SortKey(req.SortKey), req.Ascending, nil)
	}
	return &dto.FilterResponse{Schedules: toInformativeResponses(filtered)}, nil
}

// Query validates and executes a whitelisted SQL predicate against a
// run's per-run store.
func (s *ScheduleService) Query(ctx context.Context, runID string, req dto.ScheduleQueryRequest) (*dto.ScheduleQueryResponse, error) {
	run, ok := s.orch.Status(runID)
	if !ok {
		return nil, appErrors.ErrRunNotFound
	}
	if run.Store() == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "run has no query store available")
	}

	if err := filterengine.ValidateSQLQuery(req.Query); err != nil {
		return &dto.ScheduleQueryResponse{Rejected: true, RejectReason: err.Error()}, nil
	}

	indexes, err := run.Store().Query(ctx, req.Query, req.Params)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrQueryInvalid.Code, appErrors.ErrQueryInvalid.Status, "query execution failed")
	}
	return &dto.ScheduleQueryResponse{ScheduleIndexes: indexes}, nil
}

// ExportCSV renders one schedule from a READY run as CSV bytes.
func (s *ScheduleService) ExportCSV(runID string, index int) ([]byte, error) {
	sched, err := s.findSchedule(runID, index)
	if err != nil {
		return nil, err
	}
	data, err := s.csv.Render(toDataset(*sched))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
	}
	return data, nil
}

// ExportPDF renders one schedule from a READY run as a PDF document.
func (s *ScheduleService) ExportPDF(runID string, index int) ([]byte, error) {
	sched, err := s.findSchedule(runID, index)
	if err != nil {
		return nil, err
	}
	data, err := s.pdf.Render(toDataset(*sched), "Schedule Proposal")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
	}
	return data, nil
}

func (s *ScheduleService) findSchedule(runID string, index int) (*course.InformativeSchedule, error) {
	run, ok := s.orch.Status(runID)
	if !ok {
		return nil, appErrors.ErrRunNotFound
	}
	if run.State != orchestrator.StateReady {
		return nil, appErrors.Clone(appErrors.ErrConflict, "run has not reached READY")
	}
	for i := range run.Schedules {
		if run.Schedules[i].Index == index {
			return &run.Schedules[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule index not found in this run")
}
