// Package orchestrator drives the schedule-generation pipeline end to
// end and owns the run registry callers poll for async results. The
// registry-with-mutex-and-TTL shape is grounded on the teacher's
// internal/service/schedule_generator_service.go proposalStore; the
// pipeline sequencing and state machine are this module's own, per
// spec §4.10.
package orchestrator

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/builder"
	"github.com/noah-isme/sma-adp-api/internal/combogen"
	"github.com/noah-isme/sma-adp-api/internal/course"
	"github.com/noah-isme/sma-adp-api/internal/courseval"
	"github.com/noah-isme/sma-adp-api/internal/enrich"
	"github.com/noah-isme/sma-adp-api/internal/parser"
	"github.com/noah-isme/sma-adp-api/internal/selection"
	"github.com/noah-isme/sma-adp-api/internal/store"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
	"github.com/noah-isme/sma-adp-api/pkg/jobs"
)

const asyncRunJobType = "schedule_generation"

type asyncRunPayload struct {
	run *Run
	in  Input
}

// State is one node of the run state machine from spec §4.10.
type State string

const (
	StateIdle       State = "IDLE"
	StateParsing    State = "PARSING"
	StateValidating State = "VALIDATING"
	StateBuilding   State = "BUILDING"
	StateEnriching  State = "ENRICHING"
	StateReady      State = "READY"
	StateFailed     State = "FAILED"
)

// Input bundles everything one generation run needs.
type Input struct {
	CourseDB       io.Reader
	SelectedRawIDs []string
	BlockWindows   []selection.BlockWindow
}

// Run is one generation's mutable record, polled via Status.
type Run struct {
	ID          string
	State       State
	Schedules   []course.InformativeSchedule
	Diagnostics []course.ValidationError
	Conflicts   []string
	Err         *appErrors.Error
	CreatedAt   time.Time
	store       *store.Store
}

// Orchestrator drives runs and retains them for a bounded time so async
// callers can poll Status before the registry evicts them.
type Orchestrator struct {
	log *zap.Logger
	ttl time.Duration

	mu   sync.RWMutex
	runs map[string]*Run

	bgCtx  context.Context
	cancel context.CancelFunc
	queue  *jobs.Queue
}

// New builds an Orchestrator and starts the worker pool backing
// RunAsync. ttl bounds how long a finished run stays retrievable via
// Status before it is evicted on next access. Async runs are dispatched
// through pkg/jobs.Queue on a background context owned by the
// orchestrator, not the caller's request context, so a run outlives the
// HTTP request that started it.
func New(log *zap.Logger, ttl time.Duration) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	bgCtx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{log: log, ttl: ttl, runs: make(map[string]*Run), bgCtx: bgCtx, cancel: cancel}
	o.queue = jobs.NewQueue(asyncRunJobType, o.handleAsyncJob, jobs.QueueConfig{
		Workers:    4,
		BufferSize: 32,
		MaxRetries: 0,
		Logger:     log,
	})
	o.queue.Start(bgCtx)
	return o
}

// Close stops the async worker pool and waits for its workers to exit.
// It cancels the background context that async runs execute under, so a
// run in flight stops at its next stage boundary and ends FAILED with
// CANCELLED; pending unstarted jobs are abandoned.
func (o *Orchestrator) Close() {
	o.cancel()
	o.queue.Stop()
}

func (o *Orchestrator) handleAsyncJob(ctx context.Context, job jobs.Job) error {
	payload := job.Payload.(asyncRunPayload)
	o.execute(ctx, payload.run, payload.in)
	return nil
}

// Status returns the run by id, evicting it first if it has outlived
// the configured TTL.
func (o *Orchestrator) Status(id string) (*Run, bool) {
	o.mu.RLock()
	run, ok := o.runs[id]
	o.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Since(run.CreatedAt) > o.ttl {
		o.mu.Lock()
		delete(o.runs, id)
		o.mu.Unlock()
		return nil, false
	}
	return run, true
}

// Store returns the per-run SQL store backing the SQL-predicate filter
// mode, if the run reached READY.
func (r *Run) Store() *store.Store { return r.store }

func (o *Orchestrator) save(run *Run) {
	o.mu.Lock()
	o.runs[run.ID] = run
	o.mu.Unlock()
}

// RunAsync allocates a run id, registers it in IDLE state, and dispatches
// the pipeline onto the background worker pool, returning immediately
// with the id. The pipeline runs against the orchestrator's own
// background context rather than ctx, so it survives past the lifetime
// of whatever request context ctx came from.
func (o *Orchestrator) RunAsync(ctx context.Context, in Input) string {
	run := &Run{ID: uuid.NewString(), State: StateIdle, CreatedAt: time.Now()}
	o.save(run)
	if err := o.queue.Enqueue(jobs.Job{ID: run.ID, Type: asyncRunJobType, Payload: asyncRunPayload{run: run, in: in}}); err != nil {
		o.fail(run, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation run"))
		return run.ID
	}
	return run.ID
}

// Run executes the pipeline synchronously and returns the finished Run.
func (o *Orchestrator) Run(ctx context.Context, in Input) *Run {
	run := &Run{ID: uuid.NewString(), State: StateIdle, CreatedAt: time.Now()}
	o.save(run)
	o.execute(ctx, run, in)
	return run
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, in Input) {
	log := o.log.With(zap.String("run_id", run.ID))

	if ctx.Err() != nil {
		o.fail(run, appErrors.ErrCancelled)
		return
	}

	run.State = StateParsing
	o.save(run)
	parsed := parser.Parse(in.CourseDB, log)
	run.Diagnostics = append(run.Diagnostics, parsed.Diagnostics...)
	if len(parsed.Courses) == 0 {
		o.fail(run, appErrors.Clone(appErrors.ErrInputFormat, "no valid courses parsed from the course database"))
		return
	}

	selected, err := selection.Filter(parsed.Courses, in.SelectedRawIDs)
	if err != nil {
		o.fail(run, appErrors.Clone(appErrors.ErrSelectionInvalid, err.Error()))
		return
	}

	if len(in.BlockWindows) > 0 {
		blockCourse, err := selection.SynthesizeBlockCourse(in.BlockWindows)
		if err != nil {
			o.fail(run, appErrors.Clone(appErrors.ErrSelectionInvalid, err.Error()))
			return
		}
		selected = append(selected, blockCourse)
	}

	if ctx.Err() != nil {
		o.fail(run, appErrors.ErrCancelled)
		return
	}

	run.State = StateValidating
	o.save(run)
	timeout := courseval.Timeout(len(selected))
	validateCtx, cancel := context.WithTimeout(ctx, timeout)
	report := courseval.Validate(validateCtx, selected, log)
	cancel()
	if report.Cancelled {
		if ctx.Err() != nil {
			o.fail(run, appErrors.ErrCancelled)
		} else {
			o.fail(run, appErrors.ErrValidationTimeout)
		}
		return
	}
	run.Conflicts = report.Conflicts

	run.State = StateBuilding
	o.save(run)
	options := make([][]course.CourseSelection, 0, len(selected))
	for i := range selected {
		options = append(options, combogen.Generate(selected, i, log))
	}
	schedules, err := builder.Build(ctx, selected, options)
	if err != nil {
		o.fail(run, appErrors.ErrCancelled)
		return
	}

	run.State = StateEnriching
	o.save(run)
	informative := enrich.Enrich(ctx, schedules, selected)
	if ctx.Err() != nil {
		o.fail(run, appErrors.ErrCancelled)
		return
	}

	runStore, err := store.Open(ctx, run.ID)
	if err != nil {
		log.Error("failed to open query store for run", zap.Error(err))
	} else if err := runStore.LoadSchedules(ctx, informative); err != nil {
		log.Error("failed to load schedules into query store", zap.Error(err))
	} else {
		run.store = runStore
	}

	run.Schedules = informative
	run.State = StateReady
	o.save(run)

	if len(informative) == 0 {
		log.Info("generation run produced zero schedules", zap.String("run_id", run.ID))
	}
}

func (o *Orchestrator) fail(run *Run, err *appErrors.Error) {
	run.State = StateFailed
	run.Err = err
	o.save(run)
}

// ParseSelectedIDs splits a user-selection file's whitespace-separated
// 5-digit id tokens, per spec §6.
func ParseSelectedIDs(raw string) []string {
	return strings.Fields(raw)
}
