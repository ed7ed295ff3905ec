// Package orchestrator drives a test run's life from request to terminal
// outcome. It validates preconditions, submits to the Job Service, tracks
// the run with a polling loop, and reconciles every observation through the
// run registry so concurrent observers see one consistent view.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/probe-hub/probe-hub/internal/metrics"
	"github.com/probe-hub/probe-hub/internal/polling"
	"github.com/probe-hub/probe-hub/internal/registry"
	"github.com/probe-hub/probe-hub/pkg/api"
	"github.com/probe-hub/probe-hub/pkg/jobservice"
	"github.com/go-playground/validator/v10"
)

// JobService is the remote surface the orchestrator depends on. Satisfied by
// *jobservice.Client; tests substitute their own.
type JobService interface {
	Submit(ctx context.Context, req *api.RunRequest) (*api.SubmitResponse, error)
	Status(ctx context.Context, runID string) (*api.RunStatusInfo, error)
	Results(ctx context.Context, runID string) (*api.RunResult, error)
	Cancel(ctx context.Context, runID string) error
	DeleteResults(ctx context.Context, runID string) error
	History(ctx context.Context, limit int) (*api.HistoryResponse, error)
	AvailableTests(ctx context.Context) (*api.AvailableTestsResponse, error)
	LoadedModels(ctx context.Context) ([]string, error)
}

// Options bounds the orchestrator's tracking behaviour. Zero values select
// the polling defaults.
type Options struct {
	PollInterval    time.Duration
	PollMaxAttempts int
	// PollFailureBudget is the number of consecutive transient probe
	// failures tolerated before a poll is treated as fatally broken.
	PollFailureBudget int
	// HistoryLimit is the default page size for history refreshes.
	HistoryLimit int
}

const defaultHistoryLimit = 50

// Orchestrator is the session-level state machine over test runs.
type Orchestrator struct {
	svc      JobService
	reg      *registry.Registry
	validate *validator.Validate
	logger   *slog.Logger
	opts     Options

	// startMu makes the check-then-act of startRun single-flight: the
	// active-run check, the submission and the registration happen atomically
	// with respect to other startRun calls.
	startMu sync.Mutex

	// baseCtx parents every tracking loop so Shutdown can stop them all.
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	catalogueMu sync.Mutex
	catalogue   map[string]api.TestTypeInfo
}

func New(svc JobService, reg *registry.Registry, validate *validator.Validate, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	baseCtx, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		svc:      svc,
		reg:      reg,
		validate: validate,
		logger:   logger,
		opts:     opts,
		baseCtx:  baseCtx,
		stop:     stop,
	}
}

// Registry exposes the run registry for observers. The registry is read-only
// for callers; all mutation stays inside the orchestrator.
func (o *Orchestrator) Registry() *registry.Registry {
	return o.reg
}

// Subscribe registers a change observer on the run registry.
func (o *Orchestrator) Subscribe() (<-chan registry.Event, func()) {
	return o.reg.Subscribe()
}

// StartRun validates req, submits it to the Job Service and starts tracking
// the accepted run. It fails fast with InvalidRequestError before any
// network call when the request shape is wrong, and with RunInProgressError
// while any run is still non-terminal.
func (o *Orchestrator) StartRun(ctx context.Context, req *api.RunRequest) (registry.RunHandle, error) {
	if err := o.validateRequest(ctx, req); err != nil {
		return registry.RunHandle{}, err
	}

	o.startMu.Lock()
	defer o.startMu.Unlock()

	if active := o.reg.ListActive(); len(active) > 0 {
		metrics.RunsRejected.WithLabelValues("run_in_progress").Inc()
		return registry.RunHandle{}, &RunInProgressError{ActiveRunID: active[0].ID}
	}

	if err := o.checkModelLoaded(ctx, req.ModelID); err != nil {
		return registry.RunHandle{}, err
	}

	resp, err := o.svc.Submit(ctx, req)
	if err != nil {
		o.logger.Error("Run submission failed", "model_id", req.ModelID, "error", err.Error())
		return registry.RunHandle{}, err
	}

	handle := registry.RunHandle{
		ID:                resp.TestID,
		Request:           *req,
		SubmittedAt:       time.Now().UTC(),
		EstimatedDuration: resp.EstimatedDuration,
		Status:            api.StatePending,
	}
	if err := o.reg.Register(handle); err != nil {
		return registry.RunHandle{}, err
	}
	metrics.RunsSubmitted.Inc()
	o.logger.Info("Run submitted", "run_id", handle.ID, "model_id", req.ModelID, "test_types", req.TestTypes)

	trackCtx, cancel := context.WithCancel(o.baseCtx)
	if err := o.reg.BindPoll(handle.ID, cancel); err != nil {
		cancel()
		return registry.RunHandle{}, err
	}
	o.wg.Add(1)
	go o.track(trackCtx, handle.ID)

	return handle, nil
}

// CancelRun stops tracking id and asks the Job Service to cancel it.
// Idempotent: cancelling a run that already reached a terminal state is a
// no-op, not an error.
func (o *Orchestrator) CancelRun(ctx context.Context, id string) error {
	handle, ok := o.reg.Get(id)
	if !ok {
		return &registry.NotFoundError{RunID: id}
	}
	if !handle.Active() {
		return nil
	}

	if err := o.svc.Cancel(ctx, id); err != nil {
		// the service not knowing the run anymore means there is nothing
		// left to cancel
		if !serviceNotFound(err) {
			return err
		}
	}

	o.reg.CancelPoll(id)
	o.finalize(id, api.StateCancelled, "")
	o.logger.Info("Run cancelled", "run_id", id)
	return nil
}

// DeleteRun removes a run's results from the Job Service and drops its
// handle from the registry, cancelling first if the run is still active.
func (o *Orchestrator) DeleteRun(ctx context.Context, id string) error {
	if handle, ok := o.reg.Get(id); ok && handle.Active() {
		if err := o.CancelRun(ctx, id); err != nil {
			return err
		}
	}
	if err := o.svc.DeleteResults(ctx, id); err != nil && !serviceNotFound(err) {
		return err
	}
	if err := o.reg.Remove(id); err != nil && !registry.IsNotFound(err) {
		return err
	}
	o.logger.Info("Run deleted", "run_id", id)
	return nil
}

// RefreshHistory fetches the run history from the Job Service and reconciles
// terminal outcomes into the registry. Reconciliation only moves handles
// forward; it never creates entries, demotes a terminal handle or resurrects
// a removed run.
func (o *Orchestrator) RefreshHistory(ctx context.Context, limit int) (*api.HistoryResponse, error) {
	if limit <= 0 {
		limit = o.opts.HistoryLimit
	}
	history, err := o.svc.History(ctx, limit)
	if err != nil {
		return nil, err
	}

	for i := range history.Tests {
		record := &history.Tests[i]
		if !record.Status.Terminal() {
			continue
		}
		err := o.reg.Update(record.TestID, func(h *registry.RunHandle) error {
			if !h.Active() {
				return nil
			}
			if err := h.SetStatus(record.Status); err != nil {
				return err
			}
			h.Result = record
			if record.Error != "" {
				h.LastError = record.Error
			}
			h.TrackingLost = false
			return nil
		})
		if err != nil && !registry.IsNotFound(err) {
			o.logger.Warn("History reconciliation skipped a run", "run_id", record.TestID, "error", err.Error())
		}
	}
	return history, nil
}

// ActiveRun returns the currently tracked run, if any.
func (o *Orchestrator) ActiveRun() (registry.RunHandle, bool) {
	active := o.reg.ListActive()
	if len(active) == 0 {
		return registry.RunHandle{}, false
	}
	return active[0], true
}

// Run returns the handle for id.
func (o *Orchestrator) Run(id string) (registry.RunHandle, bool) {
	return o.reg.Get(id)
}

// Runs returns all known handles, newest first.
func (o *Orchestrator) Runs() []registry.RunHandle {
	return o.reg.ListAll()
}

// AvailableTests returns the diagnostic test catalogue, fetching it from the
// Job Service on first use.
func (o *Orchestrator) AvailableTests(ctx context.Context) (map[string]api.TestTypeInfo, error) {
	o.catalogueMu.Lock()
	defer o.catalogueMu.Unlock()
	if o.catalogue != nil {
		return o.catalogue, nil
	}
	resp, err := o.svc.AvailableTests(ctx)
	if err != nil {
		return nil, err
	}
	o.catalogue = resp.Tests
	return o.catalogue, nil
}

// Shutdown cancels all tracking loops and waits for them to drain, or until
// ctx expires.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.stop()
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// validateRequest fails fast on a request that should never reach the Job
// Service. Shape checks are local; the test-type check consults the cached
// catalogue and falls back to the built-in list when the catalogue endpoint
// is unavailable.
func (o *Orchestrator) validateRequest(ctx context.Context, req *api.RunRequest) error {
	if req == nil {
		metrics.RunsRejected.WithLabelValues("invalid_request").Inc()
		return &InvalidRequestError{Reason: "run request is nil"}
	}
	if o.validate != nil {
		if err := o.validate.StructCtx(ctx, req); err != nil {
			metrics.RunsRejected.WithLabelValues("invalid_request").Inc()
			return &InvalidRequestError{Reason: err.Error()}
		}
	}
	if req.ModelID == "" {
		metrics.RunsRejected.WithLabelValues("invalid_request").Inc()
		return &InvalidRequestError{Reason: "a model reference is required"}
	}
	if len(req.TestTypes) == 0 {
		metrics.RunsRejected.WithLabelValues("invalid_request").Inc()
		return &InvalidRequestError{Reason: "at least one test type must be selected"}
	}

	known := o.knownTestTypes(ctx)
	for _, testType := range req.TestTypes {
		if !slices.Contains(known, testType) {
			metrics.RunsRejected.WithLabelValues("invalid_request").Inc()
			return &InvalidRequestError{Reason: fmt.Sprintf("unknown test type: %s", testType)}
		}
	}
	return nil
}

func (o *Orchestrator) knownTestTypes(ctx context.Context) []string {
	catalogue, err := o.AvailableTests(ctx)
	if err != nil {
		o.logger.Warn("Test catalogue unavailable, using built-in test types", "error", err.Error())
		return api.DefaultTestTypes
	}
	known := make([]string, 0, len(catalogue))
	for testType := range catalogue {
		known = append(known, testType)
	}
	return known
}

func (o *Orchestrator) checkModelLoaded(ctx context.Context, modelID string) error {
	loaded, err := o.svc.LoadedModels(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(loaded, modelID) {
		metrics.RunsRejected.WithLabelValues("model_not_loaded").Inc()
		return &InvalidRequestError{Reason: fmt.Sprintf("model %s is not loaded", modelID)}
	}
	return nil
}

// track is the polling loop for one run. Exactly one loop runs per run id;
// BindPoll cancels any predecessor before this one starts.
func (o *Orchestrator) track(ctx context.Context, id string) {
	defer o.wg.Done()
	defer o.reg.CancelPoll(id)

	probe := func(ctx context.Context) (*api.RunStatusInfo, error) {
		metrics.PollAttempts.Inc()
		info, err := o.svc.Status(ctx, id)
		if err != nil {
			return nil, err
		}
		// fold every observation into the registry; the handle's monotone
		// guard discards stale or post-cancellation payloads
		_ = o.reg.Update(id, func(h *registry.RunHandle) error {
			h.ApplyStatusInfo(info)
			return nil
		})
		return info, nil
	}
	isDone := func(info *api.RunStatusInfo) bool {
		return info.Status.Terminal()
	}

	final, err := polling.Poll(ctx, probe, isDone, polling.Options{
		Interval:      o.opts.PollInterval,
		MaxAttempts:   o.opts.PollMaxAttempts,
		FailureBudget: o.opts.PollFailureBudget,
	})

	switch {
	case err == nil:
		o.concludeRun(id, final.Status)
	case polling.IsCancelled(err):
		// either cancelRun already finalized the handle or the process is
		// shutting down; make sure the handle does not stay active forever
		o.finalize(id, api.StateCancelled, "")
	case polling.IsTimeout(err):
		metrics.PollTimeouts.Inc()
		o.logger.Warn("Run tracking timed out, true status unknown", "run_id", id)
		_ = o.reg.Update(id, func(h *registry.RunHandle) error {
			h.TrackingLost = true
			h.LastError = err.Error()
			return nil
		})
	default:
		o.logger.Error("Run tracking aborted", "run_id", id, "error", err.Error())
		o.finalize(id, api.StateFailed, err.Error())
	}
}

// concludeRun applies a service-reported terminal state and attaches the
// result payload.
func (o *Orchestrator) concludeRun(id string, state api.State) {
	result, err := o.svc.Results(o.baseCtx, id)
	if err != nil {
		o.logger.Error("Result fetch failed", "run_id", id, "error", err.Error())
		o.finalize(id, state, fmt.Sprintf("result fetch failed: %s", err.Error()))
		return
	}

	applied := false
	_ = o.reg.Update(id, func(h *registry.RunHandle) error {
		if err := h.SetStatus(state); err != nil {
			return err
		}
		applied = true
		h.Result = result
		h.Progress = 1.0
		if result.Error != "" {
			h.LastError = result.Error
		}
		return nil
	})
	if applied {
		metrics.RunsFinished.WithLabelValues(state.String()).Inc()
		o.logger.Info("Run finished", "run_id", id, "status", state.String())
	}
}

// finalize moves a handle to a terminal state if it has not reached one yet.
func (o *Orchestrator) finalize(id string, state api.State, message string) {
	applied := false
	_ = o.reg.Update(id, func(h *registry.RunHandle) error {
		if !h.Active() {
			return nil
		}
		if err := h.SetStatus(state); err != nil {
			return err
		}
		applied = true
		if message != "" {
			h.LastError = message
		}
		return nil
	})
	if applied {
		metrics.RunsFinished.WithLabelValues(state.String()).Inc()
	}
}

func serviceNotFound(err error) bool {
	return jobservice.IsNotFound(err)
}
