// Package engine coordinates workflow lifecycle, the shared execution queue,
// and the poll loop that promotes pending executions to running.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/innospot/autoflow/pkg/analytics"
	"github.com/innospot/autoflow/pkg/eventbus"
	"github.com/innospot/autoflow/pkg/events"
	"github.com/innospot/autoflow/pkg/graph"
	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/persistence"
	"github.com/innospot/autoflow/pkg/scheduler"
	"github.com/innospot/autoflow/pkg/workflow"
)

// DefaultPollInterval is the cadence of the pending -> running promotion
// loop.
const DefaultPollInterval = 5 * time.Second

// Config tunes engine behavior. The zero value uses defaults.
type Config struct {
	PollInterval time.Duration
}

// queuedExecution is one entry of the shared execution queue. cancel is set
// when the execution is promoted to its own goroutine.
type queuedExecution struct {
	execution *models.WorkflowExecution
	promoted  bool
	cancel    context.CancelFunc
}

// Engine is the single coordinating instance of the process. The poll loop
// is the only driver of pending -> running transitions; each promoted
// execution runs on its own goroutine so Delay nodes never block the loop.
type Engine struct {
	store      persistence.Persistence
	runner     *workflow.Runner
	scheduler  *scheduler.Scheduler
	aggregator *analytics.Aggregator
	publisher  eventbus.EventPublisher
	validator  *validator.Validate
	logger     *slog.Logger

	pollInterval time.Duration

	mu    sync.Mutex
	queue map[string]*queuedExecution

	baseCtx context.Context
	wg      sync.WaitGroup
}

func NewEngine(store persistence.Persistence, runner *workflow.Runner, publisher eventbus.EventPublisher, logger *slog.Logger, cfg Config) *Engine {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	e := &Engine{
		store:        store,
		runner:       runner,
		aggregator:   analytics.NewAggregator(store.ExecutionRepository(), logger),
		publisher:    publisher,
		validator:    validator.New(),
		logger:       logger.With("module", "engine"),
		pollInterval: pollInterval,
		queue:        make(map[string]*queuedExecution),
	}

	e.scheduler = scheduler.NewScheduler(store.WorkflowRepository(), e, logger)

	return e
}

// Scheduler exposes the engine's scheduler for observation in tests and the
// API's health surface.
func (e *Engine) Scheduler() *scheduler.Scheduler {
	return e.scheduler
}

// Start restores persisted schedules and launches the poll loop. It returns
// immediately; ctx cancellation stops the loop.
func (e *Engine) Start(ctx context.Context) error {
	e.baseCtx = ctx

	err := e.scheduler.Restore(ctx)
	if err != nil {
		e.logger.Warn("Failed to restore schedules", "error", err)
	}

	e.wg.Add(1)

	go e.pollLoop(ctx)

	e.logger.Info("Engine started", "poll_interval", e.pollInterval)

	return nil
}

// Stop disarms all schedules and waits for in-flight executions, up to the
// context deadline.
func (e *Engine) Stop(ctx context.Context) error {
	e.scheduler.Stop()

	e.mu.Lock()
	for _, entry := range e.queue {
		if entry.cancel != nil {
			entry.cancel()
		}
	}
	e.mu.Unlock()

	done := make(chan struct{})

	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("engine shutdown timed out: %w", ctx.Err())
	}
}

func (e *Engine) pollLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.pollOnce()
		}
	}
}

// pollOnce promotes every pending queue entry onto its own goroutine.
func (e *Engine) pollOnce() {
	e.mu.Lock()

	var promoted []*queuedExecution

	for _, entry := range e.queue {
		if entry.promoted {
			continue
		}

		runCtx, cancel := context.WithCancel(e.baseCtx)
		entry.promoted = true
		entry.cancel = cancel

		promoted = append(promoted, entry)

		e.wg.Add(1)

		go e.runExecution(runCtx, entry)
	}

	e.mu.Unlock()

	if len(promoted) > 0 {
		e.logger.Debug("Promoted pending executions", "count", len(promoted))
	}
}

func (e *Engine) runExecution(ctx context.Context, entry *queuedExecution) {
	defer e.wg.Done()

	execution := entry.execution

	defer func() {
		e.mu.Lock()
		delete(e.queue, execution.ID)
		e.mu.Unlock()

		if entry.cancel != nil {
			entry.cancel()
		}
	}()

	wf, err := e.store.WorkflowRepository().GetByID(ctx, execution.WorkflowID)
	if err != nil {
		execution.ErrorMessage = err.Error()
		execution.Finalize(models.ExecutionStatusFailed)

		if saveErr := e.store.ExecutionRepository().Save(context.WithoutCancel(ctx), execution); saveErr != nil {
			e.logger.Error("Failed to persist orphaned execution", "execution_id", execution.ID, "error", saveErr)
		}

		return
	}

	if wf.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, time.Duration(wf.Timeout)*time.Second)
		defer cancel()
	}

	_ = e.runner.Run(ctx, wf, execution)

	e.recordOutcome(context.WithoutCancel(ctx), wf, execution)
}

// recordOutcome folds a finished execution into the definition's cumulative
// counters.
func (e *Engine) recordOutcome(ctx context.Context, wf *models.Workflow, execution *models.WorkflowExecution) {
	wf.ExecutionCount++
	wf.LastExecutedAt = &execution.StartedAt

	switch execution.Status {
	case models.ExecutionStatusCompleted:
		wf.SuccessCount++
	case models.ExecutionStatusFailed:
		wf.FailureCount++
	}

	err := e.store.WorkflowRepository().Save(ctx, wf)
	if err != nil {
		e.logger.Error("Failed to update workflow counters",
			"workflow_id", wf.ID, "error", err)
	}
}

// CreateWorkflow assigns identity and zeroed counters, persists the
// definition, and arms its schedule when enabled.
func (e *Engine) CreateWorkflow(ctx context.Context, wf *models.Workflow) (*models.Workflow, error) {
	if wf.ID == "" {
		wf.ID = uuid.New().String()
	}

	if wf.Status == "" {
		wf.Status = models.WorkflowStatusDraft
	}

	now := time.Now().UTC()
	wf.Version = 1
	wf.CreatedAt = now
	wf.UpdatedAt = now
	wf.ExecutionCount = 0
	wf.SuccessCount = 0
	wf.FailureCount = 0
	wf.LastExecutedAt = nil

	err := e.validateWorkflow(wf)
	if err != nil {
		return nil, err
	}

	err = e.store.WorkflowRepository().Save(ctx, wf)
	if err != nil {
		return nil, err
	}

	if wf.IsActive() && wf.Schedule != nil && wf.Schedule.Enabled {
		err = e.scheduler.Arm(ctx, wf)
		if err != nil {
			return nil, err
		}
	}

	e.logger.Info("Workflow created", "workflow_id", wf.ID, "name", wf.Name)

	return wf, nil
}

// UpdateWorkflowRequest is a partial update; nil fields keep their current
// value.
type UpdateWorkflowRequest struct {
	Name                 *string                  `json:"name,omitempty"`
	Description          *string                  `json:"description,omitempty"`
	Status               *models.WorkflowStatus   `json:"status,omitempty"`
	Priority             *models.WorkflowPriority `json:"priority,omitempty"`
	Tags                 *[]string                `json:"tags,omitempty"`
	Nodes                *[]*models.WorkflowNode  `json:"nodes,omitempty"`
	Connections          *[]*models.Connection    `json:"connections,omitempty"`
	Variables            *[]*models.Variable      `json:"variables,omitempty"`
	MaxRetries           *int                     `json:"max_retries,omitempty"`
	RetryDelay           *int                     `json:"retry_delay,omitempty"`
	Timeout              *int                     `json:"timeout,omitempty"`
	ConcurrentExecutions *int                     `json:"concurrent_executions,omitempty"`
	Schedule             *models.Schedule         `json:"schedule,omitempty"`
}

// UpdateWorkflow merges non-nil fields into the stored definition, bumps the
// version, and re-arms or disarms the schedule when scheduling-relevant
// fields changed.
func (e *Engine) UpdateWorkflow(ctx context.Context, id string, req UpdateWorkflowRequest) (*models.Workflow, error) {
	wf, err := e.store.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	scheduleChanged := req.Schedule != nil
	statusChanged := req.Status != nil && *req.Status != wf.Status

	if req.Name != nil {
		wf.Name = *req.Name
	}

	if req.Description != nil {
		wf.Description = *req.Description
	}

	if req.Status != nil {
		wf.Status = *req.Status
	}

	if req.Priority != nil {
		wf.Priority = *req.Priority
	}

	if req.Tags != nil {
		wf.Tags = *req.Tags
	}

	if req.Nodes != nil {
		wf.Nodes = *req.Nodes
	}

	if req.Connections != nil {
		wf.Connections = *req.Connections
	}

	if req.Variables != nil {
		wf.Variables = *req.Variables
	}

	if req.MaxRetries != nil {
		wf.MaxRetries = *req.MaxRetries
	}

	if req.RetryDelay != nil {
		wf.RetryDelay = *req.RetryDelay
	}

	if req.Timeout != nil {
		wf.Timeout = *req.Timeout
	}

	if req.ConcurrentExecutions != nil {
		wf.ConcurrentExecutions = *req.ConcurrentExecutions
	}

	if req.Schedule != nil {
		wf.Schedule = req.Schedule
	}

	wf.Version++
	wf.UpdatedAt = time.Now().UTC()

	err = e.validateWorkflow(wf)
	if err != nil {
		return nil, err
	}

	err = e.store.WorkflowRepository().Save(ctx, wf)
	if err != nil {
		return nil, err
	}

	if scheduleChanged || statusChanged {
		if wf.IsActive() && wf.Schedule != nil && wf.Schedule.Enabled {
			err = e.scheduler.Arm(ctx, wf)
			if err != nil {
				return nil, err
			}
		} else {
			e.scheduler.Disarm(wf.ID)
		}
	}

	e.logger.Info("Workflow updated", "workflow_id", wf.ID, "version", wf.Version)

	return wf, nil
}

// DeleteWorkflow disarms the schedule first, then archives the workflow when
// it has execution history and hard-deletes it otherwise.
func (e *Engine) DeleteWorkflow(ctx context.Context, id string) error {
	wf, err := e.store.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return err
	}

	// Disarm before any state change so a stale timer can never fire
	// against the removed workflow.
	e.scheduler.Disarm(id)

	count, err := e.store.ExecutionRepository().CountExecutions(ctx, id)
	if err != nil {
		return err
	}

	if count > 0 {
		wf.Status = models.WorkflowStatusArchived
		wf.UpdatedAt = time.Now().UTC()

		err = e.store.WorkflowRepository().Save(ctx, wf)
		if err != nil {
			return err
		}

		e.logger.Info("Workflow archived", "workflow_id", id, "executions", count)

		return nil
	}

	err = e.store.WorkflowRepository().Delete(ctx, id)
	if err != nil {
		return err
	}

	e.logger.Info("Workflow deleted", "workflow_id", id)

	return nil
}

// ExecuteWorkflow creates a pending execution, persists it, and enqueues it
// for the next poll tick. Fails when the workflow is missing, not active, or
// at its concurrency limit.
func (e *Engine) ExecuteWorkflow(ctx context.Context, workflowID string, inputData map[string]any, triggeredBy string, triggerType models.TriggerType) (*models.WorkflowExecution, error) {
	wf, err := e.store.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !wf.IsActive() {
		return nil, &NotActiveError{WorkflowID: workflowID, Status: string(wf.Status)}
	}

	if inputData == nil {
		inputData = map[string]any{}
	}

	execution := &models.WorkflowExecution{
		ID:          uuid.New().String(),
		WorkflowID:  workflowID,
		Status:      models.ExecutionStatusPending,
		TriggerType: triggerType,
		TriggeredBy: triggeredBy,
		StartedAt:   time.Now().UTC(),
		InputData:   inputData,
	}

	e.mu.Lock()

	if wf.ConcurrentExecutions > 0 {
		inFlight := 0

		for _, entry := range e.queue {
			if entry.execution.WorkflowID == workflowID {
				inFlight++
			}
		}

		if inFlight >= wf.ConcurrentExecutions {
			e.mu.Unlock()

			return nil, &ConcurrencyLimitError{WorkflowID: workflowID, Limit: wf.ConcurrentExecutions}
		}
	}

	e.queue[execution.ID] = &queuedExecution{execution: execution}
	e.mu.Unlock()

	err = e.store.ExecutionRepository().Save(ctx, execution)
	if err != nil {
		e.mu.Lock()
		delete(e.queue, execution.ID)
		e.mu.Unlock()

		return nil, err
	}

	if e.publisher != nil {
		event := events.WorkflowTriggered{
			BaseEvent:   events.NewBaseEvent(events.WorkflowTriggeredEvent, workflowID),
			TriggerType: triggerType,
			TriggeredBy: triggeredBy,
			TriggerData: inputData,
		}

		if pubErr := e.publisher.Publish(ctx, workflowID, event); pubErr != nil {
			e.logger.Warn("Failed to publish trigger event", "error", pubErr)
		}
	}

	e.logger.Info("Execution enqueued",
		"workflow_id", workflowID, "execution_id", execution.ID, "trigger_type", triggerType)

	return execution, nil
}

// EnqueueScheduled implements scheduler.Enqueuer.
func (e *Engine) EnqueueScheduled(ctx context.Context, workflowID string) (*models.WorkflowExecution, error) {
	return e.ExecuteWorkflow(ctx, workflowID, nil, "scheduler", models.TriggerScheduled)
}

// CancelExecution cancels a queued or running execution. Unknown ids and
// already-terminal executions are a no-op, never an error: cancellation
// races are expected.
func (e *Engine) CancelExecution(ctx context.Context, executionID string) error {
	e.mu.Lock()
	entry, ok := e.queue[executionID]

	if ok && entry.promoted {
		// The runner observes the cancelled context between node steps and
		// finalizes the record itself.
		e.mu.Unlock()
		entry.cancel()

		return nil
	}

	if ok {
		delete(e.queue, executionID)
		e.mu.Unlock()

		execution := entry.execution
		execution.Finalize(models.ExecutionStatusCancelled)
		execution.AppendLog(models.LogInfo, "Execution cancelled", "", nil)

		err := e.store.ExecutionRepository().Save(ctx, execution)
		if err != nil {
			return err
		}

		if e.publisher != nil {
			event := events.ExecutionCancelled{
				BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, execution.WorkflowID),
				ExecutionID: execution.ID,
				DurationMs:  execution.Duration,
			}

			if pubErr := e.publisher.Publish(ctx, execution.WorkflowID, event); pubErr != nil {
				e.logger.Warn("Failed to publish cancellation event", "error", pubErr)
			}
		}

		e.logger.Info("Pending execution cancelled", "execution_id", executionID)

		return nil
	}

	e.mu.Unlock()

	execution, err := e.store.ExecutionRepository().GetByID(ctx, executionID)
	if persistence.IsExecutionNotFound(err) {
		return nil
	}

	if err != nil {
		return err
	}

	if execution.Status.IsTerminal() {
		return nil
	}

	// Non-terminal but not queued: left over from a previous process.
	execution.Finalize(models.ExecutionStatusCancelled)
	execution.AppendLog(models.LogInfo, "Execution cancelled", "", nil)

	return e.store.ExecutionRepository().Save(ctx, execution)
}

// GetWorkflow returns one workflow by id.
func (e *Engine) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	return e.store.WorkflowRepository().GetByID(ctx, id)
}

// GetExecution returns one execution by id.
func (e *Engine) GetExecution(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	return e.store.ExecutionRepository().GetByID(ctx, id)
}

// ListWorkflows returns a filtered, paged projection over the store.
func (e *Engine) ListWorkflows(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	return e.store.WorkflowRepository().List(ctx, opts)
}

// ListExecutions returns one page of a workflow's executions, newest first.
func (e *Engine) ListExecutions(ctx context.Context, workflowID string, opts persistence.ListExecutionsOptions) (*persistence.ExecutionListResult, error) {
	_, err := e.store.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return e.store.ExecutionRepository().ListByWorkflow(ctx, workflowID, opts)
}

// Analytics computes the execution report for a workflow over [start, end].
func (e *Engine) Analytics(ctx context.Context, workflowID string, start, end time.Time) (*models.Analytics, error) {
	_, err := e.store.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return e.aggregator.Compute(ctx, workflowID, start, end)
}

// HealthCheck reports whether the durable store is reachable.
func (e *Engine) HealthCheck(ctx context.Context) error {
	return e.store.HealthCheck(ctx)
}

func (e *Engine) validateWorkflow(wf *models.Workflow) error {
	err := e.validator.Struct(wf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	err = graph.Validate(wf)
	if err != nil {
		return err
	}

	if wf.Schedule != nil && (wf.Schedule.CronExpression != "" || wf.Schedule.Interval != nil) {
		err = wf.Schedule.Validate()
		if err != nil {
			return err
		}
	}

	// A schedule that would arm must still have a fire time ahead of it;
	// catching this before the save keeps a rejected update from persisting.
	if wf.IsActive() && wf.Schedule != nil && wf.Schedule.Enabled {
		_, err = wf.Schedule.NextFireTime(time.Now().UTC())
		if err != nil {
			return err
		}
	}

	return nil
}
