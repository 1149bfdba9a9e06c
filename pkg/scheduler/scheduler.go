// Package scheduler owns one timer per actively scheduled workflow and
// enqueues a scheduled execution each time a timer fires.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/persistence"
)

// Enqueuer starts a scheduled execution; the engine implements it.
type Enqueuer interface {
	EnqueueScheduled(ctx context.Context, workflowID string) (*models.WorkflowExecution, error)
}

// Scheduler maps workflow ids to one-shot timers. Arm and Disarm are safe
// for concurrent use; a fire re-arms for the following occurrence.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer

	workflows persistence.WorkflowRepository
	enqueuer  Enqueuer
	logger    *slog.Logger
}

func NewScheduler(workflows persistence.WorkflowRepository, enqueuer Enqueuer, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		timers:    make(map[string]*time.Timer),
		workflows: workflows,
		enqueuer:  enqueuer,
		logger:    logger.With("module", "scheduler"),
	}
}

// Arm computes the workflow's next fire time, persists it, and sets a
// one-shot timer. An existing timer for the workflow is replaced. A schedule
// that fails to parse leaves the previous timer untouched. A disabled or
// absent schedule disarms.
func (s *Scheduler) Arm(ctx context.Context, wf *models.Workflow) error {
	if wf.Schedule == nil || !wf.Schedule.Enabled {
		s.Disarm(wf.ID)

		return nil
	}

	return s.armFrom(ctx, wf, time.Now().UTC())
}

func (s *Scheduler) armFrom(ctx context.Context, wf *models.Workflow, from time.Time) error {
	next, err := wf.Schedule.NextFireTime(from)
	if err != nil {
		// Prior timer state stays as it was: no partial re-arm.
		return err
	}

	wf.Schedule.NextFireAt = &next

	err = s.workflows.Save(ctx, wf)
	if err != nil {
		return err
	}

	workflowID := wf.ID

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[workflowID]; ok {
		existing.Stop()
	}

	s.timers[workflowID] = time.AfterFunc(time.Until(next), func() {
		s.fire(workflowID)
	})

	s.logger.Info("Schedule armed", "workflow_id", workflowID, "next_fire_at", next)

	return nil
}

// Disarm cancels and removes the workflow's timer. Idempotent: disarming a
// workflow without a timer is a no-op.
func (s *Scheduler) Disarm(workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[workflowID]; ok {
		timer.Stop()
		delete(s.timers, workflowID)
		s.logger.Info("Schedule disarmed", "workflow_id", workflowID)
	}
}

// Armed reports whether the workflow currently holds a timer.
func (s *Scheduler) Armed(workflowID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.timers[workflowID]

	return ok
}

// fire enqueues a scheduled execution and immediately re-arms for the next
// occurrence. The fresh definition is loaded so edits since arming apply.
func (s *Scheduler) fire(workflowID string) {
	ctx := context.Background()
	logger := s.logger.With("workflow_id", workflowID)

	s.mu.Lock()
	delete(s.timers, workflowID)
	s.mu.Unlock()

	wf, err := s.workflows.GetByID(ctx, workflowID)
	if err != nil {
		logger.Warn("Scheduled workflow no longer exists, dropping timer", "error", err)

		return
	}

	if !wf.IsActive() || wf.Schedule == nil || !wf.Schedule.Enabled {
		logger.Debug("Workflow no longer schedulable, dropping timer")

		return
	}

	firedAt := time.Now().UTC()

	_, err = s.enqueuer.EnqueueScheduled(ctx, workflowID)
	if err != nil {
		logger.Warn("Failed to enqueue scheduled execution", "error", err)
	}

	err = s.armFrom(ctx, wf, firedAt)
	if errors.Is(err, models.ErrScheduleExpired) {
		logger.Info("Schedule end date reached, not re-arming")

		return
	}

	if err != nil {
		logger.Error("Failed to re-arm schedule", "error", err)
	}
}

// Restore arms every active workflow with an enabled schedule. Called once
// on startup so persisted schedules survive a restart.
func (s *Scheduler) Restore(ctx context.Context) error {
	status := models.WorkflowStatusActive
	offset := 0

	for {
		page, err := s.workflows.List(ctx, persistence.ListWorkflowsOptions{
			Limit:  100,
			Offset: offset,
			Status: &status,
		})
		if err != nil {
			return err
		}

		for _, wf := range page.Workflows {
			if wf.Schedule == nil || !wf.Schedule.Enabled {
				continue
			}

			err := s.Arm(ctx, wf)
			if err != nil {
				s.logger.Warn("Failed to restore schedule", "workflow_id", wf.ID, "error", err)
			}
		}

		if !page.HasNextPage {
			return nil
		}

		offset += len(page.Workflows)
	}
}

// Stop cancels every timer. Used during shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
