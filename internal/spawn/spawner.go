// Package spawn creates the successor instance of a recurring task when the
// current instance is completed. It is driven by task completion events,
// not by the clock.
package spawn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/planloop/planloop-api/internal/domain"
	"github.com/planloop/planloop-api/internal/domain/sched"
	"github.com/planloop/planloop-api/internal/store"
)

// Spawner produces the next instance of a recurring task. Creation goes
// through the store's conditional insert, so a double-fired completion
// handler (or two near-simultaneous completions of the same task) leaves
// exactly one successor.
type Spawner struct {
	tasks  store.TaskStore
	logger *slog.Logger
}

// NewSpawner creates a Spawner backed by the given task store.
func NewSpawner(tasks store.TaskStore, logger *slog.Logger) *Spawner {
	return &Spawner{
		tasks:  tasks,
		logger: logger.With("component", "recurrence_spawner"),
	}
}

// HandleCompletion reacts to a task's completion transition. For a
// recurring, time-anchored task it computes the next occurrence from the
// anchor instant and inserts a successor carrying the same owner, title,
// recurrence and estimate, anchored the same way the original was. For
// everything else it is a no-op.
//
// The returned task is the created successor, or nil when nothing was
// spawned (non-recurring, unanchored, or duplicate suppressed).
func (s *Spawner) HandleCompletion(ctx context.Context, task domain.Task) (*domain.Task, error) {
	log := s.logger.With("task_id", task.ID, "owner_id", task.OwnerID)

	if !task.IsCompleted {
		// Only the false -> true transition spawns; un-completing is not
		// this engine's concern.
		return nil, nil
	}

	if !task.Recurrence.Repeats() {
		return nil, nil
	}

	anchor := task.AnchorAt()
	if anchor == nil {
		log.Debug("recurring task has no anchor instant, nothing to spawn")
		return nil, nil
	}

	next, err := sched.NextOccurrence(*anchor, task.Recurrence)
	if err != nil {
		return nil, fmt.Errorf("failed to compute next occurrence: %w", err)
	}

	successor, err := buildSuccessor(task, next)
	if err != nil {
		return nil, fmt.Errorf("failed to build successor task: %w", err)
	}

	s.warnOnConflict(ctx, log, successor)

	inserted, err := s.tasks.CreateIfAbsent(ctx, successor)
	if err != nil {
		log.Error("failed to persist successor task",
			"successor_id", successor.ID,
			"error", err)
		return nil, fmt.Errorf("failed to persist successor task: %w", err)
	}

	if !inserted {
		log.Info("successor already exists, duplicate spawn suppressed",
			"title", task.Title,
			"next_at", next)
		return nil, nil
	}

	log.Info("spawned successor task",
		"successor_id", successor.ID,
		"recurrence", task.Recurrence,
		"next_at", next)

	return successor, nil
}

// warnOnConflict checks the successor's time slot against the owner's open
// scheduled tasks and logs any overlaps. Conflicts are advisory and never
// block the spawn; the owner resolves them from the task list.
func (s *Spawner) warnOnConflict(ctx context.Context, log *slog.Logger, successor *domain.Task) {
	if successor.StartAt == nil {
		return
	}

	candidate := sched.NewInterval(*successor.StartAt, successor.EstimatedMinutes)

	open, err := s.tasks.ListOpenWithStart(ctx, successor.OwnerID)
	if err != nil {
		log.Warn("failed to list open tasks for conflict check", "error", err)
		return
	}

	for _, conflict := range sched.Conflicts(candidate, open, successor.ID) {
		log.Warn("successor overlaps an existing scheduled task",
			"successor_id", successor.ID,
			"conflicting_task_id", conflict.ID,
			"conflicting_title", conflict.Title)
	}
}

// buildSuccessor constructs the next task instance. The successor keeps the
// original's anchoring style: a start-anchored task yields a start-anchored
// successor, a due-anchored task a due-anchored one.
func buildSuccessor(task domain.Task, next time.Time) (*domain.Task, error) {
	var startAt, dueAt *time.Time
	if task.StartAt != nil {
		startAt = &next
	} else {
		dueAt = &next
	}

	return domain.NewTask(
		task.OwnerID,
		task.Title,
		startAt,
		dueAt,
		task.EstimatedMinutes,
		task.Recurrence,
	)
}
