// Package events provides types and interfaces for loose coupling between
// the task CRUD collaborator and the scheduling engine. The CRUD surface
// emits a completion event without knowing which handlers will process it;
// the recurrence spawner subscribes without depending on the CRUD layer.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/planloop/planloop-api/internal/domain"
)

// TaskCompletedEvent records a task's completion transition (false -> true).
// It carries the task snapshot as of completion; handlers must not assume
// the stored row still matches it by the time they run.
type TaskCompletedEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Task is the completed task as of the transition
	Task domain.Task `json:"task"`

	// OccurredAt is the timestamp when the completion was recorded
	OccurredAt time.Time `json:"occurred_at"`
}

// NewTaskCompletedEvent creates a completion event for the given task.
func NewTaskCompletedEvent(task domain.Task) *TaskCompletedEvent {
	return &TaskCompletedEvent{
		ID:         uuid.New(),
		Task:       task,
		OccurredAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle
// completion events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskCompletedEvent) error
}

// EventEmitter defines an interface for components that can emit completion
// events. This allows the CRUD surface to publish events without direct
// knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *TaskCompletedEvent) error
}
