package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/planloop/planloop-api/internal/domain"
)

// TaskStore defines the task persistence operations the scheduling engine
// consumes. The engine never lists or mutates tasks beyond what recurrence
// spawning and conflict detection require; the surrounding CRUD surface is
// a separate collaborator.
type TaskStore interface {
	// Create persists a new task.
	// Returns ErrDuplicate (or a wrapped version) if a task with the same
	// ID already exists, or validation errors from the domain Task.
	Create(ctx context.Context, task *domain.Task) error

	// CreateIfAbsent persists a new task unless another task for the same
	// owner with the same title and anchor instant already exists. It
	// reports whether the task was actually inserted. The check-and-insert
	// is atomic at the storage layer (unique index with insert-or-ignore
	// semantics), so concurrent duplicate spawns leave exactly one row.
	CreateIfAbsent(ctx context.Context, task *domain.Task) (bool, error)

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListOpenWithStart retrieves the owner's incomplete tasks that have a
	// start instant set, in ascending start order. These are the conflict
	// candidates for overlap detection.
	ListOpenWithStart(ctx context.Context, ownerID string) ([]domain.Task, error)

	// Delete removes a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
