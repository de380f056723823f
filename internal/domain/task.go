package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecurrenceKind describes how often a task repeats.
type RecurrenceKind string

// Possible recurrence kinds. RecurrenceNone marks a task that does not
// repeat; completing it never spawns a successor.
const (
	RecurrenceNone    RecurrenceKind = ""
	RecurrenceDaily   RecurrenceKind = "daily"
	RecurrenceWeekly  RecurrenceKind = "weekly"
	RecurrenceMonthly RecurrenceKind = "monthly"
)

// IsValid reports whether k is one of the supported recurrence kinds.
func (k RecurrenceKind) IsValid() bool {
	switch k {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	default:
		return false
	}
}

// Repeats reports whether a task with this kind spawns successors on
// completion.
func (k RecurrenceKind) Repeats() bool {
	return k.IsValid() && k != RecurrenceNone
}

// Task-specific validation errors. All wrap ErrValidation.
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = fmt.Errorf("%w: task ID cannot be empty", ErrValidation)

	// ErrTaskOwnerEmpty is returned when a task's owner ID is empty.
	ErrTaskOwnerEmpty = fmt.Errorf("%w: task owner ID cannot be empty", ErrValidation)

	// ErrTaskTitleEmpty is returned when a task's title is empty.
	ErrTaskTitleEmpty = fmt.Errorf("%w: task title cannot be empty", ErrValidation)

	// ErrTaskEstimateNegative is returned when a task's estimated duration
	// is negative.
	ErrTaskEstimateNegative = fmt.Errorf("%w: task estimated minutes cannot be negative", ErrValidation)

	// ErrTaskDoubleAnchor is returned when a task carries both a start
	// instant and a due instant.
	ErrTaskDoubleAnchor = fmt.Errorf("%w: task cannot have both start_at and due_at", ErrValidation)
)

// Task represents a repeatable unit of work owned by a single user.
// A task is anchored in time by at most one of StartAt (a fixed start
// instant) or DueAt (a fixed deadline instant); it may also be unanchored.
type Task struct {
	ID               uuid.UUID      `json:"id"`
	OwnerID          string         `json:"owner_id"`
	Title            string         `json:"title"`
	StartAt          *time.Time     `json:"start_at,omitempty"`
	DueAt            *time.Time     `json:"due_at,omitempty"`
	EstimatedMinutes int            `json:"estimated_minutes"`
	Recurrence       RecurrenceKind `json:"recurrence_kind"`
	IsCompleted      bool           `json:"is_completed"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// NewTask creates a new Task with the given owner, title and scheduling
// attributes. It generates a new UUID for the task ID and sets the
// creation/update timestamps. Returns an error if validation fails.
func NewTask(
	ownerID, title string,
	startAt, dueAt *time.Time,
	estimatedMinutes int,
	recurrence RecurrenceKind,
) (*Task, error) {
	now := time.Now().UTC()
	t := &Task{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		Title:            title,
		StartAt:          startAt,
		DueAt:            dueAt,
		EstimatedMinutes: estimatedMinutes,
		Recurrence:       recurrence,
		IsCompleted:      false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate checks if the Task has valid data.
// Returns a specific validation error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.OwnerID == "" {
		return ErrTaskOwnerEmpty
	}

	if t.Title == "" {
		return ErrTaskTitleEmpty
	}

	if t.EstimatedMinutes < 0 {
		return ErrTaskEstimateNegative
	}

	if t.StartAt != nil && t.DueAt != nil {
		return ErrTaskDoubleAnchor
	}

	if !t.Recurrence.IsValid() {
		return ErrInvalidRecurrence
	}

	return nil
}

// AnchorAt returns the task's anchor instant: StartAt if present, else
// DueAt, else nil. The anchor is the basis for recurrence calculations.
func (t *Task) AnchorAt() *time.Time {
	if t.StartAt != nil {
		return t.StartAt
	}
	return t.DueAt
}

// EndAt returns the implied end instant of the task's occupancy window
// (StartAt + EstimatedMinutes). It returns nil for tasks without a start
// instant; such tasks have no defined duration window.
func (t *Task) EndAt() *time.Time {
	if t.StartAt == nil {
		return nil
	}
	end := t.StartAt.Add(time.Duration(t.EstimatedMinutes) * time.Minute)
	return &end
}
