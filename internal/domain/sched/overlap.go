package sched

import (
	"time"

	"github.com/google/uuid"

	"github.com/planloop/planloop-api/internal/domain"
)

// Interval is a half-open time range [Start, End). An interval that merely
// touches another at an endpoint does not overlap it.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds the occupancy interval starting at start and lasting
// the given number of minutes.
func NewInterval(start time.Time, minutes int) Interval {
	return Interval{
		Start: start,
		End:   start.Add(time.Duration(minutes) * time.Minute),
	}
}

// Overlaps reports whether the two half-open intervals intersect.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

// Conflicts returns the subset of existing tasks whose occupancy window
// intersects the candidate interval. Only incomplete tasks with a start
// instant participate; tasks anchored only by a deadline, or unanchored,
// have no duration window and never conflict. A task whose ID equals
// excludeID is skipped, so an edited task does not conflict with itself.
//
// The result preserves the input order, keeping the output deterministic
// for a given task list.
func Conflicts(candidate Interval, tasks []domain.Task, excludeID uuid.UUID) []domain.Task {
	var conflicting []domain.Task

	for _, t := range tasks {
		if t.ID == excludeID {
			continue
		}
		if t.IsCompleted || t.StartAt == nil {
			continue
		}

		window := NewInterval(*t.StartAt, t.EstimatedMinutes)
		if candidate.Overlaps(window) {
			conflicting = append(conflicting, t)
		}
	}

	return conflicting
}
