// Package scheduler runs the periodic notification tick: it evaluates every
// subscriber's windows, fans dispatch out over a bounded worker pool,
// persists last-sent markers and prunes dead endpoints.
package scheduler

import (
	"github.com/planloop/planloop-api/internal/domain/sched"
	"github.com/planloop/planloop-api/internal/push"
)

// PayloadBuilder produces the fixed notification content for each window.
// Morning and evening carry distinct copy; both deep-link into the task
// list.
type PayloadBuilder struct {
	// IconPath is attached to every payload.
	IconPath string

	// TaskListURL is the deep-link target opened when the notification is
	// tapped.
	TaskListURL string
}

// Build returns the payload for the given window.
func (b PayloadBuilder) Build(window sched.Window) push.Payload {
	p := push.Payload{
		Icon: b.IconPath,
		Data: push.PayloadData{URL: b.TaskListURL},
	}

	switch window {
	case sched.WindowEvening:
		p.Title = "Evening check-in"
		p.Body = "Wrap up your day: see what's still on your list."
	default:
		p.Title = "Good morning!"
		p.Body = "Plan your day: your tasks for today are waiting."
	}

	return p
}
