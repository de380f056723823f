package spawn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planloop/planloop-api/internal/domain"
	"github.com/planloop/planloop-api/internal/events"
)

func TestCompletionEventHandlerForwardsToSpawner(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	task := completedTask(t, domain.RecurrenceDaily, &start, nil)

	tasks := &fakeTaskStore{}
	handler := NewCompletionEventHandler(NewSpawner(tasks, testLogger()), testLogger())

	err := handler.HandleEvent(context.Background(), events.NewTaskCompletedEvent(task))
	require.NoError(t, err)
	assert.Equal(t, 1, tasks.count())
}

func TestCompletionEventHandlerThroughEmitter(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	task := completedTask(t, domain.RecurrenceDaily, &start, nil)

	tasks := &fakeTaskStore{}
	emitter := events.NewInMemoryEventEmitter(testLogger())
	emitter.RegisterHandler(NewCompletionEventHandler(NewSpawner(tasks, testLogger()), testLogger()))

	// Double emission simulates a double-fired completion hook: the
	// conditional insert keeps a single successor.
	require.NoError(t, emitter.EmitEvent(context.Background(), events.NewTaskCompletedEvent(task)))
	require.NoError(t, emitter.EmitEvent(context.Background(), events.NewTaskCompletedEvent(task)))

	assert.Equal(t, 1, tasks.count())
}
