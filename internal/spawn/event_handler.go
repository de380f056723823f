package spawn

import (
	"context"
	"log/slog"

	"github.com/planloop/planloop-api/internal/events"
)

// CompletionEventHandler adapts task completion events to the spawner.
// It is the subscription point the CRUD collaborator's event emitter
// delivers to.
type CompletionEventHandler struct {
	spawner *Spawner
	logger  *slog.Logger
}

// NewCompletionEventHandler creates an event handler that forwards
// completion events to the given spawner.
func NewCompletionEventHandler(spawner *Spawner, logger *slog.Logger) *CompletionEventHandler {
	return &CompletionEventHandler{
		spawner: spawner,
		logger:  logger.With("component", "completion_event_handler"),
	}
}

// Ensure CompletionEventHandler implements events.EventHandler
var _ events.EventHandler = (*CompletionEventHandler)(nil)

// HandleEvent processes a completion event by invoking the spawner
// synchronously.
func (h *CompletionEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskCompletedEvent,
) error {
	h.logger.Debug("handling task completion event",
		"event_id", event.ID,
		"task_id", event.Task.ID)

	if _, err := h.spawner.HandleCompletion(ctx, event.Task); err != nil {
		h.logger.Error("failed to handle completion",
			"event_id", event.ID,
			"task_id", event.Task.ID,
			"error", err)
		return err
	}

	return nil
}
