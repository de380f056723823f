package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/planloop/planloop-api/internal/domain"
	"github.com/planloop/planloop-api/internal/events"
	"github.com/planloop/planloop-api/internal/platform/logger"
	"github.com/planloop/planloop-api/internal/store"
)

// newRouter builds the process's small HTTP surface: a health probe and the
// internal hook the task CRUD collaborator calls when a task completes.
func newRouter(app *application, emitter events.EventEmitter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", app.handleHealth)
	r.Post("/hooks/task-completed", app.handleTaskCompleted(emitter))

	r.Route("/subscriptions", func(r chi.Router) {
		r.Post("/", app.handleRegisterSubscription)
		r.Delete("/", app.handleUnsubscribe)
	})

	return r
}

// handleHealth reports process liveness and database reachability.
func (a *application) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.db.PingContext(r.Context()); err != nil {
		a.logger.Error("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unreachable"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleTaskCompleted receives a completed task from the CRUD collaborator
// and emits the completion event that drives recurrence spawning. The hook
// responds 202 even when spawning fails downstream: spawning errors are an
// internal concern, never surfaced to the collaborator's user.
func (a *application) handleTaskCompleted(emitter events.EventEmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var task domain.Task
		if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
			http.Error(w, "malformed task payload", http.StatusBadRequest)
			return
		}

		if err := task.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx := logger.WithLogger(r.Context(), a.logger.With("task_id", task.ID))
		if err := emitter.EmitEvent(ctx, events.NewTaskCompletedEvent(task)); err != nil {
			// Logged by the emitter; the collaborator is not the one to
			// retry or repair this.
			a.logger.Error("completion event processing failed",
				"task_id", task.ID,
				"error", err)
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

// subscriptionRequest is the registration payload a browser client submits
// after granting notification permission: the push service credentials plus
// the subscriber's two window times.
type subscriptionRequest struct {
	Endpoint    string           `json:"endpoint"`
	OwnerID     string           `json:"owner_id"`
	KeyP256dh   string           `json:"key_p256dh"`
	KeyAuth     string           `json:"key_auth"`
	MorningTime domain.ClockTime `json:"morning_time"`
	EveningTime domain.ClockTime `json:"evening_time"`
}

// handleRegisterSubscription registers a push delivery target. The endpoint
// is the subscription's identity; registering an endpoint that already
// exists is a conflict, not an update.
func (a *application) handleRegisterSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed subscription payload", http.StatusBadRequest)
		return
	}

	sub, err := domain.NewPushSubscription(
		req.Endpoint, req.OwnerID,
		req.KeyP256dh, req.KeyAuth,
		req.MorningTime, req.EveningTime,
	)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := a.subs.Create(r.Context(), sub); err != nil {
		if store.IsDuplicateError(err) {
			http.Error(w, "endpoint already registered", http.StatusConflict)
			return
		}
		a.logger.Error("failed to register subscription", "error", err)
		http.Error(w, "failed to register subscription", http.StatusInternalServerError)
		return
	}

	a.logger.Info("subscription registered",
		"owner_id", sub.OwnerID,
		"morning", sub.MorningTime,
		"evening", sub.EveningTime)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(sub)
}

// handleUnsubscribe removes the subscription named by the endpoint query
// parameter. Endpoints are URLs, so they travel as a query parameter rather
// than a path segment.
func (a *application) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	if endpoint == "" {
		http.Error(w, "endpoint query parameter is required", http.StatusBadRequest)
		return
	}

	if err := a.subs.Delete(r.Context(), endpoint); err != nil {
		if store.IsNotFoundError(err) {
			http.Error(w, "subscription not found", http.StatusNotFound)
			return
		}
		a.logger.Error("failed to remove subscription", "error", err)
		http.Error(w, "failed to remove subscription", http.StatusInternalServerError)
		return
	}

	a.logger.Info("subscription removed")
	w.WriteHeader(http.StatusNoContent)
}
