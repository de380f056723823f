package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/planloop/planloop-api/internal/domain"
	"github.com/planloop/planloop-api/internal/domain/sched"
	"github.com/planloop/planloop-api/internal/push"
	"github.com/planloop/planloop-api/internal/store"
)

// RunnerConfig holds configuration for the notification runner.
type RunnerConfig struct {
	// WorkerCount bounds how many subscriptions are dispatched to
	// concurrently within one tick. If zero or negative, defaults to 1.
	WorkerCount int

	// Location is the fixed notification timezone in which subscriber
	// window times and last-sent dates are interpreted.
	Location *time.Location
}

// Runner evaluates every subscription on each tick and dispatches due
// window notifications. It holds no state between ticks: everything it
// needs is loaded from the subscription store on every run, so the process
// may be restarted between any two ticks without losing correctness.
type Runner struct {
	subs       store.SubscriptionStore
	dispatcher push.Dispatcher
	payloads   PayloadBuilder
	config     RunnerConfig
	logger     *slog.Logger
}

// NewRunner creates a notification runner. The dispatcher is an injected
// capability; the runner never constructs or configures transport state
// itself.
func NewRunner(
	subs store.SubscriptionStore,
	dispatcher push.Dispatcher,
	payloads PayloadBuilder,
	config RunnerConfig,
	logger *slog.Logger,
) *Runner {
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}
	if config.Location == nil {
		config.Location = time.UTC
	}

	return &Runner{
		subs:       subs,
		dispatcher: dispatcher,
		payloads:   payloads,
		config:     config,
		logger:     logger.With("component", "notification_runner"),
	}
}

// RunTick executes one scheduler invocation at the tick instant now. All
// subscriptions are loaded and processed concurrently by a bounded pool of
// workers; one subscription's failure never affects another's. The only
// error returned is a failure to load the subscription list, which aborts
// the whole tick (the next tick retries naturally).
func (r *Runner) RunTick(ctx context.Context, now time.Time) error {
	subs, err := r.subs.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}

	if len(subs) == 0 {
		return nil
	}

	r.logger.Debug("running notification tick",
		"tick_at", now,
		"subscription_count", len(subs),
		"worker_count", r.config.WorkerCount)

	jobs := make(chan *domain.PushSubscription)
	var wg sync.WaitGroup

	for i := 0; i < r.config.WorkerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for sub := range jobs {
				r.processSubscription(ctx, sub, now, workerID)
			}
		}(i)
	}

	for _, sub := range subs {
		jobs <- sub
	}
	close(jobs)
	wg.Wait()

	return nil
}

// processSubscription evaluates and, if due, dispatches one subscription's
// windows. Failures are logged and abandon only this subscription's
// remaining work for the tick.
func (r *Runner) processSubscription(
	ctx context.Context,
	sub *domain.PushSubscription,
	now time.Time,
	workerID int,
) {
	log := r.logger.With(
		"owner_id", sub.OwnerID,
		"endpoint", sub.Endpoint,
		"worker_id", workerID,
	)

	due := sched.DueWindows(sub, now, r.config.Location)
	if !due.Any() {
		return
	}

	windows := make([]sched.Window, 0, 2)
	if due.Morning {
		windows = append(windows, sched.WindowMorning)
	}
	if due.Evening {
		windows = append(windows, sched.WindowEvening)
	}

	day := localDay(now, r.config.Location)

	for _, window := range windows {
		outcome := r.dispatcher.Send(ctx, sub, r.payloads.Build(window))

		switch outcome.Result {
		case push.ResultOK:
			// The marker write happens immediately after the send, before
			// any other window or subscription work. A crash between the
			// two is the only gap where a duplicate can fire on retry;
			// delivery is at-least-once, not exactly-once.
			if err := r.subs.UpdateLastSent(ctx, sub.Endpoint, window, day); err != nil {
				log.Error("failed to persist last-sent marker",
					"window", window,
					"error", err)
				return
			}
			log.Info("notification dispatched", "window", window)

		case push.ResultGone:
			// A concurrent prune (or an explicit unsubscription racing the
			// tick) already achieved the goal; only other failures matter.
			if err := r.subs.Delete(ctx, sub.Endpoint); err != nil && !store.IsNotFoundError(err) {
				log.Error("failed to prune dead subscription",
					"window", window,
					"error", err)
				return
			}
			log.Info("pruned permanently failed subscription",
				"window", window,
				"reason", outcome.Err)
			// The record is gone; nothing further to do for this
			// subscription.
			return

		case push.ResultTransient:
			// Leave the marker untouched so the next due window retries.
			log.Warn("transient delivery failure, will retry on next due window",
				"window", window,
				"error", outcome.Err)
		}
	}
}

// localDay returns midnight UTC of now's calendar date in loc. Storing the
// date this way keeps the date column unambiguous regardless of the
// database session timezone.
func localDay(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
