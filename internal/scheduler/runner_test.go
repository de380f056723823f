package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planloop/planloop-api/internal/domain"
	"github.com/planloop/planloop-api/internal/domain/sched"
	"github.com/planloop/planloop-api/internal/push"
	"github.com/planloop/planloop-api/internal/store"
)

// fakeSubscriptionStore is an in-memory SubscriptionStore for runner tests.
type fakeSubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]*domain.PushSubscription

	updateErr error
	deleteErr error
	listErr   error

	updates []string // endpoints whose markers were written
	deletes []string
}

func newFakeSubscriptionStore(subs ...*domain.PushSubscription) *fakeSubscriptionStore {
	s := &fakeSubscriptionStore{subs: make(map[string]*domain.PushSubscription)}
	for _, sub := range subs {
		s.subs[sub.Endpoint] = sub
	}
	return s
}

func (s *fakeSubscriptionStore) Create(_ context.Context, sub *domain.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.Endpoint]; ok {
		return store.ErrEndpointExists
	}
	s.subs[sub.Endpoint] = sub
	return nil
}

func (s *fakeSubscriptionStore) List(_ context.Context) ([]*domain.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*domain.PushSubscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out, nil
}

func (s *fakeSubscriptionStore) UpdateLastSent(
	_ context.Context,
	endpoint string,
	window sched.Window,
	day time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	sub, ok := s.subs[endpoint]
	if !ok {
		return store.ErrSubscriptionNotFound
	}
	d := day
	switch window {
	case sched.WindowMorning:
		sub.LastMorningSent = &d
	case sched.WindowEvening:
		sub.LastEveningSent = &d
	}
	s.updates = append(s.updates, endpoint)
	return nil
}

func (s *fakeSubscriptionStore) Delete(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.subs[endpoint]; !ok {
		return store.ErrSubscriptionNotFound
	}
	delete(s.subs, endpoint)
	s.deletes = append(s.deletes, endpoint)
	return nil
}

// fakeDispatcher returns scripted outcomes per endpoint and records every
// send.
type fakeDispatcher struct {
	mu       sync.Mutex
	outcomes map[string]push.Outcome
	sends    []sentPush
}

type sentPush struct {
	endpoint string
	payload  push.Payload
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{outcomes: make(map[string]push.Outcome)}
}

func (d *fakeDispatcher) Send(
	_ context.Context,
	sub *domain.PushSubscription,
	payload push.Payload,
) push.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sends = append(d.sends, sentPush{endpoint: sub.Endpoint, payload: payload})
	if outcome, ok := d.outcomes[sub.Endpoint]; ok {
		return outcome
	}
	return push.Outcome{Result: push.ResultOK}
}

func (d *fakeDispatcher) sentTo(endpoint string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.sends {
		if s.endpoint == endpoint {
			n++
		}
	}
	return n
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSub(endpoint string, morning, evening domain.ClockTime) *domain.PushSubscription {
	return &domain.PushSubscription{
		Endpoint:    endpoint,
		OwnerID:     "owner-" + endpoint,
		KeyP256dh:   "p256dh",
		KeyAuth:     "auth",
		MorningTime: morning,
		EveningTime: evening,
	}
}

func testRunner(subs *fakeSubscriptionStore, dispatcher push.Dispatcher) *Runner {
	return NewRunner(
		subs,
		dispatcher,
		PayloadBuilder{IconPath: "/icons/icon-192.png", TaskListURL: "/tasks"},
		RunnerConfig{WorkerCount: 4, Location: time.UTC},
		testLogger(),
	)
}

func TestRunTickDispatchesDueWindowOnce(t *testing.T) {
	t.Parallel()

	morning := domain.ClockTime{Hour: 8, Minute: 30}
	sub := testSub("ep-1", morning, domain.ClockTime{Hour: 20, Minute: 0})
	subs := newFakeSubscriptionStore(sub)
	dispatcher := newFakeDispatcher()
	runner := testRunner(subs, dispatcher)

	tick := time.Date(2024, time.May, 1, 8, 30, 0, 0, time.UTC)

	require.NoError(t, runner.RunTick(context.Background(), tick))
	assert.Equal(t, 1, dispatcher.sentTo("ep-1"))
	require.NotNil(t, sub.LastMorningSent)
	assert.Equal(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), *sub.LastMorningSent)
	assert.Nil(t, sub.LastEveningSent)

	// A second tick inside the same minute is suppressed by the marker.
	require.NoError(t, runner.RunTick(context.Background(), tick.Add(30*time.Second)))
	assert.Equal(t, 1, dispatcher.sentTo("ep-1"), "same-day re-tick must not dispatch again")
}

func TestRunTickNotDueOutsideExactMinute(t *testing.T) {
	t.Parallel()

	sub := testSub("ep-1", domain.ClockTime{Hour: 8, Minute: 30}, domain.ClockTime{Hour: 20, Minute: 0})
	subs := newFakeSubscriptionStore(sub)
	dispatcher := newFakeDispatcher()
	runner := testRunner(subs, dispatcher)

	// One minute after the configured window, with no send recorded today:
	// no retroactive catch-up.
	tick := time.Date(2024, time.May, 1, 8, 31, 0, 0, time.UTC)
	require.NoError(t, runner.RunTick(context.Background(), tick))
	assert.Zero(t, dispatcher.sentTo("ep-1"))
	assert.Nil(t, sub.LastMorningSent)
}

func TestRunTickPrunesGoneEndpoint(t *testing.T) {
	t.Parallel()

	tick := time.Date(2024, time.May, 1, 8, 30, 0, 0, time.UTC)
	window := domain.ClockTime{Hour: 8, Minute: 30}

	dead := testSub("ep-dead", window, domain.ClockTime{Hour: 20, Minute: 0})
	alive := testSub("ep-alive", window, domain.ClockTime{Hour: 20, Minute: 0})
	subs := newFakeSubscriptionStore(dead, alive)

	dispatcher := newFakeDispatcher()
	dispatcher.outcomes["ep-dead"] = push.Outcome{
		Result: push.ResultGone,
		Err:    errors.New("push service returned 410"),
	}

	runner := testRunner(subs, dispatcher)
	require.NoError(t, runner.RunTick(context.Background(), tick))

	assert.Equal(t, []string{"ep-dead"}, subs.deletes)
	assert.Nil(t, dead.LastMorningSent, "a pruned subscription gets no marker update")
	require.NotNil(t, alive.LastMorningSent, "other subscriptions are unaffected")

	// The pruned record no longer appears on subsequent ticks.
	later := tick.AddDate(0, 0, 1)
	require.NoError(t, runner.RunTick(context.Background(), later))
	assert.Equal(t, 1, dispatcher.sentTo("ep-dead"))
}

func TestRunTickTransientFailureLeavesMarkerUntouched(t *testing.T) {
	t.Parallel()

	sub := testSub("ep-1", domain.ClockTime{Hour: 8, Minute: 30}, domain.ClockTime{Hour: 20, Minute: 0})
	subs := newFakeSubscriptionStore(sub)

	dispatcher := newFakeDispatcher()
	dispatcher.outcomes["ep-1"] = push.Outcome{
		Result: push.ResultTransient,
		Err:    errors.New("push service returned 503"),
	}

	runner := testRunner(subs, dispatcher)
	tick := time.Date(2024, time.May, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, runner.RunTick(context.Background(), tick))

	assert.Nil(t, sub.LastMorningSent)
	assert.Empty(t, subs.deletes)
	assert.Equal(t, 1, dispatcher.sentTo("ep-1"))
}

func TestRunTickMarkerFailureDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	window := domain.ClockTime{Hour: 8, Minute: 30}
	one := testSub("ep-1", window, domain.ClockTime{Hour: 20, Minute: 0})
	two := testSub("ep-2", window, domain.ClockTime{Hour: 20, Minute: 0})
	subs := newFakeSubscriptionStore(one, two)
	subs.updateErr = errors.New("connection reset")

	dispatcher := newFakeDispatcher()
	runner := testRunner(subs, dispatcher)

	tick := time.Date(2024, time.May, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, runner.RunTick(context.Background(), tick),
		"per-subscription storage failures must not fail the tick")
	assert.Equal(t, 1, dispatcher.sentTo("ep-1"))
	assert.Equal(t, 1, dispatcher.sentTo("ep-2"))
}

func TestRunTickListFailureAbortsTick(t *testing.T) {
	t.Parallel()

	subs := newFakeSubscriptionStore()
	subs.listErr = errors.New("database down")
	runner := testRunner(subs, newFakeDispatcher())

	err := runner.RunTick(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load subscriptions")
}

func TestRunTickIdenticalWindowTimesDispatchBoth(t *testing.T) {
	t.Parallel()

	same := domain.ClockTime{Hour: 12, Minute: 0}
	sub := testSub("ep-1", same, same)
	subs := newFakeSubscriptionStore(sub)
	dispatcher := newFakeDispatcher()
	runner := testRunner(subs, dispatcher)

	tick := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, runner.RunTick(context.Background(), tick))

	assert.Equal(t, 2, dispatcher.sentTo("ep-1"))
	assert.NotNil(t, sub.LastMorningSent)
	assert.NotNil(t, sub.LastEveningSent)
}

func TestRunTickFansOutAcrossManySubscriptions(t *testing.T) {
	t.Parallel()

	window := domain.ClockTime{Hour: 8, Minute: 30}
	subs := newFakeSubscriptionStore()
	for i := 0; i < 50; i++ {
		sub := testSub(fmt.Sprintf("ep-%d", i), window, domain.ClockTime{Hour: 20, Minute: 0})
		require.NoError(t, subs.Create(context.Background(), sub))
	}

	dispatcher := newFakeDispatcher()
	runner := testRunner(subs, dispatcher)

	tick := time.Date(2024, time.May, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, runner.RunTick(context.Background(), tick))

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	assert.Len(t, dispatcher.sends, 50, "every subscription is processed exactly once")
}

func TestPayloadBuilderWindowCopy(t *testing.T) {
	t.Parallel()

	b := PayloadBuilder{IconPath: "/icons/icon-192.png", TaskListURL: "/tasks"}

	morning := b.Build(sched.WindowMorning)
	evening := b.Build(sched.WindowEvening)

	assert.NotEqual(t, morning.Title, evening.Title, "the two windows carry distinct copy")
	assert.Equal(t, "/tasks", morning.Data.URL)
	assert.Equal(t, "/tasks", evening.Data.URL)
	assert.Equal(t, "/icons/icon-192.png", morning.Icon)
}
