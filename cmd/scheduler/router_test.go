package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planloop/planloop-api/internal/domain"
	"github.com/planloop/planloop-api/internal/domain/sched"
	"github.com/planloop/planloop-api/internal/events"
	"github.com/planloop/planloop-api/internal/store"
)

// memSubscriptionStore is an in-memory SubscriptionStore for handler tests.
type memSubscriptionStore struct {
	subs map[string]*domain.PushSubscription
}

func newMemSubscriptionStore() *memSubscriptionStore {
	return &memSubscriptionStore{subs: make(map[string]*domain.PushSubscription)}
}

func (s *memSubscriptionStore) Create(_ context.Context, sub *domain.PushSubscription) error {
	if _, ok := s.subs[sub.Endpoint]; ok {
		return store.ErrEndpointExists
	}
	s.subs[sub.Endpoint] = sub
	return nil
}

func (s *memSubscriptionStore) List(_ context.Context) ([]*domain.PushSubscription, error) {
	out := make([]*domain.PushSubscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out, nil
}

func (s *memSubscriptionStore) UpdateLastSent(
	_ context.Context, endpoint string, _ sched.Window, _ time.Time,
) error {
	if _, ok := s.subs[endpoint]; !ok {
		return store.ErrSubscriptionNotFound
	}
	return nil
}

func (s *memSubscriptionStore) Delete(_ context.Context, endpoint string) error {
	if _, ok := s.subs[endpoint]; !ok {
		return store.ErrSubscriptionNotFound
	}
	delete(s.subs, endpoint)
	return nil
}

// testRouter wires a router over in-memory collaborators. The emitter has no
// handlers registered; hook tests only assert the HTTP contract.
func testRouter(t *testing.T) (http.Handler, *memSubscriptionStore) {
	t.Helper()

	logr := slog.New(slog.NewTextHandler(io.Discard, nil))
	subs := newMemSubscriptionStore()
	app := &application{logger: logr, subs: subs}

	return newRouter(app, events.NewInMemoryEventEmitter(logr)), subs
}

func registrationBody(t *testing.T) *bytes.Buffer {
	t.Helper()

	body, err := json.Marshal(subscriptionRequest{
		Endpoint:    "https://push.example.com/sub/abc",
		OwnerID:     "owner-1",
		KeyP256dh:   "p256dh-key",
		KeyAuth:     "auth-key",
		MorningTime: domain.ClockTime{Hour: 8, Minute: 30},
		EveningTime: domain.ClockTime{Hour: 20, Minute: 0},
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestRegisterSubscription(t *testing.T) {
	t.Parallel()

	router, subs := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscriptions", registrationBody(t)))

	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.PushSubscription
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "owner-1", created.OwnerID)
	assert.Nil(t, created.LastMorningSent, "new subscriptions start with no last-sent markers")
	assert.Contains(t, subs.subs, "https://push.example.com/sub/abc")
}

func TestRegisterSubscriptionDuplicateEndpoint(t *testing.T) {
	t.Parallel()

	router, _ := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscriptions", registrationBody(t)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscriptions", registrationBody(t)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterSubscriptionInvalidPayload(t *testing.T) {
	t.Parallel()

	router, _ := testRouter(t)

	testCases := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: "{not json"},
		{name: "missing endpoint", body: `{"owner_id":"owner-1","key_p256dh":"k","key_auth":"k"}`},
		{name: "out of range window", body: `{"endpoint":"https://push.example.com/s","owner_id":"owner-1","key_p256dh":"k","key_auth":"k","morning_time":{"hour":25,"minute":0}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(
				http.MethodPost, "/subscriptions", bytes.NewBufferString(tc.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	router, subs := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscriptions", registrationBody(t)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		http.MethodDelete, "/subscriptions?endpoint=https%3A%2F%2Fpush.example.com%2Fsub%2Fabc", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, subs.subs)
}

func TestUnsubscribeUnknownEndpoint(t *testing.T) {
	t.Parallel()

	router, _ := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		http.MethodDelete, "/subscriptions?endpoint=https%3A%2F%2Fpush.example.com%2Fgone", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnsubscribeRequiresEndpoint(t *testing.T) {
	t.Parallel()

	router, _ := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/subscriptions", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskCompletedHook(t *testing.T) {
	t.Parallel()

	router, _ := testRouter(t)

	start := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	task, err := domain.NewTask("owner-1", "water the plants", &start, nil, 15, domain.RecurrenceDaily)
	require.NoError(t, err)
	task.IsCompleted = true

	body, err := json.Marshal(task)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		http.MethodPost, "/hooks/task-completed", bytes.NewBuffer(body)))

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestTaskCompletedHookRejectsMalformedTask(t *testing.T) {
	t.Parallel()

	router, _ := testRouter(t)

	testCases := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: "{not json"},
		{name: "fails validation", body: `{"id":"00000000-0000-0000-0000-000000000000","owner_id":"owner-1","title":"x"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(
				http.MethodPost, "/hooks/task-completed", bytes.NewBufferString(tc.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
