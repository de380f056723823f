package store

import (
	"context"
	"time"

	"github.com/planloop/planloop-api/internal/domain"
	"github.com/planloop/planloop-api/internal/domain/sched"
)

// SubscriptionStore defines the push subscription persistence operations
// the scheduling engine consumes. The engine only ever mutates a
// subscription's two last-sent markers, or deletes the record outright when
// its endpoint is confirmed dead.
type SubscriptionStore interface {
	// Create persists a new push subscription.
	// Returns ErrEndpointExists if the endpoint is already registered, or
	// validation errors from the domain PushSubscription.
	Create(ctx context.Context, sub *domain.PushSubscription) error

	// List retrieves every stored subscription. The scheduler evaluates all
	// of them on each tick; there is no server-side filtering by due time
	// because due-ness depends on the tick instant.
	List(ctx context.Context) ([]*domain.PushSubscription, error)

	// UpdateLastSent records that the given window was satisfied on the
	// given calendar day for the subscription identified by endpoint.
	// Returns ErrSubscriptionNotFound if the subscription does not exist.
	UpdateLastSent(ctx context.Context, endpoint string, window sched.Window, day time.Time) error

	// Delete removes the subscription identified by endpoint. Used both for
	// explicit unsubscription and for pruning endpoints the push transport
	// reports as permanently gone.
	// Returns ErrSubscriptionNotFound if the subscription does not exist.
	Delete(ctx context.Context, endpoint string) error
}
