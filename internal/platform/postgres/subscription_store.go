package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/planloop/planloop-api/internal/domain"
	"github.com/planloop/planloop-api/internal/domain/sched"
	"github.com/planloop/planloop-api/internal/platform/logger"
	"github.com/planloop/planloop-api/internal/store"
)

// PostgresSubscriptionStore implements the store.SubscriptionStore
// interface using a PostgreSQL database as the storage backend.
type PostgresSubscriptionStore struct {
	db store.DBTX
}

// NewPostgresSubscriptionStore creates a new PostgreSQL implementation of
// the SubscriptionStore interface. It accepts a database connection or
// transaction that should be initialized and managed by the caller.
func NewPostgresSubscriptionStore(db store.DBTX) *PostgresSubscriptionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresSubscriptionStore{db: db}
}

// Ensure PostgresSubscriptionStore implements store.SubscriptionStore
var _ store.SubscriptionStore = (*PostgresSubscriptionStore)(nil)

// Create implements store.SubscriptionStore.Create
func (s *PostgresSubscriptionStore) Create(
	ctx context.Context,
	sub *domain.PushSubscription,
) error {
	log := logger.FromContext(ctx)

	if err := sub.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO push_subscriptions
			(endpoint, owner_id, key_p256dh, key_auth, morning_time,
			 evening_time, last_morning_sent, last_evening_sent,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		sub.Endpoint,
		sub.OwnerID,
		sub.KeyP256dh,
		sub.KeyAuth,
		sub.MorningTime.String(),
		sub.EveningTime.String(),
		sub.LastMorningSent,
		sub.LastEveningSent,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create push subscription",
			"owner_id", sub.OwnerID,
			"error", err)
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrEndpointExists, err)
		}
		return MapError(err)
	}

	return nil
}

// List implements store.SubscriptionStore.List
func (s *PostgresSubscriptionStore) List(ctx context.Context) ([]*domain.PushSubscription, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT endpoint, owner_id, key_p256dh, key_auth, morning_time,
		       evening_time, last_morning_sent, last_evening_sent,
		       created_at, updated_at
		FROM push_subscriptions
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list push subscriptions", "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var subs []*domain.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, MapError(err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return subs, nil
}

// UpdateLastSent implements store.SubscriptionStore.UpdateLastSent. Only
// the marker matching the window is touched; the other window's marker is
// left as is.
func (s *PostgresSubscriptionStore) UpdateLastSent(
	ctx context.Context,
	endpoint string,
	window sched.Window,
	day time.Time,
) error {
	var column string
	switch window {
	case sched.WindowMorning:
		column = "last_morning_sent"
	case sched.WindowEvening:
		column = "last_evening_sent"
	default:
		return fmt.Errorf("%w: unknown window %q", store.ErrInvalidEntity, window)
	}

	// The column name comes from the switch above, never from input.
	query := fmt.Sprintf(`
		UPDATE push_subscriptions
		SET %s = $1, updated_at = $2
		WHERE endpoint = $3
	`, column)

	result, err := s.db.ExecContext(ctx, query, day, time.Now().UTC(), endpoint)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, "push subscription")
}

// Delete implements store.SubscriptionStore.Delete
func (s *PostgresSubscriptionStore) Delete(ctx context.Context, endpoint string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, "push subscription")
}

// scanSubscription reads one subscription row into a domain.PushSubscription.
func scanSubscription(row rowScanner) (*domain.PushSubscription, error) {
	var (
		sub         domain.PushSubscription
		morningRaw  string
		eveningRaw  string
		lastMorning sql.NullTime
		lastEvening sql.NullTime
	)

	err := row.Scan(
		&sub.Endpoint,
		&sub.OwnerID,
		&sub.KeyP256dh,
		&sub.KeyAuth,
		&morningRaw,
		&eveningRaw,
		&lastMorning,
		&lastEvening,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sub.MorningTime, err = domain.ParseClockTime(morningRaw); err != nil {
		return nil, fmt.Errorf("stored morning_time is corrupt: %w", err)
	}
	if sub.EveningTime, err = domain.ParseClockTime(eveningRaw); err != nil {
		return nil, fmt.Errorf("stored evening_time is corrupt: %w", err)
	}

	if lastMorning.Valid {
		t := lastMorning.Time
		sub.LastMorningSent = &t
	}
	if lastEvening.Valid {
		t := lastEvening.Time
		sub.LastEveningSent = &t
	}

	return &sub, nil
}
