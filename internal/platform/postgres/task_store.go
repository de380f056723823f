package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/planloop/planloop-api/internal/domain"
	"github.com/planloop/planloop-api/internal/platform/logger"
	"github.com/planloop/planloop-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface using a
// PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db store.DBTX
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresTaskStore{db: db}
}

// Ensure PostgresTaskStore implements store.TaskStore
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks
			(id, owner_id, title, start_at, due_at, estimated_minutes,
			 recurrence_kind, is_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.OwnerID,
		task.Title,
		task.StartAt,
		task.DueAt,
		task.EstimatedMinutes,
		nullRecurrence(task.Recurrence),
		task.IsCompleted,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			"task_id", task.ID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// CreateIfAbsent implements store.TaskStore.CreateIfAbsent. The insert is
// guarded by the unique index on (owner_id, title, coalesce(start_at,
// due_at)); a conflicting row makes the statement a no-op, which is
// reported as inserted=false. This makes concurrent duplicate spawns safe
// without a separate read-check-delete cycle.
func (s *PostgresTaskStore) CreateIfAbsent(ctx context.Context, task *domain.Task) (bool, error) {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks
			(id, owner_id, title, start_at, due_at, estimated_minutes,
			 recurrence_kind, is_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (owner_id, title, COALESCE(start_at, due_at)) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.OwnerID,
		task.Title,
		task.StartAt,
		task.DueAt,
		task.EstimatedMinutes,
		nullRecurrence(task.Recurrence),
		task.IsCompleted,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to conditionally create task",
			"task_id", task.ID,
			"error", err)
		return false, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, owner_id, title, start_at, due_at, estimated_minutes,
		       recurrence_kind, is_completed, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, MapError(err)
	}
	return task, nil
}

// ListOpenWithStart implements store.TaskStore.ListOpenWithStart
func (s *PostgresTaskStore) ListOpenWithStart(
	ctx context.Context,
	ownerID string,
) ([]domain.Task, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, owner_id, title, start_at, due_at, estimated_minutes,
		       recurrence_kind, is_completed, created_at, updated_at
		FROM tasks
		WHERE owner_id = $1
		  AND is_completed = FALSE
		  AND start_at IS NOT NULL
		ORDER BY start_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		log.Error("failed to list open tasks",
			"owner_id", ownerID,
			"error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, MapError(err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return tasks, nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, "task")
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one task row into a domain.Task.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task       domain.Task
		startAt    sql.NullTime
		dueAt      sql.NullTime
		recurrence sql.NullString
	)

	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&startAt,
		&dueAt,
		&task.EstimatedMinutes,
		&recurrence,
		&task.IsCompleted,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if startAt.Valid {
		t := startAt.Time
		task.StartAt = &t
	}
	if dueAt.Valid {
		t := dueAt.Time
		task.DueAt = &t
	}
	if recurrence.Valid {
		task.Recurrence = domain.RecurrenceKind(recurrence.String)
	}

	return &task, nil
}

// nullRecurrence maps the domain's zero recurrence kind to a SQL NULL so
// the column matches the conceptual "daily | weekly | monthly | null"
// enumeration.
func nullRecurrence(kind domain.RecurrenceKind) any {
	if kind == domain.RecurrenceNone {
		return nil
	}
	return string(kind)
}
