package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Task states.
const (
	TaskPending = "pending"
	TaskRunning = "running"
	TaskDone    = "done"
	TaskFailed  = "failed"
)

// Task is one queued unit of asynchronous work.
type Task struct {
	ID          uuid.UUID
	Queue       string
	Kind        string
	Payload     json.RawMessage
	State       string
	Attempts    int
	MaxAttempts int
	RunAt       time.Time
	LastError   string
	CreatedAt   time.Time
}

// Enqueue adds a pending task. RunAt defaults to now; MaxAttempts must be
// set by the caller.
func (s *Store) Enqueue(ctx context.Context, t *Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.RunAt.IsZero() {
		t.RunAt = time.Now()
	}
	t.State = TaskPending
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, queue, kind, payload, max_attempts, run_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Queue, t.Kind, t.Payload, t.MaxAttempts, t.RunAt,
	)
	return errors.Wrap(err, "enqueueing task")
}

// Claim atomically takes the oldest runnable task off a queue. Claimed
// tasks move to running with their attempt count bumped. Returns
// ErrNotFound when the queue is empty.
//
// SKIP LOCKED lets concurrent workers claim without blocking each other.
func (s *Store) Claim(ctx context.Context, queue string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET state = $2, attempts = attempts + 1, updated_at = now()
		WHERE id = (
			SELECT id FROM tasks
			WHERE queue = $1 AND state = $3 AND run_at <= now()
			ORDER BY run_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, queue, kind, payload, state, attempts, max_attempts,
		          run_at, last_error, created_at`,
		queue, TaskRunning, TaskPending,
	)

	var t Task
	err := row.Scan(&t.ID, &t.Queue, &t.Kind, &t.Payload, &t.State,
		&t.Attempts, &t.MaxAttempts, &t.RunAt, &t.LastError, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "claiming task")
	}
	return &t, nil
}

// Complete marks a task done.
func (s *Store) Complete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET state = $2, updated_at = now() WHERE id = $1`,
		id, TaskDone)
	return errors.Wrap(err, "completing task")
}

// retryState decides where a failed attempt goes: back to pending for
// another try, or failed once the attempts are spent.
func retryState(attempts, maxAttempts int) string {
	if attempts >= maxAttempts {
		return TaskFailed
	}
	return TaskPending
}

// Retry returns a failed attempt to the queue with a delay, or marks the
// task failed once its attempts are spent.
func (s *Store) Retry(ctx context.Context, t *Task, cause string, backoff time.Duration) error {
	state := retryState(t.Attempts, t.MaxAttempts)
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET state = $2, last_error = $3, run_at = $4, updated_at = now()
		WHERE id = $1`,
		t.ID, state, cause, time.Now().Add(backoff))
	return errors.Wrap(err, "retrying task")
}

// QueueDepth counts pending tasks on a queue.
func (s *Store) QueueDepth(ctx context.Context, queue string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM tasks WHERE queue = $1 AND state = $2`,
		queue, TaskPending).Scan(&n)
	return n, errors.Wrap(err, "counting pending tasks")
}
