// Package store persists meters, interval readings, rate plans, scenarios,
// and the task queue in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// Store wraps the database handle. All methods are safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	db.SetMaxOpenConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the raw handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

const schema = `
CREATE TABLE IF NOT EXISTS meter_groups (
	id              UUID PRIMARY KEY,
	name            TEXT NOT NULL,
	object_key      TEXT NOT NULL,
	expected_meters INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	locked_at       TIMESTAMPTZ,
	completed_at    TIMESTAMPTZ,
	expires_at      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS meters (
	id             UUID PRIMARY KEY,
	group_id       UUID NOT NULL REFERENCES meter_groups (id) ON DELETE CASCADE,
	said           TEXT NOT NULL,
	rate_plan_name TEXT NOT NULL DEFAULT '',
	period_seconds INTEGER NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (group_id, said)
);

CREATE TABLE IF NOT EXISTS meter_intervals (
	meter_id UUID NOT NULL REFERENCES meters (id) ON DELETE CASCADE,
	start_at TIMESTAMPTZ NOT NULL,
	kw       DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (meter_id, start_at)
);

CREATE TABLE IF NOT EXISTS rate_plans (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	utility    TEXT NOT NULL DEFAULT '',
	sector     TEXT NOT NULL DEFAULT '',
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scenarios (
	id             UUID PRIMARY KEY,
	name           TEXT NOT NULL,
	group_id       UUID NOT NULL REFERENCES meter_groups (id) ON DELETE CASCADE,
	rate_plan_name TEXT NOT NULL,
	der_fixture    JSONB NOT NULL,
	state          TEXT NOT NULL DEFAULT 'pending',
	report         JSONB,
	report_key     TEXT NOT NULL DEFAULT '',
	error          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS tasks (
	id           UUID PRIMARY KEY,
	queue        TEXT NOT NULL,
	kind         TEXT NOT NULL,
	payload      JSONB NOT NULL,
	state        TEXT NOT NULL DEFAULT 'pending',
	attempts     INTEGER NOT NULL DEFAULT 0,
	max_attempts INTEGER NOT NULL DEFAULT 3,
	run_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_error   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS tasks_claim_idx
	ON tasks (queue, run_at) WHERE state = 'pending';
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return errors.Wrap(err, "migrating schema")
}
