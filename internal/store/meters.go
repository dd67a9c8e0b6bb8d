package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"navigader/internal/timeseries"
)

// Meter is one service agreement's interval data within a meter group.
type Meter struct {
	ID           uuid.UUID
	GroupID      uuid.UUID
	SAID         string
	RatePlanName string
	Period       time.Duration
	CreatedAt    time.Time
}

// CreateMeter inserts a meter record. A meter already ingested for the
// same group and SA ID is returned unchanged, which makes re-running an
// interrupted ingest safe.
func (s *Store) CreateMeter(ctx context.Context, m *Meter) (created bool, err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO meters (id, group_id, said, rate_plan_name, period_seconds)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (group_id, said) DO NOTHING`,
		m.ID, m.GroupID, m.SAID, m.RatePlanName, int(m.Period.Seconds()),
	)
	if err != nil {
		return false, errors.Wrap(err, "inserting meter")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		existing, err := s.meterBySAID(ctx, m.GroupID, m.SAID)
		if err != nil {
			return false, err
		}
		*m = *existing
		return false, nil
	}
	return true, nil
}

func (s *Store) meterBySAID(ctx context.Context, groupID uuid.UUID, said string) (*Meter, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, group_id, said, rate_plan_name, period_seconds, created_at
		FROM meters WHERE group_id = $1 AND said = $2`,
		groupID, said,
	)
	return scanMeter(row)
}

// GetMeter fetches a meter by ID.
func (s *Store) GetMeter(ctx context.Context, id uuid.UUID) (*Meter, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, group_id, said, rate_plan_name, period_seconds, created_at
		FROM meters WHERE id = $1`, id,
	)
	return scanMeter(row)
}

// ListMeters returns a group's meters ordered by SA ID.
func (s *Store) ListMeters(ctx context.Context, groupID uuid.UUID) ([]*Meter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, said, rate_plan_name, period_seconds, created_at
		FROM meters WHERE group_id = $1 ORDER BY said`, groupID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "listing meters")
	}
	defer rows.Close()

	var meters []*Meter
	for rows.Next() {
		m, err := scanMeter(rows)
		if err != nil {
			return nil, err
		}
		meters = append(meters, m)
	}
	return meters, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeter(row rowScanner) (*Meter, error) {
	var m Meter
	var periodSeconds int
	err := row.Scan(&m.ID, &m.GroupID, &m.SAID, &m.RatePlanName,
		&periodSeconds, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scanning meter")
	}
	m.Period = time.Duration(periodSeconds) * time.Second
	return &m, nil
}

// ErrNotFound marks lookups with no matching row.
var ErrNotFound = errors.New("not found")

// InsertReadings bulk-loads a meter's interval readings with COPY.
func (s *Store) InsertReadings(ctx context.Context, meterID uuid.UUID, readings []timeseries.Reading) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		pq.CopyIn("meter_intervals", "meter_id", "start_at", "kw"))
	if err != nil {
		return errors.Wrap(err, "preparing copy")
	}
	for _, r := range readings {
		if _, err := stmt.ExecContext(ctx, meterID, r.Start, r.KW); err != nil {
			stmt.Close()
			return errors.Wrap(err, "copying reading")
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return errors.Wrap(err, "flushing copy")
	}
	if err := stmt.Close(); err != nil {
		return errors.Wrap(err, "closing copy")
	}
	return errors.Wrap(tx.Commit(), "committing readings")
}

// MeterFrame loads a meter's readings as an interval frame.
func (s *Store) MeterFrame(ctx context.Context, meterID uuid.UUID) (*timeseries.IntervalFrame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_at, kw FROM meter_intervals
		WHERE meter_id = $1 ORDER BY start_at`, meterID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "loading readings")
	}
	defer rows.Close()

	var readings []timeseries.Reading
	for rows.Next() {
		var r timeseries.Reading
		if err := rows.Scan(&r.Start, &r.KW); err != nil {
			return nil, errors.Wrap(err, "scanning reading")
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return timeseries.New(readings)
}
