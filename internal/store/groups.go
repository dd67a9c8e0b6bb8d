package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MeterGroup is an uploaded origin file and its ingest bookkeeping. A group
// is complete when every expected meter has been ingested.
type MeterGroup struct {
	ID             uuid.UUID
	Name           string
	ObjectKey      string
	ExpectedMeters int
	CreatedAt      time.Time
	LockedAt       *time.Time
	CompletedAt    *time.Time
	ExpiresAt      *time.Time
}

// Completed reports whether the group's ingest has finished.
func (g *MeterGroup) Completed() bool { return g.CompletedAt != nil }

// CreateMeterGroup inserts a group record for an uploaded origin file.
func (s *Store) CreateMeterGroup(ctx context.Context, g *MeterGroup) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return errors.Wrap(s.db.QueryRowContext(ctx, `
		INSERT INTO meter_groups (id, name, object_key, expected_meters, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		g.ID, g.Name, g.ObjectKey, g.ExpectedMeters, g.ExpiresAt,
	).Scan(&g.CreatedAt), "inserting meter group")
}

// GetMeterGroup fetches a group by ID.
func (s *Store) GetMeterGroup(ctx context.Context, id uuid.UUID) (*MeterGroup, error) {
	row := s.db.QueryRowContext(ctx, groupSelect+`WHERE id = $1`, id)
	return scanGroup(row)
}

// ListMeterGroups returns all groups, newest first.
func (s *Store) ListMeterGroups(ctx context.Context) ([]*MeterGroup, error) {
	rows, err := s.db.QueryContext(ctx, groupSelect+`ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "listing meter groups")
	}
	defer rows.Close()

	var groups []*MeterGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

const groupSelect = `
	SELECT id, name, object_key, expected_meters, created_at,
	       locked_at, completed_at, expires_at
	FROM meter_groups
`

func scanGroup(row rowScanner) (*MeterGroup, error) {
	var g MeterGroup
	err := row.Scan(&g.ID, &g.Name, &g.ObjectKey, &g.ExpectedMeters,
		&g.CreatedAt, &g.LockedAt, &g.CompletedAt, &g.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scanning meter group")
	}
	return &g, nil
}

// LockMeterGroup stamps the group as being ingested.
func (s *Store) LockMeterGroup(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE meter_groups SET locked_at = now() WHERE id = $1`, id)
	return errors.Wrap(err, "locking meter group")
}

// CompleteMeterGroup stamps the group as fully ingested and records the
// final meter count.
func (s *Store) CompleteMeterGroup(ctx context.Context, id uuid.UUID, meterCount int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE meter_groups
		SET completed_at = now(), expected_meters = $2
		WHERE id = $1`, id, meterCount)
	return errors.Wrap(err, "completing meter group")
}

// IngestedMeterCount counts the meters already persisted for a group.
func (s *Store) IngestedMeterCount(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM meters WHERE group_id = $1`, id).Scan(&n)
	return n, errors.Wrap(err, "counting meters")
}

// IncompleteMeterGroups returns groups whose ingest started before the
// cutoff but never completed. These are candidates for re-running.
func (s *Store) IncompleteMeterGroups(ctx context.Context, cutoff time.Time) ([]*MeterGroup, error) {
	rows, err := s.db.QueryContext(ctx, groupSelect+`
		WHERE completed_at IS NULL AND created_at < $1
		ORDER BY created_at`, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "listing incomplete meter groups")
	}
	defer rows.Close()

	var groups []*MeterGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ExpiredMeterGroups returns groups past their expiry.
func (s *Store) ExpiredMeterGroups(ctx context.Context, now time.Time) ([]*MeterGroup, error) {
	rows, err := s.db.QueryContext(ctx, groupSelect+`
		WHERE expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at`, now)
	if err != nil {
		return nil, errors.Wrap(err, "listing expired meter groups")
	}
	defer rows.Close()

	var groups []*MeterGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// DeleteMeterGroup removes a group and, via cascade, its meters and
// readings.
func (s *Store) DeleteMeterGroup(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM meter_groups WHERE id = $1`, id)
	return errors.Wrap(err, "deleting meter group")
}
