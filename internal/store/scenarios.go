package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Scenario states.
const (
	ScenarioPending  = "pending"
	ScenarioRunning  = "running"
	ScenarioComplete = "complete"
	ScenarioFailed   = "failed"
)

// Scenario is one DER configuration run against a meter group under a rate
// plan. Report holds the finished impact summary; ReportKey points at the
// exported CSV in the object store.
type Scenario struct {
	ID           uuid.UUID
	Name         string
	GroupID      uuid.UUID
	RatePlanName string
	DERFixture   json.RawMessage
	State        string
	Report       json.RawMessage
	ReportKey    string
	Error        string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// CreateScenario inserts a pending scenario.
func (s *Store) CreateScenario(ctx context.Context, sc *Scenario) error {
	if sc.ID == uuid.Nil {
		sc.ID = uuid.New()
	}
	sc.State = ScenarioPending
	return errors.Wrap(s.db.QueryRowContext(ctx, `
		INSERT INTO scenarios (id, name, group_id, rate_plan_name, der_fixture)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		sc.ID, sc.Name, sc.GroupID, sc.RatePlanName, sc.DERFixture,
	).Scan(&sc.CreatedAt), "inserting scenario")
}

const scenarioSelect = `
	SELECT id, name, group_id, rate_plan_name, der_fixture, state,
	       report, report_key, error, created_at, completed_at
	FROM scenarios
`

// GetScenario fetches a scenario by ID.
func (s *Store) GetScenario(ctx context.Context, id uuid.UUID) (*Scenario, error) {
	return scanScenario(s.db.QueryRowContext(ctx, scenarioSelect+`WHERE id = $1`, id))
}

// ListScenarios returns all scenarios, newest first.
func (s *Store) ListScenarios(ctx context.Context) ([]*Scenario, error) {
	rows, err := s.db.QueryContext(ctx, scenarioSelect+`ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "listing scenarios")
	}
	defer rows.Close()

	var scenarios []*Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, rows.Err()
}

func scanScenario(row rowScanner) (*Scenario, error) {
	var sc Scenario
	var report sql.NullString
	err := row.Scan(&sc.ID, &sc.Name, &sc.GroupID, &sc.RatePlanName,
		&sc.DERFixture, &sc.State, &report, &sc.ReportKey, &sc.Error,
		&sc.CreatedAt, &sc.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scanning scenario")
	}
	if report.Valid {
		sc.Report = json.RawMessage(report.String)
	}
	return &sc, nil
}

// StartScenario transitions a scenario to running.
func (s *Store) StartScenario(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scenarios SET state = $2 WHERE id = $1`, id, ScenarioRunning)
	return errors.Wrap(err, "starting scenario")
}

// CompleteScenario records a finished scenario's report.
func (s *Store) CompleteScenario(ctx context.Context, id uuid.UUID, report json.RawMessage, reportKey string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scenarios
		SET state = $2, report = $3, report_key = $4, completed_at = now()
		WHERE id = $1`,
		id, ScenarioComplete, report, reportKey)
	return errors.Wrap(err, "completing scenario")
}

// FailScenario records a scenario failure.
func (s *Store) FailScenario(ctx context.Context, id uuid.UUID, cause string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scenarios
		SET state = $2, error = $3, completed_at = now()
		WHERE id = $1`,
		id, ScenarioFailed, cause)
	return errors.Wrap(err, "failing scenario")
}
