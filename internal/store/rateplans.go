package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"navigader/internal/cost"
)

// SaveRatePlan upserts a rate plan's tariff revisions as JSON.
func (s *Store) SaveRatePlan(ctx context.Context, plan *cost.RatePlan) error {
	data, err := json.Marshal(plan.Rates())
	if err != nil {
		return errors.Wrap(err, "encoding rate plan")
	}
	var utility, sector string
	if rates := plan.Rates(); len(rates) > 0 {
		utility = rates[len(rates)-1].Utility
		sector = rates[len(rates)-1].Sector
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rate_plans (id, name, utility, sector, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE
		SET utility = EXCLUDED.utility,
		    sector = EXCLUDED.sector,
		    data = EXCLUDED.data`,
		uuid.New(), plan.Name, utility, sector, data,
	)
	return errors.Wrap(err, "saving rate plan")
}

// GetRatePlan loads a rate plan by name.
func (s *Store) GetRatePlan(ctx context.Context, name string) (*cost.RatePlan, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM rate_plans WHERE name = $1`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading rate plan")
	}
	var rates []*cost.RateData
	if err := json.Unmarshal(data, &rates); err != nil {
		return nil, errors.Wrap(err, "decoding rate plan")
	}
	return cost.NewRatePlan(name, rates)
}

// ListRatePlanNames returns saved plan names with utility and sector.
func (s *Store) ListRatePlanNames(ctx context.Context) ([]RatePlanSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, utility, sector FROM rate_plans ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "listing rate plans")
	}
	defer rows.Close()

	var out []RatePlanSummary
	for rows.Next() {
		var rp RatePlanSummary
		if err := rows.Scan(&rp.Name, &rp.Utility, &rp.Sector); err != nil {
			return nil, errors.Wrap(err, "scanning rate plan")
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

// RatePlanSummary is a rate plan listing entry.
type RatePlanSummary struct {
	Name    string `json:"name"`
	Utility string `json:"utility"`
	Sector  string `json:"sector"`
}
