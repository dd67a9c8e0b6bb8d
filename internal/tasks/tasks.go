// Package tasks implements the asynchronous worker tier: queue consumers
// for ingest and scenario runs, and cron jobs for periodic maintenance.
package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"navigader/internal/config"
	"navigader/internal/store"
)

// Task kinds.
const (
	KindIngestOriginFile = "ingest-origin-file"
	KindRunScenario      = "run-scenario"
	KindDeleteMeterGroup = "delete-meter-group"
)

// IngestPayload asks the worker to ingest an uploaded origin file.
type IngestPayload struct {
	GroupID uuid.UUID `json:"group_id"`
}

// ScenarioPayload asks the worker to run a scenario.
type ScenarioPayload struct {
	ScenarioID uuid.UUID `json:"scenario_id"`
}

// DeletePayload asks the worker to delete a meter group and its origin
// file.
type DeletePayload struct {
	GroupID uuid.UUID `json:"group_id"`
}

// GasDaySpec is one day of customer gas usage supplied with a fuel
// switching scenario.
type GasDaySpec struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Therms float64 `json:"therms"`
}

// RateIntervalSpec is one interval of a procurement rate series.
type RateIntervalSpec struct {
	Start         time.Time `json:"start"`
	DollarsPerKWH float64   `json:"dollars_per_kwh"`
}

// ScenarioSpec is the scenario document stored alongside a scenario row.
// DER and the rate plan drive the bill impact; the remaining sections each
// enable one additional calculation when present.
type ScenarioSpec struct {
	DER config.DERFixture `json:"der"`

	// GHGRates is a 12x24 matrix of tCO2/kWh emission rates.
	GHGRates [][]float64 `json:"ghg_rates,omitempty"`

	// ProcurementRates is a $/kWh series on its own interval.
	ProcurementRates []RateIntervalSpec `json:"procurement_rates,omitempty"`

	// SystemProfileMeter names an ingested meter whose frame serves as the
	// system profile for resource adequacy.
	SystemProfileMeter *uuid.UUID `json:"system_profile_meter,omitempty"`

	// GasDays carries customer gas usage for fuel switching scenarios.
	GasDays []GasDaySpec `json:"gas_days,omitempty"`

	// TMY3Key is the object-store key of the TMY3 profile for fuel
	// switching scenarios.
	TMY3Key string `json:"tmy3_key,omitempty"`
}

// EnqueueIngest queues an origin-file ingest.
func EnqueueIngest(ctx context.Context, s *store.Store, queue string, maxAttempts int, groupID uuid.UUID) error {
	return enqueue(ctx, s, queue, KindIngestOriginFile, maxAttempts,
		IngestPayload{GroupID: groupID})
}

// EnqueueScenario queues a scenario run.
func EnqueueScenario(ctx context.Context, s *store.Store, queue string, maxAttempts int, scenarioID uuid.UUID) error {
	return enqueue(ctx, s, queue, KindRunScenario, maxAttempts,
		ScenarioPayload{ScenarioID: scenarioID})
}

// EnqueueDelete queues a meter-group deletion.
func EnqueueDelete(ctx context.Context, s *store.Store, queue string, maxAttempts int, groupID uuid.UUID) error {
	return enqueue(ctx, s, queue, KindDeleteMeterGroup, maxAttempts,
		DeletePayload{GroupID: groupID})
}

func enqueue(ctx context.Context, s *store.Store, queue, kind string, maxAttempts int, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "encoding %s payload", kind)
	}
	return s.Enqueue(ctx, &store.Task{
		Queue:       queue,
		Kind:        kind,
		Payload:     data,
		MaxAttempts: maxAttempts,
	})
}
