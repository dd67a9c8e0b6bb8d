package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"navigader/internal/cost"
	"navigader/internal/der"
	"navigader/internal/openei"
	"navigader/internal/store"
	"navigader/internal/timeseries"
)

// ImpactSummary is one calculation's result in its native unit.
type ImpactSummary struct {
	Pre  float64 `json:"pre"`
	Post float64 `json:"post"`
	Net  float64 `json:"net"`
}

func summarize(c cost.Calculation) *ImpactSummary {
	return &ImpactSummary{
		Pre:  c.PreTotal(),
		Post: c.PostTotal(),
		Net:  c.NetImpact(),
	}
}

// MeterImpact is one meter's before/after comparison.
type MeterImpact struct {
	SAID       string  `json:"said"`
	PreKWH     float64 `json:"preKwh"`
	PostKWH    float64 `json:"postKwh"`
	PrePeakKW  float64 `json:"prePeakKw"`
	PostPeakKW float64 `json:"postPeakKw"`
	PreBill    float64 `json:"preBill"`
	PostBill   float64 `json:"postBill"`
}

// ScenarioReport is the finished impact summary persisted with a scenario.
// Dollar bill impact is always present; the remaining calculations appear
// when the scenario spec enables them.
type ScenarioReport struct {
	ScenarioID uuid.UUID     `json:"scenarioId"`
	DERType    string        `json:"derType"`
	Meters     []MeterImpact `json:"meters"`

	Bill             ImpactSummary  `json:"bill"`
	GHG              *ImpactSummary `json:"ghg,omitempty"`
	Procurement      *ImpactSummary `json:"procurement,omitempty"`
	ResourceAdequacy *ImpactSummary `json:"resourceAdequacy,omitempty"`
}

// runScenario simulates a scenario's DER on every meter of its group and
// computes the enabled cost calculations.
func (w *Worker) runScenario(ctx context.Context, task *store.Task) error {
	var payload ScenarioPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return errors.Wrap(err, "decoding scenario payload")
	}
	scenario, err := w.Store.GetScenario(ctx, payload.ScenarioID)
	if err != nil {
		return errors.Wrapf(err, "scenario %s", payload.ScenarioID)
	}
	if scenario.State == store.ScenarioComplete {
		return nil
	}
	if err := w.Store.StartScenario(ctx, scenario.ID); err != nil {
		return err
	}

	report, err := w.executeScenario(ctx, scenario)
	if err != nil {
		w.Metrics.ScenariosRun.WithLabelValues("error").Inc()
		if failErr := w.Store.FailScenario(ctx, scenario.ID, err.Error()); failErr != nil {
			return failErr
		}
		return err
	}

	data, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "encoding report")
	}
	reportKey := "reports/" + scenario.ID.String() + ".csv"
	if err := w.Objects.Put(ctx, reportKey, "text/csv", reportCSV(report)); err != nil {
		return err
	}
	w.Metrics.ScenariosRun.WithLabelValues("ok").Inc()
	return w.Store.CompleteScenario(ctx, scenario.ID, data, reportKey)
}

func (w *Worker) executeScenario(ctx context.Context, scenario *store.Scenario) (*ScenarioReport, error) {
	var spec ScenarioSpec
	if err := json.Unmarshal(scenario.DERFixture, &spec); err != nil {
		return nil, errors.Wrap(err, "decoding scenario spec")
	}
	sim, err := w.buildSimulator(ctx, &spec)
	if err != nil {
		return nil, err
	}

	meters, err := w.Store.ListMeters(ctx, scenario.GroupID)
	if err != nil {
		return nil, err
	}
	if len(meters) == 0 {
		return nil, errors.New("meter group has no meters")
	}

	agg := der.NewAggregateProduct()
	for _, meter := range meters {
		frame, err := w.Store.MeterFrame(ctx, meter.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "meter %s", meter.SAID)
		}
		product, err := sim.Simulate(frame)
		if err != nil {
			return nil, errors.Wrapf(err, "simulating meter %s", meter.SAID)
		}
		agg.Add(meter.SAID, product)
	}

	plan, err := w.Store.GetRatePlan(ctx, scenario.RatePlanName)
	if err != nil {
		return nil, errors.Wrapf(err, "rate plan %q", scenario.RatePlanName)
	}
	billImpact, err := cost.ComputeBillImpact(ctx, agg, plan)
	if err != nil {
		return nil, err
	}

	report := &ScenarioReport{
		ScenarioID: scenario.ID,
		DERType:    spec.DER.Type,
		Bill:       *summarize(billImpact),
	}
	report.addMeters(agg, billImpact)
	if err := w.addOptionalImpacts(ctx, report, agg, &spec); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *ScenarioReport) addMeters(agg *der.AggregateProduct, bills *cost.BillImpact) {
	for _, said := range agg.MeterIDs() {
		product, _ := agg.Product(said)
		impact := MeterImpact{
			SAID:       said,
			PreKWH:     product.Pre.TotalKWH(),
			PostKWH:    product.Post.TotalKWH(),
			PrePeakKW:  product.Pre.MaxKW(),
			PostPeakKW: product.Post.MaxKW(),
		}
		for _, bill := range bills.PreBills[said] {
			impact.PreBill += bill.Total()
		}
		for _, bill := range bills.PostBills[said] {
			impact.PostBill += bill.Total()
		}
		r.Meters = append(r.Meters, impact)
	}
}

func (w *Worker) addOptionalImpacts(ctx context.Context, report *ScenarioReport, agg *der.AggregateProduct, spec *ScenarioSpec) error {
	if len(spec.GHGRates) > 0 {
		rates, err := timeseries.Frame288FromMatrix(spec.GHGRates)
		if err != nil {
			return errors.Wrap(err, "ghg rates")
		}
		impact, err := cost.ComputeGHGImpact(agg, rates)
		if err != nil {
			return err
		}
		report.GHG = summarize(impact)
	}
	if len(spec.ProcurementRates) > 0 {
		intervals := make([]cost.RateInterval, len(spec.ProcurementRates))
		for i, r := range spec.ProcurementRates {
			intervals[i] = cost.RateInterval{Start: r.Start, DollarsPerKWH: r.DollarsPerKWH}
		}
		rate, err := cost.NewProcurementRate(intervals)
		if err != nil {
			return err
		}
		impact, err := cost.ComputeProcurementImpact(agg, rate)
		if err != nil {
			return err
		}
		report.Procurement = summarize(impact)
	}
	if spec.SystemProfileMeter != nil {
		system, err := w.Store.MeterFrame(ctx, *spec.SystemProfileMeter)
		if err != nil {
			return errors.Wrap(err, "system profile")
		}
		impact, err := cost.ComputeRAImpact(agg, system)
		if err != nil {
			return err
		}
		report.ResourceAdequacy = summarize(impact)
	}
	return nil
}

// buildSimulator turns the scenario's DER fixture into a simulator.
func (w *Worker) buildSimulator(ctx context.Context, spec *ScenarioSpec) (der.Simulator, error) {
	fixture := &spec.DER
	if err := fixture.Validate(); err != nil {
		return nil, errors.Wrap(err, "der fixture")
	}
	switch fixture.Type {
	case "battery":
		return fixture.BatterySimulator()
	case "solar":
		pv, strategy := fixture.SolarConfig()
		return der.SolarSimulator{
			PV:       pv,
			Strategy: strategy,
			Source:   w.Production,
		}, nil
	case "evse":
		return fixture.EVSESimulator()
	case "fuel_switching":
		return w.buildFuelSwitching(ctx, spec)
	default:
		return nil, errors.Errorf("unknown DER type %q", fixture.Type)
	}
}

func (w *Worker) buildFuelSwitching(ctx context.Context, spec *ScenarioSpec) (der.Simulator, error) {
	if spec.TMY3Key == "" {
		return nil, errors.New("fuel switching requires a TMY3 profile")
	}
	if len(spec.GasDays) == 0 {
		return nil, errors.New("fuel switching requires customer gas data")
	}
	raw, err := w.Objects.Get(ctx, spec.TMY3Key)
	if err != nil {
		return nil, errors.Wrap(err, "downloading TMY3 profile")
	}
	profile, err := openei.ParseTMY3(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "parsing TMY3 profile")
	}

	gas := make([]der.GasDay, len(spec.GasDays))
	for i, day := range spec.GasDays {
		date, err := time.Parse("2006-01-02", day.Date)
		if err != nil {
			return nil, errors.Wrapf(err, "gas day %q", day.Date)
		}
		gas[i] = der.GasDay{Date: date, Therms: day.Therms}
	}
	return der.FuelSwitchingSimulator{
		Config:   spec.DER.FuelSwitchingConfig(),
		Strategy: der.FuelSwitchingStrategy{Profile: profile.Hours},
		Gas:      gas,
	}, nil
}
