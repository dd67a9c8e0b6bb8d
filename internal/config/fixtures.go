package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"navigader/internal/der"
	"navigader/internal/timeseries"
)

// DERFixture is the on-disk shape (YAML) of a DER configuration plus its
// strategy. Exactly one of the DER sections must be set, matching Type.
type DERFixture struct {
	Type string `yaml:"type" json:"type"`

	Battery       *BatteryFixture       `yaml:"battery" json:"battery"`
	Solar         *SolarFixture         `yaml:"solar" json:"solar"`
	EVSE          *EVSEFixture          `yaml:"evse" json:"evse"`
	FuelSwitching *FuelSwitchingFixture `yaml:"fuel_switching" json:"fuel_switching"`
}

// BatteryFixture configures a battery and its threshold schedules.
// Schedules may be given inline as 12x24 matrices or loaded from a
// separate YAML via *_file; inline values win.
type BatteryFixture struct {
	RatingKW               float64 `yaml:"rating_kw" json:"rating_kw"`
	DischargeDurationHours float64 `yaml:"discharge_duration_hours" json:"discharge_duration_hours"`
	Efficiency             float64 `yaml:"efficiency" json:"efficiency"`

	ChargeScheduleFile    string      `yaml:"charge_schedule_file" json:"charge_schedule_file"`
	ChargeSchedule        [][]float64 `yaml:"charge_schedule" json:"charge_schedule"`
	DischargeScheduleFile string      `yaml:"discharge_schedule_file" json:"discharge_schedule_file"`
	DischargeSchedule     [][]float64 `yaml:"discharge_schedule" json:"discharge_schedule"`
}

type SolarFixture struct {
	Address              string  `yaml:"address" json:"address"`
	ArrayType            int     `yaml:"array_type" json:"array_type"`
	Azimuth              float64 `yaml:"azimuth" json:"azimuth"`
	Tilt                 float64 `yaml:"tilt" json:"tilt"`
	ModuleType           int     `yaml:"module_type" json:"module_type"`
	ServiceableLoadRatio float64 `yaml:"serviceable_load_ratio" json:"serviceable_load_ratio"`
}

type EVSEFixture struct {
	EVEfficiency float64 `yaml:"ev_efficiency" json:"ev_efficiency"`
	RatingKW     float64 `yaml:"rating_kw" json:"rating_kw"`
	EVCount      int     `yaml:"ev_count" json:"ev_count"`
	EVSECount    int     `yaml:"evse_count" json:"evse_count"`
	Utilization  float64 `yaml:"utilization" json:"utilization"`

	ChargeScheduleFile string      `yaml:"charge_schedule_file" json:"charge_schedule_file"`
	ChargeSchedule     [][]float64 `yaml:"charge_schedule" json:"charge_schedule"`
	DriveScheduleFile  string      `yaml:"drive_schedule_file" json:"drive_schedule_file"`
	DriveSchedule      [][]float64 `yaml:"drive_schedule" json:"drive_schedule"`
}

// FuelSwitchingFixture selects the gas end uses to electrify. The TMY3
// profile named here is parsed by the caller.
type FuelSwitchingFixture struct {
	SpaceHeating bool   `yaml:"space_heating" json:"space_heating"`
	WaterHeating bool   `yaml:"water_heating" json:"water_heating"`
	TMY3File     string `yaml:"tmy3_file" json:"tmy3_file"`
}

// LoadDER reads and validates a DER fixture.
func LoadDER(path string) (*DERFixture, error) {
	f, err := LoadDERUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// LoadDERUnchecked reads a DER fixture and resolves schedule files, but
// does not validate DER parameters.
func LoadDERUnchecked(path string) (*DERFixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f DERFixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if b := f.Battery; b != nil {
		if b.ChargeSchedule, err = resolveSchedule(dir, b.ChargeScheduleFile, b.ChargeSchedule); err != nil {
			return nil, err
		}
		if b.DischargeSchedule, err = resolveSchedule(dir, b.DischargeScheduleFile, b.DischargeSchedule); err != nil {
			return nil, err
		}
	}
	if e := f.EVSE; e != nil {
		if e.ChargeSchedule, err = resolveSchedule(dir, e.ChargeScheduleFile, e.ChargeSchedule); err != nil {
			return nil, err
		}
		if e.DriveSchedule, err = resolveSchedule(dir, e.DriveScheduleFile, e.DriveSchedule); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

// Validate checks that the fixture names a known type, carries the matching
// section, and that the DER parameters pass their own validation.
func (f *DERFixture) Validate() error {
	switch f.Type {
	case "battery":
		if f.Battery == nil {
			return errors.New("battery section is required")
		}
		sim, err := f.BatterySimulator()
		if err != nil {
			return err
		}
		return sim.Battery.Validate()
	case "solar":
		if f.Solar == nil {
			return errors.New("solar section is required")
		}
		pv, strategy := f.SolarConfig()
		if err := pv.Validate(); err != nil {
			return err
		}
		return strategy.Validate()
	case "evse":
		if f.EVSE == nil {
			return errors.New("evse section is required")
		}
		sim, err := f.EVSESimulator()
		if err != nil {
			return err
		}
		if err := sim.EVSE.Validate(); err != nil {
			return err
		}
		return sim.Strategy.Validate()
	case "fuel_switching":
		if f.FuelSwitching == nil {
			return errors.New("fuel_switching section is required")
		}
		return f.FuelSwitchingConfig().Validate()
	case "":
		return errors.New("type is required")
	default:
		return errors.Errorf("unknown DER type %q", f.Type)
	}
}

// BatterySimulator builds the battery simulator described by the fixture.
func (f *DERFixture) BatterySimulator() (*der.BatterySimulator, error) {
	b := f.Battery
	charge, err := scheduleFrame(b.ChargeSchedule, "charge_schedule")
	if err != nil {
		return nil, err
	}
	discharge, err := scheduleFrame(b.DischargeSchedule, "discharge_schedule")
	if err != nil {
		return nil, err
	}
	return &der.BatterySimulator{
		Battery: der.Battery{
			RatingKW:          b.RatingKW,
			DischargeDuration: time.Duration(b.DischargeDurationHours * float64(time.Hour)),
			Efficiency:        b.Efficiency,
		},
		Strategy: der.BatteryStrategy{
			ChargeSchedule:    charge,
			DischargeSchedule: discharge,
		},
	}, nil
}

// SolarConfig returns the PVWatts parameters and sizing strategy.
func (f *DERFixture) SolarConfig() (der.SolarPV, der.SolarStrategy) {
	s := f.Solar
	return der.SolarPV{
			Address:    s.Address,
			ArrayType:  s.ArrayType,
			Azimuth:    s.Azimuth,
			Tilt:       s.Tilt,
			ModuleType: s.ModuleType,
		}, der.SolarStrategy{
			ServiceableLoadRatio: s.ServiceableLoadRatio,
		}
}

// EVSESimulator builds the EVSE simulator described by the fixture.
func (f *DERFixture) EVSESimulator() (*der.EVSESimulator, error) {
	e := f.EVSE
	charge, err := scheduleFrame(e.ChargeSchedule, "charge_schedule")
	if err != nil {
		return nil, err
	}
	drive, err := scheduleFrame(e.DriveSchedule, "drive_schedule")
	if err != nil {
		return nil, err
	}
	return &der.EVSESimulator{
		EVSE: der.EVSE{
			EVEfficiency: e.EVEfficiency,
			RatingKW:     e.RatingKW,
			EVCount:      e.EVCount,
			EVSECount:    e.EVSECount,
			Utilization:  e.Utilization,
		},
		Strategy: der.EVSEStrategy{
			ChargeSchedule: charge,
			DriveSchedule:  drive,
		},
	}, nil
}

// FuelSwitchingConfig returns the end-use selection.
func (f *DERFixture) FuelSwitchingConfig() der.FuelSwitching {
	fs := f.FuelSwitching
	return der.FuelSwitching{
		SpaceHeating: fs.SpaceHeating,
		WaterHeating: fs.WaterHeating,
	}
}

type scheduleFileWrapper struct {
	Schedule [][]float64 `yaml:"schedule" json:"schedule"`
}

// resolveSchedule loads a schedule file when no inline matrix is present.
// Relative paths resolve against the fixture's directory first.
func resolveSchedule(dir, file string, inline [][]float64) ([][]float64, error) {
	if len(inline) > 0 || file == "" {
		return inline, nil
	}
	path := file
	if !filepath.IsAbs(path) {
		if cand := filepath.Join(dir, path); fileExists(cand) {
			path = cand
		}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var w scheduleFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return w.Schedule, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func scheduleFrame(matrix [][]float64, name string) (timeseries.Frame288, error) {
	frame, err := timeseries.Frame288FromMatrix(matrix)
	if err != nil {
		return timeseries.Frame288{}, errors.Wrap(err, name)
	}
	return frame, nil
}
