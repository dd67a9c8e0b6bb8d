package der

import (
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"navigader/internal/timeseries"
)

// DefaultPVWattsURL is the NREL PVWatts endpoint used to fetch normalized
// production profiles.
const DefaultPVWattsURL = "https://developer.nrel.gov/api/pvwatts/v6.json"

// SolarPV models the physical characteristics of a photovoltaic array.
// Fields mirror the PVWatts API parameters.
type SolarPV struct {
	Address    string  `json:"address" yaml:"address"`
	ArrayType  int     `json:"array_type" yaml:"array_type"`
	Azimuth    float64 `json:"azimuth" yaml:"azimuth"`
	Tilt       float64 `json:"tilt" yaml:"tilt"`
	ModuleType int     `json:"module_type" yaml:"module_type"`
}

// Validate checks PVWatts parameter ranges.
func (pv SolarPV) Validate() error {
	if pv.ArrayType < 0 || pv.ArrayType > 4 {
		return errors.New("array_type must be 0, 1, 2, 3, or 4")
	}
	if pv.Azimuth < 0 || pv.Azimuth >= 360 {
		return errors.New("azimuth must be between 0 and 360")
	}
	if pv.ModuleType < 0 || pv.ModuleType > 2 {
		return errors.New("module_type must be 0, 1, or 2")
	}
	if pv.Tilt < 0 || pv.Tilt > 90 {
		return errors.New("tilt must be between 0 and 90")
	}
	return nil
}

// ProductionSource supplies one typical year of hourly AC production, in
// watts for a 1 kW system, for a PV configuration.
type ProductionSource interface {
	HourlyAC(pv SolarPV) ([]float64, error)
}

// PVWattsClient fetches production profiles from the PVWatts API.
type PVWattsClient struct {
	client *resty.Client
	apiKey string
}

// NewPVWattsClient builds a client for the given endpoint. An empty baseURL
// selects the production PVWatts service.
func NewPVWattsClient(baseURL, apiKey string, timeout time.Duration) *PVWattsClient {
	if baseURL == "" {
		baseURL = DefaultPVWattsURL
	}
	return &PVWattsClient{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		apiKey: apiKey,
	}
}

type pvwattsResponse struct {
	Outputs struct {
		AC []float64 `json:"ac"`
	} `json:"outputs"`
	Errors []string `json:"errors"`
}

// HourlyAC requests the hourly production profile for a 1 kW system with
// standard losses.
func (c *PVWattsClient) HourlyAC(pv SolarPV) ([]float64, error) {
	if err := pv.Validate(); err != nil {
		return nil, err
	}

	var out pvwattsResponse
	resp, err := c.client.R().
		SetQueryParams(map[string]string{
			"api_key":         c.apiKey,
			"address":         pv.Address,
			"array_type":      strconv.Itoa(pv.ArrayType),
			"azimuth":         strconv.FormatFloat(pv.Azimuth, 'f', -1, 64),
			"tilt":            strconv.FormatFloat(pv.Tilt, 'f', -1, 64),
			"module_type":     strconv.Itoa(pv.ModuleType),
			"timeframe":       "hourly",
			"losses":          "14.08",
			"system_capacity": "1",
		}).
		SetResult(&out).
		Get("")
	if err != nil {
		return nil, errors.Wrap(err, "pvwatts request")
	}
	if resp.IsError() {
		return nil, errors.Errorf("pvwatts request failed with status %d", resp.StatusCode())
	}
	if len(out.Errors) > 0 {
		return nil, errors.Errorf("pvwatts: %s", out.Errors[0])
	}
	if len(out.Outputs.AC) == 0 {
		return nil, errors.New("pvwatts response missing hourly output")
	}
	return out.Outputs.AC, nil
}

// StaticProductionSource serves a fixed hourly profile. Used for stored
// PVWatts responses and in tests.
type StaticProductionSource []float64

func (s StaticProductionSource) HourlyAC(SolarPV) ([]float64, error) {
	return s, nil
}

// SolarStrategy sizes a PV system to service a share of the meter's annual
// load.
type SolarStrategy struct {
	ServiceableLoadRatio float64
}

// Validate checks the ratio is positive.
func (s SolarStrategy) Validate() error {
	if s.ServiceableLoadRatio <= 0 {
		return errors.New("serviceable_load_ratio must be greater than zero")
	}
	return nil
}

// AnnualLoad extrapolates a frame's total energy to a full year.
func AnnualLoad(frame *timeseries.IntervalFrame) float64 {
	days := frame.EndLimit().Sub(frame.Start()).Hours() / 24
	if days == 0 {
		return 0
	}
	return frame.TotalKWH() / days * 365
}

// systemSizeRatio returns the multiplier applied to the unit production
// profile. Net exporters are ignored rather than sized negatively.
func (s SolarStrategy) systemSizeRatio(annualLoad, solarYield float64) float64 {
	target := annualLoad * s.ServiceableLoadRatio
	ratio := target / abs(solarYield)
	if ratio < 0 {
		return 0
	}
	return ratio
}

// SolarSimulator runs a sized PV system against a load profile.
type SolarSimulator struct {
	PV       SolarPV
	Strategy SolarStrategy
	Source   ProductionSource
}

func (s SolarSimulator) Name() string { return "solar" }

// Simulate fetches the production profile covering the load window, sizes
// it per the strategy, and nets it against the load.
func (s SolarSimulator) Simulate(pre *timeseries.IntervalFrame) (*Product, error) {
	if err := s.PV.Validate(); err != nil {
		return nil, err
	}
	if err := s.Strategy.Validate(); err != nil {
		return nil, err
	}
	if pre.Len() == 0 {
		return nil, errors.New("load profile is empty")
	}

	solar, err := s.productionFrame(pre)
	if err != nil {
		return nil, err
	}

	ratio := s.Strategy.systemSizeRatio(AnnualLoad(pre), AnnualLoad(solar))
	sized := solar.Scale(ratio)

	post, err := pre.Add(sized)
	if err != nil {
		return nil, errors.Wrap(err, "combining solar frame with load")
	}
	return &Product{Pre: pre, DER: sized, Post: post}, nil
}

// productionFrame builds the production series spanning the load window,
// at the load's period, with production as negative load.
func (s SolarSimulator) productionFrame(pre *timeseries.IntervalFrame) (*timeseries.IntervalFrame, error) {
	hourly, err := s.Source.HourlyAC(s.PV)
	if err != nil {
		return nil, errors.Wrap(err, "fetching solar production")
	}

	var readings []timeseries.Reading
	for year := pre.Start().Year(); year <= pre.EndLimit().Year(); year++ {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, pre.Start().Location())
		for i, watts := range hourly {
			readings = append(readings, timeseries.Reading{
				Start: start.Add(time.Duration(i) * time.Hour),
				// convert W to kW and reverse polarity
				KW: watts / -1000,
			})
		}
	}

	frame, err := timeseries.New(readings)
	if err != nil {
		return nil, errors.Wrap(err, "building solar frame")
	}
	frame, err = frame.Resample(pre.Period())
	if err != nil {
		return nil, errors.Wrap(err, "resampling solar frame")
	}
	return frame.FilterByRange(pre.Start(), pre.EndLimit()), nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
