package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MeterGroupResponse is one uploaded origin file and its ingest progress.
type MeterGroupResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	ExpectedMeters int        `json:"expected_meters"`
	IngestedMeters int        `json:"ingested_meters"`
	Complete       bool       `json:"complete"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// MeterResponse is one service agreement within a meter group.
type MeterResponse struct {
	ID           uuid.UUID `json:"id"`
	GroupID      uuid.UUID `json:"group_id"`
	SAID         string    `json:"said"`
	RatePlanName string    `json:"rate_plan_name,omitempty"`
	PeriodMin    int       `json:"period_minutes"`
	CreatedAt    time.Time `json:"created_at"`
}

// MeterDetailResponse adds the meter's load summary: total energy, peak
// load, and the month-hour matrices.
type MeterDetailResponse struct {
	MeterResponse

	TotalKWH   float64     `json:"total_kwh"`
	MaxKW      float64     `json:"max_kw"`
	Average288 [][]float64 `json:"average_288"`
	Maximum288 [][]float64 `json:"maximum_288"`
	Start      time.Time   `json:"start"`
	End        time.Time   `json:"end"`
}

// RatePlanResponse is a stored rate plan summary.
type RatePlanResponse struct {
	Name    string `json:"name"`
	Utility string `json:"utility,omitempty"`
	Sector  string `json:"sector,omitempty"`
}

// ScenarioResponse is a scenario run and, once complete, its report.
type ScenarioResponse struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	GroupID      uuid.UUID       `json:"group_id"`
	RatePlanName string          `json:"rate_plan_name"`
	State        string          `json:"state"`
	Report       json.RawMessage `json:"report,omitempty"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
