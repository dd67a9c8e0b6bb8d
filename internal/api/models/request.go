package models

import (
	"github.com/google/uuid"

	"navigader/internal/tasks"
)

// CreateScenarioRequest creates and queues a scenario run. Spec carries the
// DER fixture plus the optional calculation sections.
type CreateScenarioRequest struct {
	Name         string             `json:"name" binding:"required"`
	GroupID      uuid.UUID          `json:"group_id" binding:"required"`
	RatePlanName string             `json:"rate_plan_name" binding:"required"`
	Spec         tasks.ScenarioSpec `json:"spec" binding:"required"`
}
