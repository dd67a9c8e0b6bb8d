package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"navigader/internal/api/models"
	"navigader/internal/config"
	"navigader/internal/objstore"
	"navigader/internal/store"
	"navigader/internal/tasks"
)

// ScenarioHandler creates scenario runs and serves their reports.
type ScenarioHandler struct {
	store   *store.Store
	objects *objstore.Store
	queue   config.Queue
}

// NewScenarioHandler creates a new scenario handler.
func NewScenarioHandler(s *store.Store, objects *objstore.Store, queue config.Queue) *ScenarioHandler {
	return &ScenarioHandler{store: s, objects: objects, queue: queue}
}

// Create handles POST /api/v1/scenarios. The DER fixture is validated and
// the referenced group and rate plan checked before the run is queued.
func (h *ScenarioHandler) Create(c *gin.Context) {
	var req models.CreateScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if err := req.Spec.DER.Validate(); err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_DER", err.Error())
		return
	}

	ctx := c.Request.Context()
	group, err := h.store.GetMeterGroup(ctx, req.GroupID)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	if !group.Completed() {
		abortError(c, http.StatusConflict, "GROUP_INCOMPLETE",
			"meter group ingest has not finished")
		return
	}
	if _, err := h.store.GetRatePlan(ctx, req.RatePlanName); err != nil {
		abortStoreError(c, err)
		return
	}

	spec, err := json.Marshal(req.Spec)
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	scenario := &store.Scenario{
		ID:           uuid.New(),
		Name:         req.Name,
		GroupID:      req.GroupID,
		RatePlanName: req.RatePlanName,
		DERFixture:   spec,
	}
	if err := h.store.CreateScenario(ctx, scenario); err != nil {
		abortStoreError(c, err)
		return
	}
	if err := tasks.EnqueueScenario(ctx, h.store, h.queue.Name, h.queue.MaxAttempts, scenario.ID); err != nil {
		abortError(c, http.StatusInternalServerError, "QUEUE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusAccepted, scenarioResponse(scenario))
}

// List handles GET /api/v1/scenarios.
func (h *ScenarioHandler) List(c *gin.Context) {
	scenarios, err := h.store.ListScenarios(c.Request.Context())
	if err != nil {
		abortStoreError(c, err)
		return
	}
	out := make([]models.ScenarioResponse, 0, len(scenarios))
	for _, sc := range scenarios {
		out = append(out, scenarioResponse(sc))
	}
	c.JSON(http.StatusOK, gin.H{"scenarios": out})
}

// Get handles GET /api/v1/scenarios/:id.
func (h *ScenarioHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	scenario, err := h.store.GetScenario(c.Request.Context(), id)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, scenarioResponse(scenario))
}

// Ledger handles GET /api/v1/scenarios/:id/ledger. It returns a short-lived
// download link for the per-meter CSV rather than proxying the object.
func (h *ScenarioHandler) Ledger(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	scenario, err := h.store.GetScenario(c.Request.Context(), id)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	if scenario.ReportKey == "" {
		abortError(c, http.StatusConflict, "REPORT_PENDING",
			"scenario has not completed")
		return
	}
	url, err := h.objects.PresignGet(scenario.ReportKey, 15*time.Minute)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func scenarioResponse(sc *store.Scenario) models.ScenarioResponse {
	return models.ScenarioResponse{
		ID:           sc.ID,
		Name:         sc.Name,
		GroupID:      sc.GroupID,
		RatePlanName: sc.RatePlanName,
		State:        sc.State,
		Report:       sc.Report,
		Error:        sc.Error,
		CreatedAt:    sc.CreatedAt,
		CompletedAt:  sc.CompletedAt,
	}
}
