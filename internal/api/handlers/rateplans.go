package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"navigader/internal/api/models"
	"navigader/internal/openei"
	"navigader/internal/store"
)

// RatePlanHandler stores and serves USURDB rate plans.
type RatePlanHandler struct {
	store *store.Store
}

// NewRatePlanHandler creates a new rate plan handler.
func NewRatePlanHandler(s *store.Store) *RatePlanHandler {
	return &RatePlanHandler{store: s}
}

// Upload handles POST /api/v1/rate-plans. The body is a USURDB JSON
// export; its tariffs are grouped into plans by rate name and each plan is
// stored under that name.
func (h *RatePlanHandler) Upload(c *gin.Context) {
	rates, err := openei.ReadUSURDB(c.Request.Body)
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_USURDB", err.Error())
		return
	}
	plans, err := openei.GroupRatePlans(rates)
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_USURDB", err.Error())
		return
	}

	ctx := c.Request.Context()
	names := make([]string, 0, len(plans))
	for _, plan := range plans {
		if err := h.store.SaveRatePlan(ctx, plan); err != nil {
			abortStoreError(c, err)
			return
		}
		names = append(names, plan.Name)
	}
	log.WithField("plans", len(names)).Info("rate plans stored")
	c.JSON(http.StatusCreated, gin.H{"rate_plans": names})
}

// List handles GET /api/v1/rate-plans.
func (h *RatePlanHandler) List(c *gin.Context) {
	summaries, err := h.store.ListRatePlanNames(c.Request.Context())
	if err != nil {
		abortStoreError(c, err)
		return
	}
	out := make([]models.RatePlanResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, models.RatePlanResponse{
			Name:    s.Name,
			Utility: s.Utility,
			Sector:  s.Sector,
		})
	}
	c.JSON(http.StatusOK, gin.H{"rate_plans": out})
}
