package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"navigader/internal/api/models"
	"navigader/internal/store"
)

// MeterHandler serves ingested meters and their load summaries.
type MeterHandler struct {
	store *store.Store
}

// NewMeterHandler creates a new meter handler.
func NewMeterHandler(s *store.Store) *MeterHandler {
	return &MeterHandler{store: s}
}

// List handles GET /api/v1/meter-groups/:id/meters.
func (h *MeterHandler) List(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	meters, err := h.store.ListMeters(c.Request.Context(), groupID)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	out := make([]models.MeterResponse, 0, len(meters))
	for _, m := range meters {
		out = append(out, meterResponse(m))
	}
	c.JSON(http.StatusOK, gin.H{"meters": out})
}

// Get handles GET /api/v1/meters/:id. The response includes the meter's
// load summary and month-hour matrices.
func (h *MeterHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	ctx := c.Request.Context()
	meter, err := h.store.GetMeter(ctx, id)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	frame, err := h.store.MeterFrame(ctx, id)
	if err != nil {
		abortStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MeterDetailResponse{
		MeterResponse: meterResponse(meter),
		TotalKWH:      frame.TotalKWH(),
		MaxKW:         frame.MaxKW(),
		Average288:    matrix(frame.AverageFrame288()),
		Maximum288:    matrix(frame.MaximumFrame288()),
		Start:         frame.Start(),
		End:           frame.End(),
	})
}

func meterResponse(m *store.Meter) models.MeterResponse {
	return models.MeterResponse{
		ID:           m.ID,
		GroupID:      m.GroupID,
		SAID:         m.SAID,
		RatePlanName: m.RatePlanName,
		PeriodMin:    int(m.Period.Minutes()),
		CreatedAt:    m.CreatedAt,
	}
}
