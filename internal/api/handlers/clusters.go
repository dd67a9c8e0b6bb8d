package handlers

import (
	"math/rand"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"navigader/internal/cluster"
	"navigader/internal/timeseries"
)

// clusterSeed keeps repeated requests for the same group stable.
const clusterSeed = 1

// ClusterResponse is one customer cluster: its members and the
// representative month-hour load shape.
type ClusterResponse struct {
	Cluster      int         `json:"cluster"`
	SAIDs        []string    `json:"saids"`
	Reference288 [][]float64 `json:"reference_288"`
}

// Clusters handles GET /api/v1/meter-groups/:id/clusters. Meters are
// grouped by normalized average month-hour load shape.
func (h *MeterHandler) Clusters(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	k, err := strconv.Atoi(c.DefaultQuery("k", "4"))
	if err != nil || k <= 0 {
		abortError(c, http.StatusBadRequest, "INVALID_PARAM", "k must be a positive integer")
		return
	}

	ctx := c.Request.Context()
	meters, err := h.store.ListMeters(ctx, groupID)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	if len(meters) < k {
		abortError(c, http.StatusBadRequest, "TOO_FEW_METERS",
			"group has fewer meters than requested clusters")
		return
	}

	frames := make([]timeseries.Frame288, len(meters))
	for i, m := range meters {
		frame, err := h.store.MeterFrame(ctx, m.ID)
		if err != nil {
			abortStoreError(c, err)
			return
		}
		frames[i] = frame.AverageFrame288()
	}

	result, err := cluster.KMeans(frames, k, true, rand.New(rand.NewSource(clusterSeed)))
	if err != nil {
		abortError(c, http.StatusInternalServerError, "CLUSTERING_ERROR", err.Error())
		return
	}

	out := make([]ClusterResponse, 0, k)
	for id := 0; id < result.Clusters(); id++ {
		ref, err := result.ReferenceFrame288(id)
		if err != nil {
			abortError(c, http.StatusInternalServerError, "CLUSTERING_ERROR", err.Error())
			return
		}
		saids := []string{}
		for _, i := range result.Members(id) {
			saids = append(saids, meters[i].SAID)
		}
		out = append(out, ClusterResponse{
			Cluster:      id,
			SAIDs:        saids,
			Reference288: matrix(ref),
		})
	}
	c.JSON(http.StatusOK, gin.H{"clusters": out})
}
