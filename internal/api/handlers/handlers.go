// Package handlers implements the /api/v1 endpoints.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"navigader/internal/api/models"
	"navigader/internal/store"
	"navigader/internal/timeseries"
)

func abortError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{Code: code, Message: message},
	})
}

// abortStoreError maps missing rows to 404 and everything else to 500.
func abortStoreError(c *gin.Context, err error) {
	if err == store.ErrNotFound {
		abortError(c, http.StatusNotFound, "NOT_FOUND", "no such resource")
		return
	}
	abortError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
}

func matrix(f timeseries.Frame288) [][]float64 {
	out := make([][]float64, 12)
	for m := 0; m < 12; m++ {
		row := make([]float64, 24)
		copy(row, f.Cells[m][:])
		out[m] = row
	}
	return out
}
