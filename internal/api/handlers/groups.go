package handlers

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"navigader/internal/api/models"
	"navigader/internal/config"
	"navigader/internal/ingest"
	"navigader/internal/objstore"
	"navigader/internal/store"
	"navigader/internal/tasks"
)

// Origin files larger than this are rejected up front.
const maxOriginFileBytes = 256 << 20

// GroupHandler manages origin-file uploads and their meter groups.
type GroupHandler struct {
	store   *store.Store
	objects *objstore.Store
	queue   config.Queue
}

// NewGroupHandler creates a new meter group handler.
func NewGroupHandler(s *store.Store, objects *objstore.Store, queue config.Queue) *GroupHandler {
	return &GroupHandler{store: s, objects: objects, queue: queue}
}

// Upload handles POST /api/v1/meter-groups. The multipart form carries the
// group name, the Item 17 file, and an optional retention in days. The file
// is parsed before anything is stored so a malformed upload fails fast.
func (h *GroupHandler) Upload(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		abortError(c, http.StatusBadRequest, "MISSING_PARAM", "name form field is required")
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		abortError(c, http.StatusBadRequest, "MISSING_FILE", "file form field is required")
		return
	}
	if header.Size > maxOriginFileBytes {
		abortError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			"origin file exceeds the upload limit")
		return
	}
	f, err := header.Open()
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_FILE", err.Error())
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_FILE", err.Error())
		return
	}

	parsed, err := ingest.ParseItem17(bytes.NewReader(raw))
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_ORIGIN_FILE", err.Error())
		return
	}

	var expiresAt *time.Time
	if days := c.PostForm("retention_days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			abortError(c, http.StatusBadRequest, "INVALID_PARAM", "retention_days must be a positive integer")
			return
		}
		t := time.Now().AddDate(0, 0, n)
		expiresAt = &t
	}

	group := &store.MeterGroup{
		ID:             uuid.New(),
		Name:           name,
		ObjectKey:      "origin-files/" + uuid.NewString() + ".csv",
		ExpectedMeters: len(parsed.SAIDs()),
		ExpiresAt:      expiresAt,
	}
	ctx := c.Request.Context()
	if err := h.objects.Put(ctx, group.ObjectKey, "text/csv", raw); err != nil {
		abortError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}
	if err := h.store.CreateMeterGroup(ctx, group); err != nil {
		abortStoreError(c, err)
		return
	}
	if err := tasks.EnqueueIngest(ctx, h.store, h.queue.Name, h.queue.MaxAttempts, group.ID); err != nil {
		abortError(c, http.StatusInternalServerError, "QUEUE_ERROR", err.Error())
		return
	}

	log.WithFields(log.Fields{
		"group":  group.ID,
		"meters": group.ExpectedMeters,
	}).Info("origin file uploaded")
	c.JSON(http.StatusAccepted, h.groupResponse(c, group))
}

// List handles GET /api/v1/meter-groups.
func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.store.ListMeterGroups(c.Request.Context())
	if err != nil {
		abortStoreError(c, err)
		return
	}
	out := make([]models.MeterGroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, h.groupResponse(c, g))
	}
	c.JSON(http.StatusOK, gin.H{"meter_groups": out})
}

// Get handles GET /api/v1/meter-groups/:id.
func (h *GroupHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	group, err := h.store.GetMeterGroup(c.Request.Context(), id)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.groupResponse(c, group))
}

// Delete handles DELETE /api/v1/meter-groups/:id. Deletion runs on the
// worker so the origin file and the group's rows go together.
func (h *GroupHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	ctx := c.Request.Context()
	if _, err := h.store.GetMeterGroup(ctx, id); err != nil {
		abortStoreError(c, err)
		return
	}
	if err := tasks.EnqueueDelete(ctx, h.store, h.queue.Name, h.queue.MaxAttempts, id); err != nil {
		abortError(c, http.StatusInternalServerError, "QUEUE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "deletion queued"})
}

func (h *GroupHandler) groupResponse(c *gin.Context, g *store.MeterGroup) models.MeterGroupResponse {
	ingested, err := h.store.IngestedMeterCount(c.Request.Context(), g.ID)
	if err != nil {
		log.WithError(err).WithField("group", g.ID).Warn("counting ingested meters")
	}
	return models.MeterGroupResponse{
		ID:             g.ID,
		Name:           g.Name,
		ExpectedMeters: g.ExpectedMeters,
		IngestedMeters: ingested,
		Complete:       g.Completed(),
		CreatedAt:      g.CreatedAt,
		CompletedAt:    g.CompletedAt,
		ExpiresAt:      g.ExpiresAt,
	}
}
