package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/roster-engine-go/internal/worker"
	"github.com/arnavshah/roster-engine-go/pkg/models"
)

type startRunRequest struct {
	TemplateID          string `json:"template_id"`
	StartDate           string `json:"start_date" binding:"required"`
	EndDate             string `json:"end_date" binding:"required"`
	PreserveManualEdits bool   `json:"preserve_manual_edits"`
	Seed                *int64 `json:"seed"`
	ExistingScheduleID  string `json:"existing_schedule_id"`
	Version             int    `json:"version"`
}

// StartRun validates synchronously, creates or requeues a draft and hands the
// generation job to the worker; solving happens off-request.
func (h *Handler) StartRun(c *gin.Context) {
	var req startRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	from, err := time.Parse(models.DateLayout, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, want YYYY-MM-DD"})
		return
	}
	to, err := time.Parse(models.DateLayout, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date, want YYYY-MM-DD"})
		return
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date range is inverted"})
		return
	}

	var sched *models.GeneratedSchedule
	if req.ExistingScheduleID != "" {
		existing, err := h.Store.GetScheduleHeader(req.ExistingScheduleID)
		if err != nil {
			fail(c, err)
			return
		}
		version := req.Version
		if version == 0 {
			version = existing.Version
		}
		sched, err = h.Store.PrepareRerun(existing.ID, version, req.Seed)
		if err != nil {
			fail(c, err)
			return
		}
	} else {
		if req.TemplateID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "template_id is required"})
			return
		}
		tpl, err := h.Store.GetTemplate(req.TemplateID)
		if err != nil {
			fail(c, err)
			return
		}
		if len(tpl.Entries) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "template has an empty coverage plan"})
			return
		}
		sched, err = h.Store.CreateDraft(tpl.ID, req.StartDate, req.EndDate, req.Seed)
		if err != nil {
			fail(c, err)
			return
		}
	}

	job := worker.RunJob{
		ScheduleID:          sched.ID,
		PreserveManualEdits: req.PreserveManualEdits,
	}
	if err := h.Dispatcher.Enqueue(c.Request.Context(), job); err != nil {
		fail(c, err)
		return
	}

	h.RecordUsage(c, 1, 0)

	c.JSON(http.StatusAccepted, gin.H{
		"schedule_id": sched.ID,
		"run_state":   models.RunStateQueued,
		"status":      sched.Status,
		"version":     sched.Version,
	})
}

// ListRuns returns recent run metadata for operational visibility
func (h *Handler) ListRuns(c *gin.Context) {
	runs, err := h.Store.ListRuns(50)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(runs))
	for _, r := range runs {
		out = append(out, gin.H{
			"schedule_id":    r.ID,
			"template_id":    r.TemplateID,
			"start_date":     r.StartDate,
			"end_date":       r.EndDate,
			"status":         r.Status,
			"run_state":      r.RunState,
			"run_error":      r.RunError,
			"slot_count":     r.SlotCount,
			"conflict_count": r.ConflictCount,
			"warning_count":  r.WarningCount,
			"score":          r.Score,
			"created_at":     r.CreatedAt,
			"updated_at":     r.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}
