package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/roster-engine-go/pkg/models"
	"github.com/arnavshah/roster-engine-go/pkg/store"
)

// GetSchedule returns the header, full slot list and conflict summary
func (h *Handler) GetSchedule(c *gin.Context) {
	sched, err := h.Store.GetSchedule(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	conflicts := make([]gin.H, 0)
	for _, sl := range sched.Slots {
		if sl.Status == models.SlotConflict || sl.Status == models.SlotWarning {
			conflicts = append(conflicts, gin.H{
				"slot_id":        sl.ID,
				"date":           sl.Date,
				"shift_name":     sl.ShiftName,
				"position_index": sl.PositionIndex,
				"status":         sl.Status,
				"flags":          sl.Flags,
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"schedule": sched, "conflicts": conflicts})
}

type updateSlotRequest struct {
	EmployeeID *string `json:"employee_id"`
	ManualLock *bool   `json:"manual_lock"`
	Version    int     `json:"version" binding:"required"`
}

// UpdateSlot applies a manual override to one slot and journals it
func (h *Handler) UpdateSlot(c *gin.Context) {
	var req updateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	who := actor(c)
	session := sessionID(c)
	slot, edit, err := h.Store.UpdateSlot(c.Param("id"), req.Version, c.Param("slotId"), store.SlotUpdate{
		EmployeeID: req.EmployeeID,
		ManualLock: req.ManualLock,
	}, who, session)
	if err != nil {
		fail(c, err)
		return
	}
	h.Journal.Record(edit, session)
	c.JSON(http.StatusOK, gin.H{"slot": slot})
}

// Undo reverses the session's most recent manual edit
func (h *Handler) Undo(c *gin.Context) {
	entry, err := h.Journal.Undo(c.Param("id"), sessionID(c), actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	undo, redo := h.Journal.Depths(c.Param("id"), sessionID(c))
	c.JSON(http.StatusOK, gin.H{
		"slot_id":     entry.SlotID,
		"employee_id": entry.FromEmployee,
		"undo_depth":  undo,
		"redo_depth":  redo,
	})
}

// Redo replays the session's most recently undone edit
func (h *Handler) Redo(c *gin.Context) {
	entry, err := h.Journal.Redo(c.Param("id"), sessionID(c), actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	undo, redo := h.Journal.Depths(c.Param("id"), sessionID(c))
	c.JSON(http.StatusOK, gin.H{
		"slot_id":     entry.SlotID,
		"employee_id": entry.ToEmployee,
		"undo_depth":  undo,
		"redo_depth":  redo,
	})
}

type publishRequest struct {
	Version             int  `json:"version" binding:"required"`
	AcknowledgeWarnings bool `json:"acknowledge_warnings"`
}

// PublishSchedule runs the publish gate
func (h *Handler) PublishSchedule(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sched, err := h.Store.Publish(c.Param("id"), req.Version, req.AcknowledgeWarnings, actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": sched})
}

type transitionRequest struct {
	Status  models.Status `json:"status" binding:"required"`
	Version int           `json:"version" binding:"required"`
}

// TransitionStatus moves a schedule through the approval workflow
func (h *Handler) TransitionStatus(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sched, err := h.Store.TransitionStatus(c.Param("id"), req.Version, req.Status, actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": sched})
}

// ListAudit returns the audit trail for one schedule
func (h *Handler) ListAudit(c *gin.Context) {
	entries, err := h.Store.ListAudit(c.Param("id"), 100)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit": entries})
}
