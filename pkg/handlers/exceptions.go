package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/roster-engine-go/pkg/models"
)

type createExceptionRequest struct {
	ScheduleID string `json:"schedule_id" binding:"required"`
	SlotID     string `json:"slot_id"`
	EmployeeID string `json:"employee_id"`
	Kind       string `json:"kind" binding:"required"`
	Reason     string `json:"reason"`
}

// CreateException files a pending exception request
func (h *Handler) CreateException(c *gin.Context) {
	var req createExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ex := models.ScheduleException{
		ScheduleID: req.ScheduleID,
		SlotID:     req.SlotID,
		EmployeeID: req.EmployeeID,
		Kind:       req.Kind,
		Reason:     req.Reason,
		CreatedBy:  actor(c),
	}
	if err := h.Store.CreateException(&ex); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ex)
}

// ListExceptions returns exceptions, optionally filtered by schedule
func (h *Handler) ListExceptions(c *gin.Context) {
	exs, err := h.Store.ListExceptions(c.Query("schedule_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exceptions": exs})
}

// ApproveException approves a pending exception
func (h *Handler) ApproveException(c *gin.Context) {
	ex, err := h.Store.DecideException(c.Param("id"), true, actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ex)
}

// RejectException rejects a pending exception
func (h *Handler) RejectException(c *gin.Context) {
	ex, err := h.Store.DecideException(c.Param("id"), false, actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ex)
}
