package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/roster-engine-go/pkg/models"
)

type createEmployeeRequest struct {
	ID     string   `json:"id"`
	Name   string   `json:"name" binding:"required"`
	Active *bool    `json:"active"`
	Skills []string `json:"skills"`
}

// CreateEmployee adds a directory record
func (h *Handler) CreateEmployee(c *gin.Context) {
	var req createEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	emp := models.Employee{
		ID:     req.ID,
		Name:   req.Name,
		Active: true,
		Skills: models.StringList(req.Skills),
	}
	if req.Active != nil {
		emp.Active = *req.Active
	}
	if err := h.Store.CreateEmployee(&emp); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, emp)
}

// ListEmployees returns directory records
func (h *Handler) ListEmployees(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	emps, err := h.Store.ListEmployees(activeOnly)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": emps})
}

type availabilityRecordRequest struct {
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Type      string `json:"type"`
	ShiftName string `json:"shift_name"`
	Pinned    bool   `json:"pinned"`
	Forbidden bool   `json:"forbidden"`
}

// ReplaceAvailability swaps out the full availability set for one employee
func (h *Handler) ReplaceAvailability(c *gin.Context) {
	var req struct {
		Records []availabilityRecordRequest `json:"records"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records := make([]models.EmployeeAvailability, 0, len(req.Records))
	for _, r := range req.Records {
		records = append(records, models.EmployeeAvailability{
			Date:      r.Date,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Type:      r.Type,
			ShiftName: r.ShiftName,
			Pinned:    r.Pinned,
			Forbidden: r.Forbidden,
		})
	}
	if err := h.Store.ReplaceAvailability(c.Param("id"), records); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Availability updated", "count": len(records)})
}
