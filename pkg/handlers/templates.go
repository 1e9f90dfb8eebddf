package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/roster-engine-go/pkg/models"
)

type coverageEntryRequest struct {
	Days          []int  `json:"days" binding:"required"`
	ShiftName     string `json:"shift_name" binding:"required"`
	StartTime     string `json:"start_time" binding:"required"`
	EndTime       string `json:"end_time" binding:"required"`
	RequiredCount int    `json:"required_count" binding:"required"`
	RequiredSkill string `json:"required_skill"`
}

type createTemplateRequest struct {
	OrgID                string                 `json:"org_id"`
	Name                 string                 `json:"name" binding:"required"`
	Timezone             string                 `json:"timezone"`
	MinRestHours         int                    `json:"min_rest_hours"`
	MaxConsecutiveNights int                    `json:"max_consecutive_nights"`
	Entries              []coverageEntryRequest `json:"entries" binding:"required"`
}

// CreateTemplate stores a new shift template with its coverage plan
func (h *Handler) CreateTemplate(c *gin.Context) {
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tpl := models.ShiftTemplate{
		OrgID:                req.OrgID,
		Name:                 req.Name,
		Timezone:             req.Timezone,
		MinRestHours:         req.MinRestHours,
		MaxConsecutiveNights: req.MaxConsecutiveNights,
	}
	for _, e := range req.Entries {
		tpl.Entries = append(tpl.Entries, models.CoverageEntry{
			Days:          models.IntList(e.Days),
			ShiftName:     e.ShiftName,
			StartTime:     e.StartTime,
			EndTime:       e.EndTime,
			RequiredCount: e.RequiredCount,
			RequiredSkill: e.RequiredSkill,
		})
	}

	if err := h.Store.CreateTemplate(&tpl); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

// ListTemplates returns all templates
func (h *Handler) ListTemplates(c *gin.Context) {
	tpls, err := h.Store.ListTemplates()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": tpls})
}

// GetTemplate returns one template with coverage plan and demand overrides
func (h *Handler) GetTemplate(c *gin.Context) {
	tpl, err := h.Store.GetTemplate(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	reqs, err := h.Store.ListRequirements(tpl.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": tpl, "requirements": reqs})
}

// DeleteTemplate removes a template unless a published schedule references it
func (h *Handler) DeleteTemplate(c *gin.Context) {
	if err := h.Store.DeleteTemplate(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Template deleted"})
}

type requirementRequest struct {
	ShiftName     string `json:"shift_name" binding:"required"`
	DayOfWeek     *int   `json:"day_of_week" binding:"required"`
	Scope         string `json:"scope"`
	EffectiveFrom string `json:"effective_from" binding:"required"`
	EffectiveTo   string `json:"effective_to" binding:"required"`
	RequiredCount int    `json:"required_count"`
	RequiredSkill string `json:"required_skill"`
}

// CreateRequirement adds a demand override to a template
func (h *Handler) CreateRequirement(c *gin.Context) {
	var req requirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r := models.DemandRequirement{
		TemplateID:    c.Param("id"),
		ShiftName:     req.ShiftName,
		DayOfWeek:     *req.DayOfWeek,
		Scope:         req.Scope,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
		RequiredCount: req.RequiredCount,
		RequiredSkill: req.RequiredSkill,
	}
	if _, err := h.Store.GetTemplate(r.TemplateID); err != nil {
		fail(c, err)
		return
	}
	if err := h.Store.UpsertRequirement(&r); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}
