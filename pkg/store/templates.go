package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnavshah/roster-engine-go/pkg/models"
)

// CreateTemplate validates and persists a template with its coverage plan.
func (s *Store) CreateTemplate(tpl *models.ShiftTemplate) error {
	if tpl.Name == "" {
		return fmt.Errorf("%w: template name is required", ErrValidation)
	}
	if len(tpl.Entries) == 0 {
		return fmt.Errorf("%w: coverage plan is empty", ErrValidation)
	}
	if tpl.Timezone == "" {
		tpl.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(tpl.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrValidation, tpl.Timezone)
	}
	if tpl.MinRestHours < 0 || tpl.MaxConsecutiveNights < 0 {
		return fmt.Errorf("%w: rest rules cannot be negative", ErrValidation)
	}
	for i := range tpl.Entries {
		e := &tpl.Entries[i]
		if e.ShiftName == "" {
			return fmt.Errorf("%w: coverage entry %d has no shift name", ErrValidation, i)
		}
		if e.RequiredCount <= 0 {
			return fmt.Errorf("%w: coverage entry %q requires a positive headcount", ErrValidation, e.ShiftName)
		}
		if len(e.Days) == 0 {
			return fmt.Errorf("%w: coverage entry %q applies to no days", ErrValidation, e.ShiftName)
		}
		for _, d := range e.Days {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: coverage entry %q has invalid day %d", ErrValidation, e.ShiftName, d)
			}
		}
		if _, err := time.Parse(models.ClockLayout, e.StartTime); err != nil {
			return fmt.Errorf("%w: coverage entry %q has invalid start time %q", ErrValidation, e.ShiftName, e.StartTime)
		}
		if _, err := time.Parse(models.ClockLayout, e.EndTime); err != nil {
			return fmt.Errorf("%w: coverage entry %q has invalid end time %q", ErrValidation, e.ShiftName, e.EndTime)
		}
	}

	tpl.ID = uuid.NewString()
	tpl.Version = 1
	for i := range tpl.Entries {
		tpl.Entries[i].ID = uuid.NewString()
		tpl.Entries[i].TemplateID = tpl.ID
	}
	return s.db.Create(tpl).Error
}

// ListTemplates returns all templates with their coverage plans.
func (s *Store) ListTemplates() ([]models.ShiftTemplate, error) {
	var tpls []models.ShiftTemplate
	err := s.db.Preload("Entries").Order("created_at desc").Find(&tpls).Error
	return tpls, err
}

// GetTemplate loads one template with its coverage plan.
func (s *Store) GetTemplate(id string) (*models.ShiftTemplate, error) {
	var tpl models.ShiftTemplate
	if err := s.db.Preload("Entries").First(&tpl, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &tpl, nil
}

// DeleteTemplate removes a template unless a published (or archived,
// previously published) schedule references it.
func (s *Store) DeleteTemplate(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.GeneratedSchedule{}).
			Where("template_id = ? AND status IN ?", id, []models.Status{models.StatusPublished, models.StatusArchived}).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrTemplateInUse
		}
		if err := tx.Delete(&models.CoverageEntry{}, "template_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.DemandRequirement{}, "template_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.ShiftTemplate{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// UpsertRequirement stores a demand override, enforcing that at most one
// active requirement exists per (template, shift, day, scope, window).
func (s *Store) UpsertRequirement(req *models.DemandRequirement) error {
	if req.RequiredCount < 0 {
		return fmt.Errorf("%w: requirement headcount cannot be negative", ErrValidation)
	}
	if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
		return fmt.Errorf("%w: invalid day of week %d", ErrValidation, req.DayOfWeek)
	}
	if req.EffectiveFrom == "" || req.EffectiveTo == "" || req.EffectiveFrom > req.EffectiveTo {
		return fmt.Errorf("%w: invalid effective window", ErrValidation)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var clash int64
		if err := tx.Model(&models.DemandRequirement{}).
			Where("template_id = ? AND shift_name = ? AND day_of_week = ? AND scope = ?",
				req.TemplateID, req.ShiftName, req.DayOfWeek, req.Scope).
			Where("effective_from <= ? AND effective_to >= ?", req.EffectiveTo, req.EffectiveFrom).
			Count(&clash).Error; err != nil {
			return err
		}
		if clash > 0 {
			return fmt.Errorf("%w: overlapping requirement already active for that shift/day/scope", ErrValidation)
		}
		req.ID = uuid.NewString()
		return tx.Create(req).Error
	})
}

// ListRequirements returns demand overrides for one template.
func (s *Store) ListRequirements(templateID string) ([]models.DemandRequirement, error) {
	var reqs []models.DemandRequirement
	err := s.db.Where("template_id = ?", templateID).Find(&reqs).Error
	return reqs, err
}
