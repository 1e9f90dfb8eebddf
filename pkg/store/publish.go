package store

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arnavshah/roster-engine-go/pkg/models"
)

// TransitionStatus moves a schedule through the approval workflow. Publishing
// must go through Publish, which owns the gate and the supersede transaction.
func (s *Store) TransitionStatus(scheduleID string, version int, next models.Status, actor string) (*models.GeneratedSchedule, error) {
	if next == models.StatusPublished {
		return nil, fmt.Errorf("%w: use the publish operation to publish", ErrValidation)
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sched models.GeneratedSchedule
		if err := tx.First(&sched, "id = ?", scheduleID).Error; err != nil {
			return notFound(err)
		}
		newStatus, err := sched.Status.Transition(next)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		updates := map[string]interface{}{"status": newStatus}
		if newStatus == models.StatusArchived {
			updates["archived_at"] = time.Now()
		}
		if err := bumpVersion(tx, scheduleID, version, updates); err != nil {
			return err
		}
		action := models.AuditUpdate
		switch newStatus {
		case models.StatusApproved:
			action = models.AuditApprove
		case models.StatusRejected:
			action = models.AuditReject
		case models.StatusArchived:
			action = models.AuditArchive
		}
		return audit(tx, "schedule", scheduleID, scheduleID, action, actor, map[string]interface{}{
			"from": sched.Status,
			"to":   newStatus,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetScheduleHeader(scheduleID)
}

// Publish is the one-way gate: it verifies no conflict slot remains without
// an approved covering exception, requires explicit acknowledgement when
// warnings are present, then atomically archives any previously published
// schedule with an overlapping date range and freezes this one as published.
func (s *Store) Publish(scheduleID string, version int, ackWarnings bool, actor string) (*models.GeneratedSchedule, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sched models.GeneratedSchedule
		if err := tx.First(&sched, "id = ?", scheduleID).Error; err != nil {
			return notFound(err)
		}
		if _, err := sched.Status.Transition(models.StatusPublished); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if sched.RunState == models.RunStateQueued || sched.RunState == models.RunStateRunning {
			return fmt.Errorf("%w: a generation run is still in progress", ErrValidation)
		}

		var slots []models.ScheduleAssignment
		if err := tx.Where("schedule_id = ?", scheduleID).Find(&slots).Error; err != nil {
			return err
		}
		permitted, err := s.approvedPermitsTx(tx, scheduleID)
		if err != nil {
			return err
		}
		warnings := 0
		for _, sl := range slots {
			switch sl.Status {
			case models.SlotConflict:
				if !permitted[sl.ID] {
					return ErrConflictsUnresolved
				}
			case models.SlotUnassigned:
				// An unfilled slot that escaped classification still leaves
				// coverage short; treat it like a conflict at the gate.
				if !permitted[sl.ID] {
					return ErrConflictsUnresolved
				}
			case models.SlotWarning:
				warnings++
			}
		}
		if warnings > 0 && !ackWarnings {
			return ErrWarningsUnacked
		}

		// Supersede: any published schedule overlapping this date range is
		// archived in the same transaction.
		now := time.Now()
		var overlapping []models.GeneratedSchedule
		if err := tx.Where("status = ? AND id <> ? AND start_date <= ? AND end_date >= ?",
			models.StatusPublished, scheduleID, sched.EndDate, sched.StartDate).
			Find(&overlapping).Error; err != nil {
			return err
		}
		for _, old := range overlapping {
			if err := tx.Model(&models.GeneratedSchedule{}).
				Where("id = ?", old.ID).
				Updates(map[string]interface{}{
					"status":      models.StatusArchived,
					"archived_at": now,
					"version":     gorm.Expr("version + 1"),
				}).Error; err != nil {
				return err
			}
			if err := audit(tx, "schedule", old.ID, old.ID, models.AuditArchive, actor, map[string]interface{}{
				"superseded_by": scheduleID,
			}); err != nil {
				return err
			}
		}

		if err := bumpVersion(tx, scheduleID, version, map[string]interface{}{
			"status":       models.StatusPublished,
			"published_at": now,
		}); err != nil {
			return err
		}
		return audit(tx, "schedule", scheduleID, scheduleID, models.AuditPublish, actor, map[string]interface{}{
			"warnings_acknowledged": ackWarnings,
			"superseded":            len(overlapping),
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("schedule published",
		zap.String("schedule_id", scheduleID),
		zap.String("actor", actor),
	)
	return s.GetScheduleHeader(scheduleID)
}
