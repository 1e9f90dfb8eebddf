package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arnavshah/roster-engine-go/pkg/models"
)

// RunSummary is what a completed generation run writes onto its schedule row.
type RunSummary struct {
	Seed           int64
	Score          float64
	SlotCount      int
	ConflictCount  int
	WarningCount   int
	HardViolations []string
	SoftViolations []string
}

// CreateDraft opens a new draft schedule for a run about to start.
func (s *Store) CreateDraft(templateID, from, to string, seed *int64) (*models.GeneratedSchedule, error) {
	if _, err := s.GetTemplate(templateID); err != nil {
		return nil, err
	}
	sched := &models.GeneratedSchedule{
		ID:         uuid.NewString(),
		TemplateID: templateID,
		StartDate:  from,
		EndDate:    to,
		Algorithm:  models.AlgorithmGreedyFairness,
		Status:     models.StatusDraft,
		RunState:   models.RunStateQueued,
		Seed:       seed,
		Version:    1,
	}
	if err := s.db.Create(sched).Error; err != nil {
		return nil, err
	}
	return sched, nil
}

// PrepareRerun requeues an existing draft for another solve. Only drafts may
// be rerun; the rerun does not change lifecycle status.
func (s *Store) PrepareRerun(scheduleID string, version int, seed *int64) (*models.GeneratedSchedule, error) {
	var sched models.GeneratedSchedule
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sched, "id = ?", scheduleID).Error; err != nil {
			return notFound(err)
		}
		if sched.Status != models.StatusDraft {
			return fmt.Errorf("%w: only drafts can be rerun (status %s)", ErrValidation, sched.Status)
		}
		updates := map[string]interface{}{
			"run_state": models.RunStateQueued,
			"run_error": "",
		}
		if seed != nil {
			updates["seed"] = *seed
		}
		return bumpVersion(tx, scheduleID, version, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.GetScheduleHeader(scheduleID)
}

// MarkRunning flips a queued run to running and returns the fresh header; the
// returned version is what CommitRun must present.
func (s *Store) MarkRunning(scheduleID string) (*models.GeneratedSchedule, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sched models.GeneratedSchedule
		if err := tx.First(&sched, "id = ?", scheduleID).Error; err != nil {
			return notFound(err)
		}
		if sched.Status != models.StatusDraft {
			return fmt.Errorf("%w: schedule %s is not a draft", ErrValidation, scheduleID)
		}
		if sched.RunState != models.RunStateQueued {
			return fmt.Errorf("%w: schedule %s has no queued run", ErrValidation, scheduleID)
		}
		return bumpVersion(tx, scheduleID, sched.Version, map[string]interface{}{
			"run_state": models.RunStateRunning,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetScheduleHeader(scheduleID)
}

// MarkRunFailed records a failed run. The draft's slots are untouched.
func (s *Store) MarkRunFailed(scheduleID string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	return s.db.Model(&models.GeneratedSchedule{}).
		Where("id = ?", scheduleID).
		Updates(map[string]interface{}{
			"run_state": models.RunStateFailed,
			"run_error": msg,
		}).Error
}

// CommitRun atomically replaces a draft's non-kept slots with the solver's
// output and stamps the run summary. Kept rows (manually locked slots on a
// preserving rerun) survive with their ids and are re-saved so they carry the
// run's classification. If any writer touched the schedule since MarkRunning,
// the whole commit is rejected and nothing changes.
func (s *Store) CommitRun(scheduleID string, version int, slots, kept []models.ScheduleAssignment, sum RunSummary) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		keepIDs := make([]string, 0, len(kept))
		for i := range kept {
			keepIDs = append(keepIDs, kept[i].ID)
		}
		del := tx.Where("schedule_id = ?", scheduleID)
		if len(keepIDs) > 0 {
			del = del.Where("id NOT IN ?", keepIDs)
		}
		if err := del.Delete(&models.ScheduleAssignment{}).Error; err != nil {
			return err
		}
		for i := range kept {
			kept[i].ScheduleID = scheduleID
			if err := tx.Save(&kept[i]).Error; err != nil {
				return err
			}
		}
		for i := range slots {
			if slots[i].ID == "" {
				slots[i].ID = uuid.NewString()
			}
			slots[i].ScheduleID = scheduleID
		}
		if len(slots) > 0 {
			if err := tx.Create(&slots).Error; err != nil {
				return err
			}
		}
		return bumpVersion(tx, scheduleID, version, map[string]interface{}{
			"run_state":       models.RunStateCompleted,
			"run_error":       "",
			"seed":            sum.Seed,
			"score":           sum.Score,
			"slot_count":      sum.SlotCount,
			"conflict_count":  sum.ConflictCount,
			"warning_count":   sum.WarningCount,
			"hard_violations": models.StringList(sum.HardViolations),
			"soft_violations": models.StringList(sum.SoftViolations),
		})
	})
}

// GetScheduleHeader loads a schedule without its slots.
func (s *Store) GetScheduleHeader(id string) (*models.GeneratedSchedule, error) {
	var sched models.GeneratedSchedule
	if err := s.db.First(&sched, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sched, nil
}

// GetSchedule loads a schedule with its full slot list in solver order.
func (s *Store) GetSchedule(id string) (*models.GeneratedSchedule, error) {
	var sched models.GeneratedSchedule
	err := s.db.Preload("Slots", func(db *gorm.DB) *gorm.DB {
		return db.Order("date, start_time, shift_name, position_index")
	}).First(&sched, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sched, nil
}

// LockedSlots returns a draft's manually locked slots, the set a preserving
// rerun must not re-solve.
func (s *Store) LockedSlots(scheduleID string) ([]models.ScheduleAssignment, error) {
	var slots []models.ScheduleAssignment
	err := s.db.Where("schedule_id = ? AND manual_lock = ?", scheduleID, true).
		Order("date, start_time, shift_name, position_index").
		Find(&slots).Error
	return slots, err
}

// ListRuns returns recent run metadata, newest first.
func (s *Store) ListRuns(limit int) ([]models.GeneratedSchedule, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var runs []models.GeneratedSchedule
	err := s.db.Order("created_at desc").Limit(limit).Find(&runs).Error
	return runs, err
}

// SlotUpdate is a manual override request against one slot.
type SlotUpdate struct {
	EmployeeID *string // nil unassigns
	ManualLock *bool   // nil defaults to true; manual edits lock unless told otherwise
}

// UpdateSlot applies a manual override: reassigns or unassigns the slot,
// marks it manually locked, journals the mutation and audits it. The caller
// must present the schedule version it read.
func (s *Store) UpdateSlot(scheduleID string, version int, slotID string, upd SlotUpdate, actor, sessionID string) (*models.ScheduleAssignment, *models.ManualEdit, error) {
	var slot models.ScheduleAssignment
	var edit models.ManualEdit
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sched models.GeneratedSchedule
		if err := tx.First(&sched, "id = ?", scheduleID).Error; err != nil {
			return notFound(err)
		}
		if sched.Frozen() {
			return ErrFrozen
		}
		if err := tx.First(&slot, "id = ? AND schedule_id = ?", slotID, scheduleID).Error; err != nil {
			return notFound(err)
		}
		if upd.EmployeeID != nil {
			emp, err := s.getEmployeeTx(tx, *upd.EmployeeID)
			if err != nil {
				return err
			}
			if !emp.Active {
				return fmt.Errorf("%w: employee %s is inactive", ErrValidation, emp.ID)
			}
			var clash int64
			if err := tx.Model(&models.ScheduleAssignment{}).
				Where("schedule_id = ? AND employee_id = ? AND id <> ?", scheduleID, *upd.EmployeeID, slotID).
				Where("start_time < ? AND end_time > ?", slot.EndTime, slot.StartTime).
				Count(&clash).Error; err != nil {
				return err
			}
			if clash > 0 {
				return ErrDoubleBooked
			}
		}

		edit = models.ManualEdit{
			ScheduleID:   scheduleID,
			SlotID:       slotID,
			FromEmployee: slot.EmployeeID,
			ToEmployee:   upd.EmployeeID,
			Actor:        actor,
			SessionID:    sessionID,
		}
		if err := tx.Create(&edit).Error; err != nil {
			return err
		}

		lock := true
		if upd.ManualLock != nil {
			lock = *upd.ManualLock
		}
		slot.EmployeeID = upd.EmployeeID
		slot.Source = models.SourceManual
		slot.ManualLock = lock
		if upd.EmployeeID == nil {
			slot.Status = models.SlotUnassigned
		} else {
			slot.Status = models.SlotAssigned
		}
		slot.Flags = appendUnique(slot.Flags, models.FlagManualOverride)
		if err := tx.Save(&slot).Error; err != nil {
			return err
		}

		if err := audit(tx, "assignment", slotID, scheduleID, models.AuditManualEdit, actor, map[string]interface{}{
			"from": edit.FromEmployee,
			"to":   edit.ToEmployee,
		}); err != nil {
			return err
		}
		return bumpVersion(tx, scheduleID, version, nil)
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("manual slot edit",
		zap.String("schedule_id", scheduleID),
		zap.String("slot_id", slotID),
		zap.String("actor", actor),
	)
	return &slot, &edit, nil
}

// ApplyJournal rewinds or replays one journaled mutation on behalf of
// undo/redo. It does not append to the journal itself; the in-memory stacks
// own that bookkeeping.
func (s *Store) ApplyJournal(scheduleID, slotID string, employeeID *string, actor, action string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var sched models.GeneratedSchedule
		if err := tx.First(&sched, "id = ?", scheduleID).Error; err != nil {
			return notFound(err)
		}
		if sched.Frozen() {
			return ErrFrozen
		}
		var slot models.ScheduleAssignment
		if err := tx.First(&slot, "id = ? AND schedule_id = ?", slotID, scheduleID).Error; err != nil {
			return notFound(err)
		}
		slot.EmployeeID = employeeID
		slot.Source = models.SourceManual
		slot.ManualLock = true
		if employeeID == nil {
			slot.Status = models.SlotUnassigned
		} else {
			slot.Status = models.SlotAssigned
		}
		if err := tx.Save(&slot).Error; err != nil {
			return err
		}
		if err := audit(tx, "assignment", slotID, scheduleID, action, actor, map[string]interface{}{
			"employee": employeeID,
		}); err != nil {
			return err
		}
		return bumpVersion(tx, scheduleID, sched.Version, nil)
	})
}

// ArchiveStaleDrafts archives drafts untouched for longer than ttl. An
// abandoned draft never reached production, so archiving it is free of risk.
func (s *Store) ArchiveStaleDrafts(ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl)
	now := time.Now()
	res := s.db.Model(&models.GeneratedSchedule{}).
		Where("status = ? AND updated_at < ? AND run_state <> ?", models.StatusDraft, cutoff, models.RunStateRunning).
		Updates(map[string]interface{}{
			"status":      models.StatusArchived,
			"archived_at": now,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) getEmployeeTx(tx *gorm.DB, id string) (*models.Employee, error) {
	var emp models.Employee
	if err := tx.First(&emp, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &emp, nil
}

func appendUnique(flags models.StringList, flag string) models.StringList {
	if flags.Contains(flag) {
		return flags
	}
	return append(flags, flag)
}
