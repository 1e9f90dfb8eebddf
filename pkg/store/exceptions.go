package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnavshah/roster-engine-go/pkg/models"
)

// CreateException files a request to permit a violation or force/prevent an
// assignment. It starts pending.
func (s *Store) CreateException(ex *models.ScheduleException) error {
	switch ex.Kind {
	case models.ExceptionPermitViolation:
	case models.ExceptionForceAssign:
		if ex.EmployeeID == "" || ex.SlotID == "" {
			return fmt.Errorf("%w: force_assign needs an employee and a slot", ErrValidation)
		}
	case models.ExceptionPreventAssign:
		if ex.EmployeeID == "" {
			return fmt.Errorf("%w: prevent_assign needs an employee", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown exception kind %q", ErrValidation, ex.Kind)
	}
	if _, err := s.GetScheduleHeader(ex.ScheduleID); err != nil {
		return err
	}
	ex.ID = uuid.NewString()
	ex.Status = models.ExceptionPending
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ex).Error; err != nil {
			return err
		}
		return audit(tx, "exception", ex.ID, ex.ScheduleID, models.AuditCreate, ex.CreatedBy, ex)
	})
}

// ListExceptions returns exceptions, optionally for one schedule.
func (s *Store) ListExceptions(scheduleID string) ([]models.ScheduleException, error) {
	q := s.db.Order("created_at desc")
	if scheduleID != "" {
		q = q.Where("schedule_id = ?", scheduleID)
	}
	var exs []models.ScheduleException
	err := q.Find(&exs).Error
	return exs, err
}

// DecideException approves or rejects a pending exception.
func (s *Store) DecideException(id string, approve bool, actor string) (*models.ScheduleException, error) {
	var ex models.ScheduleException
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ex, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if ex.Status != models.ExceptionPending {
			return fmt.Errorf("%w: exception %s is already %s", ErrValidation, id, ex.Status)
		}
		now := time.Now()
		ex.DecidedBy = actor
		ex.DecidedAt = &now
		action := models.AuditReject
		ex.Status = models.ExceptionRejected
		if approve {
			ex.Status = models.ExceptionApproved
			action = models.AuditApprove
		}
		if err := tx.Save(&ex).Error; err != nil {
			return err
		}
		return audit(tx, "exception", ex.ID, ex.ScheduleID, action, actor, map[string]interface{}{
			"status": ex.Status,
		})
	})
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

// Directive is one approved force/prevent exception resolved against the
// slot it names, in the form the run pipeline consumes.
type Directive struct {
	Kind       string
	EmployeeID string
	SlotID     string
	Date       string
	ShiftName  string
}

// RunDirectives resolves the approved force_assign and prevent_assign
// exceptions for a schedule. A directive naming a slot carries that slot's
// date and shift; a prevent directive without a slot applies schedule-wide.
// Force directives whose slot no longer exists are dropped.
func (s *Store) RunDirectives(scheduleID string) ([]Directive, error) {
	var exs []models.ScheduleException
	if err := s.db.Where("schedule_id = ? AND status = ? AND kind IN ?",
		scheduleID, models.ExceptionApproved,
		[]string{models.ExceptionForceAssign, models.ExceptionPreventAssign}).
		Find(&exs).Error; err != nil {
		return nil, err
	}
	out := make([]Directive, 0, len(exs))
	for _, ex := range exs {
		if ex.EmployeeID == "" {
			continue
		}
		d := Directive{Kind: ex.Kind, EmployeeID: ex.EmployeeID, SlotID: ex.SlotID}
		if ex.SlotID != "" {
			var slot models.ScheduleAssignment
			err := s.db.First(&slot, "id = ? AND schedule_id = ?", ex.SlotID, scheduleID).Error
			switch {
			case err == nil:
				d.Date = slot.Date
				d.ShiftName = slot.ShiftName
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return nil, err
			}
		}
		if d.Kind == models.ExceptionForceAssign && d.Date == "" {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// approvedPermitsTx returns the slot ids whose hard violations an approved
// exception covers, the set the publish gate lets through. An approved force
// placement classifies as a conflict, so its approval doubles as the permit.
func (s *Store) approvedPermitsTx(tx *gorm.DB, scheduleID string) (map[string]bool, error) {
	var exs []models.ScheduleException
	if err := tx.Where("schedule_id = ? AND status = ? AND kind IN ?",
		scheduleID, models.ExceptionApproved,
		[]string{models.ExceptionPermitViolation, models.ExceptionForceAssign}).
		Find(&exs).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(exs))
	for _, ex := range exs {
		if ex.SlotID != "" {
			out[ex.SlotID] = true
		}
	}
	return out, nil
}
