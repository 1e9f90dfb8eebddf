package store

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnavshah/roster-engine-go/pkg/models"
)

// CreateEmployee adds a directory record.
func (s *Store) CreateEmployee(emp *models.Employee) error {
	if emp.Name == "" {
		return fmt.Errorf("%w: employee name is required", ErrValidation)
	}
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}
	return s.db.Create(emp).Error
}

// ListEmployees returns directory records, optionally active ones only.
func (s *Store) ListEmployees(activeOnly bool) ([]models.Employee, error) {
	q := s.db.Order("id")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var emps []models.Employee
	err := q.Find(&emps).Error
	return emps, err
}

// GetEmployee loads one directory record.
func (s *Store) GetEmployee(id string) (*models.Employee, error) {
	var emp models.Employee
	if err := s.db.First(&emp, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &emp, nil
}

// ReplaceAvailability swaps out every availability record for one employee.
// The pinned/forbidden exclusivity invariant is checked per date across the
// whole batch before anything is written.
func (s *Store) ReplaceAvailability(employeeID string, records []models.EmployeeAvailability) error {
	if _, err := s.GetEmployee(employeeID); err != nil {
		return err
	}

	pinned := make(map[string]bool)
	forbidden := make(map[string]bool)
	for i := range records {
		r := &records[i]
		if r.Pinned && r.Forbidden {
			return ErrPinnedForbidden
		}
		if r.Date == "" {
			return fmt.Errorf("%w: availability record %d has no date", ErrValidation, i)
		}
		switch r.Type {
		case "", models.AvailabilityAvailable, models.AvailabilityUnavailable,
			models.AvailabilityPreferred, models.AvailabilityBlackout:
		default:
			return fmt.Errorf("%w: unknown availability type %q", ErrValidation, r.Type)
		}
		if r.Type == "" {
			r.Type = models.AvailabilityAvailable
		}
		if r.Pinned {
			pinned[r.Date] = true
		}
		if r.Forbidden {
			forbidden[r.Date] = true
		}
		r.ID = uuid.NewString()
		r.EmployeeID = employeeID
	}
	for date := range pinned {
		if forbidden[date] {
			return ErrPinnedForbidden
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.EmployeeAvailability{}, "employee_id = ?", employeeID).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
}

// AvailabilityInRange returns every employee's records between two inclusive
// dates, the snapshot a generation run solves against.
func (s *Store) AvailabilityInRange(from, to string) ([]models.EmployeeAvailability, error) {
	var recs []models.EmployeeAvailability
	err := s.db.Where("date >= ? AND date <= ?", from, to).Find(&recs).Error
	return recs, err
}
