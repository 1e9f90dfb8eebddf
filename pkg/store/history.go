package store

import (
	"github.com/arnavshah/roster-engine-go/pkg/models"
	"github.com/arnavshah/roster-engine-go/pkg/roster"
)

// HistoryTally aggregates per-employee assignment counts from currently
// published schedules. The solver carries these into a run so fairness does
// not reset at every schedule boundary.
func (s *Store) HistoryTally(policy roster.Policy) (roster.Tally, error) {
	var slots []models.ScheduleAssignment
	err := s.db.
		Where("employee_id IS NOT NULL").
		Where("schedule_id IN (?)",
			s.db.Model(&models.GeneratedSchedule{}).
				Select("id").
				Where("status = ?", models.StatusPublished)).
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	tally := make(roster.Tally)
	for _, sl := range slots {
		tally.Add(*sl.EmployeeID, policy.IsNight(sl.StartTime), roster.IsWeekend(sl.StartTime))
	}
	return tally, nil
}
