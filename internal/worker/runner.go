package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arnavshah/roster-engine-go/pkg/models"
	"github.com/arnavshah/roster-engine-go/pkg/roster"
	"github.com/arnavshah/roster-engine-go/pkg/store"
)

// RunJob identifies one queued generation run.
type RunJob struct {
	ScheduleID          string `json:"schedule_id"`
	PreserveManualEdits bool   `json:"preserve_manual_edits"`
}

// Runner executes generation runs against the store. One invocation is one
// run: expand demand, filter, solve, classify, then commit or commit nothing.
type Runner struct {
	store  *store.Store
	policy roster.Policy
	log    *zap.Logger
}

// NewRunner wires a runner.
func NewRunner(st *store.Store, policy roster.Policy, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{store: st, policy: policy, log: log}
}

// Execute performs one run. Failures are recorded on the schedule row and
// leave the prior draft state untouched.
func (r *Runner) Execute(ctx context.Context, job RunJob) {
	sched, err := r.store.MarkRunning(job.ScheduleID)
	if err != nil {
		r.log.Warn("run not started", zap.String("schedule_id", job.ScheduleID), zap.Error(err))
		return
	}
	if err := r.solve(ctx, sched, job.PreserveManualEdits); err != nil {
		r.log.Error("run failed",
			zap.String("schedule_id", job.ScheduleID),
			zap.Error(err),
		)
		if mErr := r.store.MarkRunFailed(job.ScheduleID, err); mErr != nil {
			r.log.Error("could not record run failure", zap.Error(mErr))
		}
	}
}

func (r *Runner) solve(ctx context.Context, sched *models.GeneratedSchedule, preserve bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tpl, err := r.store.GetTemplate(sched.TemplateID)
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}
	reqs, err := r.store.ListRequirements(tpl.ID)
	if err != nil {
		return fmt.Errorf("load requirements: %w", err)
	}
	stubs, err := roster.ExpandDemand(tpl, reqs, sched.StartDate, sched.EndDate)
	if err != nil {
		return fmt.Errorf("expand demand: %w", err)
	}

	employees, err := r.store.ListEmployees(true)
	if err != nil {
		return fmt.Errorf("load employees: %w", err)
	}
	avail, err := r.store.AvailabilityInRange(sched.StartDate, sched.EndDate)
	if err != nil {
		return fmt.Errorf("load availability: %w", err)
	}
	history, err := r.store.HistoryTally(r.policy)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	seed := time.Now().UnixNano()
	if sched.Seed != nil {
		seed = *sched.Seed
	}

	directives, err := r.store.RunDirectives(sched.ID)
	if err != nil {
		return fmt.Errorf("load exceptions: %w", err)
	}

	// Locked manual edits survive a preserving rerun: their rows are kept,
	// their placements are booked into the solver before it touches anything,
	// and they go through the classification pass with everything else.
	var kept []models.ScheduleAssignment
	var keptSlots []*roster.Slot
	slots := make([]*roster.Slot, 0, len(stubs))
	if preserve {
		locked, err := r.store.LockedSlots(sched.ID)
		if err != nil {
			return fmt.Errorf("load locked slots: %w", err)
		}
		consumed := make([]bool, len(stubs))
		for _, row := range locked {
			kept = append(kept, row)
			sl := &roster.Slot{
				SlotStub: roster.SlotStub{
					Date:          row.Date,
					ShiftName:     row.ShiftName,
					Start:         row.StartTime,
					End:           row.EndTime,
					RequiredSkill: row.RequiredSkill,
					PositionIndex: row.PositionIndex,
				},
				Source: row.Source,
				Locked: true,
				Flags:  []string(row.Flags),
			}
			if row.EmployeeID != nil {
				sl.EmployeeID = *row.EmployeeID
			}
			keptSlots = append(keptSlots, sl)
			for i, stub := range stubs {
				if consumed[i] || stub.Date != row.Date || stub.ShiftName != row.ShiftName {
					continue
				}
				consumed[i] = true
				break
			}
		}
		for i, stub := range stubs {
			if !consumed[i] {
				slots = append(slots, &roster.Slot{SlotStub: stub})
			}
		}
	} else {
		for _, stub := range stubs {
			slots = append(slots, &roster.Slot{SlotStub: stub})
		}
	}

	rules := roster.Rules{
		MinRestHours:         tpl.MinRestHours,
		MaxConsecutiveNights: tpl.MaxConsecutiveNights,
	}
	solver := roster.NewSolver(employees, avail, rules, r.policy, history, seed)
	for _, d := range directives {
		if d.Kind == models.ExceptionPreventAssign {
			solver.Prevent(d.EmployeeID, d.Date, d.ShiftName)
		}
	}

	// Approved force placements are fixed before the greedy pass. The forced
	// row keeps the slot id the exception names, so the approval still covers
	// it at the publish gate after this run replaces the slot rows.
	keptIDs := make(map[string]bool, len(kept))
	for i := range kept {
		keptIDs[kept[i].ID] = true
	}
	var forced []*roster.Slot
	reuseID := make(map[*roster.Slot]string)
	for _, d := range directives {
		if d.Kind != models.ExceptionForceAssign {
			continue
		}
		for _, sl := range slots {
			if sl.EmployeeID != "" || sl.Date != d.Date || sl.ShiftName != d.ShiftName {
				continue
			}
			sl.EmployeeID = d.EmployeeID
			sl.Source = models.SourceSystem
			sl.Flags = append(sl.Flags, models.FlagForcedByException)
			forced = append(forced, sl)
			if !keptIDs[d.SlotID] {
				reuseID[sl] = d.SlotID
			}
			break
		}
	}

	solver.Prefill(keptSlots)
	solver.Prefill(forced)
	solver.Solve(slots)

	all := make([]*roster.Slot, 0, len(slots)+len(keptSlots))
	all = append(all, slots...)
	all = append(all, keptSlots...)
	sum := roster.Classify(all, avail, r.policy)
	for i := range keptSlots {
		kept[i].Status = keptSlots[i].Status
		kept[i].Flags = models.StringList(keptSlots[i].Flags)
	}

	empIDs := make([]string, len(employees))
	for i, e := range employees {
		empIDs[i] = e.ID
	}
	score := roster.FairnessScore(solver.Tally(), empIDs)

	var hard, soft []string
	for _, c := range solver.Conflicts {
		hard = append(hard, fmt.Sprintf("%s %s[%d]: %s", c.Date, c.ShiftName, c.PositionIndex, c.Reason))
	}
	for _, sl := range keptSlots {
		if sl.Status == models.SlotConflict && sl.EmployeeID == "" {
			hard = append(hard, fmt.Sprintf("%s %s[%d]: %s", sl.Date, sl.ShiftName, sl.PositionIndex, models.FlagHeadcountUnmet))
		}
	}
	for _, sl := range all {
		if sl.Status == models.SlotWarning {
			soft = append(soft, fmt.Sprintf("%s %s[%d]: %s", sl.Date, sl.ShiftName, sl.PositionIndex, models.FlagPreferenceMismatch))
		}
	}
	rows := make([]models.ScheduleAssignment, 0, len(slots))
	for _, sl := range slots {
		var empID *string
		if sl.EmployeeID != "" {
			id := sl.EmployeeID
			empID = &id
		}
		rows = append(rows, models.ScheduleAssignment{
			ID:            reuseID[sl],
			ScheduleID:    sched.ID,
			Date:          sl.Date,
			ShiftName:     sl.ShiftName,
			StartTime:     sl.Start,
			EndTime:       sl.End,
			RequiredSkill: sl.RequiredSkill,
			PositionIndex: sl.PositionIndex,
			EmployeeID:    empID,
			Source:        defaultSource(sl.Source),
			Status:        sl.Status,
			Flags:         models.StringList(sl.Flags),
		})
	}

	summary := store.RunSummary{
		Seed:           seed,
		Score:          score,
		SlotCount:      len(all),
		ConflictCount:  sum.Conflicts,
		WarningCount:   sum.Warnings,
		HardViolations: hard,
		SoftViolations: soft,
	}
	if err := r.store.CommitRun(sched.ID, sched.Version, rows, kept, summary); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	r.log.Info("run completed",
		zap.String("schedule_id", sched.ID),
		zap.Int("slots", len(all)),
		zap.Int("conflicts", sum.Conflicts),
		zap.Int("warnings", sum.Warnings),
		zap.Float64("score", score),
	)
	return nil
}

func defaultSource(src string) string {
	if src == "" {
		return models.SourceAlgorithm
	}
	return src
}
