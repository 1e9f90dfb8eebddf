package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// StringList is stored as a pipe-joined TEXT column so it works the same on
// sqlite and postgres.
type StringList []string

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("StringList.Scan: unsupported type %T", src)
	}
	if s == "" {
		*l = StringList{}
		return nil
	}
	*l = StringList(strings.Split(s, "|"))
	return nil
}

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return strings.Join(l, "|"), nil
}

// Contains reports whether s is present in the list.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// IntList is stored the same way as StringList.
type IntList []int

// Scan implements sql.Scanner.
func (l *IntList) Scan(src interface{}) error {
	var raw StringList
	if err := raw.Scan(src); err != nil {
		return err
	}
	if raw == nil {
		*l = nil
		return nil
	}
	out := make(IntList, 0, len(raw))
	for _, p := range raw {
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%d", &n); err != nil {
			return fmt.Errorf("IntList.Scan: invalid element %q: %w", p, err)
		}
		out = append(out, n)
	}
	*l = out
	return nil
}

// Value implements driver.Valuer.
func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	parts := make([]string, len(l))
	for i, n := range l {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, "|"), nil
}

// Contains reports whether n is present in the list.
func (l IntList) Contains(n int) bool {
	for _, v := range l {
		if v == n {
			return true
		}
	}
	return false
}

// DateLayout is the canonical storage format for calendar dates.
const DateLayout = "2006-01-02"

// ClockLayout is the canonical format for times of day in coverage plans.
const ClockLayout = "15:04"

// Employee is the engine's read view of the employee directory. Id, active
// status and skills are all the solver is allowed to know about a person.
type Employee struct {
	ID        string     `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"not null" json:"name"`
	Active    bool       `gorm:"not null;default:true" json:"active"`
	Skills    StringList `gorm:"type:text" json:"skills"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ShiftTemplate names a coverage plan plus the rest rules that constrain the
// solver. A template referenced by a published schedule must not be edited;
// changes require a new template.
type ShiftTemplate struct {
	ID                   string          `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID                string          `gorm:"index" json:"org_id"`
	Name                 string          `gorm:"not null" json:"name"`
	Timezone             string          `gorm:"not null;default:'UTC'" json:"timezone"`
	MinRestHours         int             `gorm:"not null;default:11" json:"min_rest_hours"`
	MaxConsecutiveNights int             `gorm:"not null;default:3" json:"max_consecutive_nights"`
	Version              int             `gorm:"not null;default:1" json:"version"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	Entries              []CoverageEntry `gorm:"foreignKey:TemplateID" json:"entries"`
}

// CoverageEntry is one line of a coverage plan: which days of week need how
// many people on a named shift, optionally with a required skill.
type CoverageEntry struct {
	ID            string  `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID    string  `gorm:"type:uuid;index;not null" json:"template_id"`
	Days          IntList `gorm:"type:text;not null" json:"days"` // time.Weekday values, 0=Sunday
	ShiftName     string  `gorm:"not null" json:"shift_name"`
	StartTime     string  `gorm:"not null" json:"start_time"` // "15:04"
	EndTime       string  `gorm:"not null" json:"end_time"`   // "15:04"; <= start means the shift crosses midnight
	RequiredCount int     `gorm:"not null" json:"required_count"`
	RequiredSkill string  `json:"required_skill"`
}

// DemandRequirement is a scoped override of a coverage entry: within its
// effective window it replaces the entry's headcount/skill for matching days.
// At most one active requirement per (template, shift, day, scope, window);
// the store enforces this on write.
type DemandRequirement struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID    string    `gorm:"type:uuid;index;not null" json:"template_id"`
	ShiftName     string    `gorm:"not null" json:"shift_name"`
	DayOfWeek     int       `gorm:"not null" json:"day_of_week"`
	Scope         string    `json:"scope"` // sub-team or location, empty for template-wide
	EffectiveFrom string    `gorm:"not null" json:"effective_from"` // inclusive
	EffectiveTo   string    `gorm:"not null" json:"effective_to"`   // inclusive
	RequiredCount int       `gorm:"not null" json:"required_count"`
	RequiredSkill string    `json:"required_skill"`
	CreatedAt     time.Time `json:"created_at"`
}

// Covers reports whether the requirement is in effect on the given date.
func (r *DemandRequirement) Covers(date string) bool {
	return r.EffectiveFrom <= date && date <= r.EffectiveTo
}

// Availability record types.
const (
	AvailabilityAvailable   = "available"
	AvailabilityUnavailable = "unavailable"
	AvailabilityPreferred   = "preferred"
	AvailabilityBlackout    = "blackout"
)

// EmployeeAvailability is one dated record for one employee. Pinned and
// Forbidden are mutually exclusive; the store rejects records setting both.
type EmployeeAvailability struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID string    `gorm:"type:uuid;index:idx_avail_emp_date;not null" json:"employee_id"`
	Date       string    `gorm:"index:idx_avail_emp_date;not null" json:"date"`
	StartTime  string    `json:"start_time"` // optional "15:04" window start
	EndTime    string    `json:"end_time"`   // optional "15:04" window end
	Type       string    `gorm:"not null;default:'available'" json:"type"`
	ShiftName  string    `json:"shift_name"` // optional, narrows a pin to one shift
	Pinned     bool      `gorm:"not null;default:false" json:"pinned"`
	Forbidden  bool      `gorm:"not null;default:false" json:"forbidden"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasWindow reports whether the record carries a time-of-day window.
func (a *EmployeeAvailability) HasWindow() bool {
	return a.StartTime != "" && a.EndTime != ""
}

// Run states of a generation run attached to a schedule.
const (
	RunStateQueued    = "queued"
	RunStateRunning   = "running"
	RunStateCompleted = "completed"
	RunStateFailed    = "failed"
)

// AlgorithmGreedyFairness identifies the single-pass fairness-weighted solver.
const AlgorithmGreedyFairness = "greedy-fairness-v1"

// GeneratedSchedule is one generation run's durable output: a draft roster
// moving through the lifecycle state machine. Rows are never deleted, only
// archived. Version is the optimistic counter every writer must present.
type GeneratedSchedule struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID     string     `gorm:"type:uuid;index;not null" json:"template_id"`
	StartDate      string     `gorm:"not null" json:"start_date"`
	EndDate        string     `gorm:"not null" json:"end_date"`
	Algorithm      string     `gorm:"not null" json:"algorithm"`
	Status         Status     `gorm:"not null;default:'draft'" json:"status"`
	RunState       string     `gorm:"not null;default:'queued'" json:"run_state"`
	RunError       string     `json:"run_error,omitempty"`
	Seed           *int64     `json:"seed,omitempty"`
	Score          float64    `json:"score"`
	SlotCount      int        `json:"slot_count"`
	ConflictCount  int        `json:"conflict_count"`
	WarningCount   int        `json:"warning_count"`
	HardViolations StringList `gorm:"type:text" json:"hard_violations"`
	SoftViolations StringList `gorm:"type:text" json:"soft_violations"`
	Version        int        `gorm:"not null;default:1" json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`

	Slots []ScheduleAssignment `gorm:"foreignKey:ScheduleID" json:"slots,omitempty"`
}

// Frozen reports whether the schedule no longer accepts assignment mutations.
func (s *GeneratedSchedule) Frozen() bool {
	return s.Status == StatusPublished || s.Status == StatusArchived
}

// Assignment sources.
const (
	SourceAlgorithm = "algorithm"
	SourceManual    = "manual"
	SourceSystem    = "system"
)

// ScheduleAssignment is one slot: a single headcount unit of one shift on one
// date. The unique index prevents double-booking an employee into the same
// instant within one schedule.
type ScheduleAssignment struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleID    string     `gorm:"type:uuid;index;uniqueIndex:idx_slot_booking;not null" json:"schedule_id"`
	Date          string     `gorm:"not null" json:"date"`
	ShiftName     string     `gorm:"not null" json:"shift_name"`
	StartTime     time.Time  `gorm:"uniqueIndex:idx_slot_booking;not null" json:"start_time"`
	EndTime       time.Time  `gorm:"not null" json:"end_time"`
	RequiredSkill string     `json:"required_skill"`
	PositionIndex int        `gorm:"not null" json:"position_index"`
	EmployeeID    *string    `gorm:"type:uuid;uniqueIndex:idx_slot_booking" json:"employee_id"`
	Source        string     `gorm:"not null;default:'algorithm'" json:"source"`
	Status        SlotStatus `gorm:"not null;default:'unassigned'" json:"status"`
	Flags         StringList `gorm:"type:text" json:"flags"`
	ManualLock    bool       `gorm:"not null;default:false" json:"manual_lock"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Exception kinds and workflow states.
const (
	ExceptionPermitViolation = "permit_violation"
	ExceptionForceAssign     = "force_assign"
	ExceptionPreventAssign   = "prevent_assign"

	ExceptionPending  = "pending"
	ExceptionApproved = "approved"
	ExceptionRejected = "rejected"
)

// ScheduleException requests permission for a hard-constraint violation, or
// to force/prevent an assignment, with its own approval workflow.
type ScheduleException struct {
	ID         string     `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleID string     `gorm:"type:uuid;index;not null" json:"schedule_id"`
	SlotID     string     `gorm:"type:uuid;index" json:"slot_id"`
	EmployeeID string     `gorm:"type:uuid" json:"employee_id"`
	Kind       string     `gorm:"not null" json:"kind"`
	Reason     string     `json:"reason"`
	Status     string     `gorm:"not null;default:'pending'" json:"status"`
	DecidedBy  string     `json:"decided_by,omitempty"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Audit actions.
const (
	AuditCreate     = "create"
	AuditUpdate     = "update"
	AuditDelete     = "delete"
	AuditApprove    = "approve"
	AuditReject     = "reject"
	AuditSwap       = "swap"
	AuditManualEdit = "manual_edit"
	AuditPublish    = "publish"
	AuditArchive    = "archive"
)

// AuditLogEntry is an immutable record of a mutation against a schedule,
// assignment or exception. Diff carries a JSON before/after payload.
type AuditLogEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EntityType string    `gorm:"index:idx_audit_entity;not null" json:"entity_type"`
	EntityID   string    `gorm:"index:idx_audit_entity;not null" json:"entity_id"`
	ScheduleID string    `gorm:"type:uuid;index" json:"schedule_id"`
	Action     string    `gorm:"not null" json:"action"`
	Actor      string    `gorm:"not null" json:"actor"`
	Diff       string    `gorm:"type:text" json:"diff"`
	CreatedAt  time.Time `json:"created_at"`
}

// ManualEdit is one journaled human slot mutation, the durable half of the
// undo/redo machinery.
type ManualEdit struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ScheduleID   string    `gorm:"type:uuid;index;not null" json:"schedule_id"`
	SlotID       string    `gorm:"type:uuid;not null" json:"slot_id"`
	FromEmployee *string   `gorm:"type:uuid" json:"from_employee"`
	ToEmployee   *string   `gorm:"type:uuid" json:"to_employee"`
	Actor        string    `gorm:"not null" json:"actor"`
	SessionID    string    `gorm:"index" json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
}
