package models

import "fmt"

// Status is a schedule's lifecycle state.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusPublished       Status = "published"
	StatusRejected        Status = "rejected"
	StatusArchived        Status = "archived"
)

// transitions is the closed set of legal lifecycle moves. Draft may publish
// directly (the gate still checks conflicts); archived is reachable from
// published when a newer run supersedes it, and from draft when an abandoned
// draft is swept.
var transitions = map[Status][]Status{
	StatusDraft:           {StatusPendingApproval, StatusPublished, StatusRejected, StatusArchived},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusPublished},
	StatusPublished:       {StatusArchived},
	StatusRejected:        {},
	StatusArchived:        {},
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether the lifecycle permits moving to next.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Transition validates the move and returns the new state.
func (s Status) Transition(next Status) (Status, error) {
	if !next.Valid() {
		return s, fmt.Errorf("unknown schedule status %q", next)
	}
	if !s.CanTransition(next) {
		return s, fmt.Errorf("illegal schedule transition %s -> %s", s, next)
	}
	return next, nil
}

// SlotStatus classifies one slot after conflict detection. The set is closed:
// a slot is exactly one of these at any time.
type SlotStatus string

const (
	SlotUnassigned SlotStatus = "unassigned"
	SlotAssigned   SlotStatus = "assigned"
	SlotConflict   SlotStatus = "conflict"
	SlotWarning    SlotStatus = "warning"
)

// Conflict and warning flags surfaced to the review UI.
const (
	FlagNoAvailableCandidate = "no_available_candidate"
	FlagHeadcountUnmet       = "headcount_unmet"
	FlagForcedByException    = "forced_by_exception"
	FlagPreferenceMismatch   = "preference_mismatch"
	FlagManualOverride       = "manual_override"
)
