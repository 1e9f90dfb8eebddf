package models

import "testing"

func TestStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to Status
	}{
		{StatusDraft, StatusPendingApproval},
		{StatusDraft, StatusPublished},
		{StatusDraft, StatusRejected},
		{StatusDraft, StatusArchived},
		{StatusPendingApproval, StatusApproved},
		{StatusPendingApproval, StatusRejected},
		{StatusApproved, StatusPublished},
		{StatusPublished, StatusArchived},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Errorf("Expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct {
		from, to Status
	}{
		{StatusPublished, StatusDraft},
		{StatusArchived, StatusDraft},
		{StatusArchived, StatusPublished},
		{StatusRejected, StatusPublished},
		{StatusApproved, StatusDraft},
		{StatusPendingApproval, StatusPublished},
	}
	for _, tc := range denied {
		if tc.from.CanTransition(tc.to) {
			t.Errorf("Expected %s -> %s to be refused", tc.from, tc.to)
		}
	}
}

func TestStatusTransitionError(t *testing.T) {
	if _, err := StatusArchived.Transition(StatusDraft); err == nil {
		t.Fatal("Expected error for archived -> draft")
	}
	got, err := StatusDraft.Transition(StatusPendingApproval)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != StatusPendingApproval {
		t.Errorf("Transition returned %s", got)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusDraft, StatusPendingApproval, StatusApproved, StatusPublished, StatusRejected, StatusArchived} {
		if !s.Valid() {
			t.Errorf("Expected %s to be valid", s)
		}
	}
	if Status("live").Valid() {
		t.Error("Unknown status should be invalid")
	}
}

func TestScheduleFrozen(t *testing.T) {
	for status, frozen := range map[Status]bool{
		StatusDraft:           false,
		StatusPendingApproval: false,
		StatusApproved:        false,
		StatusPublished:       true,
		StatusArchived:        true,
	} {
		s := GeneratedSchedule{Status: status}
		if s.Frozen() != frozen {
			t.Errorf("Status %s: Frozen() = %v, want %v", status, s.Frozen(), frozen)
		}
	}
}
