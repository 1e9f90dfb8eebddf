// Package journal keeps the undo/redo machinery for manual slot edits. The
// durable mutations live in the store; the stacks here are per-schedule,
// per-session process state and are allowed to vanish on restart.
package journal

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/arnavshah/roster-engine-go/pkg/models"
)

var (
	// ErrNothingToUndo means the session's undo stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo means the session's redo stack is empty.
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Applier persists one journaled mutation. The store satisfies this.
type Applier interface {
	ApplyJournal(scheduleID, slotID string, employeeID *string, actor, action string) error
}

// Entry is one reversible slot mutation.
type Entry struct {
	ScheduleID   string
	SlotID       string
	FromEmployee *string
	ToEmployee   *string
}

type stacks struct {
	undo []Entry
	redo []Entry
}

// Journal holds the per-(schedule, session) undo and redo stacks.
type Journal struct {
	mu      sync.Mutex
	applier Applier
	log     *zap.Logger
	byKey   map[string]*stacks
}

// New returns a journal that applies reversals through the given applier.
func New(applier Applier, log *zap.Logger) *Journal {
	if log == nil {
		log = zap.NewNop()
	}
	return &Journal{
		applier: applier,
		log:     log,
		byKey:   make(map[string]*stacks),
	}
}

func key(scheduleID, sessionID string) string {
	return scheduleID + "/" + sessionID
}

func (j *Journal) session(scheduleID, sessionID string) *stacks {
	k := key(scheduleID, sessionID)
	s, ok := j.byKey[k]
	if !ok {
		s = &stacks{}
		j.byKey[k] = s
	}
	return s
}

// Record registers a fresh manual edit. A new edit invalidates the session's
// redo history, as redoing past it would replay a divergent timeline.
func (j *Journal) Record(edit *models.ManualEdit, sessionID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.session(edit.ScheduleID, sessionID)
	s.undo = append(s.undo, Entry{
		ScheduleID:   edit.ScheduleID,
		SlotID:       edit.SlotID,
		FromEmployee: edit.FromEmployee,
		ToEmployee:   edit.ToEmployee,
	})
	s.redo = nil
}

// Undo re-applies the inverse of the session's most recent edit and moves the
// entry onto the redo stack. The inverse mutation is persisted before the
// stacks change, so a failed apply leaves both stacks intact.
func (j *Journal) Undo(scheduleID, sessionID, actor string) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.session(scheduleID, sessionID)
	if len(s.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	e := s.undo[len(s.undo)-1]
	if err := j.applier.ApplyJournal(e.ScheduleID, e.SlotID, e.FromEmployee, actor, "undo"); err != nil {
		return nil, err
	}
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, e)
	j.log.Info("undo applied",
		zap.String("schedule_id", scheduleID),
		zap.String("slot_id", e.SlotID),
	)
	return &e, nil
}

// Redo re-applies the most recently undone edit.
func (j *Journal) Redo(scheduleID, sessionID, actor string) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.session(scheduleID, sessionID)
	if len(s.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	e := s.redo[len(s.redo)-1]
	if err := j.applier.ApplyJournal(e.ScheduleID, e.SlotID, e.ToEmployee, actor, "redo"); err != nil {
		return nil, err
	}
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, e)
	j.log.Info("redo applied",
		zap.String("schedule_id", scheduleID),
		zap.String("slot_id", e.SlotID),
	)
	return &e, nil
}

// Depths reports the stack sizes for one session, for the review UI.
func (j *Journal) Depths(scheduleID, sessionID string) (undo, redo int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.session(scheduleID, sessionID)
	return len(s.undo), len(s.redo)
}
