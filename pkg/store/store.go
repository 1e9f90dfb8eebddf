// Package store is the durable side of the engine: templates, availability,
// schedules and their slots, exceptions and the audit trail, all behind
// optimistic per-schedule versioning so concurrent writers are rejected
// instead of merged.
package store

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arnavshah/roster-engine-go/pkg/models"
)

var (
	// ErrNotFound wraps gorm's record-not-found for callers.
	ErrNotFound = errors.New("record not found")
	// ErrStaleVersion signals a concurrent writer won; the caller should
	// refetch and retry.
	ErrStaleVersion = errors.New("schedule version is stale")
	// ErrFrozen rejects mutations against published or archived schedules.
	ErrFrozen = errors.New("schedule is published and frozen")
	// ErrConflictsUnresolved blocks publishing while conflict slots remain.
	ErrConflictsUnresolved = errors.New("schedule has unresolved conflicts")
	// ErrWarningsUnacked blocks publishing warnings without acknowledgement.
	ErrWarningsUnacked = errors.New("schedule has warnings that must be acknowledged")
	// ErrTemplateInUse refuses deleting a template a published schedule uses.
	ErrTemplateInUse = errors.New("template is referenced by a published schedule")
	// ErrPinnedForbidden rejects availability records that are both pinned
	// and forbidden for the same employee and date.
	ErrPinnedForbidden = errors.New("pinned and forbidden are mutually exclusive")
	// ErrDoubleBooked rejects placing an employee twice at the same instant.
	ErrDoubleBooked = errors.New("employee is already assigned at that time")
	// ErrValidation covers synchronous input validation failures.
	ErrValidation = errors.New("validation failed")
)

// Store wraps the database with the engine's persistence operations.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// New returns a Store over an initialized database.
func New(db *gorm.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log}
}

// DB exposes the underlying handle for ambient concerns (key metering).
func (s *Store) DB() *gorm.DB { return s.db }

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// bumpVersion performs the optimistic version check-and-increment on a
// schedule row inside tx. Any extra column updates ride along.
func bumpVersion(tx *gorm.DB, scheduleID string, version int, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["version"] = gorm.Expr("version + 1")
	res := tx.Model(&models.GeneratedSchedule{}).
		Where("id = ? AND version = ?", scheduleID, version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

// audit appends an immutable audit entry inside tx. diff may be any
// JSON-marshalable payload.
func audit(tx *gorm.DB, entityType, entityID, scheduleID, action, actor string, diff interface{}) error {
	payload := ""
	if diff != nil {
		if b, err := json.Marshal(diff); err == nil {
			payload = string(b)
		}
	}
	return tx.Create(&models.AuditLogEntry{
		EntityType: entityType,
		EntityID:   entityID,
		ScheduleID: scheduleID,
		Action:     action,
		Actor:      actor,
		Diff:       payload,
	}).Error
}

// ListAudit returns the audit trail for one schedule, newest first.
func (s *Store) ListAudit(scheduleID string, limit int) ([]models.AuditLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []models.AuditLogEntry
	err := s.db.Where("schedule_id = ?", scheduleID).
		Order("id desc").Limit(limit).Find(&entries).Error
	return entries, err
}
