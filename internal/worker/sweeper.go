package worker

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/arnavshah/roster-engine-go/pkg/store"
)

// StartSweeper schedules the hourly pass that archives drafts nobody has
// touched within ttl. Abandoned drafts never reach production, so archiving
// them is safe at any time.
func StartSweeper(st *store.Store, ttl time.Duration, log *zap.Logger) *cron.Cron {
	if log == nil {
		log = zap.NewNop()
	}
	c := cron.New()
	c.AddFunc("@hourly", func() {
		n, err := st.ArchiveStaleDrafts(ttl)
		if err != nil {
			log.Warn("draft sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			log.Info("archived stale drafts", zap.Int64("count", n))
		}
	})
	c.Start()
	return c
}
