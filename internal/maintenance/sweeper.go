// Package maintenance runs the background housekeeping jobs.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/craftforge/forge-backend/internal/logging"
)

// StaleArchiver archives draft projects that went untouched for too long.
// Implemented by the project repository.
type StaleArchiver interface {
	ArchiveStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Sweeper schedules the nightly stale-draft sweep.
type Sweeper struct {
	repo     StaleArchiver
	draftTTL time.Duration
	cron     *cron.Cron
}

// NewSweeper creates a sweeper. draftTTL is how long a draft may sit untouched
// before it is archived.
func NewSweeper(repo StaleArchiver, draftTTL time.Duration) *Sweeper {
	return &Sweeper{repo: repo, draftTTL: draftTTL}
}

// Start schedules the sweep nightly at midnight. A non-positive TTL disables
// the sweeper entirely.
func (s *Sweeper) Start() error {
	if s.draftTTL <= 0 {
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc("0 0 * * *", s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	logger := logging.New(logging.WithRequestID(ctx, "sweeper"))
	n, err := s.repo.ArchiveStale(ctx, s.draftTTL)
	if err != nil {
		logger.Error("sweep_stale_drafts", err)
		return
	}
	if n > 0 {
		logger.Infof("sweep_stale_drafts", "archived=%d older_than=%s", n, s.draftTTL)
	}
}
