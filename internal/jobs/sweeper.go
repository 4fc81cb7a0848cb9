package jobs

import (
	"context" // Sweep cancellation
	"errors"  // Error comparison
	"time"    // Grace period cutoff

	"campus_identity/internal/store" // User persistence

	"github.com/robfig/cron/v3"  // Scheduler
	"github.com/sirupsen/logrus" // Structured logging
)

const sweepBatchSize = 200 // Orphans fetched per round

// Sweeper removes students and teachers that never got a profile, releasing their email and registration number
type Sweeper struct {
	repo  store.Repository // User persistence
	grace time.Duration    // Minimum age before a user counts as orphaned
	now   func() time.Time // Clock
	cron  *cron.Cron       // Scheduler
}

// NewSweeper creates a sweeper that leaves users younger than grace alone
func NewSweeper(repo store.Repository, grace time.Duration) *Sweeper {
	logger := cron.PrintfLogger(logrus.StandardLogger())
	return &Sweeper{
		repo:  repo,
		grace: grace,
		now:   time.Now,
		cron:  cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
	}
}

// Start schedules the sweep; schedule accepts six-field cron specs and descriptors such as "@every 1h"
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		logrus.WithField("job", "orphan_sweep").Info("job started")
		if _, err := s.RunOnce(context.Background()); err != nil {
			logrus.WithError(err).Error("orphan sweep failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	logrus.WithField("schedule", schedule).Info("orphan sweep scheduled")
	return nil
}

// Stop waits for a running sweep to finish
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce hard-deletes every orphan older than the grace period and returns how many were removed
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.grace)
	removed := 0
	for {
		orphans, err := s.repo.Users().ListOrphans(ctx, cutoff, sweepBatchSize)
		if err != nil {
			return removed, err
		}
		failed := 0
		for _, u := range orphans {
			// A row already gone counts as removed
			if err := s.repo.Users().HardDelete(ctx, u.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				failed++
				logrus.WithFields(logrus.Fields{"user_id": u.ID, "error": err}).Warn("failed to remove orphan user")
				continue
			}
			removed++
			logrus.WithFields(logrus.Fields{
				"user_id": u.ID,
				"role":    u.Role,
				"created": u.CreatedAt,
			}).Info("removed orphan user")
		}
		if len(orphans) < sweepBatchSize || failed > 0 {
			break // Last page, or failures that would be refetched forever
		}
	}
	if removed > 0 {
		logrus.WithField("removed", removed).Info("orphan sweep finished")
	}
	return removed, nil
}
