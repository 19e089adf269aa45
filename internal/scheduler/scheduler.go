// Package scheduler triggers reconciliation passes and housekeeping on cron
// schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mrlokans/offlinemirror/internal/logging"
	"github.com/mrlokans/offlinemirror/internal/syncer"
)

// MaintenanceSchedule runs housekeeping once a day at 03:30.
const MaintenanceSchedule = "30 3 * * *"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five field cron expression.
func ValidateSchedule(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// Syncer is satisfied by *syncer.Manager.
type Syncer interface {
	SyncNow(ctx context.Context, force bool) (syncer.Result, error)
}

// SyncScheduler periodically asks the sync manager for a gated pass. The
// manager's minimum interval decides whether the pass does any work.
type SyncScheduler struct {
	syncer      Syncer
	schedule    string
	maintenance func(ctx context.Context) error

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	isSyncing bool
	ctx       context.Context
	log       zerolog.Logger
}

func NewSyncScheduler(s Syncer, schedule string) *SyncScheduler {
	return &SyncScheduler{
		syncer:   s,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(parser)),
		ctx:      context.Background(),
		log:      logging.Component("scheduler"),
	}
}

// OnMaintenance registers fn to run on MaintenanceSchedule. Must be called
// before Start.
func (s *SyncScheduler) OnMaintenance(fn func(ctx context.Context) error) {
	s.maintenance = fn
}

// Start begins the scheduler. Jobs run with ctx until Stop.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return err
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.runSync)
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	s.entryID = entryID

	if s.maintenance != nil {
		if _, err := s.cron.AddFunc(MaintenanceSchedule, s.runMaintenance); err != nil {
			return fmt.Errorf("failed to schedule maintenance job: %w", err)
		}
	}

	s.ctx = ctx
	s.cron.Start()
	s.isRunning = true

	s.log.Info().Str("schedule", s.schedule).Time("next_run", s.nextRunLocked()).Msg("Sync scheduler started")
	return nil
}

// Stop stops accepting new runs and waits for running ones to finish.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	stopped := s.cron.Stop()
	s.mu.Unlock()

	<-stopped.Done()
	for _, e := range s.cron.Entries() {
		s.cron.Remove(e.ID)
	}
	s.log.Info().Msg("Sync scheduler stopped")
}

// Serve runs the scheduler until ctx is done.
func (s *SyncScheduler) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}

// RunNow triggers an immediate scheduled pass in the background.
func (s *SyncScheduler) RunNow() {
	go s.runSync()
}

func (s *SyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *SyncScheduler) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// NextRun returns nil when the scheduler is stopped.
func (s *SyncScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return nil
	}
	t := s.nextRunLocked()
	return &t
}

func (s *SyncScheduler) nextRunLocked() time.Time {
	return s.cron.Entry(s.entryID).Next
}

func (s *SyncScheduler) runSync() {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		s.log.Debug().Msg("Scheduled sync skipped, previous run still active")
		return
	}
	s.isSyncing = true
	ctx := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	res, err := s.syncer.SyncNow(ctx, false)
	switch {
	case errors.Is(err, syncer.ErrOffline), errors.Is(err, syncer.ErrSyncRunning):
		s.log.Debug().Err(err).Msg("Scheduled sync skipped")
	case err != nil:
		s.log.Error().Err(err).Msg("Scheduled sync failed")
	case res.Skipped:
		s.log.Debug().Str("reason", res.Reason).Msg("Scheduled sync gated")
	}
}

func (s *SyncScheduler) runMaintenance() {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	if err := s.maintenance(ctx); err != nil {
		s.log.Error().Err(err).Msg("Maintenance job failed")
	}
}

func (s *SyncScheduler) String() string {
	return "sync-scheduler"
}
