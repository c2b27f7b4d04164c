package service

import (
	"context"
	"time"

	"desorientado_backend/pkg/logger"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

type pendingSyncer interface {
	SyncPending(ctx context.Context) (int, error)
}

// SyncScheduler periodically pushes local progress copies that failed to
// reach the document store.
type SyncScheduler struct {
	scheduler *gocron.Scheduler
	syncer    pendingSyncer
	interval  time.Duration
}

func NewSyncScheduler(syncer pendingSyncer, interval time.Duration) *SyncScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &SyncScheduler{scheduler: s, syncer: syncer, interval: interval}
}

func (s *SyncScheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.syncPending); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

func (s *SyncScheduler) Stop() {
	s.scheduler.Stop()
}

func (s *SyncScheduler) syncPending() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	synced, err := s.syncer.SyncPending(ctx)
	if err != nil {
		logger.Log.Error("Pending progress sync failed", zap.Error(err))
		return
	}
	if synced > 0 {
		logger.Log.Info("Pending progress synced", zap.Int("records", synced))
	}
}
