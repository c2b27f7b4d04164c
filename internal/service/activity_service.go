package service

import (
	"context"
	"sync"
	"time"

	"desorientado_backend/internal/model"
	"desorientado_backend/internal/progress"
	"desorientado_backend/pkg/logger"
	"desorientado_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// ActivitySink persists or forwards one activity entry.
type ActivitySink interface {
	Name() string
	Record(ctx context.Context, entry model.ActivityLog) error
}

const sinkTimeout = 5 * time.Second

// ActivityService is a fire-and-forget activity log. Notify never blocks
// the caller: events go to a bounded buffer drained by one worker, and a
// full buffer drops the event. Sink errors are logged and swallowed.
type ActivityService struct {
	events chan model.ActivityLog
	sinks  []ActivitySink

	startOnce sync.Once
	stopOnce  sync.Once
	mu        sync.RWMutex
	stopped   bool
	done      chan struct{}
}

func NewActivityService(bufferSize int, sinks ...ActivitySink) *ActivityService {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &ActivityService{
		events: make(chan model.ActivityLog, bufferSize),
		sinks:  sinks,
		done:   make(chan struct{}),
	}
}

func (s *ActivityService) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

func (s *ActivityService) Notify(userID uint, ev progress.Event) {
	entry := model.ActivityLog{
		UUIDBase: model.UUIDBase{ID: model.GenerateUUID(), CreatedAt: time.Now().UTC()},
		UserID:   userID,
		Type:     string(ev.Type),
		LessonID: ev.LessonID,
		XP:       ev.XP,
		Date:     ev.Date,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return
	}

	select {
	case s.events <- entry:
	default:
		monitoring.ActivityDropped.Inc()
		logger.Log.Warn("Activity buffer full, dropping event",
			zap.Uint("user_id", userID),
			zap.String("type", entry.Type))
	}
}

func (s *ActivityService) run() {
	defer close(s.done)
	for entry := range s.events {
		s.dispatch(entry)
	}
}

func (s *ActivityService) dispatch(entry model.ActivityLog) {
	for _, sink := range s.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		err := safeRecord(ctx, sink, entry)
		cancel()
		if err != nil {
			logger.Log.Warn("Activity sink failed",
				zap.String("sink", sink.Name()),
				zap.String("activity_id", entry.ID),
				zap.Error(err))
		}
	}
}

func safeRecord(ctx context.Context, sink ActivitySink, entry model.ActivityLog) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("Activity sink panicked", zap.String("sink", sink.Name()), zap.Any("panic", r))
		}
	}()
	return sink.Record(ctx, entry)
}

// Stop refuses new events and waits for the buffered ones to drain, or for
// ctx to expire.
func (s *ActivityService) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		close(s.events)
		s.mu.Unlock()
	})

	s.Start()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
