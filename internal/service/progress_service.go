package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"desorientado_backend/internal/model"
	"desorientado_backend/internal/progress"
	"desorientado_backend/internal/util"
	"desorientado_backend/pkg/logger"
	"desorientado_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// ErrStoreUnavailable means neither the document store nor the local copy
// could serve the learner's record.
var ErrStoreUnavailable = errors.New("progress store unavailable")

// ProgressStore loads and saves whole progress records. Load reports
// found=false with the default record for a learner with no document.
type ProgressStore interface {
	Load(ctx context.Context, userID uint) (progress.Progress, bool, error)
	Save(ctx context.Context, userID uint, p progress.Progress) error
}

// LocalProgressStore is the fallback copy kept next to the service, with
// bookkeeping for records that still have to reach the document store.
type LocalProgressStore interface {
	ProgressStore
	MarkPending(ctx context.Context, userID uint) error
	ClearPending(ctx context.Context, userID uint) error
	IsPending(ctx context.Context, userID uint) (bool, error)
	Pending(ctx context.Context) ([]uint, error)
}

type QuizHistoryStore interface {
	Add(ctx context.Context, userID uint, lessonID string, a progress.QuizAttempt, limit int) error
	History(ctx context.Context, userID uint) (progress.QuizHistory, error)
	DeleteByUser(ctx context.Context, userID uint) error
}

type LessonCatalog interface {
	List(ctx context.Context) ([]model.Lesson, error)
	Exists(ctx context.Context, slug string) (bool, error)
}

// ActivityNotifier receives accepted progress events. It must not block.
type ActivityNotifier interface {
	Notify(userID uint, ev progress.Event)
}

// SaveResult tells where a record was written. A save that reached only
// the local copy is not a failure for the learner.
type SaveResult struct {
	Remote bool `json:"remote"`
	Local  bool `json:"local"`
}

func (r SaveResult) OK() bool { return r.Remote || r.Local }

type ProgressView struct {
	Progress progress.Progress `json:"progress"`
	Level    progress.Level    `json:"level"`
}

func newView(p progress.Progress) ProgressView {
	return ProgressView{Progress: p, Level: progress.GetLevel(p.XP)}
}

type MutationResult struct {
	ProgressView
	XPAwarded int        `json:"xpAwarded"`
	Favorite  *bool      `json:"favorite,omitempty"`
	Saved     SaveResult `json:"saved"`
}

type ProgressService struct {
	remote   ProgressStore
	local    LocalProgressStore
	history  QuizHistoryStore
	lessons  LessonCatalog
	activity ActivityNotifier

	locks      userLocks
	policy     atomic.Pointer[progress.Policy]
	historyCap int
	now        func() time.Time
}

func NewProgressService(
	remote ProgressStore,
	local LocalProgressStore,
	history QuizHistoryStore,
	lessons LessonCatalog,
	activity ActivityNotifier,
	policy progress.Policy,
) *ProgressService {
	s := &ProgressService{
		remote:     remote,
		local:      local,
		history:    history,
		lessons:    lessons,
		activity:   activity,
		historyCap: progress.DefaultHistoryCap,
		now:        time.Now,
	}
	s.SetPolicy(policy)
	return s
}

// SetPolicy swaps the review policy. Safe to call while serving requests.
func (s *ProgressService) SetPolicy(p progress.Policy) {
	p.Intervals = append([]int{}, p.Intervals...)
	s.policy.Store(&p)
}

func (s *ProgressService) Policy() progress.Policy {
	return *s.policy.Load()
}

// recordingEngine collects the engine's events so they are published only
// once the record has been persisted.
func recordingEngine(events *[]progress.Event) *progress.Engine {
	return progress.NewEngine(func(ev progress.Event) {
		*events = append(*events, ev)
	})
}

func (s *ProgressService) publish(userID uint, events []progress.Event) {
	for _, ev := range events {
		monitoring.ProgressEvents.WithLabelValues(string(ev.Type)).Inc()
		if ev.XP > 0 {
			monitoring.XPAwarded.WithLabelValues(string(ev.Type)).Add(float64(ev.XP))
		}
		if s.activity != nil {
			s.activity.Notify(userID, ev)
		}
	}
}

// load prefers a local copy that is still pending sync, then the document
// store, then any local copy. A learner whose record cannot be read from
// either side gets an error rather than a default record, so a later save
// never overwrites real progress with an empty one.
func (s *ProgressService) load(ctx context.Context, userID uint) (progress.Progress, error) {
	if pending, err := s.local.IsPending(ctx, userID); err == nil && pending {
		if p, ok, err := s.local.Load(ctx, userID); err == nil && ok {
			return p, nil
		}
	}

	p, _, err := s.remote.Load(ctx, userID)
	if err == nil {
		return p, nil
	}
	logger.Log.Warn("Document store load failed, trying local copy", zap.Uint("user_id", userID), zap.Error(err))

	lp, ok, lerr := s.local.Load(ctx, userID)
	if lerr == nil && ok {
		return lp, nil
	}
	if lerr != nil {
		logger.Log.Error("Local copy load failed", zap.Uint("user_id", userID), zap.Error(lerr))
	}
	return progress.Progress{}, fmt.Errorf("load progress for user %d: %w", userID, ErrStoreUnavailable)
}

// save writes the local copy first, then the document store.
func (s *ProgressService) save(ctx context.Context, userID uint, p progress.Progress) SaveResult {
	var res SaveResult

	if err := s.local.Save(ctx, userID, p); err != nil {
		logger.Log.Warn("Local copy save failed", zap.Uint("user_id", userID), zap.Error(err))
	} else {
		res.Local = true
	}

	if err := s.remote.Save(ctx, userID, p); err != nil {
		monitoring.PersistenceFallbacks.Inc()
		logger.Log.Warn("Document store save failed",
			zap.Uint("user_id", userID),
			zap.Bool("local_saved", res.Local),
			zap.Error(err))
		// An unmarked local copy loses to the stale remote record on the
		// next load, so it does not count as saved.
		if res.Local {
			if err := s.local.MarkPending(ctx, userID); err != nil {
				logger.Log.Error("Failed to mark record pending", zap.Uint("user_id", userID), zap.Error(err))
				res.Local = false
			}
		}
		return res
	}

	res.Remote = true
	if err := s.local.ClearPending(ctx, userID); err != nil {
		logger.Log.Debug("Failed to clear pending flag", zap.Uint("user_id", userID), zap.Error(err))
	}
	return res
}

func (s *ProgressService) checkLesson(ctx context.Context, lessonID string) error {
	if lessonID == "" {
		return progress.ErrInvalidLesson
	}
	ok, err := s.lessons.Exists(ctx, lessonID)
	if err != nil {
		return fmt.Errorf("lookup lesson %q: %w", lessonID, err)
	}
	if !ok {
		return util.ErrLessonNotFound
	}
	return nil
}

// mutate runs one load, apply, persist cycle under the learner's lock.
func (s *ProgressService) mutate(ctx context.Context, userID uint, apply func(p progress.Progress) (progress.Progress, error)) (progress.Progress, SaveResult, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	current, err := s.load(ctx, userID)
	if err != nil {
		return progress.Progress{}, SaveResult{}, err
	}

	next, err := apply(current)
	if err != nil {
		return progress.Progress{}, SaveResult{}, err
	}

	saved := s.save(ctx, userID, next)
	if !saved.OK() {
		return progress.Progress{}, saved, fmt.Errorf("save progress for user %d: %w", userID, ErrStoreUnavailable)
	}
	return next, saved, nil
}

func (s *ProgressService) Get(ctx context.Context, userID uint) (ProgressView, error) {
	p, err := s.load(ctx, userID)
	if err != nil {
		return ProgressView{}, err
	}
	return newView(p), nil
}

func (s *ProgressService) CompleteLesson(ctx context.Context, userID uint, lessonID, today string) (MutationResult, error) {
	if err := s.checkLesson(ctx, lessonID); err != nil {
		return MutationResult{}, err
	}

	var award int
	var events []progress.Event
	engine := recordingEngine(&events)
	next, saved, err := s.mutate(ctx, userID, func(p progress.Progress) (progress.Progress, error) {
		var (
			out progress.Progress
			err error
		)
		out, award, err = engine.CompleteLesson(p, lessonID, today)
		return out, err
	})
	if err != nil {
		return MutationResult{}, err
	}
	s.publish(userID, events)

	return MutationResult{ProgressView: newView(next), XPAwarded: award, Saved: saved}, nil
}

// SubmitQuiz records the latest score and appends the attempt to the
// lesson's quiz history.
func (s *ProgressService) SubmitQuiz(ctx context.Context, userID uint, lessonID string, score, total int, today string) (MutationResult, error) {
	if err := s.checkLesson(ctx, lessonID); err != nil {
		return MutationResult{}, err
	}

	var award int
	var events []progress.Event
	engine := recordingEngine(&events)
	next, saved, err := s.mutate(ctx, userID, func(p progress.Progress) (progress.Progress, error) {
		var (
			out progress.Progress
			err error
		)
		out, award, err = engine.SaveQuizResult(p, lessonID, score, total, today)
		return out, err
	})
	if err != nil {
		return MutationResult{}, err
	}
	s.publish(userID, events)

	attempt := progress.QuizAttempt{Score: score, Total: total, Timestamp: s.now().UTC()}
	if err := s.history.Add(ctx, userID, lessonID, attempt, s.historyCap); err != nil {
		logger.Log.Warn("Failed to record quiz attempt",
			zap.Uint("user_id", userID),
			zap.String("lesson_id", lessonID),
			zap.Error(err))
	}

	return MutationResult{ProgressView: newView(next), XPAwarded: award, Saved: saved}, nil
}

func (s *ProgressService) ToggleFavorite(ctx context.Context, userID uint, lessonID, today string) (MutationResult, error) {
	if err := s.checkLesson(ctx, lessonID); err != nil {
		return MutationResult{}, err
	}

	var on bool
	var events []progress.Event
	engine := recordingEngine(&events)
	next, saved, err := s.mutate(ctx, userID, func(p progress.Progress) (progress.Progress, error) {
		var (
			out progress.Progress
			err error
		)
		out, on, err = engine.ToggleFavorite(p, lessonID, today)
		return out, err
	})
	if err != nil {
		return MutationResult{}, err
	}
	s.publish(userID, events)

	return MutationResult{ProgressView: newView(next), Favorite: &on, Saved: saved}, nil
}

func (s *ProgressService) History(ctx context.Context, userID uint) (progress.QuizHistory, error) {
	h, err := s.history.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load quiz history: %w", err)
	}
	return h, nil
}

// Reviews returns the learner's review suggestions for today, most urgent
// first, limited to limit entries when limit > 0.
func (s *ProgressService) Reviews(ctx context.Context, userID uint, today string, limit int) ([]progress.Suggestion, error) {
	if _, err := progress.ParseDate(today); err != nil {
		return nil, err
	}

	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	h, err := s.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.lessons.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load curriculum: %w", err)
	}

	curriculum := make([]string, 0, len(lessons))
	for _, l := range lessons {
		curriculum = append(curriculum, l.Slug)
	}

	out := []progress.Suggestion{}
	for sg := range progress.NewScheduler(s.Policy(), curriculum).Suggestions(p, h, today) {
		out = append(out, sg)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Reset replaces the learner's record with the default one and clears the
// quiz history. This is the only path that lowers XP.
func (s *ProgressService) Reset(ctx context.Context, userID uint) (MutationResult, error) {
	next, saved, err := s.mutate(ctx, userID, func(progress.Progress) (progress.Progress, error) {
		// History goes first so a failed delete leaves the record untouched.
		if err := s.history.DeleteByUser(ctx, userID); err != nil {
			return progress.Progress{}, fmt.Errorf("clear quiz history: %w", err)
		}
		return progress.Default(), nil
	})
	if err != nil {
		return MutationResult{}, err
	}
	logger.Log.Info("Progress reset", zap.Uint("user_id", userID))
	return MutationResult{ProgressView: newView(next), Saved: saved}, nil
}

// SyncPending pushes local copies that never reached the document store.
// It returns how many records were synced.
func (s *ProgressService) SyncPending(ctx context.Context) (int, error) {
	ids, err := s.local.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending records: %w", err)
	}
	monitoring.PendingSyncs.Set(float64(len(ids)))

	synced := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if s.syncOne(ctx, id) {
			synced++
		}
	}
	monitoring.PendingSyncs.Set(float64(len(ids) - synced))
	return synced, nil
}

func (s *ProgressService) syncOne(ctx context.Context, userID uint) bool {
	unlock := s.locks.lock(userID)
	defer unlock()

	// a mutation may have synced it while we waited for the lock
	pending, err := s.local.IsPending(ctx, userID)
	if err != nil || !pending {
		return false
	}

	p, ok, err := s.local.Load(ctx, userID)
	if err != nil {
		logger.Log.Warn("Pending record unreadable", zap.Uint("user_id", userID), zap.Error(err))
		return false
	}
	if !ok {
		// the local copy expired; nothing left to push
		_ = s.local.ClearPending(ctx, userID)
		return false
	}

	if err := s.remote.Save(ctx, userID, p); err != nil {
		logger.Log.Debug("Pending record still not synced", zap.Uint("user_id", userID), zap.Error(err))
		return false
	}
	if err := s.local.ClearPending(ctx, userID); err != nil {
		logger.Log.Warn("Failed to clear pending flag", zap.Uint("user_id", userID), zap.Error(err))
	}
	return true
}

// userLocks hands out one mutex per learner and forgets it once nobody
// holds or waits for it.
type userLocks struct {
	mu sync.Mutex
	m  map[uint]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func (l *userLocks) lock(userID uint) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[uint]*userLock)
	}
	ul, ok := l.m[userID]
	if !ok {
		ul = &userLock{}
		l.m[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.m, userID)
		}
		l.mu.Unlock()
	}
}
