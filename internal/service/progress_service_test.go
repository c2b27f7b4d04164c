package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"desorientado_backend/internal/progress"
	"desorientado_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type progressFixture struct {
	svc      *ProgressService
	remote   *memStore
	local    *memStore
	history  *memHistory
	notifier *recordingNotifier
}

func newProgressFixture() progressFixture {
	f := progressFixture{
		remote:   newMemStore(),
		local:    newMemStore(),
		history:  newMemHistory(),
		notifier: &recordingNotifier{},
	}
	catalog := newMemCatalog("classes", "objetos", "heranca", "polimorfismo", "interfaces", "colecoes")
	f.svc = NewProgressService(f.remote, f.local, f.history, catalog, f.notifier, progress.DefaultPolicy())
	f.svc.now = fixedClock{time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)}.now
	return f
}

func TestProgressService_GetNewLearner(t *testing.T) {
	f := newProgressFixture()

	view, err := f.svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, progress.Default(), view.Progress)
	assert.Equal(t, 1, view.Level.Level)
	assert.Equal(t, "Iniciante", view.Level.Title)
}

func TestProgressService_CompleteLessonIdempotent(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()

	res, err := f.svc.CompleteLesson(ctx, 1, "classes", "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 50, res.XPAwarded)
	assert.Equal(t, SaveResult{Remote: true, Local: true}, res.Saved)

	res, err = f.svc.CompleteLesson(ctx, 1, "classes", "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 0, res.XPAwarded)
	assert.Equal(t, 50, res.Progress.XP)
	assert.Equal(t, []string{"classes"}, res.Progress.CompletedLessons)

	events := f.notifier.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, progress.EventLessonCompleted, events[0].Type)
	assert.Equal(t, []uint{1}, f.notifier.users)
}

func TestProgressService_RejectsUnknownAndInvalidInput(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()

	_, err := f.svc.CompleteLesson(ctx, 1, "nao-existe", "2025-03-10")
	assert.ErrorIs(t, err, util.ErrLessonNotFound)

	_, err = f.svc.CompleteLesson(ctx, 1, "", "2025-03-10")
	assert.ErrorIs(t, err, progress.ErrInvalidLesson)

	_, err = f.svc.SubmitQuiz(ctx, 1, "classes", 6, 5, "2025-03-10")
	assert.ErrorIs(t, err, progress.ErrInvalidQuiz)

	_, err = f.svc.CompleteLesson(ctx, 1, "classes", "10/03/2025")
	assert.ErrorIs(t, err, progress.ErrInvalidDate)

	assert.Zero(t, f.remote.saves)
	assert.Empty(t, f.notifier.snapshot())
}

func TestProgressService_SubmitQuizRecordsHistory(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()

	res, err := f.svc.SubmitQuiz(ctx, 1, "heranca", 4, 5, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 30, res.XPAwarded)
	assert.Equal(t, progress.QuizScore{Score: 4, Total: 5}, res.Progress.QuizResults["heranca"])

	res, err = f.svc.SubmitQuiz(ctx, 1, "heranca", 1, 5, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 10, res.XPAwarded)
	assert.Equal(t, 40, res.Progress.XP)

	h, err := f.svc.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, h["heranca"], 2)
	assert.Equal(t, 4, h["heranca"][0].Score)
	assert.Equal(t, 1, h["heranca"][1].Score)
}

func TestProgressService_ToggleFavorite(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()

	res, err := f.svc.ToggleFavorite(ctx, 1, "interfaces", "2025-03-10")
	require.NoError(t, err)
	require.NotNil(t, res.Favorite)
	assert.True(t, *res.Favorite)
	assert.Equal(t, 0, res.XPAwarded)
	assert.Equal(t, progress.Streak{}, res.Progress.Streak)

	res, err = f.svc.ToggleFavorite(ctx, 1, "interfaces", "2025-03-10")
	require.NoError(t, err)
	assert.False(t, *res.Favorite)
	assert.Empty(t, res.Progress.Favorites)
}

func TestProgressService_RemoteFailureFallsBackToLocal(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()

	_, err := f.svc.CompleteLesson(ctx, 1, "classes", "2025-03-09")
	require.NoError(t, err)

	f.remote.set(func(m *memStore) { m.failSave = true })

	res, err := f.svc.CompleteLesson(ctx, 1, "objetos", "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Remote: false, Local: true}, res.Saved)
	assert.Equal(t, 100, res.Progress.XP)

	pending, _ := f.local.IsPending(ctx, 1)
	assert.True(t, pending)

	// the pending local copy is newer than the document store
	view, err := f.svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 100, view.Progress.XP)
	assert.Equal(t, 2, view.Progress.Streak.Current)

	f.remote.set(func(m *memStore) { m.failSave = false })

	synced, err := f.svc.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	remote, _, _ := f.remote.Load(ctx, 1)
	assert.Equal(t, 100, remote.XP)
	pending, _ = f.local.IsPending(ctx, 1)
	assert.False(t, pending)
}

func TestProgressService_UnmarkedLocalCopyIsNotSaved(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()

	_, err := f.svc.CompleteLesson(ctx, 1, "classes", "2025-03-09")
	require.NoError(t, err)

	f.remote.set(func(m *memStore) { m.failSave = true })
	f.local.set(func(m *memStore) { m.failMark = true })

	_, err = f.svc.CompleteLesson(ctx, 1, "objetos", "2025-03-10")
	require.ErrorIs(t, err, ErrStoreUnavailable)

	pending, _ := f.local.IsPending(ctx, 1)
	assert.False(t, pending)

	view, err := f.svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, view.Progress.XP)
	assert.Equal(t, []string{"classes"}, view.Progress.CompletedLessons)
}

func TestProgressService_NextMutationRetriesRemote(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()

	f.remote.set(func(m *memStore) { m.failSave = true })
	_, err := f.svc.CompleteLesson(ctx, 1, "classes", "2025-03-10")
	require.NoError(t, err)

	f.remote.set(func(m *memStore) { m.failSave = false })
	res, err := f.svc.CompleteLesson(ctx, 1, "objetos", "2025-03-10")
	require.NoError(t, err)
	assert.True(t, res.Saved.Remote)

	remote, _, _ := f.remote.Load(ctx, 1)
	assert.ElementsMatch(t, []string{"classes", "objetos"}, remote.CompletedLessons)
	pending, _ := f.local.IsPending(ctx, 1)
	assert.False(t, pending)
}

func TestProgressService_LoadFailsWithoutAnyCopy(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()

	f.remote.set(func(m *memStore) { m.failLoad = true })

	_, err := f.svc.CompleteLesson(ctx, 1, "classes", "2025-03-10")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Zero(t, f.local.saves)
}

func TestProgressService_BothStoresDown(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()

	f.remote.set(func(m *memStore) { m.failSave = true })
	f.local.set(func(m *memStore) { m.failSave = true })

	_, err := f.svc.CompleteLesson(ctx, 1, "classes", "2025-03-10")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, f.notifier.snapshot())
}

func TestProgressService_ConcurrentMutationsSerialize(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()
	lessons := []string{"classes", "objetos", "heranca", "polimorfismo", "interfaces", "colecoes"}

	var wg sync.WaitGroup
	for _, id := range lessons {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CompleteLesson(ctx, 1, id, "2025-03-10")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	view, err := f.svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, lessons, view.Progress.CompletedLessons)
	assert.Equal(t, 50*len(lessons), view.Progress.XP)
	assert.Empty(t, f.svc.locks.m)
}

func TestProgressService_Reviews(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()

	_, err := f.svc.CompleteLesson(ctx, 1, "classes", "2025-03-01")
	require.NoError(t, err)
	_, err = f.svc.CompleteLesson(ctx, 1, "heranca", "2025-03-01")
	require.NoError(t, err)
	_, err = f.svc.SubmitQuiz(ctx, 1, "heranca", 1, 5, "2025-03-01")
	require.NoError(t, err)

	reviews, err := f.svc.Reviews(ctx, 1, "2025-03-10", 0)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "heranca", reviews[0].LessonID)
	assert.Equal(t, progress.ReasonLowScore, reviews[0].Reason)
	assert.Equal(t, "classes", reviews[1].LessonID)
	assert.Equal(t, progress.ReasonPeriodic, reviews[1].Reason)

	limited, err := f.svc.Reviews(ctx, 1, "2025-03-10", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = f.svc.Reviews(ctx, 1, "ontem", 0)
	assert.ErrorIs(t, err, progress.ErrInvalidDate)
}

func TestProgressService_SetPolicy(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()

	_, err := f.svc.CompleteLesson(ctx, 1, "classes", "2025-03-01")
	require.NoError(t, err)

	reviews, err := f.svc.Reviews(ctx, 1, "2025-03-02", 0)
	require.NoError(t, err)
	assert.Empty(t, reviews)

	f.svc.SetPolicy(progress.Policy{LowAccuracy: 0.6, LowScoreMinDays: 1, Intervals: []int{1}})
	reviews, err = f.svc.Reviews(ctx, 1, "2025-03-02", 0)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestProgressService_Reset(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()

	_, err := f.svc.SubmitQuiz(ctx, 1, "classes", 5, 5, "2025-03-10")
	require.NoError(t, err)

	res, err := f.svc.Reset(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, progress.Default(), res.Progress)

	h, err := f.svc.History(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, h)
}

func TestProgressService_ResetKeepsRecordWhenHistoryDeleteFails(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()

	_, err := f.svc.SubmitQuiz(ctx, 1, "classes", 5, 5, "2025-03-10")
	require.NoError(t, err)
	f.history.mu.Lock()
	f.history.failDelete = true
	f.history.mu.Unlock()

	_, err = f.svc.Reset(ctx, 1)
	require.Error(t, err)

	view, err := f.svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 30, view.Progress.XP)
	h, err := f.svc.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, h["classes"], 1)
}
