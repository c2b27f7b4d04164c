package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"desorientado_backend/internal/model"
	"desorientado_backend/internal/progress"
)

var errDown = errors.New("store down")

type memStore struct {
	mu       sync.Mutex
	docs     map[uint]progress.Progress
	pending  map[uint]bool
	failLoad bool
	failSave bool
	failMark bool
	saves    int
}

func newMemStore() *memStore {
	return &memStore{docs: map[uint]progress.Progress{}, pending: map[uint]bool{}}
}

func (m *memStore) Load(_ context.Context, userID uint) (progress.Progress, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoad {
		return progress.Default(), false, errDown
	}
	p, ok := m.docs[userID]
	if !ok {
		return progress.Default(), false, nil
	}
	return p.Clone(), true, nil
}

func (m *memStore) Save(_ context.Context, userID uint, p progress.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errDown
	}
	m.saves++
	m.docs[userID] = p.Clone()
	return nil
}

func (m *memStore) MarkPending(_ context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMark {
		return errDown
	}
	m.pending[userID] = true
	return nil
}

func (m *memStore) ClearPending(_ context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, userID)
	return nil
}

func (m *memStore) IsPending(_ context.Context, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[userID], nil
}

func (m *memStore) Pending(_ context.Context) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uint, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *memStore) set(fn func(m *memStore)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
}

type memHistory struct {
	mu         sync.Mutex
	h          map[uint]progress.QuizHistory
	failDelete bool
}

func newMemHistory() *memHistory {
	return &memHistory{h: map[uint]progress.QuizHistory{}}
}

func (m *memHistory) Add(_ context.Context, userID uint, lessonID string, a progress.QuizAttempt, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h[userID] = progress.AddQuizAttempt(m.h[userID], lessonID, a, limit)
	return nil
}

func (m *memHistory) History(_ context.Context, userID uint) (progress.QuizHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := progress.QuizHistory{}
	for k, v := range m.h[userID] {
		out[k] = append([]progress.QuizAttempt{}, v...)
	}
	return out, nil
}

func (m *memHistory) DeleteByUser(_ context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete {
		return errDown
	}
	delete(m.h, userID)
	return nil
}

type memCatalog struct {
	lessons []model.Lesson
}

func newMemCatalog(slugs ...string) *memCatalog {
	c := &memCatalog{}
	for i, s := range slugs {
		c.lessons = append(c.lessons, model.Lesson{Slug: s, Module: "OOP", Title: s, Position: i + 1})
	}
	return c
}

func (c *memCatalog) List(context.Context) ([]model.Lesson, error) {
	return append([]model.Lesson{}, c.lessons...), nil
}

func (c *memCatalog) Exists(_ context.Context, slug string) (bool, error) {
	for _, l := range c.lessons {
		if l.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []progress.Event
	users  []uint
}

func (r *recordingNotifier) Notify(userID uint, ev progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) snapshot() []progress.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]progress.Event{}, r.events...)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) now() time.Time { return c.t }
