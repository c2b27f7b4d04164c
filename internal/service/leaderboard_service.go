package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"desorientado_backend/internal/model"
	"desorientado_backend/internal/progress"
	"desorientado_backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 100
	leaderboardCacheTTL     = 30 * time.Second
)

type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	UserID         uint   `json:"userId"`
	Name           string `json:"name"`
	XP             int    `json:"xp"`
	Level          int    `json:"level"`
	Title          string `json:"title"`
	StreakCurrent  int    `json:"streakCurrent"`
	CompletedCount int    `json:"completedCount"`
	IsMe           bool   `json:"isMe"`
}

type leaderboardSource interface {
	TopByXP(ctx context.Context, limit int) ([]model.ProgressDocument, error)
}

type userDirectory interface {
	FindByIDs(ctx context.Context, ids []uint) (map[uint]model.User, error)
}

// BlobCache is a small byte cache with expiry.
type BlobCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type LeaderboardService struct {
	docs  leaderboardSource
	users userDirectory
	cache BlobCache
}

// NewLeaderboardService builds the service. cache may be nil.
func NewLeaderboardService(docs leaderboardSource, users userDirectory, cache BlobCache) *LeaderboardService {
	return &LeaderboardService{docs: docs, users: users, cache: cache}
}

// Top returns the learners with most XP. viewerID marks the caller's own
// row; zero means anonymous.
func (s *LeaderboardService) Top(ctx context.Context, limit int, viewerID uint) ([]LeaderboardEntry, error) {
	limit = min(max(limit, 1), MaxLeaderboardLimit)
	key := fmt.Sprintf("leaderboard:top:%d", limit)

	entries, ok := s.cached(ctx, key)
	if !ok {
		var err error
		entries, err = s.build(ctx, limit)
		if err != nil {
			return nil, err
		}
		s.store(ctx, key, entries)
	}

	for i := range entries {
		entries[i].IsMe = viewerID != 0 && entries[i].UserID == viewerID
	}
	return entries, nil
}

func (s *LeaderboardService) build(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	docs, err := s.docs.TopByXP(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	ids := make([]uint, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard names: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(docs))
	for _, d := range docs {
		u, ok := users[d.UserID]
		if !ok || u.Disabled {
			continue
		}
		lvl := progress.GetLevel(d.XP)
		entries = append(entries, LeaderboardEntry{
			Rank:           len(entries) + 1,
			UserID:         d.UserID,
			Name:           u.Name,
			XP:             d.XP,
			Level:          lvl.Level,
			Title:          lvl.Title,
			StreakCurrent:  d.StreakCurrent,
			CompletedCount: d.CompletedCount,
		})
	}
	return entries, nil
}

func (s *LeaderboardService) cached(ctx context.Context, key string) ([]LeaderboardEntry, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Log.Debug("Leaderboard cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var entries []LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (s *LeaderboardService) store(ctx context.Context, key string, entries []LeaderboardEntry) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, leaderboardCacheTTL); err != nil {
		logger.Log.Debug("Leaderboard cache write failed", zap.Error(err))
	}
}
