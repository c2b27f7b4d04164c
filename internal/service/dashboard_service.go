package service

import (
	"context"
	"fmt"
	"time"

	"desorientado_backend/internal/model"
	"desorientado_backend/internal/progress"
)

const recentActivityLimit = 20

type dashboardUsers interface {
	Count(ctx context.Context) (int64, error)
	CountSeenSince(ctx context.Context, since time.Time) (int64, error)
}

type dashboardDocs interface {
	XPValues(ctx context.Context) ([]int, error)
}

type dashboardActivity interface {
	Recent(ctx context.Context, limit int) ([]model.ActivityLog, error)
	ActiveLearnersOn(ctx context.Context, date string) (int64, error)
}

type pendingLister interface {
	Pending(ctx context.Context) ([]uint, error)
}

type LevelBucket struct {
	Level    int    `json:"level"`
	Title    string `json:"title"`
	Learners int    `json:"learners"`
}

type Dashboard struct {
	Users          int64               `json:"users"`
	SeenLast24h    int64               `json:"seenLast24h"`
	ActiveToday    int64               `json:"activeToday"`
	LearnersWithXP int                 `json:"learnersWithProgress"`
	TotalXP        int                 `json:"totalXp"`
	AverageXP      float64             `json:"averageXp"`
	Levels         []LevelBucket       `json:"levels"`
	PendingSyncs   int                 `json:"pendingSyncs"`
	RecentActivity []model.ActivityLog `json:"recentActivity"`
}

type DashboardService struct {
	users    dashboardUsers
	docs     dashboardDocs
	activity dashboardActivity
	pending  pendingLister
	now      func() time.Time
}

func NewDashboardService(users dashboardUsers, docs dashboardDocs, activity dashboardActivity, pending pendingLister) *DashboardService {
	return &DashboardService{users: users, docs: docs, activity: activity, pending: pending, now: time.Now}
}

func (s *DashboardService) Get(ctx context.Context, today string) (*Dashboard, error) {
	d := &Dashboard{}
	var err error

	if d.Users, err = s.users.Count(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if d.SeenLast24h, err = s.users.CountSeenSince(ctx, s.now().UTC().Add(-24*time.Hour)); err != nil {
		return nil, fmt.Errorf("count recent users: %w", err)
	}
	if d.ActiveToday, err = s.activity.ActiveLearnersOn(ctx, today); err != nil {
		return nil, fmt.Errorf("count active learners: %w", err)
	}

	xp, err := s.docs.XPValues(ctx)
	if err != nil {
		return nil, fmt.Errorf("load xp: %w", err)
	}
	d.LearnersWithXP = len(xp)
	d.Levels = levelDistribution(xp)
	for _, v := range xp {
		d.TotalXP += v
	}
	if len(xp) > 0 {
		d.AverageXP = float64(d.TotalXP) / float64(len(xp))
	}

	if d.RecentActivity, err = s.activity.Recent(ctx, recentActivityLimit); err != nil {
		return nil, fmt.Errorf("load recent activity: %w", err)
	}

	// the local store being down must not take the dashboard with it
	if ids, err := s.pending.Pending(ctx); err == nil {
		d.PendingSyncs = len(ids)
	}
	return d, nil
}

// levelDistribution counts learners per level, listing every level.
func levelDistribution(xp []int) []LevelBucket {
	buckets := make([]LevelBucket, progress.MaxLevel())
	for i := range buckets {
		buckets[i] = LevelBucket{Level: i + 1, Title: progress.LevelTitle(i + 1)}
	}
	for _, v := range xp {
		buckets[progress.GetLevel(v).Level-1].Learners++
	}
	return buckets
}
