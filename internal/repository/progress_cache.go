package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"desorientado_backend/internal/progress"

	"github.com/go-redis/redis/v8"
)

const (
	progressKeyPrefix = "progress:doc:"
	pendingSyncKey    = "progress:pending"
	// local copies outlive any realistic outage of the document store
	progressCacheTTL = 30 * 24 * time.Hour
)

// ProgressCache is the local fallback copy of progress records plus the
// set of learners whose latest record has not reached the document store.
type ProgressCache struct {
	rdb *redis.Client
}

func NewProgressCache(rdb *redis.Client) *ProgressCache {
	return &ProgressCache{rdb: rdb}
}

func progressKey(userID uint) string {
	return progressKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

func (c *ProgressCache) Load(ctx context.Context, userID uint) (progress.Progress, bool, error) {
	data, err := c.rdb.Get(ctx, progressKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return progress.Default(), false, nil
	}
	if err != nil {
		return progress.Default(), false, err
	}
	return progress.Decode(data), true, nil
}

func (c *ProgressCache) Save(ctx context.Context, userID uint, p progress.Progress) error {
	data, err := progress.Encode(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, progressKey(userID), data, progressCacheTTL).Err()
}

func (c *ProgressCache) MarkPending(ctx context.Context, userID uint) error {
	return c.rdb.SAdd(ctx, pendingSyncKey, userID).Err()
}

func (c *ProgressCache) ClearPending(ctx context.Context, userID uint) error {
	return c.rdb.SRem(ctx, pendingSyncKey, userID).Err()
}

func (c *ProgressCache) IsPending(ctx context.Context, userID uint) (bool, error) {
	return c.rdb.SIsMember(ctx, pendingSyncKey, userID).Result()
}

func (c *ProgressCache) Pending(ctx context.Context) ([]uint, error) {
	members, err := c.rdb.SMembers(ctx, pendingSyncKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad pending member %q: %w", m, err)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
