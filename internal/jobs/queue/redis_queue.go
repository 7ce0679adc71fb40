package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	readyKey   = "loanflow:jobs:ready"
	delayedKey = "loanflow:jobs:delayed"
)

// RedisQueue is the durable broker-backed queue: a Redis LIST holds ready job
// ids and a ZSET scored by run time holds delayed retries.
type RedisQueue struct {
	rdb *redis.Client
}

// NewRedisQueue creates a queue backed by the given Redis client.
func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

// Enqueue pushes the job id to the ready list, or parks it in the delayed set
// when runAt is in the future.
func (q *RedisQueue) Enqueue(ctx context.Context, jobID string, runAt time.Time) error {
	if time.Until(runAt) > 0 {
		err := q.rdb.ZAdd(ctx, delayedKey, redis.Z{
			Score:  float64(runAt.Unix()),
			Member: jobID,
		}).Err()
		if err != nil {
			return fmt.Errorf("failed to add delayed job: %w", err)
		}
		return nil
	}

	if err := q.rdb.LPush(ctx, readyKey, jobID).Err(); err != nil {
		return fmt.Errorf("failed to push ready job: %w", err)
	}
	return nil
}

// Dequeue blocks up to wait for a ready job id.
func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, wait, readyKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to pop job: %w", err)
	}
	if len(res) == 2 {
		return res[1], nil
	}
	return "", nil
}

// PromoteDue moves due delayed job ids from the ZSET to the ready list in one
// transactional pipeline.
func (q *RedisQueue) PromoteDue(ctx context.Context, now time.Time, batch int64) (int, error) {
	ids, err := q.rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    fmt.Sprintf("%d", now.Unix()),
		Offset: 0,
		Count:  batch,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list due jobs: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := q.rdb.TxPipeline()
	for _, id := range ids {
		pipe.LPush(ctx, readyKey, id)
		pipe.ZRem(ctx, delayedKey, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to promote due jobs: %w", err)
	}

	return len(ids), nil
}
