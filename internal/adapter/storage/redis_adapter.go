package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	requestKeyPrefix  = "rental:request:"
	requestKeyTTL     = 24 * time.Hour
	releaseJournalKey = "rental:pending-releases"
)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) ClaimRequest(ctx context.Context, requestID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, requestKeyPrefix+requestID, 1, requestKeyTTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim request: %w", err)
	}
	return ok, nil
}

func (r *RedisAdapter) ReleaseRequest(ctx context.Context, requestID string) error {
	if err := r.client.Del(ctx, requestKeyPrefix+requestID).Err(); err != nil {
		return fmt.Errorf("release request claim: %w", err)
	}
	return nil
}

func (r *RedisAdapter) AppendRelease(ctx context.Context, movieID string) error {
	if err := r.client.RPush(ctx, releaseJournalKey, movieID).Err(); err != nil {
		return fmt.Errorf("append release intent: %w", err)
	}
	return nil
}

func (r *RedisAdapter) NextRelease(ctx context.Context) (string, error) {
	movieID, err := r.client.LPop(ctx, releaseJournalKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("pop release intent: %w", err)
	}
	return movieID, nil
}

// PendingReleases reports the journal depth, for monitoring and tests.
func (r *RedisAdapter) PendingReleases(ctx context.Context) (int64, error) {
	n, err := r.client.LLen(ctx, releaseJournalKey).Result()
	if err != nil {
		return 0, fmt.Errorf("journal length: %w", err)
	}
	return n, nil
}
