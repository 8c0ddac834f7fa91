package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/frontmesh/crossbus/internal/models"
)

const (
	// recordTTL bounds how long mirrored records stay queryable. The
	// in-memory log keeps full history; the Redis mirror only serves
	// recent-activity views, so expiry is acceptable here.
	recordTTL = 24 * time.Hour
)

// RedisArchive mirrors records into Redis sorted sets scored by timestamp.
type RedisArchive struct {
	client *redis.Client
}

// NewRedisArchive creates a Redis archive.
func NewRedisArchive(ctx context.Context, redisURL string) (*RedisArchive, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisArchive{client: client}, nil
}

// Name identifies the backend.
func (a *RedisArchive) Name() string {
	return "redis"
}

// Close closes the Redis connection.
func (a *RedisArchive) Close() {
	a.client.Close()
}

// Ping checks the Redis connection.
func (a *RedisArchive) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

// recentKey returns the key for the global recent-records sorted set.
func recentKey() string {
	return "records:recent"
}

// targetKey returns the key for one target's record sorted set.
func targetKey(target string) string {
	return fmt.Sprintf("records:target:%s", target)
}

// countKey returns the key for the mirrored-record counter.
func countKey() string {
	return "records:count"
}

// Append mirrors one record into the global and per-target sets.
func (a *RedisArchive) Append(ctx context.Context, rec *models.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	member := redis.Z{
		Score:  float64(rec.Timestamp),
		Member: string(data),
	}

	pipe := a.client.Pipeline()
	pipe.ZAdd(ctx, recentKey(), member)
	pipe.Expire(ctx, recentKey(), recordTTL)
	pipe.ZAdd(ctx, targetKey(rec.Target), member)
	pipe.Expire(ctx, targetKey(rec.Target), recordTTL)
	pipe.Incr(ctx, countKey())
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to limit mirrored records, newest first.
func (a *RedisArchive) Recent(ctx context.Context, limit int) ([]models.Record, error) {
	if limit <= 0 {
		limit = 20
	}

	results, err := a.client.ZRevRange(ctx, recentKey(), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(results))
	for _, data := range results {
		var rec models.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// RecentForTarget returns up to limit mirrored records addressed to
// target, newest first.
func (a *RedisArchive) RecentForTarget(ctx context.Context, target string, limit int) ([]models.Record, error) {
	if limit <= 0 {
		limit = 20
	}

	results, err := a.client.ZRevRange(ctx, targetKey(target), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(results))
	for _, data := range results {
		var rec models.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// CountRecords returns the total number of mirrored records.
func (a *RedisArchive) CountRecords(ctx context.Context) (int64, error) {
	count, err := a.client.Get(ctx, countKey()).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}
