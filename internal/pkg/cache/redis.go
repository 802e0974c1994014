// Package cache stores read-side views in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/yigit/courseenroll/internal/app/models"
)

const (
	scheduleKeyPrefix   = "courseenroll:schedule"
	generationKeyPrefix = "courseenroll:schedule-gen"

	// generationTTL outlives any in-flight read by a wide margin.
	generationTTL = 24 * time.Hour
)

// Options configures the Redis connection
type Options struct {
	Addr        string
	Password    string
	DB          int
	ScheduleTTL time.Duration
}

// RedisScheduleCache caches student timetables keyed by student and term
type RedisScheduleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisScheduleCache connects to Redis and verifies the connection
func NewRedisScheduleCache(ctx context.Context, opts Options) (*RedisScheduleCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return NewRedisScheduleCacheFromClient(client, opts.ScheduleTTL), nil
}

// NewRedisScheduleCacheFromClient wraps an existing client
func NewRedisScheduleCacheFromClient(client *redis.Client, ttl time.Duration) *RedisScheduleCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisScheduleCache{client: client, ttl: ttl}
}

// ScheduleKey returns the Redis key of a student's timetable for a term
func ScheduleKey(studentID, termID int64) string {
	return fmt.Sprintf("%s:%d:%d", scheduleKeyPrefix, studentID, termID)
}

// GenerationKey returns the Redis key counting invalidations of a timetable
func GenerationKey(studentID, termID int64) string {
	return fmt.Sprintf("%s:%d:%d", generationKeyPrefix, studentID, termID)
}

// GetSchedule returns the cached timetable together with the current
// generation. The bool is false on a miss.
func (c *RedisScheduleCache) GetSchedule(ctx context.Context, studentID, termID int64) ([]models.ScheduleItem, int64, bool, error) {
	values, err := c.client.MGet(ctx, ScheduleKey(studentID, termID), GenerationKey(studentID, termID)).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("redis mget: %w", err)
	}

	generation, err := parseGeneration(values[1])
	if err != nil {
		return nil, 0, false, err
	}

	data, ok := values[0].(string)
	if !ok {
		return nil, generation, false, nil
	}

	var items []models.ScheduleItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, 0, false, fmt.Errorf("decode cached schedule: %w", err)
	}
	return items, generation, true, nil
}

// SetSchedule stores a timetable for the configured TTL. Nothing is stored
// when the timetable was invalidated after generation was read.
func (c *RedisScheduleCache) SetSchedule(ctx context.Context, studentID, termID, generation int64, items []models.ScheduleItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}

	genKey := GenerationKey(studentID, termID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		currentGen, err := parseGeneration(current)
		if err != nil {
			return err
		}
		if currentGen != generation {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ScheduleKey(studentID, termID), data, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// InvalidateSchedule removes a cached timetable and bumps its generation so
// that reads started earlier cannot store their result.
func (c *RedisScheduleCache) InvalidateSchedule(ctx context.Context, studentID, termID int64) error {
	genKey := GenerationKey(studentID, termID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, ScheduleKey(studentID, termID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}

// parseGeneration reads a generation counter; a missing key counts as zero.
func parseGeneration(v interface{}) (int64, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return 0, nil
	}
	gen, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse schedule generation %q: %w", s, err)
	}
	return gen, nil
}

// Close closes the underlying client
func (c *RedisScheduleCache) Close() error {
	return c.client.Close()
}
