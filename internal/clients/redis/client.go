// Package redis is the broker backend of the task executor: tasks are queued
// on a Redis list, results are stored with a TTL and announced on pub/sub.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/marketpulse/internal/platform/envutil"
)

type Config struct {
	Addr      string
	Password  string
	DB        int
	Queue     string
	ResultTTL time.Duration
	// PromoteInterval is how often due retries move back onto the queue.
	PromoteInterval time.Duration
}

func LoadConfig() Config {
	return Config{
		Addr:      envutil.String("REDIS_ADDR", ""),
		Password:  envutil.String("REDIS_PASSWORD", ""),
		DB:        envutil.Int("REDIS_DB", 0),
		Queue:     envutil.String("REDIS_QUEUE", "marketpulse:tasks"),
		ResultTTL: envutil.Seconds("REDIS_RESULT_TTL_SECONDS", 3600),

		PromoteInterval: envutil.Millis("REDIS_PROMOTE_INTERVAL_MS", 1000),
	}
}

// NewClient connects and pings.
func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func resultKey(queue, id string) string { return queue + ":result:" + id }
func stateKey(queue, id string) string  { return queue + ":state:" + id }
func delayedKey(queue string) string    { return queue + ":delayed" }
func doneChannel(queue, id string) string {
	return queue + ":done:" + id
}
