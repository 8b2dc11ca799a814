package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blues/escrow/internal/config"
	"github.com/blues/escrow/internal/escrow"
	"github.com/go-redis/redis/v8"
)

// RedisSink appends committed events to a Redis list as JSON.
type RedisSink struct {
	rdb redis.Cmdable
	key string
}

var _ escrow.EventSink = (*RedisSink)(nil)

// NewRedisSink wraps an existing client. Tests pass a fake Cmdable.
func NewRedisSink(rdb redis.Cmdable, key string) *RedisSink {
	return &RedisSink{rdb: rdb, key: key}
}

// DialRedis connects to the configured server and checks it answers.
func DialRedis(ctx context.Context, cfg config.EventsConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}

func (s *RedisSink) Publish(ctx context.Context, ev escrow.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %d: %w", ev.Seq, err)
	}
	if err := s.rdb.RPush(ctx, s.key, payload).Err(); err != nil {
		return fmt.Errorf("event push to list %s: %w", s.key, err)
	}
	return nil
}
