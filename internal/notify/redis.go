package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"avsched/internal/config"
)

const EventSyncCompleted = "sync.completed"

// Event is the envelope published on the Redis channel.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Report    `json:"payload"`
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

type RedisNotifier struct {
	client  publisher
	channel string
}

func NewRedisNotifier(cfg config.Config) (*RedisNotifier, error) {
	if err := cfg.Require("REDIS_ADDR", cfg.RedisAddr); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &RedisNotifier{client: client, channel: cfg.RedisChannel}, nil
}

func (n *RedisNotifier) Name() string { return "redis" }

func (n *RedisNotifier) Close() error { return n.client.Close() }

func (n *RedisNotifier) Notify(ctx context.Context, r Report) error {
	blob, err := json.Marshal(Event{
		ID:        uuid.New().String(),
		Type:      EventSyncCompleted,
		Timestamp: time.Now().UTC(),
		Payload:   r,
	})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, blob).Err()
}
