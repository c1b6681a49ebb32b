// Package events publishes recorded bump attempts to Redis for downstream
// consumers (dashboards, alerting).
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SKUMP0/fastjob-bot/internal/model"
)

// ChannelBumpRecorded carries one JSON event per recorded live attempt.
const ChannelBumpRecorded = "EVENT_BUMP_RECORDED"

// RedisPublisher publishes attempt events over Redis pub/sub.
type RedisPublisher struct {
	rdb *redis.Client
	log *zap.SugaredLogger
}

// NewRedisPublisher parses redisURL, verifies connectivity and returns a
// publisher.
func NewRedisPublisher(ctx context.Context, redisURL string, log *zap.SugaredLogger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrapf(err, "redis.ParseURL(%q)", redisURL)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping failed")
	}

	return &RedisPublisher{rdb: client, log: log}, nil
}

type bumpEvent struct {
	Type        string    `json:"type"`
	PostingID   string    `json:"postingId"`
	Outcome     string    `json:"outcome"`
	CoinsUsed   *int      `json:"coinsUsed"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// PublishAttempt emits one event for a recorded attempt.
func (p *RedisPublisher) PublishAttempt(ctx context.Context, a model.BumpAttempt) error {
	payload, err := json.Marshal(bumpEvent{
		Type:        ChannelBumpRecorded,
		PostingID:   a.PostingID,
		Outcome:     string(a.Outcome),
		CoinsUsed:   a.CoinsUsed,
		AttemptedAt: a.AttemptedAt,
	})
	if err != nil {
		return errors.Wrap(err, "marshal bump event")
	}
	if err := p.rdb.Publish(ctx, ChannelBumpRecorded, payload).Err(); err != nil {
		return errors.Wrap(err, "publish bump event")
	}
	return nil
}

// Close releases the underlying client.
func (p *RedisPublisher) Close() error { return p.rdb.Close() }
