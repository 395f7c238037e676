package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeadMovedEvent is published after a stage transition commits.
type LeadMovedEvent struct {
	LeadID      uint      `json:"lead_id"`
	FromStageID *uint     `json:"from_stage_id,omitempty"`
	ToStageID   uint      `json:"to_stage_id"`
	FromFunnel  *string   `json:"from_funnel,omitempty"`
	ToFunnel    string    `json:"to_funnel"`
	Reason      string    `json:"reason"`
	Actor       string    `json:"actor"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EventPublisher emits domain events to interested consumers. Publishing is
// best-effort; callers log failures and never propagate them.
type EventPublisher interface {
	PublishLeadMoved(ctx context.Context, event LeadMovedEvent) error
}

// RedisEventPublisher publishes events on a Redis channel
type RedisEventPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisEventPublisher creates a Redis-backed event publisher
func NewRedisEventPublisher(client *redis.Client, channel string) *RedisEventPublisher {
	if channel == "" {
		channel = "leadfunnel:lead_moved"
	}
	return &RedisEventPublisher{client: client, channel: channel}
}

func (p *RedisEventPublisher) PublishLeadMoved(ctx context.Context, event LeadMovedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// NopEventPublisher discards events. Used when Redis is not configured.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishLeadMoved(ctx context.Context, event LeadMovedEvent) error {
	return nil
}
