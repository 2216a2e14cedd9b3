// Package events publishes machine lifecycle events to a Redis stream so that
// other systems can follow what happens without polling the API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"machinery-backend/config"
)

// Event types written to the stream.
const (
	MachineCreated       = "machine.created"
	MachineUpdated       = "machine.updated"
	MachineStatusChanged = "machine.status_changed"
	MachineDeleted       = "machine.deleted"
	AlertCreated         = "alert.created"
	AlertStarted         = "alert.started"
	AlertResolved        = "alert.resolved"
	AlertIgnored         = "alert.ignored"
	MaintenanceScheduled = "maintenance.scheduled"
	MaintenanceStarted   = "maintenance.started"
	MaintenanceCompleted = "maintenance.completed"
	MaintenanceCancelled = "maintenance.cancelled"
)

// Event is one lifecycle fact. Data carries event-specific fields.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	MachineID  int64          `json:"machine_id"`
	EntityID   int64          `json:"entity_id,omitempty"`
	Actor      string         `json:"actor"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// RedisPublisher appends events to a capped Redis stream with XADD.
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisPublisher wraps an existing client.
func NewRedisPublisher(client *redis.Client, stream string, maxLen int64) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream, maxLen: maxLen}
}

// Dial connects to Redis from configuration and verifies the connection.
func Dial(ctx context.Context, cfg config.RedisConfig) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisPublisher(client, cfg.Stream, cfg.MaxLen), nil
}

// Publish writes e to the stream. Missing IDs and timestamps are filled in.
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", e.Type, err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"id":         e.ID,
			"type":       e.Type,
			"machine_id": strconv.FormatInt(e.MachineID, 10),
			"data":       string(payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", e.Type, p.stream, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
