// Package audit captures grant outcomes and persists them through a
// Redis stream so the request path never waits on Postgres.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gamaccess/gamaccess/internal/metrics"
	"github.com/gamaccess/gamaccess/internal/model"
)

const (
	// StreamKey is the Redis stream for grant events.
	StreamKey = "stream:grant_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:grant_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 10000

	// PublishTimeout is the max time to wait for a Redis publish.
	PublishTimeout = 200 * time.Millisecond
)

// GrantEventPayload is the compact wire form of one grant outcome.
type GrantEventPayload struct {
	Email       string `json:"e"`
	NetworkCode string `json:"n"`
	Status      string `json:"s"`
	UserID      *int64 `json:"uid,omitempty"`
	RoleID      *int64 `json:"rid,omitempty"`
	Error       string `json:"err,omitempty"`
	RequestedBy string `json:"by,omitempty"`
	OccurredAt  int64  `json:"t"` // Unix milliseconds
}

// Publisher enqueues grant events to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a grant event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "audit.publisher"),
		metrics: recorder,
	}
}

// Publish adds a grant event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event GrantEventPayload) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"payload": string(data)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}

// RecordGrant implements service.GrantRecorder: it publishes the grant
// outcome without blocking the caller. A failed publish only drops the
// audit record, never the grant itself.
func (p *Publisher) RecordGrant(email string, grant model.NetworkGrant, requestedBy string, occurredAt time.Time) {
	event := GrantEventPayload{
		Email:       email,
		NetworkCode: grant.Network,
		Status:      string(grant.Status),
		UserID:      grant.UserID,
		RoleID:      grant.RoleID,
		Error:       grant.Error,
		RequestedBy: requestedBy,
		OccurredAt:  occurredAt.UnixMilli(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		if _, err := p.Publish(ctx, event); err != nil {
			p.logger.Warn("failed to publish grant event",
				"network", event.NetworkCode,
				"error", err,
			)
			p.metrics.IncAuditEventPublished("dropped")
			return
		}
		p.metrics.IncAuditEventPublished("success")
	}()
}

// ToModel expands a payload into the persistent audit record, assigning
// it the given id.
func (e GrantEventPayload) ToModel(id string) *model.GrantEvent {
	return &model.GrantEvent{
		ID:          id,
		Email:       e.Email,
		NetworkCode: e.NetworkCode,
		Status:      model.GrantStatus(e.Status),
		UserID:      e.UserID,
		RoleID:      e.RoleID,
		Error:       e.Error,
		RequestedBy: e.RequestedBy,
		OccurredAt:  time.UnixMilli(e.OccurredAt).UTC(),
	}
}
