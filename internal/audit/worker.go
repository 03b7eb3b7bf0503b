package audit

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/gamaccess/gamaccess/internal/metrics"
	"github.com/gamaccess/gamaccess/internal/model"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "audit_workers"

	// DefaultBatchSize is the max events per batch.
	DefaultBatchSize = 100

	// DefaultBlockTimeout is how long to block waiting for messages.
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxInsertRetries is the max retries for a batch insert.
	DefaultMaxInsertRetries = 3

	// DefaultClaimInterval is how often to scan for stuck pending messages.
	DefaultClaimInterval = 10 * time.Second

	// DefaultClaimIdle is the idle time before a pending message is
	// reclaimed from a dead consumer.
	DefaultClaimIdle = 30 * time.Second

	// DefaultMaxDeliveries is the delivery count past which a pending
	// message is treated as poison and dead-lettered.
	DefaultMaxDeliveries = 5

	// DefaultDepthInterval is how often to refresh queue depth metrics.
	DefaultDepthInterval = 10 * time.Second
)

// Repository persists grant events.
type Repository interface {
	BulkInsertGrantEvents(ctx context.Context, events []*model.GrantEvent) error
}

// Worker drains grant events from the Redis stream into Postgres.
// Messages are acknowledged only after a successful insert; unparseable
// messages go to the dead-letter stream and are acknowledged anyway.
type Worker struct {
	redis         *redis.Client
	repo          Repository
	logger        *slog.Logger
	metrics       metrics.Recorder
	consumerID    string
	batchSize     int
	blockTimeout  time.Duration
	maxRetries    int
	claimInterval time.Duration
	claimIdle     time.Duration
	maxDeliveries int
	claimStartID  string
	lastClaim     time.Time
	depthInterval time.Duration
	lastDepth     time.Time

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// NewWorker creates an audit worker.
func NewWorker(client *redis.Client, repo Repository, logger *slog.Logger, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	consumerID := newConsumerID()
	return &Worker{
		redis:         client,
		repo:          repo,
		logger:        logger.With("component", "audit.worker", "consumer_id", consumerID),
		metrics:       recorder,
		consumerID:    consumerID,
		batchSize:     DefaultBatchSize,
		blockTimeout:  DefaultBlockTimeout,
		maxRetries:    DefaultMaxInsertRetries,
		claimInterval: DefaultClaimInterval,
		claimIdle:     DefaultClaimIdle,
		maxDeliveries: DefaultMaxDeliveries,
		claimStartID:  "0-0",
		depthInterval: DefaultDepthInterval,
	}
}

// Run starts the worker loop. Blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("audit worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info("audit worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("audit worker stopping")
			return nil
		default:
			if err := w.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.logger.Error("process error", "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

// Shutdown stops the worker, letting any in-flight batch finish.
// Implements server.ShutdownFunc.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			w.logger.Warn("audit worker shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// processOnce reads and persists a single batch. Reclaimed pending
// messages take priority over new ones.
func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateQueueDepth(ctx)

	claimed, err := w.maybeClaimPending(ctx)
	if err != nil {
		w.logger.Warn("failed to claim pending messages", "error", err)
	}

	messages := claimed
	if len(messages) == 0 {
		messages, err = w.readBatch(ctx)
		if err != nil {
			return err
		}
	}
	if len(messages) == 0 {
		return nil
	}

	events, messageIDs := w.parseMessages(ctx, messages)
	if len(events) == 0 {
		// Everything was malformed; ACK so the stream does not jam.
		return w.ackMessages(ctx, messageIDs)
	}

	if err := w.insertWithRetry(ctx, events); err != nil {
		w.logger.Error("batch insert failed after retries",
			"batch_size", len(events),
			"error", err,
		)
		for range events {
			w.metrics.IncAuditEventProcessed("failed")
		}
		// No ACK: the batch stays pending and is reclaimed via
		// XAUTOCLAIM once it goes idle, here or in another worker.
		return err
	}

	w.metrics.ObserveAuditBatchSize(len(events))
	for range events {
		w.metrics.IncAuditEventProcessed("success")
	}
	return w.ackMessages(ctx, messageIDs)
}

// maybeClaimPending reclaims messages left pending by crashed or stalled
// consumers. Messages delivered more than maxDeliveries times are
// treated as poison: dead-lettered and acknowledged instead of retried.
func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if w.claimInterval <= 0 || w.claimIdle <= 0 {
		return nil, nil
	}
	if !w.lastClaim.IsZero() && time.Since(w.lastClaim) < w.claimInterval {
		return nil, nil
	}
	w.lastClaim = time.Now()

	messages, start, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  w.claimIdle,
		Start:    w.claimStartID,
		Count:    int64(w.batchSize),
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if start != "" {
		w.claimStartID = start
	}
	if len(messages) == 0 {
		return nil, nil
	}

	deliveries := w.deliveryCounts(ctx, messages)

	keep := make([]redis.XMessage, 0, len(messages))
	var poison []string
	for _, msg := range messages {
		if count, ok := deliveries[msg.ID]; ok && count > int64(w.maxDeliveries) {
			w.deadLetter(ctx, msg, fmt.Sprintf("exceeded %d deliveries", w.maxDeliveries))
			poison = append(poison, msg.ID)
			continue
		}
		keep = append(keep, msg)
	}
	if len(poison) > 0 {
		if err := w.ackMessages(ctx, poison); err != nil {
			w.logger.Warn("failed to ack dead-lettered messages", "error", err)
		}
	}
	return keep, nil
}

// deliveryCounts looks up how many times each claimed message has been
// delivered. An empty map on error just skips the poison check for this
// round.
func (w *Worker) deliveryCounts(ctx context.Context, messages []redis.XMessage) map[string]int64 {
	pending, err := w.redis.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: StreamKey,
		Group:  ConsumerGroup,
		Start:  messages[0].ID,
		End:    messages[len(messages)-1].ID,
		Count:  int64(len(messages)),
	}).Result()
	if err != nil {
		w.logger.Warn("failed to read pending entries", "error", err)
		return nil
	}

	counts := make(map[string]int64, len(pending))
	for _, entry := range pending {
		counts[entry.ID] = entry.RetryCount
	}
	return counts
}

func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.batchSize),
		Block:    w.blockTimeout,
	}).Result()

	if err == redis.Nil || len(streams) == 0 {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	return streams[0].Messages, nil
}

// parseMessages decodes stream messages into grant events. Malformed
// messages are copied to the DLQ and dropped from the batch.
func (w *Worker) parseMessages(ctx context.Context, messages []redis.XMessage) ([]*model.GrantEvent, []string) {
	events := make([]*model.GrantEvent, 0, len(messages))
	messageIDs := make([]string, 0, len(messages))

	for _, msg := range messages {
		messageIDs = append(messageIDs, msg.ID)

		raw, ok := msg.Values["payload"].(string)
		if !ok {
			w.deadLetter(ctx, msg, "missing payload")
			continue
		}

		var payload GrantEventPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			w.deadLetter(ctx, msg, err.Error())
			continue
		}

		events = append(events, payload.ToModel(eventIDForMessage(msg.ID)))
	}
	return events, messageIDs
}

// eventIDForMessage derives the audit record's primary key from the
// stream message ID. Redeliveries of the same message therefore insert
// under the same key and the ON CONFLICT sink drops the duplicate.
func eventIDForMessage(streamID string) string {
	var ms uint64
	if i := strings.IndexByte(streamID, '-'); i > 0 {
		if v, err := strconv.ParseUint(streamID[:i], 10, 64); err == nil {
			ms = v
		}
	}

	sum := sha256.Sum256([]byte(streamID))

	var id ulid.ULID
	_ = id.SetTime(ms)
	_ = id.SetEntropy(sum[:10])
	return id.String()
}

func (w *Worker) deadLetter(ctx context.Context, msg redis.XMessage, reason string) {
	w.metrics.IncAuditEventProcessed("skipped")
	err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id": msg.ID,
			"reason":      reason,
		},
	}).Err()
	if err != nil {
		w.logger.Warn("failed to dead-letter message", "message_id", msg.ID, "error", err)
	}
}

func (w *Worker) insertWithRetry(ctx context.Context, events []*model.GrantEvent) error {
	var err error
	for attempt := 0; attempt < w.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		if err = w.repo.BulkInsertGrantEvents(ctx, events); err == nil {
			return nil
		}
	}
	return err
}

func (w *Worker) ackMessages(ctx context.Context, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, messageIDs...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if w.depthInterval <= 0 {
		return
	}
	if !w.lastDepth.IsZero() && time.Since(w.lastDepth) < w.depthInterval {
		return
	}
	w.lastDepth = time.Now()

	groups, err := w.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil {
		return
	}
	for _, group := range groups {
		if group.Name == ConsumerGroup {
			w.metrics.SetAuditQueueDepth(group.Pending + group.Lag)
			return
		}
	}
}

// newConsumerID creates a stable-ish consumer ID for the Redis
// consumer group.
func newConsumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().UnixNano())
}
