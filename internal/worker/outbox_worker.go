package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/internal/metrics"
	"github.com/prohmpiriya/shelf-booking/internal/repository"
	"github.com/prohmpiriya/shelf-booking/pkg/kafka"
	"github.com/prohmpiriya/shelf-booking/pkg/logger"
)

// ErrAlreadyRunning is returned by Start on a running worker
var ErrAlreadyRunning = errors.New("outbox worker already running")

// Publisher sends one record to the event stream
type Publisher interface {
	Produce(ctx context.Context, msg *kafka.Message) error
}

// OutboxWorkerConfig contains configuration for the outbox worker
type OutboxWorkerConfig struct {
	Topic string
	// PollInterval is the interval between polling for pending messages
	PollInterval time.Duration
	// RetryInterval is the interval between retrying failed messages
	RetryInterval time.Duration
	BatchSize     int
	// CleanupInterval is the interval between deletions of old published messages
	CleanupInterval      time.Duration
	CleanupRetentionDays int
}

// DefaultOutboxWorkerConfig returns default configuration
func DefaultOutboxWorkerConfig() *OutboxWorkerConfig {
	return &OutboxWorkerConfig{
		Topic:                "shelf-booking-events",
		PollInterval:         500 * time.Millisecond,
		RetryInterval:        10 * time.Second,
		BatchSize:            100,
		CleanupInterval:      time.Hour,
		CleanupRetentionDays: 7,
	}
}

// OutboxWorker relays outbox rows to Kafka. Each batch runs in one transaction so
// the row locks taken by the fetch hold until the batch is marked.
type OutboxWorker struct {
	outbox    repository.OutboxRepository
	tx        repository.TxManager
	publisher Publisher
	config    *OutboxWorkerConfig
	log       *logger.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewOutboxWorker creates a new outbox worker
func NewOutboxWorker(
	outbox repository.OutboxRepository,
	tx repository.TxManager,
	publisher Publisher,
	config *OutboxWorkerConfig,
) *OutboxWorker {
	defaults := DefaultOutboxWorkerConfig()
	if config == nil {
		config = defaults
	}
	if config.Topic == "" {
		config.Topic = defaults.Topic
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = defaults.RetryInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.CleanupRetentionDays <= 0 {
		config.CleanupRetentionDays = defaults.CleanupRetentionDays
	}
	return &OutboxWorker{
		outbox:    outbox,
		tx:        tx,
		publisher: publisher,
		config:    config,
		log:       logger.Get().With(zap.String("component", "outbox_worker")),
	}
}

// Start launches the pending, retry and cleanup loops. A stopped worker can be
// started again.
func (w *OutboxWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrAlreadyRunning
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stop := w.stopCh

	w.log.Info("starting outbox worker",
		zap.String("topic", w.config.Topic),
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
	)

	w.loop(ctx, stop, w.config.PollInterval, func(ctx context.Context) { w.ProcessPending(ctx) })
	w.loop(ctx, stop, w.config.RetryInterval, func(ctx context.Context) { w.ProcessFailed(ctx) })
	w.loop(ctx, stop, w.config.CleanupInterval, w.cleanup)
	return nil
}

// Stop stops the loops and waits for the current batches to finish
func (w *OutboxWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false

	// loops never take mu, so waiting under it keeps a concurrent Start out
	// until this run has drained
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("outbox worker stopped")
}

func (w *OutboxWorker) loop(ctx context.Context, stop <-chan struct{}, every time.Duration, fn func(ctx context.Context)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// ProcessPending publishes one batch of pending messages and returns how many were published
func (w *OutboxWorker) ProcessPending(ctx context.Context) int {
	return w.processBatch(ctx, "pending", w.outbox.GetPendingMessages)
}

// ProcessFailed retries one batch of failed messages that still have attempts left
func (w *OutboxWorker) ProcessFailed(ctx context.Context) int {
	return w.processBatch(ctx, "failed", w.outbox.GetFailedMessages)
}

func (w *OutboxWorker) processBatch(ctx context.Context, kind string, fetch func(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)) int {
	start := time.Now()
	published := 0

	err := w.tx.WithinTx(ctx, func(ctx context.Context) error {
		messages, err := fetch(ctx, w.config.BatchSize)
		if err != nil {
			return err
		}

		for _, msg := range messages {
			if err := w.publish(ctx, msg); err != nil {
				metrics.RecordOutbox("failed")
				w.log.Warn("failed to publish outbox message",
					zap.String("kind", kind),
					zap.String("message_id", msg.ID),
					zap.String("event_type", string(msg.EventType)),
					zap.Int("attempt", msg.RetryCount+1),
					zap.Error(err),
				)
				if markErr := w.outbox.MarkAsFailed(ctx, msg.ID, err.Error()); markErr != nil {
					return markErr
				}
				if msg.LastAttempt() {
					metrics.RecordOutbox("exhausted")
					w.log.Error("outbox message exhausted its retries",
						zap.String("message_id", msg.ID),
						zap.String("aggregate_id", msg.AggregateID),
						zap.Int("max_retries", msg.MaxRetries),
					)
				}
				continue
			}

			metrics.RecordOutbox("published")
			if err := w.outbox.MarkAsPublished(ctx, msg.ID); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	if err != nil {
		w.log.Error("outbox batch failed", zap.String("kind", kind), zap.Error(err))
		return 0
	}

	metrics.OutboxBatchDuration.Observe(time.Since(start).Seconds())
	return published
}

func (w *OutboxWorker) cleanup(ctx context.Context) {
	deleted, err := w.outbox.DeletePublished(ctx, w.config.CleanupRetentionDays)
	if err != nil {
		w.log.Error("failed to delete published outbox messages", zap.Error(err))
		return
	}
	if deleted > 0 {
		w.log.Info("deleted published outbox messages", zap.Int64("count", deleted))
	}
}

func (w *OutboxWorker) publish(ctx context.Context, msg *domain.OutboxMessage) error {
	return w.publisher.Produce(ctx, &kafka.Message{
		Topic:     w.config.Topic,
		Key:       []byte(msg.AggregateID),
		Value:     msg.Payload,
		Headers:   msg.Headers(),
		Timestamp: msg.CreatedAt,
	})
}
