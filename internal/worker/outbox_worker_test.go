package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/pkg/kafka"
)

// MockOutboxRepository is a mock implementation of OutboxRepository
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, msgs ...*domain.OutboxMessage) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *MockOutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OutboxMessage), args.Error(1)
}

func (m *MockOutboxRepository) GetFailedMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OutboxMessage), args.Error(1)
}

func (m *MockOutboxRepository) MarkAsPublished(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepository) MarkAsFailed(ctx context.Context, id string, errMsg string) error {
	return m.Called(ctx, id, errMsg).Error(0)
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, olderThanDays int) (int64, error) {
	args := m.Called(ctx, olderThanDays)
	return args.Get(0).(int64), args.Error(1)
}

type passthroughTx struct{ calls atomic.Int32 }

func (p *passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls.Add(1)
	return fn(ctx)
}

// recordingPublisher fails for keys listed in failKeys
type recordingPublisher struct {
	mu       sync.Mutex
	sent     []*kafka.Message
	failKeys map[string]bool
}

func (p *recordingPublisher) Produce(ctx context.Context, msg *kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failKeys[string(msg.Key)] {
		return assert.AnError
	}
	p.sent = append(p.sent, msg)
	return nil
}

func message(id, aggregateID string) *domain.OutboxMessage {
	msg, _ := domain.NewOutboxMessage(domain.AggregateBooking, aggregateID, domain.EventBookingStatusChanged,
		map[string]string{"bookingId": aggregateID}, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	msg.ID = id
	return msg
}

func TestProcessPending_PublishesAndMarks(t *testing.T) {
	repo := new(MockOutboxRepository)
	tx := &passthroughTx{}
	pub := &recordingPublisher{failKeys: map[string]bool{"b-2": true}}

	repo.On("GetPendingMessages", mock.Anything, 10).Return([]*domain.OutboxMessage{
		message("m-1", "b-1"),
		message("m-2", "b-2"),
	}, nil)
	repo.On("MarkAsPublished", mock.Anything, "m-1").Return(nil)
	repo.On("MarkAsFailed", mock.Anything, "m-2", assert.AnError.Error()).Return(nil)

	w := NewOutboxWorker(repo, tx, pub, &OutboxWorkerConfig{Topic: "events", BatchSize: 10})
	published := w.ProcessPending(context.Background())

	assert.Equal(t, 1, published)
	assert.Equal(t, int32(1), tx.calls.Load())
	require.Len(t, pub.sent, 1)
	sent := pub.sent[0]
	assert.Equal(t, "events", sent.Topic)
	assert.Equal(t, []byte("b-1"), sent.Key)
	assert.Equal(t, string(domain.EventBookingStatusChanged), sent.Headers["event_type"])
	assert.Equal(t, "m-1", sent.Headers["event_id"])
	repo.AssertExpectations(t)
}

func TestProcessFailed_Retries(t *testing.T) {
	repo := new(MockOutboxRepository)
	pub := &recordingPublisher{}

	failed := message("m-3", "b-3")
	failed.Status = domain.OutboxStatusFailed
	failed.RetryCount = 2
	repo.On("GetFailedMessages", mock.Anything, 100).Return([]*domain.OutboxMessage{failed}, nil)
	repo.On("MarkAsPublished", mock.Anything, "m-3").Return(nil)

	w := NewOutboxWorker(repo, &passthroughTx{}, pub, nil)
	assert.Equal(t, 1, w.ProcessFailed(context.Background()))
	repo.AssertExpectations(t)
}

func TestProcessPending_FetchError(t *testing.T) {
	repo := new(MockOutboxRepository)
	repo.On("GetPendingMessages", mock.Anything, 100).Return(nil, assert.AnError)

	w := NewOutboxWorker(repo, &passthroughTx{}, &recordingPublisher{}, nil)
	assert.Zero(t, w.ProcessPending(context.Background()))
	repo.AssertNotCalled(t, "MarkAsPublished", mock.Anything, mock.Anything)
}

func TestOutboxWorker_StartStop(t *testing.T) {
	repo := new(MockOutboxRepository)
	repo.On("GetPendingMessages", mock.Anything, mock.Anything).Return([]*domain.OutboxMessage{}, nil)
	repo.On("GetFailedMessages", mock.Anything, mock.Anything).Return([]*domain.OutboxMessage{}, nil)
	cleaned := make(chan struct{})
	var once sync.Once
	repo.On("DeletePublished", mock.Anything, 7).Return(int64(3), nil).Run(func(mock.Arguments) {
		once.Do(func() { close(cleaned) })
	})

	cfg := DefaultOutboxWorkerConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.RetryInterval = 5 * time.Millisecond
	cfg.CleanupInterval = 5 * time.Millisecond

	w := NewOutboxWorker(repo, &passthroughTx{}, &recordingPublisher{}, cfg)
	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyRunning)

	select {
	case <-cleaned:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not run")
	}

	w.Stop()
	w.Stop()
}

func TestOutboxWorker_Restart(t *testing.T) {
	repo := new(MockOutboxRepository)
	var polls atomic.Int32
	repo.On("GetPendingMessages", mock.Anything, mock.Anything).Return([]*domain.OutboxMessage{}, nil).
		Run(func(mock.Arguments) { polls.Add(1) })
	repo.On("GetFailedMessages", mock.Anything, mock.Anything).Return([]*domain.OutboxMessage{}, nil)
	repo.On("DeletePublished", mock.Anything, mock.Anything).Return(int64(0), nil)

	cfg := DefaultOutboxWorkerConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.RetryInterval = 5 * time.Millisecond
	cfg.CleanupInterval = 5 * time.Millisecond
	w := NewOutboxWorker(repo, &passthroughTx{}, &recordingPublisher{}, cfg)

	for run := 1; run <= 3; run++ {
		before := polls.Load()
		require.NoError(t, w.Start(context.Background()), "run %d", run)
		assert.Eventually(t, func() bool { return polls.Load() > before }, time.Second, 5*time.Millisecond, "run %d", run)
		assert.NotPanics(t, w.Stop, "run %d", run)
	}

	stopped := polls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, polls.Load())
}
