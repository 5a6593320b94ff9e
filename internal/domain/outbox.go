package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox row
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// DefaultOutboxMaxRetries bounds redelivery of a failing message
const DefaultOutboxMaxRetries = 5

// OutboxMessage is a domain event written in the same transaction as the
// booking, request or zone change it describes. AggregateID doubles as the
// Kafka record key so events of one aggregate stay ordered.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     EventType
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// NewOutboxMessage encodes payload as JSON into a pending message
func NewOutboxMessage(aggregateType, aggregateID string, eventType EventType, payload interface{}, now time.Time) (*OutboxMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultOutboxMaxRetries,
		CreatedAt:     now,
	}, nil
}

// Headers are the record headers consumers route on
func (m *OutboxMessage) Headers() map[string]string {
	return map[string]string{
		"event_id":       m.ID,
		"event_type":     string(m.EventType),
		"aggregate_type": m.AggregateType,
		"aggregate_id":   m.AggregateID,
		"content_type":   "application/json",
	}
}

// LastAttempt reports whether one more failure exhausts the retry budget
func (m *OutboxMessage) LastAttempt() bool {
	return m.RetryCount+1 >= m.MaxRetries
}
