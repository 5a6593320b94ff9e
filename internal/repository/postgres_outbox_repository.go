package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/pkg/telemetry"
)

const tableOutbox = "outbox"

var errOutboxMessageNotFound = errors.New("outbox message not found")

var outboxColumns = []interface{}{
	"id", "aggregate_type", "aggregate_id", "event_type", "payload", "status",
	"retry_count", "max_retries", "last_error", "created_at", "published_at",
}

// PostgresOutboxRepository implements OutboxRepository using PostgreSQL
type PostgresOutboxRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresOutboxRepository creates a new PostgresOutboxRepository
func NewPostgresOutboxRepository(pool *pgxpool.Pool) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{pool: pool, now: time.Now}
}

// Create appends messages in one statement; call inside the transaction of the
// change they describe
func (r *PostgresOutboxRepository) Create(ctx context.Context, msgs ...*domain.OutboxMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.outbox.create")
	defer span.End()
	span.SetAttributes(attribute.Int("message_count", len(msgs)))

	query, args, err := outboxInsertQuery(msgs)
	if err != nil {
		return fmt.Errorf("failed to build outbox insert: %w", err)
	}
	if _, err := conn(ctx, r.pool).Exec(ctx, query, args...); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to create outbox messages: %w", err)
	}
	return nil
}

// GetPendingMessages locks pending messages, skipping rows held by other relays.
// The locks only last as long as the surrounding transaction.
func (r *PostgresOutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	return r.fetch(ctx, "repo.postgres.outbox.get_pending", domain.OutboxStatusPending, limit)
}

// GetFailedMessages locks failed messages that can be retried
func (r *PostgresOutboxRepository) GetFailedMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	return r.fetch(ctx, "repo.postgres.outbox.get_failed", domain.OutboxStatusFailed, limit)
}

func (r *PostgresOutboxRepository) fetch(ctx context.Context, spanName string, status domain.OutboxStatus, limit int) ([]*domain.OutboxMessage, error) {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	query, args, err := outboxFetchQuery(status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build outbox fetch: %w", err)
	}

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get %s messages: %w", status, err)
	}
	defer rows.Close()

	msgs, err := scanOutboxMessages(rows)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("message_count", len(msgs)))
	return msgs, nil
}

// MarkAsPublished marks a message as successfully published
func (r *PostgresOutboxRepository) MarkAsPublished(ctx context.Context, id string) error {
	return r.mark(ctx, id, goqu.Record{
		"status":       string(domain.OutboxStatusPublished),
		"published_at": r.now(),
		"last_error":   nil,
	})
}

// MarkAsFailed records a failed delivery attempt
func (r *PostgresOutboxRepository) MarkAsFailed(ctx context.Context, id string, errMsg string) error {
	return r.mark(ctx, id, goqu.Record{
		"status":      string(domain.OutboxStatusFailed),
		"last_error":  errMsg,
		"retry_count": goqu.L("retry_count + 1"),
	})
}

func (r *PostgresOutboxRepository) mark(ctx context.Context, id string, set goqu.Record) error {
	query, args, err := pg.Update(tableOutbox).Prepared(true).
		Set(set).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build outbox update: %w", err)
	}

	result, err := conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update outbox message %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return errOutboxMessageNotFound
	}
	return nil
}

// DeletePublished deletes published messages older than the given number of days
func (r *PostgresOutboxRepository) DeletePublished(ctx context.Context, olderThanDays int) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.outbox.delete_published")
	defer span.End()

	cutoff := r.now().AddDate(0, 0, -olderThanDays)
	query, args, err := pg.Delete(tableOutbox).Prepared(true).
		Where(
			goqu.C("status").Eq(string(domain.OutboxStatusPublished)),
			goqu.C("published_at").Lt(cutoff),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build outbox delete: %w", err)
	}

	result, err := conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("failed to delete published messages: %w", err)
	}
	span.SetAttributes(attribute.Int64("deleted", result.RowsAffected()))
	return result.RowsAffected(), nil
}

func outboxInsertQuery(msgs []*domain.OutboxMessage) (string, []interface{}, error) {
	rows := make([]interface{}, len(msgs))
	for i, msg := range msgs {
		rows[i] = goqu.Record{
			"id":             msg.ID,
			"aggregate_type": msg.AggregateType,
			"aggregate_id":   msg.AggregateID,
			"event_type":     string(msg.EventType),
			"payload":        msg.Payload,
			"status":         string(msg.Status),
			"retry_count":    msg.RetryCount,
			"max_retries":    msg.MaxRetries,
			"created_at":     msg.CreatedAt,
		}
	}
	return pg.Insert(tableOutbox).Prepared(true).Rows(rows...).ToSQL()
}

// outboxFetchQuery selects the oldest messages in status, oldest first. Failed
// messages are only eligible while they have retries left.
func outboxFetchQuery(status domain.OutboxStatus, limit int) (string, []interface{}, error) {
	ds := pg.From(tableOutbox).Prepared(true).
		Select(outboxColumns...).
		Where(goqu.C("status").Eq(string(status))).
		Order(goqu.C("created_at").Asc()).
		ForUpdate(exp.SkipLocked)
	if status == domain.OutboxStatusFailed {
		ds = ds.Where(goqu.C("retry_count").Lt(goqu.I("max_retries")))
	}
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	return ds.ToSQL()
}

func scanOutboxMessages(rows pgx.Rows) ([]*domain.OutboxMessage, error) {
	var messages []*domain.OutboxMessage

	for rows.Next() {
		msg := &domain.OutboxMessage{}
		var (
			eventType string
			status    string
			lastError *string
		)

		err := rows.Scan(
			&msg.ID,
			&msg.AggregateType,
			&msg.AggregateID,
			&eventType,
			&msg.Payload,
			&status,
			&msg.RetryCount,
			&msg.MaxRetries,
			&lastError,
			&msg.CreatedAt,
			&msg.PublishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}

		msg.EventType = domain.EventType(eventType)
		msg.Status = domain.OutboxStatus(status)
		if lastError != nil {
			msg.LastError = *lastError
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox messages: %w", err)
	}
	return messages, nil
}

var _ OutboxRepository = (*PostgresOutboxRepository)(nil)
