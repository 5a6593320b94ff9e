package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/pkg/telemetry"
)

const requestColumns = `id, user_id, category, status, created_at, updated_at`

// PostgresRequestRepository implements RequestRepository using PostgreSQL
type PostgresRequestRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRequestRepository creates a new PostgresRequestRepository
func NewPostgresRequestRepository(pool *pgxpool.Pool) *PostgresRequestRepository {
	return &PostgresRequestRepository{pool: pool}
}

func scanRequest(row rowScanner) (*domain.BookingRequest, error) {
	req := &domain.BookingRequest{}
	var status string
	err := row.Scan(&req.ID, &req.UserID, &req.Category, &status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}
	req.Status = domain.RequestStatus(status)
	return req, nil
}

// Create inserts a booking request
func (r *PostgresRequestRepository) Create(ctx context.Context, req *domain.BookingRequest) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.request.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("request_id", req.ID),
		attribute.String("user_id", req.UserID),
	)

	query := `
		INSERT INTO booking_requests (id, user_id, category, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		req.ID,
		req.UserID,
		req.Category,
		req.Status.String(),
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to create booking request: %w", err)
	}
	return nil
}

// GetByID retrieves a booking request without its bookings
func (r *PostgresRequestRepository) GetByID(ctx context.Context, id string) (*domain.BookingRequest, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.request.get_by_id")
	defer span.End()
	span.SetAttributes(attribute.String("request_id", id))

	query := `SELECT ` + requestColumns + ` FROM booking_requests WHERE id = $1`
	req, err := scanRequest(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil && !errors.Is(err, domain.ErrRequestNotFound) {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get booking request: %w", err)
	}
	return req, err
}

// GetForUpdate locks and returns a booking request
func (r *PostgresRequestRepository) GetForUpdate(ctx context.Context, id string) (*domain.BookingRequest, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.request.get_for_update")
	defer span.End()
	span.SetAttributes(attribute.String("request_id", id))

	query := `SELECT ` + requestColumns + ` FROM booking_requests WHERE id = $1 FOR UPDATE`
	req, err := scanRequest(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil && !errors.Is(err, domain.ErrRequestNotFound) {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to lock booking request: %w", err)
	}
	return req, err
}

// UpdateStatus persists the status of a booking request
func (r *PostgresRequestRepository) UpdateStatus(ctx context.Context, req *domain.BookingRequest) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.request.update_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("request_id", req.ID),
		attribute.String("status", req.Status.String()),
	)

	query := `UPDATE booking_requests SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := conn(ctx, r.pool).Exec(ctx, query, req.ID, req.Status.String(), req.UpdatedAt)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to update booking request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

// requestConditions translates a RequestFilter into WHERE expressions.
// A category scope matches the request category or the category of any booked zone.
func requestConditions(f *RequestFilter) []exp.Expression {
	var conds []exp.Expression
	if f.UserID != "" {
		conds = append(conds, goqu.I("br.user_id").Eq(f.UserID))
	}
	if f.Status != "" {
		conds = append(conds, goqu.I("br.status").Eq(f.Status.String()))
	}
	if f.Category != "" {
		touched := pg.From(goqu.T(tableBookings).As("b")).
			Select(goqu.L("1")).
			Join(goqu.T(tableZones).As("z"), goqu.On(goqu.I("z.id").Eq(goqu.I("b.zone_id")))).
			Where(
				goqu.I("b.booking_request_id").Eq(goqu.I("br.id")),
				goqu.I("z.category").Eq(f.Category),
			)
		conds = append(conds, goqu.Or(
			goqu.I("br.category").Eq(f.Category),
			goqu.L("EXISTS ?", touched),
		))
	}
	return conds
}

// List returns a page of requests, newest first, and the total match count
func (r *PostgresRequestRepository) List(ctx context.Context, filter *RequestFilter) ([]*domain.BookingRequest, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.request.list")
	defer span.End()

	q := conn(ctx, r.pool)
	base := pg.From(goqu.T(tableRequests).As("br")).Prepared(true).Where(requestConditions(filter)...)

	countSQL, countArgs, err := base.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, fmt.Errorf("failed to count booking requests: %w", err)
	}
	if total == 0 {
		return []*domain.BookingRequest{}, 0, nil
	}

	ds := base.
		Select(
			goqu.I("br.id"), goqu.I("br.user_id"), goqu.I("br.category"),
			goqu.I("br.status"), goqu.I("br.created_at"), goqu.I("br.updated_at"),
		).
		Order(goqu.I("br.created_at").Desc(), goqu.I("br.id").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit)).Offset(uint(filter.Offset))
	}
	listSQL, listArgs, err := ds.ToSQL()
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, listSQL, listArgs...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, fmt.Errorf("failed to list booking requests: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.BookingRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan booking request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating booking requests: %w", err)
	}
	return out, total, nil
}

var _ RequestRepository = (*PostgresRequestRepository)(nil)
