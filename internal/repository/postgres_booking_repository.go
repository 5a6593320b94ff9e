package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/pkg/telemetry"
)

var bookingColumns = []string{"id", "booking_request_id", "zone_id", "status", "created_at", "updated_at"}

// PostgresBookingRepository implements BookingRepository using PostgreSQL
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

func scanBooking(row rowScanner, withZone bool) (*domain.Booking, error) {
	b := &domain.Booking{}
	var status string
	dest := []any{&b.ID, &b.BookingRequestID, &b.ZoneID, &status, &b.CreatedAt, &b.UpdatedAt}

	if !withZone {
		if err := row.Scan(dest...); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrBookingNotFound
			}
			return nil, err
		}
		b.Status = domain.BookingStatus(status)
		return b, nil
	}

	// zone columns first, booking columns appended
	zone, err := scanZone(row, dest...)
	if err != nil {
		if errors.Is(err, domain.ErrZoneNotFound) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	b.Status = domain.BookingStatus(status)
	b.Zone = zone
	return b, nil
}

func bookingWithZoneQuery() *goqu.SelectDataset {
	cols := zoneSelectColumns("z")
	for _, c := range bookingColumns {
		cols = append(cols, col("b", c))
	}
	return pg.From(goqu.T(tableBookings).As("b")).Prepared(true).
		Select(cols...).
		Join(goqu.T(tableZones).As("z"), goqu.On(goqu.I("z.id").Eq(goqu.I("b.zone_id"))))
}

// CreateBatch inserts bookings in one round trip
func (r *PostgresBookingRepository) CreateBatch(ctx context.Context, bookings []*domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.create_batch")
	defer span.End()
	span.SetAttributes(attribute.Int("booking_count", len(bookings)))

	if len(bookings) == 0 {
		return nil
	}

	query := `
		INSERT INTO bookings (id, booking_request_id, zone_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	batch := &pgx.Batch{}
	for _, b := range bookings {
		batch.Queue(query, b.ID, b.BookingRequestID, b.ZoneID, b.Status.String(), b.CreatedAt, b.UpdatedAt)
	}

	results := conn(ctx, r.pool).SendBatch(ctx, batch)
	defer results.Close()

	for range bookings {
		if _, err := results.Exec(); err != nil {
			err = translateConstraint(err, domain.ErrZoneNotFound, nil)
			telemetry.RecordError(span, err)
			return fmt.Errorf("failed to create booking: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a booking with its zone
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_id")
	defer span.End()
	span.SetAttributes(attribute.String("booking_id", id))

	query, args, err := bookingWithZoneQuery().Where(goqu.I("b.id").Eq(id)).ToSQL()
	if err != nil {
		return nil, err
	}

	b, err := scanBooking(conn(ctx, r.pool).QueryRow(ctx, query, args...), true)
	if err != nil && !errors.Is(err, domain.ErrBookingNotFound) {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, err
}

// GetForUpdate locks and returns a booking
func (r *PostgresBookingRepository) GetForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_for_update")
	defer span.End()
	span.SetAttributes(attribute.String("booking_id", id))

	query := `SELECT ` + strings.Join(bookingColumns, ", ") + ` FROM bookings WHERE id = $1 FOR UPDATE`

	b, err := scanBooking(conn(ctx, r.pool).QueryRow(ctx, query, id), false)
	if err != nil && !errors.Is(err, domain.ErrBookingNotFound) {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return b, err
}

// UpdateStatus persists the status of a booking
func (r *PostgresBookingRepository) UpdateStatus(ctx context.Context, booking *domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.update_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("status", booking.Status.String()),
	)

	query := `UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := conn(ctx, r.pool).Exec(ctx, query, booking.ID, booking.Status.String(), booking.UpdatedAt)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

// ListByRequests returns the bookings of each request with their zones, in creation order
func (r *PostgresBookingRepository) ListByRequests(ctx context.Context, requestIDs []string) (map[string][]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.list_by_requests")
	defer span.End()
	span.SetAttributes(attribute.Int("request_count", len(requestIDs)))

	out := make(map[string][]*domain.Booking, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}

	query, args, err := bookingWithZoneQuery().
		Where(goqu.I("b.booking_request_id").In(requestIDs)).
		Order(goqu.I("b.seq").Asc()).
		ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBooking(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out[b.BookingRequestID] = append(out[b.BookingRequestID], b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return out, nil
}

var _ BookingRepository = (*PostgresBookingRepository)(nil)
