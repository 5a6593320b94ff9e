package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/pkg/telemetry"
)

// upsertChunkSize keeps a single import statement well below the bind parameter limit
const upsertChunkSize = 500

// PostgresZoneRepository implements ZoneRepository using PostgreSQL
type PostgresZoneRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresZoneRepository creates a new PostgresZoneRepository
func NewPostgresZoneRepository(pool *pgxpool.Pool) *PostgresZoneRepository {
	return &PostgresZoneRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanZone(row rowScanner, extra ...any) (*domain.Zone, error) {
	zone := &domain.Zone{}
	var status string
	dest := []any{
		&zone.ID,
		&zone.UniqueIdentifier,
		&zone.City,
		&zone.Market,
		&zone.MainMacrozone,
		&zone.AdjacentMacrozone,
		&zone.Equipment,
		&zone.Dimensions,
		&zone.Supplier,
		&zone.Brand,
		&status,
		&zone.Category,
		&zone.CreatedAt,
		&zone.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrZoneNotFound
		}
		return nil, err
	}
	zone.Status = domain.ZoneStatus(status)
	return zone, nil
}

func scanZones(rows pgx.Rows) ([]*domain.Zone, error) {
	defer rows.Close()

	zones := make([]*domain.Zone, 0)
	for rows.Next() {
		zone, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating zones: %w", err)
	}
	return zones, nil
}

// List returns a page of zones ordered by unique identifier and the total match count
func (r *PostgresZoneRepository) List(ctx context.Context, filter *ZoneFilter) ([]*domain.Zone, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.zone.list")
	defer span.End()

	q := conn(ctx, r.pool)

	countSQL, countArgs, err := zoneCountQuery(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build zone count query: %w", err)
	}
	var total int64
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, fmt.Errorf("failed to count zones: %w", err)
	}
	span.SetAttributes(attribute.Int64("total", total))
	if total == 0 {
		return []*domain.Zone{}, 0, nil
	}

	listSQL, listArgs, err := zoneListQuery(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build zone list query: %w", err)
	}
	rows, err := q.Query(ctx, listSQL, listArgs...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, fmt.Errorf("failed to list zones: %w", err)
	}
	zones, err := scanZones(rows)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, err
	}
	return zones, total, nil
}

// GetByID retrieves a zone by ID
func (r *PostgresZoneRepository) GetByID(ctx context.Context, id string) (*domain.Zone, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.zone.get_by_id")
	defer span.End()
	span.SetAttributes(attribute.String("zone_id", id))

	query, args, err := pg.From(tableZones).Prepared(true).
		Select(zoneSelectColumns("")...).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	zone, err := scanZone(conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil && !errors.Is(err, domain.ErrZoneNotFound) {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get zone: %w", err)
	}
	return zone, err
}

// GetForUpdate locks and returns the zones with the given ids, ordered by id.
// Missing ids are absent from the result.
func (r *PostgresZoneRepository) GetForUpdate(ctx context.Context, ids []string) ([]*domain.Zone, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.zone.get_for_update")
	defer span.End()
	span.SetAttributes(attribute.Int("zone_count", len(ids)))

	if len(ids) == 0 {
		return []*domain.Zone{}, nil
	}

	query, args, err := pg.From(tableZones).Prepared(true).
		Select(zoneSelectColumns("")...).
		Where(goqu.C("id").In(ids)).
		Order(goqu.C("id").Asc()).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to lock zones: %w", err)
	}
	return scanZones(rows)
}

// Update persists status, supplier and brand of a zone
func (r *PostgresZoneRepository) Update(ctx context.Context, zone *domain.Zone) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.zone.update")
	defer span.End()
	span.SetAttributes(
		attribute.String("zone_id", zone.ID),
		attribute.String("status", zone.Status.String()),
	)

	query := `
		UPDATE zones
		SET status = $2, supplier = $3, brand = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := conn(ctx, r.pool).Exec(ctx, query,
		zone.ID,
		zone.Status.String(),
		zone.Supplier,
		zone.Brand,
		zone.UpdatedAt,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to update zone: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrZoneNotFound
	}
	return nil
}

// BulkUpdateStatus sets status on every matching zone in one statement.
// Moving to AVAILABLE clears supplier and brand. Unknown ids are skipped.
func (r *PostgresZoneRepository) BulkUpdateStatus(ctx context.Context, ids []string, status domain.ZoneStatus, now time.Time) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.zone.bulk_update_status")
	defer span.End()
	span.SetAttributes(
		attribute.Int("zone_count", len(ids)),
		attribute.String("status", status.String()),
	)

	if len(ids) == 0 {
		return 0, nil
	}

	set := goqu.Record{"status": status.String(), "updated_at": now}
	if status == domain.ZoneStatusAvailable {
		set["supplier"] = nil
		set["brand"] = nil
	}

	query, args, err := pg.Update(tableZones).Prepared(true).
		Set(set).
		Where(goqu.C("id").In(ids)).
		ToSQL()
	if err != nil {
		return 0, err
	}

	result, err := conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("failed to bulk update zones: %w", err)
	}
	return result.RowsAffected(), nil
}

// BulkDelete deletes zones in one statement. The bookings foreign key makes it
// all-or-nothing: a single referenced zone aborts the whole statement.
func (r *PostgresZoneRepository) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.zone.bulk_delete")
	defer span.End()
	span.SetAttributes(attribute.Int("zone_count", len(ids)))

	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := pg.Delete(tableZones).Prepared(true).
		Where(goqu.C("id").In(ids)).
		ToSQL()
	if err != nil {
		return 0, err
	}

	result, err := conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		err = translateConstraint(err, domain.ErrZoneHasBookings, nil)
		telemetry.RecordError(span, err)
		if domain.IsConflictError(err) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to bulk delete zones: %w", err)
	}
	return result.RowsAffected(), nil
}

// Upsert inserts zones or refreshes their descriptive fields by unique identifier.
// Existing zones keep their id, status, supplier and brand.
func (r *PostgresZoneRepository) Upsert(ctx context.Context, zones []*domain.Zone) (int, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.zone.upsert")
	defer span.End()
	span.SetAttributes(attribute.Int("zone_count", len(zones)))

	var created, updated int
	q := conn(ctx, r.pool)

	for start := 0; start < len(zones); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(zones) {
			end = len(zones)
		}

		query, args, err := zoneUpsertQuery(zones[start:end])
		if err != nil {
			return 0, 0, err
		}

		rows, err := q.Query(ctx, query, args...)
		if err != nil {
			telemetry.RecordError(span, err)
			return 0, 0, fmt.Errorf("failed to upsert zones: %w", translateConstraint(err, nil, domain.ErrDuplicateIdentifier))
		}
		for rows.Next() {
			var inserted bool
			if err := rows.Scan(&inserted); err != nil {
				rows.Close()
				return 0, 0, fmt.Errorf("failed to scan upsert result: %w", err)
			}
			if inserted {
				created++
			} else {
				updated++
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			telemetry.RecordError(span, err)
			return 0, 0, fmt.Errorf("failed to upsert zones: %w", err)
		}
	}

	span.SetAttributes(attribute.Int("created", created), attribute.Int("updated", updated))
	return created, updated, nil
}

func zoneUpsertQuery(zones []*domain.Zone) (string, []interface{}, error) {
	rows := make([]interface{}, 0, len(zones))
	for _, z := range zones {
		if z.ID == "" {
			z.ID = uuid.New().String()
		}
		rows = append(rows, goqu.Record{
			"id":                 z.ID,
			"unique_identifier":  z.UniqueIdentifier,
			"city":               z.City,
			"market":             z.Market,
			"main_macrozone":     z.MainMacrozone,
			"adjacent_macrozone": z.AdjacentMacrozone,
			"equipment":          z.Equipment,
			"dimensions":         z.Dimensions,
			"status":             z.Status.String(),
			"category":           z.Category,
			"created_at":         z.CreatedAt,
			"updated_at":         z.UpdatedAt,
		})
	}

	refresh := goqu.Record{}
	for _, c := range []string{"city", "market", "main_macrozone", "adjacent_macrozone", "equipment", "dimensions", "category", "updated_at"} {
		refresh[c] = goqu.L("EXCLUDED." + c)
	}

	return pg.Insert(tableZones).Prepared(true).
		Rows(rows...).
		OnConflict(goqu.DoUpdate("unique_identifier", refresh)).
		Returning(goqu.L("(xmax = 0)")).
		ToSQL()
}

// FilterOptions returns distinct filter values, optionally restricted to a category
func (r *PostgresZoneRepository) FilterOptions(ctx context.Context, category string) (*domain.FilterOptions, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.zone.filter_options")
	defer span.End()

	q := conn(ctx, r.pool)
	opts := &domain.FilterOptions{}
	targets := []struct {
		column string
		dest   *[]string
	}{
		{"city", &opts.Cities},
		{"market", &opts.Markets},
		{"equipment", &opts.Equipment},
		{"supplier", &opts.Suppliers},
		{"category", &opts.Categories},
	}
	for _, t := range targets {
		values, err := distinctValues(ctx, q, t.column, category)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		*t.dest = values
	}

	main, err := distinctValues(ctx, q, "main_macrozone", category)
	if err != nil {
		return nil, err
	}
	adjacent, err := distinctValues(ctx, q, "adjacent_macrozone", category)
	if err != nil {
		return nil, err
	}
	opts.Macrozones = mergeSorted(main, adjacent)

	return opts, nil
}

func distinctValues(ctx context.Context, q Querier, column, category string) ([]string, error) {
	ds := pg.From(tableZones).Prepared(true).
		SelectDistinct(goqu.C(column)).
		Where(goqu.C(column).IsNotNull(), goqu.C(column).Neq("")).
		Order(goqu.C(column).Asc())
	if category != "" {
		ds = ds.Where(goqu.C("category").Eq(category))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s options: %w", column, err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func mergeSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range append(append([]string{}, a...), b...) {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Export returns every matching zone with its latest booking, ignoring pagination
func (r *PostgresZoneRepository) Export(ctx context.Context, filter *ZoneFilter) ([]*domain.ZoneExportRow, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.zone.export")
	defer span.End()

	query, args, err := zoneExportQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to build export query: %w", err)
	}

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to export zones: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.ZoneExportRow, 0)
	for rows.Next() {
		row := &domain.ZoneExportRow{}
		zone, err := scanZone(rows, &row.BookingID, &row.BookingStatus, &row.RequestID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export row: %w", err)
		}
		row.Zone = *zone
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export rows: %w", err)
	}

	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

var _ ZoneRepository = (*PostgresZoneRepository)(nil)
