package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/prohmpiriya/shelf-booking/internal/cache"
	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/internal/dto"
	"github.com/prohmpiriya/shelf-booking/internal/metrics"
	"github.com/prohmpiriya/shelf-booking/internal/repository"
	"github.com/prohmpiriya/shelf-booking/pkg/telemetry"
)

// zoneService implements the ZoneService interface
type zoneService struct {
	zones  repository.ZoneRepository
	outbox repository.OutboxRepository
	tx     repository.TxManager
	cache  cache.ZoneListCache
	bumper cacheBumper
	now    func() time.Time
}

// NewZoneService creates a new ZoneService
func NewZoneService(
	zones repository.ZoneRepository,
	outbox repository.OutboxRepository,
	tx repository.TxManager,
	zoneCache cache.ZoneListCache,
) ZoneService {
	if zoneCache == nil {
		zoneCache = cache.NoopZoneListCache{}
	}
	return &zoneService{
		zones:  zones,
		outbox: outbox,
		tx:     tx,
		cache:  zoneCache,
		bumper: newCacheBumper(zoneCache),
		now:    time.Now,
	}
}

func toZoneFilter(f *dto.ZoneListFilter) *repository.ZoneFilter {
	return &repository.ZoneFilter{
		Cities:     f.City,
		Markets:    f.Market,
		Macrozones: f.Macrozone,
		Equipment:  f.Equipment,
		Suppliers:  f.Supplier,
		Categories: f.Category,
		Status:     domain.ZoneStatus(f.Status),
		Search:     f.Search,
		Limit:      f.Limit,
		Offset:     f.Offset(),
	}
}

// prepareFilter normalizes and validates a filter and applies the actor's category scope
func prepareFilter(actor *domain.Actor, filter *dto.ZoneListFilter) error {
	if err := actor.Require(allRoles...); err != nil {
		return err
	}
	scope, err := categoryScope(actor)
	if err != nil {
		return err
	}
	filter.Normalize()
	if err := filter.Validate(); err != nil {
		return err
	}
	if scope != "" {
		filter.ScopeToCategory(scope)
	}
	return nil
}

// ListZones returns a filtered page of zones, served from the cache when possible
func (s *zoneService) ListZones(ctx context.Context, actor *domain.Actor, filter *dto.ZoneListFilter) (*dto.ZoneListResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.zone.list")
	defer span.End()

	if filter == nil {
		filter = &dto.ZoneListFilter{}
	}
	if err := prepareFilter(actor, filter); err != nil {
		return nil, err
	}

	cached, version, ok := s.cache.Get(ctx, filter)
	if ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}

	zones, total, err := s.zones.List(ctx, toZoneFilter(filter))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	page := &dto.ZoneListResponse{Zones: zones, Total: total, Page: filter.Page, Limit: filter.Limit}
	s.cache.Set(ctx, version, filter, page)
	return page, nil
}

// GetZone retrieves a zone by ID
func (s *zoneService) GetZone(ctx context.Context, actor *domain.Actor, id string) (*domain.Zone, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.zone.get")
	defer span.End()
	span.SetAttributes(attribute.String("zone_id", id))

	if err := actor.Require(allRoles...); err != nil {
		return nil, err
	}
	scope, err := categoryScope(actor)
	if err != nil {
		return nil, err
	}
	if err := validateID(id, domain.ErrInvalidZoneID); err != nil {
		return nil, err
	}

	zone, err := s.zones.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope != "" && zone.Category != scope {
		return nil, domain.ErrForbidden
	}
	return zone, nil
}

// FilterOptions lists the distinct values of every filter dimension
func (s *zoneService) FilterOptions(ctx context.Context, actor *domain.Actor) (*domain.FilterOptions, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.zone.filter_options")
	defer span.End()

	if err := actor.Require(allRoles...); err != nil {
		return nil, err
	}
	scope, err := categoryScope(actor)
	if err != nil {
		return nil, err
	}
	return s.zones.FilterOptions(ctx, scope)
}

// mutateZone locks one zone, applies fn and persists it together with a zones.changed event
func (s *zoneService) mutateZone(ctx context.Context, actor *domain.Actor, id, operation string, fn func(z *domain.Zone)) (*domain.Zone, error) {
	var zone *domain.Zone
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.zones.GetForUpdate(ctx, []string{id})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return domain.ErrZoneNotFound
		}
		zone = locked[0]

		now := s.now()
		fn(zone)
		zone.UpdatedAt = now
		if err := s.zones.Update(ctx, zone); err != nil {
			return err
		}

		status := zone.Status
		msg, err := outboxMessage(domain.AggregateZone, zone.ID, domain.EventZonesChanged, domain.ZonesChangedEvent{
			Operation: operation,
			ZoneIDs:   []string{zone.ID},
			Status:    &status,
			Affected:  1,
			ActorID:   actor.UserID,
			ChangedAt: now,
		}, now)
		if err != nil {
			return err
		}
		return s.outbox.Create(ctx, msg)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordZoneMutation(operation, 1)
	s.bumper.bump(ctx, operation)
	return zone, nil
}

// UpdateZoneStatus edits the status of one zone; AVAILABLE releases it
func (s *zoneService) UpdateZoneStatus(ctx context.Context, actor *domain.Actor, id string, req *dto.UpdateZoneStatusRequest) (*domain.Zone, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.zone.update_status")
	defer span.End()
	span.SetAttributes(attribute.String("zone_id", id))

	if err := actor.Require(domain.RoleDMPManager); err != nil {
		return nil, err
	}
	if err := validateID(id, domain.ErrInvalidZoneID); err != nil {
		return nil, err
	}
	status, err := domain.ParseZoneStatus(req.Status)
	if err != nil {
		return nil, err
	}

	zone, err := s.mutateZone(ctx, actor, id, "update_status", func(z *domain.Zone) {
		z.SetStatus(status)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return zone, nil
}

// ClaimZone sets supplier and/or brand and marks the zone UNAVAILABLE
func (s *zoneService) ClaimZone(ctx context.Context, actor *domain.Actor, id string, req *dto.ClaimZoneRequest) (*domain.Zone, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.zone.claim")
	defer span.End()
	span.SetAttributes(attribute.String("zone_id", id))

	if err := actor.Require(domain.RoleDMPManager); err != nil {
		return nil, err
	}
	if err := validateID(id, domain.ErrInvalidZoneID); err != nil {
		return nil, err
	}
	claim := req.ToClaim()
	if err := claim.Validate(); err != nil {
		return nil, err
	}

	zone, err := s.mutateZone(ctx, actor, id, "claim", claim.Apply)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return zone, nil
}

// BulkUpdateStatus sets status on many zones. An empty id list touches nothing.
func (s *zoneService) BulkUpdateStatus(ctx context.Context, actor *domain.Actor, req *dto.BulkUpdateZonesRequest) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.zone.bulk_update_status")
	defer span.End()
	span.SetAttributes(attribute.Int("zone_count", len(req.ZoneIDs)))

	if err := actor.Require(domain.RoleDMPManager); err != nil {
		return 0, err
	}
	status, err := domain.ParseZoneStatus(req.Status)
	if err != nil {
		return 0, err
	}
	if len(req.ZoneIDs) == 0 {
		return 0, nil
	}
	if err := validateIDs(req.ZoneIDs, domain.ErrInvalidZoneID); err != nil {
		return 0, err
	}

	var updated int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()
		n, err := s.zones.BulkUpdateStatus(ctx, req.ZoneIDs, status, now)
		if err != nil {
			return err
		}
		updated = n

		msg, err := outboxMessage(domain.AggregateZone, "bulk", domain.EventZonesChanged, domain.ZonesChangedEvent{
			Operation: "bulk_update",
			ZoneIDs:   req.ZoneIDs,
			Status:    &status,
			Affected:  n,
			ActorID:   actor.UserID,
			ChangedAt: now,
		}, now)
		if err != nil {
			return err
		}
		return s.outbox.Create(ctx, msg)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	metrics.RecordZoneMutation("bulk_update", updated)
	if updated > 0 {
		s.bumper.bump(ctx, "bulk_update")
	}
	return updated, nil
}

// BulkDelete deletes zones without bookings. One referenced zone fails the whole batch.
func (s *zoneService) BulkDelete(ctx context.Context, actor *domain.Actor, req *dto.BulkDeleteZonesRequest) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.zone.bulk_delete")
	defer span.End()
	span.SetAttributes(attribute.Int("zone_count", len(req.ZoneIDs)))

	if err := actor.Require(domain.RoleDMPManager); err != nil {
		return 0, err
	}
	if len(req.ZoneIDs) == 0 {
		return 0, nil
	}
	if err := validateIDs(req.ZoneIDs, domain.ErrInvalidZoneID); err != nil {
		return 0, err
	}

	var deleted int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := s.zones.BulkDelete(ctx, req.ZoneIDs)
		if err != nil {
			return err
		}
		deleted = n

		now := s.now()
		msg, err := outboxMessage(domain.AggregateZone, "bulk", domain.EventZonesChanged, domain.ZonesChangedEvent{
			Operation: "bulk_delete",
			ZoneIDs:   req.ZoneIDs,
			Affected:  n,
			ActorID:   actor.UserID,
			ChangedAt: now,
		}, now)
		if err != nil {
			return err
		}
		return s.outbox.Create(ctx, msg)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	metrics.RecordZoneMutation("bulk_delete", deleted)
	if deleted > 0 {
		s.bumper.bump(ctx, "bulk_delete")
	}
	return deleted, nil
}

// ImportZones upserts flat zone records; a repeated identifier keeps its last record
func (s *zoneService) ImportZones(ctx context.Context, actor *domain.Actor, req *dto.ImportZonesRequest) (*dto.ImportResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.zone.import")
	defer span.End()
	span.SetAttributes(attribute.Int("record_count", len(req.Zones)))

	if err := actor.Require(domain.RoleDMPManager); err != nil {
		return nil, err
	}
	if len(req.Zones) == 0 {
		return &dto.ImportResult{}, nil
	}

	now := s.now()
	index := make(map[string]int, len(req.Zones))
	zones := make([]*domain.Zone, 0, len(req.Zones))
	for i := range req.Zones {
		zone := req.Zones[i].ToZone()
		if err := zone.Validate(); err != nil {
			return nil, err
		}
		zone.CreatedAt, zone.UpdatedAt = now, now
		if pos, ok := index[zone.UniqueIdentifier]; ok {
			zones[pos] = zone
			continue
		}
		index[zone.UniqueIdentifier] = len(zones)
		zones = append(zones, zone)
	}

	result := &dto.ImportResult{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		created, updated, err := s.zones.Upsert(ctx, zones)
		if err != nil {
			return err
		}
		result.Created, result.Updated = created, updated

		msg, err := outboxMessage(domain.AggregateZone, "import", domain.EventZonesChanged, domain.ZonesChangedEvent{
			Operation: "import",
			Affected:  int64(created + updated),
			ActorID:   actor.UserID,
			ChangedAt: now,
		}, now)
		if err != nil {
			return err
		}
		return s.outbox.Create(ctx, msg)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	metrics.RecordZoneMutation("import", int64(result.Created+result.Updated))
	s.bumper.bump(ctx, "import")
	return result, nil
}

// ExportZones returns every matching zone with its latest booking
func (s *zoneService) ExportZones(ctx context.Context, actor *domain.Actor, filter *dto.ZoneListFilter) ([]*domain.ZoneExportRow, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.zone.export")
	defer span.End()

	if filter == nil {
		filter = &dto.ZoneListFilter{}
	}
	if err := prepareFilter(actor, filter); err != nil {
		return nil, err
	}

	f := toZoneFilter(filter)
	f.Limit, f.Offset = 0, 0
	return s.zones.Export(ctx, f)
}

// ClearCache invalidates the zone-list cache namespace. Cache failures are logged only.
func (s *zoneService) ClearCache(ctx context.Context, actor *domain.Actor) error {
	if err := actor.Require(domain.RoleDMPManager); err != nil {
		return err
	}
	s.bumper.bump(ctx, "manual")
	return nil
}
