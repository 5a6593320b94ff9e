package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/internal/dto"
	"github.com/prohmpiriya/shelf-booking/internal/repository"
)

// memStore is an in-memory stand-in for the database shared by the mock repositories.
// Reads return copies so unsaved mutations never leak into the store.
type memStore struct {
	mu       sync.Mutex
	zones    map[string]*domain.Zone
	bookings map[string]*domain.Booking
	order    []string // booking ids in creation order
	requests map[string]*domain.BookingRequest
	outbox   []*domain.OutboxMessage
	calls    map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		zones:    make(map[string]*domain.Zone),
		bookings: make(map[string]*domain.Booking),
		requests: make(map[string]*domain.BookingRequest),
		calls:    make(map[string]int),
	}
}

func (s *memStore) called(name string) {
	s.mu.Lock()
	s.calls[name]++
	s.mu.Unlock()
}

func (s *memStore) addZone(z *domain.Zone) {
	cp := *z
	s.zones[z.ID] = &cp
}

func (s *memStore) zone(id string) *domain.Zone {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.zones[id]
	return &cp
}

func (s *memStore) booking(id string) *domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.bookings[id]
	return &cp
}

func (s *memStore) request(id string) *domain.BookingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.requests[id]
	return &cp
}

func (s *memStore) events() []domain.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventType, len(s.outbox))
	for i, m := range s.outbox {
		out[i] = m.EventType
	}
	return out
}

// mockTxManager runs fn directly; errors are returned unchanged
type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

// MockZoneRepository implements repository.ZoneRepository on a memStore
type MockZoneRepository struct {
	store *memStore

	ListFunc       func(ctx context.Context, filter *repository.ZoneFilter) ([]*domain.Zone, int64, error)
	BulkDeleteFunc func(ctx context.Context, ids []string) (int64, error)
	UpsertFunc     func(ctx context.Context, zones []*domain.Zone) (int, int, error)
	ExportFunc     func(ctx context.Context, filter *repository.ZoneFilter) ([]*domain.ZoneExportRow, error)
}

func (m *MockZoneRepository) List(ctx context.Context, filter *repository.ZoneFilter) ([]*domain.Zone, int64, error) {
	m.store.called("zones.List")
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*domain.Zone
	for _, z := range m.store.zones {
		if len(filter.Categories) > 0 && !contains(filter.Categories, z.Category) {
			continue
		}
		if filter.Status != "" && z.Status != filter.Status {
			continue
		}
		cp := *z
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UniqueIdentifier < out[j].UniqueIdentifier })
	return out, int64(len(out)), nil
}

func (m *MockZoneRepository) GetByID(ctx context.Context, id string) (*domain.Zone, error) {
	m.store.called("zones.GetByID")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	z, ok := m.store.zones[id]
	if !ok {
		return nil, domain.ErrZoneNotFound
	}
	cp := *z
	return &cp, nil
}

func (m *MockZoneRepository) GetForUpdate(ctx context.Context, ids []string) ([]*domain.Zone, error) {
	m.store.called("zones.GetForUpdate")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*domain.Zone
	for _, id := range ids {
		if z, ok := m.store.zones[id]; ok {
			cp := *z
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockZoneRepository) Update(ctx context.Context, zone *domain.Zone) error {
	m.store.called("zones.Update")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.zones[zone.ID]; !ok {
		return domain.ErrZoneNotFound
	}
	cp := *zone
	m.store.zones[zone.ID] = &cp
	return nil
}

func (m *MockZoneRepository) BulkUpdateStatus(ctx context.Context, ids []string, status domain.ZoneStatus, now time.Time) (int64, error) {
	m.store.called("zones.BulkUpdateStatus")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var n int64
	for _, id := range ids {
		if z, ok := m.store.zones[id]; ok {
			z.SetStatus(status)
			z.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m *MockZoneRepository) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	m.store.called("zones.BulkDelete")
	if m.BulkDeleteFunc != nil {
		return m.BulkDeleteFunc(ctx, ids)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, b := range m.store.bookings {
		if contains(ids, b.ZoneID) {
			return 0, domain.ErrZoneHasBookings
		}
	}
	var n int64
	for _, id := range ids {
		if _, ok := m.store.zones[id]; ok {
			delete(m.store.zones, id)
			n++
		}
	}
	return n, nil
}

func (m *MockZoneRepository) Upsert(ctx context.Context, zones []*domain.Zone) (int, int, error) {
	m.store.called("zones.Upsert")
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, zones)
	}
	return len(zones), 0, nil
}

func (m *MockZoneRepository) FilterOptions(ctx context.Context, category string) (*domain.FilterOptions, error) {
	m.store.called("zones.FilterOptions")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	opts := &domain.FilterOptions{}
	for _, z := range m.store.zones {
		if category != "" && z.Category != category {
			continue
		}
		opts.Cities = append(opts.Cities, z.City)
		opts.Categories = append(opts.Categories, z.Category)
	}
	sort.Strings(opts.Cities)
	sort.Strings(opts.Categories)
	return opts, nil
}

func (m *MockZoneRepository) Export(ctx context.Context, filter *repository.ZoneFilter) ([]*domain.ZoneExportRow, error) {
	m.store.called("zones.Export")
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, filter)
	}
	return []*domain.ZoneExportRow{}, nil
}

// MockBookingRepository implements repository.BookingRepository on a memStore
type MockBookingRepository struct {
	store *memStore
}

func (m *MockBookingRepository) CreateBatch(ctx context.Context, bookings []*domain.Booking) error {
	m.store.called("bookings.CreateBatch")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, b := range bookings {
		cp := *b
		cp.Zone = nil
		m.store.bookings[b.ID] = &cp
		m.store.order = append(m.store.order, b.ID)
	}
	return nil
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.store.called("bookings.GetByID")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	b, ok := m.store.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return m.withZone(b), nil
}

func (m *MockBookingRepository) GetForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	m.store.called("bookings.GetForUpdate")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	b, ok := m.store.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, booking *domain.Booking) error {
	m.store.called("bookings.UpdateStatus")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	b, ok := m.store.bookings[booking.ID]
	if !ok {
		return domain.ErrBookingNotFound
	}
	b.Status = booking.Status
	b.UpdatedAt = booking.UpdatedAt
	return nil
}

func (m *MockBookingRepository) ListByRequests(ctx context.Context, requestIDs []string) (map[string][]*domain.Booking, error) {
	m.store.called("bookings.ListByRequests")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := make(map[string][]*domain.Booking, len(requestIDs))
	for _, id := range m.store.order {
		b := m.store.bookings[id]
		if contains(requestIDs, b.BookingRequestID) {
			out[b.BookingRequestID] = append(out[b.BookingRequestID], m.withZone(b))
		}
	}
	return out, nil
}

// withZone copies b and joins its zone; the caller holds the store lock
func (m *MockBookingRepository) withZone(b *domain.Booking) *domain.Booking {
	cp := *b
	if z, ok := m.store.zones[b.ZoneID]; ok {
		zc := *z
		cp.Zone = &zc
	}
	return &cp
}

// MockRequestRepository implements repository.RequestRepository on a memStore
type MockRequestRepository struct {
	store *memStore
}

func (m *MockRequestRepository) Create(ctx context.Context, req *domain.BookingRequest) error {
	m.store.called("requests.Create")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	cp := *req
	cp.Bookings = nil
	m.store.requests[req.ID] = &cp
	return nil
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id string) (*domain.BookingRequest, error) {
	m.store.called("requests.GetByID")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	r, ok := m.store.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MockRequestRepository) GetForUpdate(ctx context.Context, id string) (*domain.BookingRequest, error) {
	return m.GetByID(ctx, id)
}

func (m *MockRequestRepository) UpdateStatus(ctx context.Context, req *domain.BookingRequest) error {
	m.store.called("requests.UpdateStatus")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	r, ok := m.store.requests[req.ID]
	if !ok {
		return domain.ErrRequestNotFound
	}
	r.Status = req.Status
	r.UpdatedAt = req.UpdatedAt
	return nil
}

func (m *MockRequestRepository) List(ctx context.Context, filter *repository.RequestFilter) ([]*domain.BookingRequest, int64, error) {
	m.store.called("requests.List")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*domain.BookingRequest
	for _, r := range m.store.requests {
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.Category != "" && !m.touchesCategory(r, filter.Category) {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (m *MockRequestRepository) touchesCategory(r *domain.BookingRequest, category string) bool {
	if r.Category != nil && *r.Category == category {
		return true
	}
	for _, b := range m.store.bookings {
		if b.BookingRequestID != r.ID {
			continue
		}
		if z, ok := m.store.zones[b.ZoneID]; ok && z.Category == category {
			return true
		}
	}
	return false
}

// MockOutboxRepository records written messages on a memStore
type MockOutboxRepository struct {
	store *memStore
}

func (m *MockOutboxRepository) Create(ctx context.Context, msgs ...*domain.OutboxMessage) error {
	m.store.called("outbox.Create")
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.outbox = append(m.store.outbox, msgs...)
	return nil
}

func (m *MockOutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	return nil, nil
}

func (m *MockOutboxRepository) GetFailedMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	return nil, nil
}

func (m *MockOutboxRepository) MarkAsPublished(ctx context.Context, id string) error { return nil }

func (m *MockOutboxRepository) MarkAsFailed(ctx context.Context, id string, errMsg string) error {
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, olderThanDays int) (int64, error) {
	return 0, nil
}

// MockZoneListCache counts cache traffic; InvalidateErr simulates an unreachable Redis
type MockZoneListCache struct {
	mu            sync.Mutex
	entries       map[string]*dto.ZoneListResponse
	gets, sets    int
	invalidations int
	version       int64
	InvalidateErr error
}

func newMockZoneListCache() *MockZoneListCache {
	return &MockZoneListCache{entries: make(map[string]*dto.ZoneListResponse)}
}

func cacheKey(f *dto.ZoneListFilter) string {
	return strings.Join([]string{
		strings.Join(f.City, ","), strings.Join(f.Category, ","), f.Status, f.Search,
	}, "|")
}

func (c *MockZoneListCache) Get(ctx context.Context, filter *dto.ZoneListFilter) (*dto.ZoneListResponse, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	page, ok := c.entries[versionedKey(c.version, filter)]
	return page, c.version, ok
}

func (c *MockZoneListCache) Set(ctx context.Context, version int64, filter *dto.ZoneListFilter, page *dto.ZoneListResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[versionedKey(version, filter)] = page
}

func (c *MockZoneListCache) Invalidate(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	if c.InvalidateErr != nil {
		return 0, c.InvalidateErr
	}
	c.version++
	return c.version, nil
}

func versionedKey(version int64, f *dto.ZoneListFilter) string {
	return strconv.FormatInt(version, 10) + "#" + cacheKey(f)
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// fixture wires every service onto one memStore
type fixture struct {
	store    *memStore
	tx       *mockTxManager
	cache    *MockZoneListCache
	zoneRepo *MockZoneRepository

	zones     *zoneService
	bookings  *bookingService
	approvals *approvalService
	requests  *requestService
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	store := newMemStore()
	tx := &mockTxManager{}
	zc := newMockZoneListCache()
	zoneRepo := &MockZoneRepository{store: store}
	bookingRepo := &MockBookingRepository{store: store}
	requestRepo := &MockRequestRepository{store: store}
	outboxRepo := &MockOutboxRepository{store: store}

	zs := NewZoneService(zoneRepo, outboxRepo, tx, zc).(*zoneService)
	bs := NewBookingService(zoneRepo, bookingRepo, requestRepo, outboxRepo, tx, zc).(*bookingService)
	as := NewApprovalService(zoneRepo, bookingRepo, requestRepo, outboxRepo, tx, zc).(*approvalService)
	rs := NewRequestService(bookingRepo, requestRepo, outboxRepo, tx).(*requestService)

	now := func() time.Time { return fixedNow }
	zs.now, bs.now, as.now, rs.now = now, now, now, now

	return &fixture{
		store:     store,
		tx:        tx,
		cache:     zc,
		zoneRepo:  zoneRepo,
		zones:     zs,
		bookings:  bs,
		approvals: as,
		requests:  rs,
	}
}

const (
	zoneA = "00000000-0000-0000-0000-00000000000a"
	zoneB = "00000000-0000-0000-0000-00000000000b"
	zoneC = "00000000-0000-0000-0000-00000000000c"
)

func (f *fixture) seedZone(id, identifier, category string, status domain.ZoneStatus) {
	f.store.addZone(&domain.Zone{
		ID:               id,
		UniqueIdentifier: identifier,
		City:             "Moscow",
		Market:           "M1",
		MainMacrozone:    "Dairy",
		Equipment:        "Shelf",
		Category:         category,
		Status:           status,
	})
}

var (
	supplier   = &domain.Actor{UserID: "u-supplier", Role: domain.RoleSupplier, Status: domain.UserStatusActive, INN: "7701234567"}
	other      = &domain.Actor{UserID: "u-other", Role: domain.RoleSupplier, Status: domain.UserStatusActive}
	kmDairy    = &domain.Actor{UserID: "u-km", Role: domain.RoleCategoryManager, Status: domain.UserStatusActive, Category: "Dairy"}
	kmBakery   = &domain.Actor{UserID: "u-km2", Role: domain.RoleCategoryManager, Status: domain.UserStatusActive, Category: "Bakery"}
	kmNoCat    = &domain.Actor{UserID: "u-km3", Role: domain.RoleCategoryManager, Status: domain.UserStatusActive}
	kmPending  = &domain.Actor{UserID: "u-km4", Role: domain.RoleCategoryManager, Status: domain.UserStatusPending, Category: "Dairy"}
	dmpManager = &domain.Actor{UserID: "u-dmp", Role: domain.RoleDMPManager, Status: domain.UserStatusActive}
)
