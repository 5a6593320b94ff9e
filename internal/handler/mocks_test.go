package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/internal/dto"
)

// MockZoneService is a mock implementation of ZoneService
type MockZoneService struct {
	mock.Mock
}

func (m *MockZoneService) ListZones(ctx context.Context, actor *domain.Actor, filter *dto.ZoneListFilter) (*dto.ZoneListResponse, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ZoneListResponse), args.Error(1)
}

func (m *MockZoneService) GetZone(ctx context.Context, actor *domain.Actor, id string) (*domain.Zone, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Zone), args.Error(1)
}

func (m *MockZoneService) FilterOptions(ctx context.Context, actor *domain.Actor) (*domain.FilterOptions, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FilterOptions), args.Error(1)
}

func (m *MockZoneService) UpdateZoneStatus(ctx context.Context, actor *domain.Actor, id string, req *dto.UpdateZoneStatusRequest) (*domain.Zone, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Zone), args.Error(1)
}

func (m *MockZoneService) ClaimZone(ctx context.Context, actor *domain.Actor, id string, req *dto.ClaimZoneRequest) (*domain.Zone, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Zone), args.Error(1)
}

func (m *MockZoneService) BulkUpdateStatus(ctx context.Context, actor *domain.Actor, req *dto.BulkUpdateZonesRequest) (int64, error) {
	args := m.Called(ctx, actor, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockZoneService) BulkDelete(ctx context.Context, actor *domain.Actor, req *dto.BulkDeleteZonesRequest) (int64, error) {
	args := m.Called(ctx, actor, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockZoneService) ImportZones(ctx context.Context, actor *domain.Actor, req *dto.ImportZonesRequest) (*dto.ImportResult, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ImportResult), args.Error(1)
}

func (m *MockZoneService) ExportZones(ctx context.Context, actor *domain.Actor, filter *dto.ZoneListFilter) ([]*domain.ZoneExportRow, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ZoneExportRow), args.Error(1)
}

func (m *MockZoneService) ClearCache(ctx context.Context, actor *domain.Actor) error {
	args := m.Called(ctx, actor)
	return args.Error(0)
}

// MockBookingService is a mock implementation of BookingService
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, actor *domain.Actor, req *dto.CreateBookingRequest) (*domain.BookingRequest, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingRequest), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, actor *domain.Actor, id string) (*domain.Booking, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

// MockApprovalService is a mock implementation of ApprovalService
type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) UpdateBookingStatus(ctx context.Context, actor *domain.Actor, bookingID string, req *dto.UpdateBookingStatusRequest) (*dto.BookingStatusResult, error) {
	args := m.Called(ctx, actor, bookingID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.BookingStatusResult), args.Error(1)
}

// MockRequestService is a mock implementation of RequestService
type MockRequestService struct {
	mock.Mock
}

func (m *MockRequestService) ListRequests(ctx context.Context, actor *domain.Actor, filter *dto.RequestListFilter) ([]*domain.BookingRequest, int64, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.BookingRequest), args.Get(1).(int64), args.Error(2)
}

func (m *MockRequestService) GetRequest(ctx context.Context, actor *domain.Actor, id string) (*domain.BookingRequest, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingRequest), args.Error(1)
}

func (m *MockRequestService) UpdateRequestStatus(ctx context.Context, actor *domain.Actor, id string, req *dto.UpdateRequestStatusRequest) (*domain.BookingRequest, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingRequest), args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }
