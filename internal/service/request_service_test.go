package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/internal/dto"
)

func seedRequests(t *testing.T, f *fixture) (dairy, bakery *domain.BookingRequest) {
	t.Helper()
	f.seedZone(zoneA, "Z-1", "Dairy", domain.ZoneStatusAvailable)
	f.seedZone(zoneB, "Z-2", "Bakery", domain.ZoneStatusAvailable)

	dairy, err := f.bookings.CreateBooking(context.Background(), supplier, &dto.CreateBookingRequest{ZoneIDs: []string{zoneA}})
	require.NoError(t, err)
	bakery, err = f.bookings.CreateBooking(context.Background(), other, &dto.CreateBookingRequest{ZoneIDs: []string{zoneB}})
	require.NoError(t, err)
	return dairy, bakery
}

func TestListRequests_Scopes(t *testing.T) {
	f := newFixture()
	dairy, bakery := seedRequests(t, f)

	tests := []struct {
		name  string
		actor *domain.Actor
		want  []string
	}{
		{name: "supplier sees own", actor: supplier, want: []string{dairy.ID}},
		{name: "category manager sees category", actor: kmBakery, want: []string{bakery.ID}},
		{name: "dmp sees all", actor: dmpManager, want: []string{dairy.ID, bakery.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests, total, err := f.requests.ListRequests(context.Background(), tt.actor, &dto.RequestListFilter{})
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), total)

			ids := make([]string, 0, len(requests))
			for _, r := range requests {
				ids = append(ids, r.ID)
				assert.NotEmpty(t, r.Bookings)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}

	_, _, err := f.requests.ListRequests(context.Background(), kmNoCat, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, _, err = f.requests.ListRequests(context.Background(), dmpManager, &dto.RequestListFilter{Status: "open"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequestStatus)
}

func TestGetRequest_Visibility(t *testing.T) {
	f := newFixture()
	dairy, _ := seedRequests(t, f)

	r, err := f.requests.GetRequest(context.Background(), kmDairy, dairy.ID)
	require.NoError(t, err)
	require.Len(t, r.Bookings, 1)
	assert.Equal(t, zoneA, r.Bookings[0].ZoneID)

	_, err = f.requests.GetRequest(context.Background(), other, dairy.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.requests.GetRequest(context.Background(), kmBakery, dairy.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.requests.GetRequest(context.Background(), dmpManager, zoneC)
	assert.ErrorIs(t, err, domain.ErrRequestNotFound)
}

func TestUpdateRequestStatus(t *testing.T) {
	f := newFixture()
	dairy, _ := seedRequests(t, f)
	events := len(f.store.events())

	r, err := f.requests.UpdateRequestStatus(context.Background(), dmpManager, dairy.ID, &dto.UpdateRequestStatusRequest{Status: "closed"})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusClosed, r.Status)
	assert.Equal(t, domain.RequestStatusClosed, f.store.request(dairy.ID).Status)
	assert.Len(t, f.store.events(), events+1)

	_, err = f.requests.UpdateRequestStatus(context.Background(), dmpManager, dairy.ID, &dto.UpdateRequestStatusRequest{Status: "CLOSED"})
	require.NoError(t, err)
	assert.Len(t, f.store.events(), events+1)

	_, err = f.requests.UpdateRequestStatus(context.Background(), supplier, dairy.ID, &dto.UpdateRequestStatusRequest{Status: "NEW"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.requests.UpdateRequestStatus(context.Background(), kmBakery, dairy.ID, &dto.UpdateRequestStatusRequest{Status: "NEW"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.requests.UpdateRequestStatus(context.Background(), kmDairy, dairy.ID, &dto.UpdateRequestStatusRequest{Status: "DONE"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequestStatus)
}
