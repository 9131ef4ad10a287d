package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/timeslot-reservation/internal/memstore"
	"github.com/iliyamo/timeslot-reservation/internal/service"
)

func Test_Reserve_AdmitsUntilCapacityExhausted(t *testing.T) {
	store := memstore.New()
	svc := service.NewReservationService(store)
	slot := store.AddTimeSlot("2026-09-01", "09:00:00", "10:00:00", 3)

	for userID := uint64(1); userID <= 3; userID++ {
		res, err := svc.Reserve(context.Background(), userID, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, service.StatusAdmitted, res.Status)
		assert.Equal(t, 3-uint32(userID), res.Slot.Capacity)
		require.NotNil(t, res.Reservation)
		assert.Equal(t, userID, res.Reservation.UserID)
	}

	res, err := svc.Reserve(context.Background(), 4, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, service.StatusFullyBooked, res.Status)
	assert.Nil(t, res.Reservation)

	current, ok := store.GetTimeSlot(slot.ID)
	require.True(t, ok)
	assert.Equal(t, uint32(0), current.Capacity)
	assert.Equal(t, 3, store.ReservationCount())
}

func Test_Reserve_ZeroCapacitySlot(t *testing.T) {
	store := memstore.New()
	svc := service.NewReservationService(store)
	slot := store.AddTimeSlot("2026-09-01", "09:00:00", "10:00:00", 0)

	res, err := svc.Reserve(context.Background(), 1, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, service.StatusFullyBooked, res.Status)
	assert.Equal(t, 0, store.ReservationCount())

	current, ok := store.GetTimeSlot(slot.ID)
	require.True(t, ok)
	assert.Equal(t, uint32(0), current.Capacity)
}

func Test_Reserve_UnknownSlot(t *testing.T) {
	store := memstore.New()
	svc := service.NewReservationService(store)

	_, err := svc.Reserve(context.Background(), 1, 42)
	require.ErrorIs(t, err, service.ErrTimeSlotNotFound)
	assert.Equal(t, 0, store.ReservationCount())
}

func Test_Reserve_DuplicateUser(t *testing.T) {
	store := memstore.New()
	svc := service.NewReservationService(store)
	slot := store.AddTimeSlot("2026-09-01", "09:00:00", "10:00:00", 5)

	first, err := svc.Reserve(context.Background(), 7, slot.ID)
	require.NoError(t, err)
	require.Equal(t, service.StatusAdmitted, first.Status)

	second, err := svc.Reserve(context.Background(), 7, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, service.StatusAlreadyReserved, second.Status)
	require.NotNil(t, second.Reservation)
	assert.Equal(t, first.Reservation.ID, second.Reservation.ID)

	current, ok := store.GetTimeSlot(slot.ID)
	require.True(t, ok)
	assert.Equal(t, uint32(4), current.Capacity) // decremented exactly once
	assert.Equal(t, 1, store.ReservationCount())
}

func Test_Reserve_ConcurrentDistinctUsers(t *testing.T) {
	const capacity = 10
	const contenders = 50

	store := memstore.New()
	svc := service.NewReservationService(store)
	slot := store.AddTimeSlot("2026-09-01", "09:00:00", "10:00:00", capacity)

	results := make([]service.ReserveResult, contenders)
	errs := make([]error, contenders)

	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Reserve(context.Background(), uint64(i+1), slot.ID)
		}(i)
	}
	wg.Wait()

	admitted, fullyBooked := 0, 0
	for i := 0; i < contenders; i++ {
		require.NoError(t, errs[i])
		switch results[i].Status {
		case service.StatusAdmitted:
			admitted++
		case service.StatusFullyBooked:
			fullyBooked++
		default:
			t.Fatalf("unexpected status %v for user %d", results[i].Status, i+1)
		}
	}

	assert.Equal(t, capacity, admitted)
	assert.Equal(t, contenders-capacity, fullyBooked)
	assert.Equal(t, capacity, store.ReservationCount())

	current, ok := store.GetTimeSlot(slot.ID)
	require.True(t, ok)
	assert.Equal(t, uint32(0), current.Capacity)
}

func Test_Reserve_ConcurrentSameUser(t *testing.T) {
	const attempts = 20

	store := memstore.New()
	svc := service.NewReservationService(store)
	slot := store.AddTimeSlot("2026-09-01", "09:00:00", "10:00:00", attempts)

	results := make([]service.ReserveResult, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Reserve(context.Background(), 99, slot.ID)
		}(i)
	}
	wg.Wait()

	admitted, already := 0, 0
	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		switch results[i].Status {
		case service.StatusAdmitted:
			admitted++
		case service.StatusAlreadyReserved:
			already++
		default:
			t.Fatalf("unexpected status %v", results[i].Status)
		}
	}

	assert.Equal(t, 1, admitted)
	assert.Equal(t, attempts-1, already)
	assert.Equal(t, 1, store.ReservationCount())

	current, ok := store.GetTimeSlot(slot.ID)
	require.True(t, ok)
	assert.Equal(t, uint32(attempts-1), current.Capacity)
}

func Test_Reserve_IndependentSlots(t *testing.T) {
	store := memstore.New()
	svc := service.NewReservationService(store)
	a := store.AddTimeSlot("2026-09-01", "09:00:00", "10:00:00", 1)
	b := store.AddTimeSlot("2026-09-01", "10:00:00", "11:00:00", 1)

	resA, err := svc.Reserve(context.Background(), 1, a.ID)
	require.NoError(t, err)
	assert.Equal(t, service.StatusAdmitted, resA.Status)

	// Draining slot A leaves slot B untouched.
	resB, err := svc.Reserve(context.Background(), 1, b.ID)
	require.NoError(t, err)
	assert.Equal(t, service.StatusAdmitted, resB.Status)

	full, err := svc.Reserve(context.Background(), 2, a.ID)
	require.NoError(t, err)
	assert.Equal(t, service.StatusFullyBooked, full.Status)
}
