package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/timeslot-reservation/internal/memstore"
	"github.com/iliyamo/timeslot-reservation/internal/service"
)

func Test_ListAvailable_FiltersAndSorts(t *testing.T) {
	store := memstore.New()
	store.AddTimeSlot("2026-09-01", "09:00:00", "10:00:00", 2)
	store.AddTimeSlot("2026-09-01", "14:00:00", "15:00:00", 1)
	store.AddTimeSlot("2026-09-01", "11:00:00", "12:00:00", 0) // fully booked, never listed
	store.AddTimeSlot("2026-09-02", "09:00:00", "10:00:00", 3) // different date

	items, err := store.ListAvailable(context.Background(), service.AvailableQuery{
		Date: "2026-09-01", SortBy: "start_time", SortOrder: "asc",
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "09:00:00", items[0].StartTime)
	assert.Equal(t, "14:00:00", items[1].StartTime)

	items, err = store.ListAvailable(context.Background(), service.AvailableQuery{
		Date: "2026-09-01", SortBy: "start_time", SortOrder: "desc",
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "14:00:00", items[0].StartTime)
}

func Test_ListAvailable_StartsAfter(t *testing.T) {
	store := memstore.New()
	store.AddTimeSlot("2026-09-01", "09:00:00", "10:00:00", 1)
	store.AddTimeSlot("2026-09-01", "10:00:00", "11:00:00", 1)
	store.AddTimeSlot("2026-09-01", "13:00:00", "14:00:00", 1)

	items, err := store.ListAvailable(context.Background(), service.AvailableQuery{
		Date: "2026-09-01", SortBy: "start_time", SortOrder: "asc", StartsAfter: "10:00:00",
	})
	require.NoError(t, err)
	// Slots starting at or before the cutoff are dropped.
	require.Len(t, items, 1)
	assert.Equal(t, "13:00:00", items[0].StartTime)
}

func Test_ListAvailable_SortByEndTime(t *testing.T) {
	store := memstore.New()
	store.AddTimeSlot("2026-09-01", "09:00:00", "12:00:00", 1)
	store.AddTimeSlot("2026-09-01", "10:00:00", "10:30:00", 1)

	items, err := store.ListAvailable(context.Background(), service.AvailableQuery{
		Date: "2026-09-01", SortBy: "end_time", SortOrder: "asc",
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "10:30:00", items[0].EndTime)
	assert.Equal(t, "12:00:00", items[1].EndTime)
}

func Test_ListReservedByUser_NewestFirst(t *testing.T) {
	store := memstore.New()
	svc := service.NewReservationService(store)
	first := store.AddTimeSlot("2026-09-01", "09:00:00", "10:00:00", 1)
	second := store.AddTimeSlot("2026-09-02", "09:00:00", "10:00:00", 1)

	_, err := svc.Reserve(context.Background(), 5, first.ID)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond) // distinct reservation timestamps
	_, err = svc.Reserve(context.Background(), 5, second.ID)
	require.NoError(t, err)

	items, err := store.ListReservedByUser(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)

	items, err = store.ListReservedByUser(context.Background(), 6)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func Test_Rollback_LeavesNoTrace(t *testing.T) {
	store := memstore.New()
	slot := store.AddTimeSlot("2026-09-01", "09:00:00", "10:00:00", 2)

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)

	_, err = store.TimeSlotForUpdate(context.Background(), tx, slot.ID)
	require.NoError(t, err)
	_, err = store.CreateReservation(context.Background(), tx, 1, slot.ID)
	require.NoError(t, err)
	require.NoError(t, store.DecrementCapacity(context.Background(), tx, slot.ID))

	require.NoError(t, tx.Rollback())

	current, ok := store.GetTimeSlot(slot.ID)
	require.True(t, ok)
	assert.Equal(t, uint32(2), current.Capacity)
	assert.Equal(t, 0, store.ReservationCount())
}

func Test_TimeSlotForUpdate_UnknownSlot(t *testing.T) {
	store := memstore.New()

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = store.TimeSlotForUpdate(context.Background(), tx, 123)
	require.ErrorIs(t, err, service.ErrTimeSlotNotFound)
}
