package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/timeslot-reservation/internal/handler"
	"github.com/iliyamo/timeslot-reservation/internal/memstore"
	"github.com/iliyamo/timeslot-reservation/internal/queue"
	"github.com/iliyamo/timeslot-reservation/internal/service"
)

func newReserveCtx(e *echo.Echo, slotID string, userID uint64) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/v1/timeslots/"+slotID+"/reserve", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/timeslots/:id/reserve")
	c.SetParamNames("id")
	c.SetParamValues(slotID)
	if userID != 0 {
		c.Set("user_id", userID)
	}
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func Test_Reserve_Created(t *testing.T) {
	store := memstore.New()
	slot := store.AddTimeSlot("2026-09-01", "09:00:00", "10:00:00", 2)
	h := handler.NewTimeSlotHandler(service.NewReservationService(store))

	var published []queue.ReservationConfirmedEvent
	h.Publish = func(c echo.Context, ev queue.ReservationConfirmedEvent) {
		published = append(published, ev)
	}

	e := echo.New()
	c, rec := newReserveCtx(e, "1", 7)
	require.NoError(t, h.Reserve(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Reservation created successfully for you on 2026-09-01 at 09:00:00", body["message"])
	assert.Equal(t, float64(1), body["capacity_left"])

	require.Len(t, published, 1)
	assert.Equal(t, uint64(7), published[0].UserID)
	assert.Equal(t, slot.ID, published[0].TimeSlotID)
}

func Test_Reserve_FullyBooked(t *testing.T) {
	store := memstore.New()
	store.AddTimeSlot("2026-09-01", "14:00:00", "15:00:00", 1)
	h := handler.NewTimeSlotHandler(service.NewReservationService(store))
	e := echo.New()

	c, rec := newReserveCtx(e, "1", 1)
	require.NoError(t, h.Reserve(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = newReserveCtx(e, "1", 2)
	require.NoError(t, h.Reserve(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Timeslot is fully booked on 2026-09-01 at 14:00:00", body["error"])
}

func Test_Reserve_AlreadyReserved(t *testing.T) {
	store := memstore.New()
	store.AddTimeSlot("2026-09-01", "09:00:00", "10:00:00", 5)
	h := handler.NewTimeSlotHandler(service.NewReservationService(store))
	e := echo.New()

	c, rec := newReserveCtx(e, "1", 3)
	require.NoError(t, h.Reserve(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = newReserveCtx(e, "1", 3)
	require.NoError(t, h.Reserve(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Reservation already exists for you on 2026-09-01 at 09:00:00", body["error"])
	assert.Equal(t, 1, store.ReservationCount())
}

func Test_Reserve_UnknownSlot(t *testing.T) {
	h := handler.NewTimeSlotHandler(service.NewReservationService(memstore.New()))
	e := echo.New()

	c, rec := newReserveCtx(e, "42", 1)
	require.NoError(t, h.Reserve(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_Reserve_BadID(t *testing.T) {
	h := handler.NewTimeSlotHandler(service.NewReservationService(memstore.New()))
	e := echo.New()

	c, rec := newReserveCtx(e, "abc", 1)
	require.NoError(t, h.Reserve(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_Reserve_Unauthenticated(t *testing.T) {
	h := handler.NewTimeSlotHandler(service.NewReservationService(memstore.New()))
	e := echo.New()

	c, rec := newReserveCtx(e, "1", 0) // no user in context
	require.NoError(t, h.Reserve(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func listCtx(e *echo.Echo, query string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/v1/timeslots?"+query, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func Test_ListAvailable_FutureDate(t *testing.T) {
	store := memstore.New()
	store.AddTimeSlot("2999-01-01", "09:00:00", "10:00:00", 1)
	store.AddTimeSlot("2999-01-01", "08:00:00", "09:00:00", 1)
	h := handler.NewTimeSlotHandler(service.NewReservationService(store))
	e := echo.New()

	c, rec := listCtx(e, "date=2999-01-01")
	require.NoError(t, h.ListAvailable(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	items := body["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "08:00:00", first["start_time"]) // ascending by default
}

func Test_ListAvailable_PastDateIsEmpty(t *testing.T) {
	store := memstore.New()
	store.AddTimeSlot("2000-01-01", "09:00:00", "10:00:00", 1)
	h := handler.NewTimeSlotHandler(service.NewReservationService(store))
	e := echo.New()

	c, rec := listCtx(e, "date=2000-01-01")
	require.NoError(t, h.ListAvailable(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Empty(t, body["items"])
}

func Test_ListAvailable_RejectsBadParams(t *testing.T) {
	h := handler.NewTimeSlotHandler(service.NewReservationService(memstore.New()))
	e := echo.New()

	for _, query := range []string{
		"date=01-09-2026",
		"sort_by=capacity",
		"sort_order=sideways",
	} {
		c, rec := listCtx(e, query)
		require.NoError(t, h.ListAvailable(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %q", query)
	}
}

func Test_MySlots(t *testing.T) {
	store := memstore.New()
	store.AddTimeSlot("2026-09-01", "09:00:00", "10:00:00", 1)
	svc := service.NewReservationService(store)
	h := handler.NewTimeSlotHandler(svc)
	e := echo.New()

	c, rec := newReserveCtx(e, "1", 4)
	require.NoError(t, h.Reserve(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/my-timeslots", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set("user_id", uint64(4))
	require.NoError(t, h.MySlots(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Len(t, body["items"], 1)
}
