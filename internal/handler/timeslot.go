package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timeslot-reservation/internal/queue"
	"github.com/iliyamo/timeslot-reservation/internal/service"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// TimeSlotHandler exposes the browsing and reservation endpoints. All
// admission decisions are delegated to the ReservationService; the
// handler only resolves the user, parses parameters and renders the
// outcome. Publish is called after an admitted reservation; failures
// there never affect the response.
type TimeSlotHandler struct {
	Svc     *service.ReservationService
	Publish func(ctx echo.Context, ev queue.ReservationConfirmedEvent)
}

// NewTimeSlotHandler constructs a TimeSlotHandler. The publish hook
// may be nil when no broker is configured.
func NewTimeSlotHandler(svc *service.ReservationService) *TimeSlotHandler {
	if svc == nil {
		panic("nil service passed to NewTimeSlotHandler")
	}
	return &TimeSlotHandler{Svc: svc}
}

// ListAvailable handles GET /v1/timeslots. Query parameters:
//
//	date        – YYYY-MM-DD, defaults to today
//	sort_by     – start_time (default) or end_time
//	sort_order  – asc (default) or desc
//	exclude_past – when the date is today, drop slots whose start time
//	               has already passed (default true; ignored otherwise)
//
// A date in the past always yields an empty list. Slots with zero
// remaining capacity are never returned.
func (h *TimeSlotHandler) ListAvailable(c echo.Context) error {
	now := time.Now()
	today := now.Format(dateLayout)

	date := c.QueryParam("date")
	if date == "" {
		date = today
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, expected YYYY-MM-DD"})
	}

	sortBy := c.QueryParam("sort_by")
	switch sortBy {
	case "", "start_time":
		sortBy = "start_time"
	case "end_time":
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sort_by must be start_time or end_time"})
	}
	sortOrder := c.QueryParam("sort_order")
	switch sortOrder {
	case "", "asc":
		sortOrder = "asc"
	case "desc":
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sort_order must be asc or desc"})
	}

	// Past dates have no bookable slots at all.
	if date < today {
		return c.JSON(http.StatusOK, echo.Map{
			"date":       date,
			"sort_by":    sortBy,
			"sort_order": sortOrder,
			"items":      []any{},
		})
	}

	q := service.AvailableQuery{Date: date, SortBy: sortBy, SortOrder: sortOrder}
	// The exclude-past rule only means anything when browsing today.
	if date == today && c.QueryParam("exclude_past") != "false" {
		q.StartsAfter = now.Format(timeLayout)
	}

	items, err := h.Svc.ListAvailable(c.Request().Context(), q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":       date,
		"sort_by":    sortBy,
		"sort_order": sortOrder,
		"items":      items,
	})
}

// MySlots handles GET /v1/my-timeslots. It returns every slot the
// authenticated user holds a reservation on.
func (h *TimeSlotHandler) MySlots(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Svc.ListUserSlots(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Reserve handles POST /v1/timeslots/:id/reserve, the only mutating
// entry point. Outcomes map to HTTP as follows: Admitted -> 201,
// AlreadyReserved and FullyBooked -> 409 with distinct messages,
// unknown slot -> 404. Store failures are retryable and map to 500
// without any partial mutation having survived.
func (h *TimeSlotHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || slotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid timeslot id"})
	}

	result, err := h.Svc.Reserve(c.Request().Context(), userID, slotID)
	if err != nil {
		if errors.Is(err, service.ErrTimeSlotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "timeslot not found"})
		}
		log.Printf("reserve: user=%d slot=%d failed: %v", userID, slotID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed, please retry"})
	}

	slot := result.Slot
	switch result.Status {
	case service.StatusFullyBooked:
		return c.JSON(http.StatusConflict, echo.Map{
			"error":      fmt.Sprintf("Timeslot is fully booked on %s at %s", slot.Date, slot.StartTime),
			"date":       slot.Date,
			"start_time": slot.StartTime,
		})
	case service.StatusAlreadyReserved:
		return c.JSON(http.StatusConflict, echo.Map{
			"error":      fmt.Sprintf("Reservation already exists for you on %s at %s", slot.Date, slot.StartTime),
			"date":       slot.Date,
			"start_time": slot.StartTime,
		})
	}

	if h.Publish != nil {
		h.Publish(c, queue.ReservationConfirmedEvent{
			ReservationID: result.Reservation.ID,
			UserID:        userID,
			TimeSlotID:    slot.ID,
			Date:          slot.Date,
			StartTime:     slot.StartTime,
			EndTime:       slot.EndTime,
			ReservedAt:    result.Reservation.ReservedAt.Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":        fmt.Sprintf("Reservation created successfully for you on %s at %s", slot.Date, slot.StartTime),
		"reservation_id": result.Reservation.ID,
		"date":           slot.Date,
		"start_time":     slot.StartTime,
		"capacity_left":  slot.Capacity,
	})
}
