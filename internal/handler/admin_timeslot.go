package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timeslot-reservation/internal/model"
	"github.com/iliyamo/timeslot-reservation/internal/repository"
)

// AdminHandler manages timeslot definitions. Slots are created and
// edited here, never by the reservation path. Edits and deletes run
// inside a transaction holding the slot row lock so they cannot
// interleave with a concurrent admission.
type AdminHandler struct {
	Slots        *repository.TimeSlotRepo
	Reservations *repository.ReservationRepo
}

// NewAdminHandler constructs an AdminHandler. Both repositories are required.
func NewAdminHandler(slots *repository.TimeSlotRepo, reservations *repository.ReservationRepo) *AdminHandler {
	if slots == nil || reservations == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Slots: slots, Reservations: reservations}
}

type slotBody struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Capacity  uint32 `json:"capacity"`
}

// validate checks the slot definition invariants: well-formed date and
// times, start strictly before end.
func (b slotBody) validate() string {
	if _, err := time.Parse(dateLayout, b.Date); err != nil {
		return "invalid date, expected YYYY-MM-DD"
	}
	if _, err := time.Parse(timeLayout, b.StartTime); err != nil {
		return "invalid start_time, expected HH:MM:SS"
	}
	if _, err := time.Parse(timeLayout, b.EndTime); err != nil {
		return "invalid end_time, expected HH:MM:SS"
	}
	if b.StartTime >= b.EndTime {
		return "start_time must be before end_time"
	}
	return ""
}

// Create handles POST /v1/admin/timeslots.
func (h *AdminHandler) Create(c echo.Context) error {
	var body slotBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := body.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if body.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}
	ts := model.TimeSlot{
		Date:          body.Date,
		StartTime:     body.StartTime,
		EndTime:       body.EndTime,
		Capacity:      body.Capacity,
		TotalCapacity: body.Capacity,
	}
	if err := h.Slots.Create(c.Request().Context(), &ts); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create timeslot failed"})
	}
	return c.JSON(http.StatusCreated, ts)
}

// List handles GET /v1/admin/timeslots. It returns every slot with
// its reservation count.
func (h *AdminHandler) List(c echo.Context) error {
	items, err := h.Slots.ListAllWithCounts(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Update handles PUT /v1/admin/timeslots/:id. The new remaining
// capacity plus the slot's existing reservations may not exceed the
// new total, so the ledger can never outgrow the slot.
func (h *AdminHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid timeslot id"})
	}
	var body struct {
		slotBody
		TotalCapacity uint32 `json:"total_capacity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := body.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx := c.Request().Context()
	tx, err := h.Slots.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ts, err := h.Slots.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTimeSlotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "timeslot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	reserved, err := h.Reservations.CountBySlotTx(ctx, tx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if body.Capacity+reserved > body.TotalCapacity {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":    "capacity plus existing reservations exceeds total capacity",
			"reserved": reserved,
		})
	}

	ts.Date = body.Date
	ts.StartTime = body.StartTime
	ts.EndTime = body.EndTime
	ts.Capacity = body.Capacity
	ts.TotalCapacity = body.TotalCapacity
	if err := h.Slots.UpdateTx(ctx, tx, ts); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update timeslot failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, ts)
}

// Delete handles DELETE /v1/admin/timeslots/:id. Reservations
// referencing the slot are removed in the same transaction, after the
// row lock is held, so no admission can slip in between.
func (h *AdminHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid timeslot id"})
	}
	ctx := c.Request().Context()
	tx, err := h.Slots.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := h.Slots.GetForUpdateTx(ctx, tx, id); err != nil {
		if errors.Is(err, repository.ErrTimeSlotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "timeslot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	removed, err := h.Reservations.DeleteBySlotTx(ctx, tx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete reservations failed"})
	}
	if err := h.Slots.DeleteTx(ctx, tx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete timeslot failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"deleted_reservations": removed})
}
