package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/timeslot-reservation/internal/model"
)

// TimeSlotRepo provides persistence for timeslots. The capacity
// column is mutated only through DecrementCapacityTx (admission) and
// UpdateTx (admin edit); both require the caller to hold the row lock
// taken by GetForUpdateTx inside the same transaction.
type TimeSlotRepo struct {
	db *sql.DB
}

// NewTimeSlotRepo returns a new TimeSlotRepo bound to the given database.
func NewTimeSlotRepo(db *sql.DB) *TimeSlotRepo { return &TimeSlotRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *TimeSlotRepo) DB() *sql.DB { return r.db }

// GetForUpdateTx fetches a timeslot and acquires an exclusive row
// lock on it for the remainder of the transaction. Every other
// transaction that lock-loads the same row blocks until this one
// commits or rolls back, which serialises all admission for the slot.
// Returns ErrTimeSlotNotFound when the id does not exist.
func (r *TimeSlotRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.TimeSlot, error) {
	const q = `SELECT id, date, start_time, end_time, capacity, total_capacity, created_at, updated_at
	           FROM timeslots WHERE id = ? FOR UPDATE`
	var ts model.TimeSlot
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&ts.ID, &ts.Date, &ts.StartTime, &ts.EndTime,
		&ts.Capacity, &ts.TotalCapacity, &ts.CreatedAt, &ts.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return model.TimeSlot{}, ErrTimeSlotNotFound
	}
	if err != nil {
		return model.TimeSlot{}, err
	}
	return ts, nil
}

// DecrementCapacityTx reduces the slot's remaining capacity by exactly
// one. The caller must hold the row lock and must have checked that
// capacity > 0; the guard in the WHERE clause only catches invariant
// breaches. Affecting zero rows here means the check was skipped and
// the enclosing transaction must abort.
func (r *TimeSlotRepo) DecrementCapacityTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE timeslots SET capacity = capacity - 1 WHERE id = ? AND capacity > 0`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("timeslot %d has no remaining capacity", id)
	}
	return nil
}

// sortColumn whitelists the caller-chosen ORDER BY column. Anything
// unknown falls back to start_time so user input never reaches the
// query text unchecked.
func sortColumn(field string) string {
	switch field {
	case "end_time":
		return "end_time"
	default:
		return "start_time"
	}
}

// ListAvailable returns the slots on an exact date that still have
// remaining capacity, ordered by the requested time column. When
// q.StartsAfter is set, slots whose start time has already passed are
// excluded. This path is read-only and takes no locks.
func (r *TimeSlotRepo) ListAvailable(ctx context.Context, date, sortBy, sortOrder, startsAfter string) ([]model.TimeSlot, error) {
	query := `SELECT id, date, start_time, end_time, capacity, total_capacity, created_at, updated_at
	          FROM timeslots WHERE date = ? AND capacity > 0`
	args := []any{date}
	if startsAfter != "" {
		query += ` AND start_time > ?`
		args = append(args, startsAfter)
	}
	dir := "ASC"
	if sortOrder == "desc" {
		dir = "DESC"
	}
	query += ` ORDER BY ` + sortColumn(sortBy) + ` ` + dir

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TimeSlot, 0)
	for rows.Next() {
		var ts model.TimeSlot
		if err := rows.Scan(
			&ts.ID, &ts.Date, &ts.StartTime, &ts.EndTime,
			&ts.Capacity, &ts.TotalCapacity, &ts.CreatedAt, &ts.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// ListReservedByUser returns every slot the user holds a reservation
// on, newest reservation first. Used for highlighting the user's own
// slots in listings.
func (r *TimeSlotRepo) ListReservedByUser(ctx context.Context, userID uint64) ([]model.TimeSlot, error) {
	const q = `SELECT t.id, t.date, t.start_time, t.end_time, t.capacity, t.total_capacity, t.created_at, t.updated_at
	           FROM timeslots t
	           JOIN reservations r ON r.timeslot_id = t.id
	           WHERE r.user_id = ?
	           ORDER BY r.reserved_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TimeSlot, 0)
	for rows.Next() {
		var ts model.TimeSlot
		if err := rows.Scan(
			&ts.ID, &ts.Date, &ts.StartTime, &ts.EndTime,
			&ts.Capacity, &ts.TotalCapacity, &ts.CreatedAt, &ts.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// Create inserts a new timeslot and populates the generated ID on the
// provided record. Remaining capacity starts equal to total capacity.
func (r *TimeSlotRepo) Create(ctx context.Context, ts *model.TimeSlot) error {
	const q = `INSERT INTO timeslots (date, start_time, end_time, capacity, total_capacity) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, ts.Date, ts.StartTime, ts.EndTime, ts.Capacity, ts.TotalCapacity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ts.ID = uint64(id)
	return nil
}

// UpdateTx rewrites a slot's definition. The caller must have locked
// the row with GetForUpdateTx in the same transaction so the edit
// cannot interleave with a concurrent admission decrement.
func (r *TimeSlotRepo) UpdateTx(ctx context.Context, tx *sql.Tx, ts model.TimeSlot) error {
	const q = `UPDATE timeslots SET date = ?, start_time = ?, end_time = ?, capacity = ?, total_capacity = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, ts.Date, ts.StartTime, ts.EndTime, ts.Capacity, ts.TotalCapacity, ts.ID)
	return err
}

// DeleteTx removes a slot row. Reservations referencing it must be
// deleted first in the same transaction (cascade semantics).
func (r *TimeSlotRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM timeslots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTimeSlotNotFound
	}
	return nil
}

// SlotWithCount pairs a slot with the number of reservations
// referencing it, for the administrative listing.
type SlotWithCount struct {
	model.TimeSlot
	Reserved uint32 `json:"reserved"`
}

// ListAllWithCounts returns every slot together with its reservation
// count, ordered by date then start time.
func (r *TimeSlotRepo) ListAllWithCounts(ctx context.Context) ([]SlotWithCount, error) {
	const q = `SELECT t.id, t.date, t.start_time, t.end_time, t.capacity, t.total_capacity, t.created_at, t.updated_at,
	                  COUNT(r.id)
	           FROM timeslots t
	           LEFT JOIN reservations r ON r.timeslot_id = t.id
	           GROUP BY t.id
	           ORDER BY t.date, t.start_time`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SlotWithCount, 0)
	for rows.Next() {
		var sc SlotWithCount
		if err := rows.Scan(
			&sc.ID, &sc.Date, &sc.StartTime, &sc.EndTime,
			&sc.Capacity, &sc.TotalCapacity, &sc.CreatedAt, &sc.UpdatedAt,
			&sc.Reserved,
		); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
