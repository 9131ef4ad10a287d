package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/timeslot-reservation/internal/model"
)

// ReservationRepo provides persistence for the reservation ledger:
// one row per (user, timeslot) pair, guarded by a UNIQUE key. All
// writes happen inside the admission transaction while the slot row
// lock is held.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// FindByUserAndSlotTx looks up the (user, timeslot) ledger row inside
// the admission transaction. The boolean reports whether it exists.
func (r *ReservationRepo) FindByUserAndSlotTx(ctx context.Context, tx *sql.Tx, userID, slotID uint64) (model.Reservation, bool, error) {
	const q = `SELECT id, user_id, timeslot_id, reserved_at
	           FROM reservations WHERE user_id = ? AND timeslot_id = ? LIMIT 1`
	var res model.Reservation
	err := tx.QueryRowContext(ctx, q, userID, slotID).Scan(
		&res.ID, &res.UserID, &res.TimeSlotID, &res.ReservedAt,
	)
	if err == sql.ErrNoRows {
		return model.Reservation{}, false, nil
	}
	if err != nil {
		return model.Reservation{}, false, err
	}
	return res, true, nil
}

// CreateTx inserts a new ledger row and queries it back so the
// DB-assigned reserved_at timestamp is populated. A duplicate-key
// collision maps to ErrConflict; with the slot lock held it indicates
// a caller bug rather than a lost race.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID, slotID uint64) (model.Reservation, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (user_id, timeslot_id) VALUES (?, ?)`,
		userID, slotID)
	if err != nil {
		// MySQL error 1062: duplicate entry for the UNIQUE(user_id, timeslot_id) key
		if strings.Contains(err.Error(), "1062") {
			return model.Reservation{}, ErrConflict
		}
		return model.Reservation{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Reservation{}, err
	}
	var res model.Reservation
	err = tx.QueryRowContext(ctx,
		`SELECT id, user_id, timeslot_id, reserved_at FROM reservations WHERE id = ?`,
		uint64(id)).Scan(&res.ID, &res.UserID, &res.TimeSlotID, &res.ReservedAt)
	if err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

// DeleteBySlotTx removes every reservation referencing a slot. Used
// by the administrative cascade delete; runs under the slot row lock.
func (r *ReservationRepo) DeleteBySlotTx(ctx context.Context, tx *sql.Tx, slotID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE timeslot_id = ?`, slotID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountBySlotTx returns the number of reservations referencing a slot
// within the transaction. The admin edit uses it to keep remaining
// capacity consistent with the ledger.
func (r *ReservationRepo) CountBySlotTx(ctx context.Context, tx *sql.Tx, slotID uint64) (uint32, error) {
	var n uint32
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE timeslot_id = ?`, slotID).Scan(&n)
	return n, err
}
