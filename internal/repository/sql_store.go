package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/timeslot-reservation/internal/model"
	"github.com/iliyamo/timeslot-reservation/internal/service"
)

// SQLStore implements service.Store on top of MySQL. The exclusive
// per-slot lock the admission controller requires is the row lock
// taken by SELECT ... FOR UPDATE: concurrent reserve calls against the
// same slot queue on that lock, while different slots proceed in
// parallel.
type SQLStore struct {
	db           *sql.DB
	slots        *TimeSlotRepo
	reservations *ReservationRepo
}

// NewSQLStore builds a SQLStore and its repositories over one handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:           db,
		slots:        NewTimeSlotRepo(db),
		reservations: NewReservationRepo(db),
	}
}

// Slots exposes the timeslot repository for callers that need the
// administrative surface (create, edit, cascade delete).
func (s *SQLStore) Slots() *TimeSlotRepo { return s.slots }

// Reservations exposes the ledger repository.
func (s *SQLStore) Reservations() *ReservationRepo { return s.reservations }

// DB exposes the underlying handle for transaction management outside
// the admission path.
func (s *SQLStore) DB() *sql.DB { return s.db }

type sqlTx struct {
	tx *sql.Tx
}

func (t sqlTx) Commit() error   { return t.tx.Commit() }
func (t sqlTx) Rollback() error { return t.tx.Rollback() }

func unwrap(tx service.Tx) *sql.Tx {
	return tx.(sqlTx).tx
}

// Begin opens the admission transaction.
func (s *SQLStore) Begin(ctx context.Context) (service.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return sqlTx{tx: tx}, nil
}

// TimeSlotForUpdate lock-loads the slot row for the remainder of tx.
func (s *SQLStore) TimeSlotForUpdate(ctx context.Context, tx service.Tx, slotID uint64) (model.TimeSlot, error) {
	ts, err := s.slots.GetForUpdateTx(ctx, unwrap(tx), slotID)
	if errors.Is(err, ErrTimeSlotNotFound) {
		return model.TimeSlot{}, service.ErrTimeSlotNotFound
	}
	return ts, err
}

// FindReservation reports whether the (user, slot) ledger row exists.
func (s *SQLStore) FindReservation(ctx context.Context, tx service.Tx, userID, slotID uint64) (model.Reservation, bool, error) {
	return s.reservations.FindByUserAndSlotTx(ctx, unwrap(tx), userID, slotID)
}

// CreateReservation inserts the (user, slot) ledger row.
func (s *SQLStore) CreateReservation(ctx context.Context, tx service.Tx, userID, slotID uint64) (model.Reservation, error) {
	return s.reservations.CreateTx(ctx, unwrap(tx), userID, slotID)
}

// DecrementCapacity reduces the locked slot's capacity by one.
func (s *SQLStore) DecrementCapacity(ctx context.Context, tx service.Tx, slotID uint64) error {
	return s.slots.DecrementCapacityTx(ctx, unwrap(tx), slotID)
}

// ListAvailable is the read-only browse path; it takes no locks.
func (s *SQLStore) ListAvailable(ctx context.Context, q service.AvailableQuery) ([]model.TimeSlot, error) {
	return s.slots.ListAvailable(ctx, q.Date, q.SortBy, q.SortOrder, q.StartsAfter)
}

// ListReservedByUser returns the slots the user holds reservations on.
func (s *SQLStore) ListReservedByUser(ctx context.Context, userID uint64) ([]model.TimeSlot, error) {
	return s.slots.ListReservedByUser(ctx, userID)
}
