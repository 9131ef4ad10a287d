// Package service implements the reservation admission controller: the
// single mutating operation that decides, under concurrent requests,
// whether a reservation may be created, and performs the paired
// capacity decrement atomically.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/timeslot-reservation/internal/model"
)

// ErrTimeSlotNotFound is returned by Reserve and by Store
// implementations when a timeslot id does not resolve to an existing
// slot. No mutation has happened when it is returned.
var ErrTimeSlotNotFound = errors.New("timeslot not found")

// Tx represents an in-flight admission transaction. The exclusive
// lock on the slot acquired by TimeSlotForUpdate is held until Commit
// or Rollback; exactly one of the two must be called.
type Tx interface {
	Commit() error
	Rollback() error
}

// AvailableQuery describes the read-only browse filter: slots on an
// exact date with remaining capacity, ordered by a caller-chosen time
// column. StartsAfter, when non-empty ("HH:MM:SS"), drops slots whose
// start time is not after it; the handler sets it to the current
// wall-clock time when the requested date is today.
type AvailableQuery struct {
	Date        string // YYYY-MM-DD, exact match
	SortBy      string // "start_time" or "end_time"
	SortOrder   string // "asc" or "desc"
	StartsAfter string // HH:MM:SS, empty to disable
}

// Store is the persistence contract the admission controller runs
// against. The transactional methods take the Tx returned by Begin;
// TimeSlotForUpdate must acquire an exclusive per-slot lock that is
// released only when the Tx ends, so that all admission for a given
// slot is serialised through it. ListAvailable and ListReservedByUser
// are read-only and do not participate in that locking.
type Store interface {
	Begin(ctx context.Context) (Tx, error)

	// TimeSlotForUpdate loads a slot and locks it for the duration of tx.
	// Returns ErrTimeSlotNotFound when the id does not exist.
	TimeSlotForUpdate(ctx context.Context, tx Tx, slotID uint64) (model.TimeSlot, error)

	// FindReservation reports whether a (user, slot) reservation exists.
	FindReservation(ctx context.Context, tx Tx, userID, slotID uint64) (model.Reservation, bool, error)

	// CreateReservation inserts the (user, slot) ledger row.
	CreateReservation(ctx context.Context, tx Tx, userID, slotID uint64) (model.Reservation, error)

	// DecrementCapacity reduces the locked slot's remaining capacity by
	// exactly one. The caller must have verified capacity > 0; a zero
	// capacity at this point is an invariant breach, not a business
	// outcome, and surfaces as an error that aborts the transaction.
	DecrementCapacity(ctx context.Context, tx Tx, slotID uint64) error

	ListAvailable(ctx context.Context, q AvailableQuery) ([]model.TimeSlot, error)
	ListReservedByUser(ctx context.Context, userID uint64) ([]model.TimeSlot, error)
}

// ReserveStatus is the terminal outcome of one Reserve call.
type ReserveStatus int

const (
	// StatusAdmitted means a reservation row was created and the slot's
	// capacity was decremented by one in the same transaction.
	StatusAdmitted ReserveStatus = iota
	// StatusAlreadyReserved means the user already held a reservation
	// for the slot; nothing was mutated.
	StatusAlreadyReserved
	// StatusFullyBooked means the slot had no remaining capacity;
	// nothing was mutated, no ledger row was created.
	StatusFullyBooked
)

// ReserveResult carries the outcome plus the slot data the caller
// needs for user-facing messages. Reservation is set only for
// StatusAdmitted and StatusAlreadyReserved.
type ReserveResult struct {
	Status      ReserveStatus
	Slot        model.TimeSlot
	Reservation *model.Reservation
}

// ReservationService decides admission. It holds no state of its own;
// all synchronisation comes from the Store's per-slot lock.
type ReservationService struct {
	store Store
}

// NewReservationService constructs a ReservationService. The store
// must be non-nil.
func NewReservationService(store Store) *ReservationService {
	if store == nil {
		panic("nil store passed to NewReservationService")
	}
	return &ReservationService{store: store}
}

// Reserve runs the admission state machine for one (user, slot) pair
// as a single atomic transaction:
//
//  1. lock-load the slot; absent slots yield ErrTimeSlotNotFound
//  2. zero capacity -> FullyBooked, before the ledger is touched, so a
//     full slot can never grow a dangling reservation
//  3. find-or-create the ledger row under the same lock; an existing
//     row -> AlreadyReserved with no capacity change
//  4. a new row -> decrement capacity by one and commit -> Admitted
//
// Business rejections commit normally with no mutation. Any store
// failure aborts the whole transaction and is returned wrapped; the
// caller may retry, and no partial state survives.
func (s *ReservationService) Reserve(ctx context.Context, userID, slotID uint64) (ReserveResult, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return ReserveResult{}, fmt.Errorf("begin reservation tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	slot, err := s.store.TimeSlotForUpdate(ctx, tx, slotID)
	if err != nil {
		return ReserveResult{}, err
	}

	if slot.Capacity == 0 {
		if err := tx.Commit(); err != nil {
			return ReserveResult{}, fmt.Errorf("commit reservation tx: %w", err)
		}
		committed = true
		return ReserveResult{Status: StatusFullyBooked, Slot: slot}, nil
	}

	existing, found, err := s.store.FindReservation(ctx, tx, userID, slotID)
	if err != nil {
		return ReserveResult{}, fmt.Errorf("find reservation: %w", err)
	}
	if found {
		if err := tx.Commit(); err != nil {
			return ReserveResult{}, fmt.Errorf("commit reservation tx: %w", err)
		}
		committed = true
		return ReserveResult{Status: StatusAlreadyReserved, Slot: slot, Reservation: &existing}, nil
	}

	created, err := s.store.CreateReservation(ctx, tx, userID, slotID)
	if err != nil {
		return ReserveResult{}, fmt.Errorf("create reservation: %w", err)
	}
	if err := s.store.DecrementCapacity(ctx, tx, slotID); err != nil {
		return ReserveResult{}, fmt.Errorf("decrement capacity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ReserveResult{}, fmt.Errorf("commit reservation tx: %w", err)
	}
	committed = true

	slot.Capacity--
	return ReserveResult{Status: StatusAdmitted, Slot: slot, Reservation: &created}, nil
}

// ListAvailable returns the slots matching q. It never returns a slot
// with zero remaining capacity.
func (s *ReservationService) ListAvailable(ctx context.Context, q AvailableQuery) ([]model.TimeSlot, error) {
	return s.store.ListAvailable(ctx, q)
}

// ListUserSlots returns every slot the user currently holds a
// reservation on.
func (s *ReservationService) ListUserSlots(ctx context.Context, userID uint64) ([]model.TimeSlot, error) {
	return s.store.ListReservedByUser(ctx, userID)
}
