// Package memstore implements service.Store with in-process state.
// A per-slot mutex plays the role of the database row lock: it is
// acquired by TimeSlotForUpdate and released only when the transaction
// commits or rolls back, so admission for one slot is serialised while
// different slots proceed in parallel. Writes are staged on the
// transaction and applied atomically at commit, which gives the same
// no-partial-state guarantee as a database transaction.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/timeslot-reservation/internal/model"
	"github.com/iliyamo/timeslot-reservation/internal/service"
)

// Lock ordering: a slot's mutex is always acquired before the store
// mutex, never while holding it. Readers snapshot entry pointers under
// the store mutex and lock entries afterwards.

type slotEntry struct {
	mu   sync.Mutex
	slot model.TimeSlot
}

type resKey struct {
	userID uint64
	slotID uint64
}

// Store holds all slots and the reservation ledger in memory.
type Store struct {
	mu           sync.Mutex
	slots        map[uint64]*slotEntry
	reservations map[resKey]model.Reservation
	nextSlotID   uint64
	nextResID    uint64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		slots:        make(map[uint64]*slotEntry),
		reservations: make(map[resKey]model.Reservation),
	}
}

// AddTimeSlot creates a slot with the given definition and returns it.
// Remaining capacity starts equal to total capacity.
func (s *Store) AddTimeSlot(date, startTime, endTime string, capacity uint32) model.TimeSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSlotID++
	now := time.Now().UTC()
	ts := model.TimeSlot{
		ID:            s.nextSlotID,
		Date:          date,
		StartTime:     startTime,
		EndTime:       endTime,
		Capacity:      capacity,
		TotalCapacity: capacity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.slots[ts.ID] = &slotEntry{slot: ts}
	return ts
}

// GetTimeSlot returns a copy of the slot's current state.
func (s *Store) GetTimeSlot(id uint64) (model.TimeSlot, bool) {
	s.mu.Lock()
	entry, ok := s.slots[id]
	s.mu.Unlock()
	if !ok {
		return model.TimeSlot{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.slot, true
}

// ReservationCount reports the total number of ledger rows.
func (s *Store) ReservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

type memTx struct {
	store       *Store
	locked      *slotEntry
	staged      *model.Reservation
	stagedKey   resKey
	decremented bool
	done        bool
}

// Begin opens an admission transaction. The slot lock is taken later,
// by TimeSlotForUpdate.
func (s *Store) Begin(ctx context.Context) (service.Tx, error) {
	return &memTx{store: s}, nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	if t.staged != nil || t.decremented {
		t.store.mu.Lock()
		if t.staged != nil {
			t.store.reservations[t.stagedKey] = *t.staged
		}
		t.store.mu.Unlock()
		if t.decremented {
			t.locked.slot.Capacity--
			t.locked.slot.UpdatedAt = time.Now().UTC()
		}
	}
	if t.locked != nil {
		t.locked.mu.Unlock()
		t.locked = nil
	}
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	t.staged = nil
	t.decremented = false
	if t.locked != nil {
		t.locked.mu.Unlock()
		t.locked = nil
	}
	return nil
}

// TimeSlotForUpdate locks the slot for the remainder of the
// transaction and returns a copy of its state. Concurrent transactions
// targeting the same slot block here until the holder finishes.
func (s *Store) TimeSlotForUpdate(ctx context.Context, tx service.Tx, slotID uint64) (model.TimeSlot, error) {
	t := tx.(*memTx)
	s.mu.Lock()
	entry, ok := s.slots[slotID]
	s.mu.Unlock()
	if !ok {
		return model.TimeSlot{}, service.ErrTimeSlotNotFound
	}
	entry.mu.Lock()
	t.locked = entry
	return entry.slot, nil
}

// FindReservation reports whether the (user, slot) pair is already in
// the ledger. Safe under the slot lock: ledger writes for this slot
// only happen at commit of a transaction that holds the same lock.
func (s *Store) FindReservation(ctx context.Context, tx service.Tx, userID, slotID uint64) (model.Reservation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[resKey{userID: userID, slotID: slotID}]
	return res, ok, nil
}

// CreateReservation stages a new ledger row; it becomes visible to
// other transactions only at commit.
func (s *Store) CreateReservation(ctx context.Context, tx service.Tx, userID, slotID uint64) (model.Reservation, error) {
	t := tx.(*memTx)
	if t.locked == nil || t.locked.slot.ID != slotID {
		return model.Reservation{}, errors.New("slot not locked by this transaction")
	}
	s.mu.Lock()
	s.nextResID++
	id := s.nextResID
	s.mu.Unlock()
	res := model.Reservation{
		ID:         id,
		UserID:     userID,
		TimeSlotID: slotID,
		ReservedAt: time.Now().UTC(),
	}
	t.staged = &res
	t.stagedKey = resKey{userID: userID, slotID: slotID}
	return res, nil
}

// DecrementCapacity stages the capacity decrement on the locked slot.
func (s *Store) DecrementCapacity(ctx context.Context, tx service.Tx, slotID uint64) error {
	t := tx.(*memTx)
	if t.locked == nil || t.locked.slot.ID != slotID {
		return errors.New("slot not locked by this transaction")
	}
	if t.decremented {
		return errors.New("capacity already decremented in this transaction")
	}
	if t.locked.slot.Capacity == 0 {
		return errors.New("no remaining capacity")
	}
	t.decremented = true
	return nil
}

// ListAvailable filters and orders slots the same way the SQL path
// does: exact date, remaining capacity, optional exclusion of starts
// at or before q.StartsAfter, ordered by the chosen time column.
func (s *Store) ListAvailable(ctx context.Context, q service.AvailableQuery) ([]model.TimeSlot, error) {
	s.mu.Lock()
	entries := make([]*slotEntry, 0, len(s.slots))
	for _, e := range s.slots {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	out := make([]model.TimeSlot, 0)
	for _, e := range entries {
		e.mu.Lock()
		ts := e.slot
		e.mu.Unlock()
		if ts.Date != q.Date || ts.Capacity == 0 {
			continue
		}
		if q.StartsAfter != "" && ts.StartTime <= q.StartsAfter {
			continue
		}
		out = append(out, ts)
	}

	key := func(ts model.TimeSlot) string {
		if q.SortBy == "end_time" {
			return ts.EndTime
		}
		return ts.StartTime
	}
	sort.Slice(out, func(i, j int) bool {
		if q.SortOrder == "desc" {
			return key(out[i]) > key(out[j])
		}
		return key(out[i]) < key(out[j])
	})
	return out, nil
}

// ListReservedByUser returns the slots the user holds reservations
// on, newest reservation first.
func (s *Store) ListReservedByUser(ctx context.Context, userID uint64) ([]model.TimeSlot, error) {
	type hit struct {
		slotID     uint64
		reservedAt time.Time
	}
	s.mu.Lock()
	hits := make([]hit, 0)
	for k, res := range s.reservations {
		if k.userID == userID {
			hits = append(hits, hit{slotID: k.slotID, reservedAt: res.ReservedAt})
		}
	}
	s.mu.Unlock()

	sort.Slice(hits, func(i, j int) bool { return hits[i].reservedAt.After(hits[j].reservedAt) })

	out := make([]model.TimeSlot, 0, len(hits))
	for _, h := range hits {
		s.mu.Lock()
		entry, ok := s.slots[h.slotID]
		s.mu.Unlock()
		if !ok {
			continue
		}
		entry.mu.Lock()
		out = append(out, entry.slot)
		entry.mu.Unlock()
	}
	return out, nil
}
