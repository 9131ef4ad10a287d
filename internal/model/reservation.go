package model

import "time"

// Reservation binds one user to one timeslot. The pair
// (UserID, TimeSlotID) is unique: a user holds at most one
// reservation per slot, enforced by a UNIQUE key on the table and
// re-checked under the slot row lock during admission. Rows are
// created only by a successful admission and never mutated afterwards.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – user who holds the reservation.
//  TimeSlotID – slot being reserved.
//  ReservedAt – creation timestamp, set once.
type Reservation struct {
	ID         uint64    `json:"id"`
	UserID     uint64    `json:"user_id"`
	TimeSlotID uint64    `json:"timeslot_id"`
	ReservedAt time.Time `json:"reserved_at"`
}
