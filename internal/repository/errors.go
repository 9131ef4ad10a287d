// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers to
// distinguish between different failure scenarios without inspecting
// driver-specific errors.
package repository

import "errors"

// ErrTimeSlotNotFound is returned when a timeslot id does not resolve
// to an existing row.
var ErrTimeSlotNotFound = errors.New("timeslot not found")

// ErrConflict is returned when an insert collides with existing state,
// such as a duplicate (user, timeslot) reservation hitting the UNIQUE
// key. Under the slot row lock this should not happen; it is kept as a
// safety net so the transaction aborts cleanly instead of surfacing a
// raw driver error.
var ErrConflict = errors.New("conflict")

// ErrUsernameExists is returned when registering a username that is
// already taken.
var ErrUsernameExists = errors.New("username already exists")
