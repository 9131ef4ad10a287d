// Package queue defines message payloads exchanged over the message
// broker plus the publisher and background consumer for them.
package queue

// ReservationConfirmedEvent is published after an admission commits.
// It carries enough information for downstream consumers to log or
// run analytics without querying the primary database. Publishing is
// strictly after commit and best-effort: the admission outcome never
// depends on the broker.
type ReservationConfirmedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	TimeSlotID    uint64 `json:"timeslot_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	ReservedAt    string `json:"reserved_at"`
}
