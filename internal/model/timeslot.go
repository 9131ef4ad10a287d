package model

import "time"

// TimeSlot represents a bookable interval on a calendar day with a
// bounded number of places. Capacity is the number of places still
// available; it is decremented by exactly one for each admitted
// reservation and never drops below zero or rises above
// TotalCapacity. Date and the two times are kept as the strings the
// DATE/TIME columns produce ("2006-01-02" and "15:04:05") so that
// lexicographic comparison matches chronological order.
//
// Fields:
//  ID            – primary key identifier of the slot.
//  Date          – calendar date of the slot (YYYY-MM-DD).
//  StartTime     – start time of day (HH:MM:SS), strictly before EndTime.
//  EndTime       – end time of day (HH:MM:SS), same day.
//  Capacity      – remaining places (>= 0).
//  TotalCapacity – capacity the slot was created with.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type TimeSlot struct {
	ID            uint64    `json:"id"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	Capacity      uint32    `json:"capacity"`
	TotalCapacity uint32    `json:"total_capacity"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}
