package models

import "time"

// ReservationStatus represents the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusFulfilled ReservationStatus = "fulfilled"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
)

// IsValid checks if the reservation status is valid.
func (rs ReservationStatus) IsValid() bool {
	switch rs {
	case ReservationStatusActive, ReservationStatusFulfilled, ReservationStatusCancelled, ReservationStatusExpired:
		return true
	default:
		return false
	}
}

// Reservation is a queue entry representing a student's claim on the next
// copy of a fully-checked-out book. QueuePosition is 1-based and unique per
// book among active reservations.
//
// While merely queued, ExpiresAt is the queue-membership expiry. Once the
// head of the queue is promoted, CopyHeld is set, ExpiresAt becomes the
// claim-window deadline, and the reservation stays active until the student
// issues the book (fulfilled) or the window lapses (expired).
type Reservation struct {
	ID            int32             `json:"id"`
	BookID        int32             `json:"book_id"`
	StudentID     int32             `json:"student_id"`
	QueuePosition int32             `json:"queue_position"`
	Status        ReservationStatus `json:"status"`
	CopyHeld      bool              `json:"copy_held"`
	ReservedAt    time.Time         `json:"reserved_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
	NotifiedAt    *time.Time        `json:"notified_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
