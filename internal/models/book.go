package models

import "time"

// Book holds per-title catalog metadata and the copy counts the circulation
// ledger mutates. Invariant: 0 <= AvailableCopies <= TotalCopies, and
// TotalCopies - AvailableCopies equals the number of open loans.
type Book struct {
	ID              int32     `json:"id"`
	ISBN            string    `json:"isbn"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	TotalCopies     int32     `json:"total_copies"`
	AvailableCopies int32     `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
