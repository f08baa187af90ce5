package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// IssueBookRequest represents a request to lend a copy to a student. An
// omitted due date falls back to the configured default loan period.
type IssueBookRequest struct {
	BookID    int32     `json:"book_id" validate:"required,min=1"`
	StudentID int32     `json:"student_id" validate:"required,min=1"`
	DueDate   time.Time `json:"due_date"`
}

// Validate validates the issue request.
func (r *IssueBookRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// RenewBookRequest represents a request to extend a loan in place. An
// omitted due date falls back to the configured renewal period.
type RenewBookRequest struct {
	NewDueDate time.Time `json:"new_due_date"`
}

// Validate validates the renew request.
func (r *RenewBookRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// ReserveBookRequest represents a request to join a book's waiting list.
type ReserveBookRequest struct {
	BookID    int32 `json:"book_id" validate:"required,min=1"`
	StudentID int32 `json:"student_id" validate:"required,min=1"`
}

// Validate validates the reserve request.
func (r *ReserveBookRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// WaiveFineRequest represents a request to waive a pending fine.
type WaiveFineRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

// Validate validates the waive request.
func (r *WaiveFineRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// FineDetail is the fine portion of a return result.
type FineDetail struct {
	FineID      int32           `json:"fine_id"`
	Amount      decimal.Decimal `json:"amount"`
	OverdueDays int32           `json:"overdue_days"`
}

// ReturnResult is the outcome of a return: the closed loan and, when the
// return was late, the fine created for it.
type ReturnResult struct {
	Loan *Loan       `json:"loan"`
	Fine *FineDetail `json:"fine,omitempty"`
}

// ReservationResult is the outcome of joining a waiting list.
type ReservationResult struct {
	ReservationID int32 `json:"reservation_id"`
	QueuePosition int32 `json:"queue_position"`
}
