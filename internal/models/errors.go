package models

import "errors"

// Circulation error taxonomy. Validation errors are returned to the caller
// for display; ErrNotFound and ErrConflict are safe to treat as idempotent
// no-ops on retry; ErrConsistencyViolation indicates a bug and is logged as
// a fatal integrity alert before being returned.
var (
	ErrBookNotAvailable     = errors.New("book not available")
	ErrBookAvailable        = errors.New("book is currently available for borrowing")
	ErrInvalidDueDate       = errors.New("due date must be in the future")
	ErrMaxRenewalsExceeded  = errors.New("maximum number of renewals reached")
	ErrAlreadyReserved      = errors.New("student already has an active reservation for this book")
	ErrStudentIneligible    = errors.New("student is not eligible to borrow")
	ErrLoanLimitReached     = errors.New("student has reached the maximum number of loans")
	ErrDuplicateLoan        = errors.New("student already has this book on loan")
	ErrNotFound             = errors.New("record not found")
	ErrConflict             = errors.New("operation conflicts with current state")
	ErrConsistencyViolation = errors.New("copy count consistency violation")
)
