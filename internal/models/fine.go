package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FineStatus represents the settlement state of a fine. Paid and waived are
// terminal; the amount itself is fixed at creation.
type FineStatus string

const (
	FineStatusPending FineStatus = "pending"
	FineStatusPaid    FineStatus = "paid"
	FineStatusWaived  FineStatus = "waived"
)

// IsValid checks if the fine status is valid.
func (fs FineStatus) IsValid() bool {
	switch fs {
	case FineStatusPending, FineStatusPaid, FineStatusWaived:
		return true
	default:
		return false
	}
}

// Fine is a monetary penalty tied to one loan's overdue duration. Created
// exactly once, at return time, only when overdue days are positive.
type Fine struct {
	ID           int32           `json:"id"`
	LoanID       int32           `json:"loan_id"`
	Amount       decimal.Decimal `json:"amount"`
	OverdueDays  int32           `json:"overdue_days"`
	Status       FineStatus      `json:"status"`
	WaivedReason *string         `json:"waived_reason,omitempty"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
