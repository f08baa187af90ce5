package services

import (
	"time"

	"github.com/shopspring/decimal"
)

// FineCalculator maps elapsed overdue time to a monetary penalty. Pure
// function of its inputs; no state, no side effects.
type FineCalculator struct {
	ratePerDay decimal.Decimal
}

// NewFineCalculator creates a calculator with the given per-day rate.
func NewFineCalculator(ratePerDay decimal.Decimal) *FineCalculator {
	return &FineCalculator{ratePerDay: ratePerDay}
}

// Compute returns overdueDays * rate. Callers guard against non-positive
// input; if called anyway the result is zero.
func (f *FineCalculator) Compute(overdueDays int32) decimal.Decimal {
	if overdueDays <= 0 {
		return decimal.Zero
	}
	return f.ratePerDay.Mul(decimal.NewFromInt(int64(overdueDays)))
}

// OverdueDays counts whole calendar days between the due date and the given
// instant, truncated to midnight so the hour of the return does not affect
// the count. Never negative.
func OverdueDays(dueDate, at time.Time) int32 {
	dueMidnight := time.Date(dueDate.Year(), dueDate.Month(), dueDate.Day(), 0, 0, 0, 0, dueDate.Location())
	atMidnight := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())

	days := int32(atMidnight.Sub(dueMidnight).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
