package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFineCalculator_Compute(t *testing.T) {
	calc := NewFineCalculator(decimal.NewFromInt(5))

	tests := []struct {
		name        string
		overdueDays int32
		expected    string
	}{
		{"three days late", 3, "15"},
		{"one day late", 1, "5"},
		{"on time", 0, "0"},
		{"negative input", -2, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := calc.Compute(tt.overdueDays)
			assert.True(t, amount.Equal(decimal.RequireFromString(tt.expected)),
				"expected %s, got %s", tt.expected, amount.String())
		})
	}
}

func TestFineCalculator_Compute_FractionalRate(t *testing.T) {
	calc := NewFineCalculator(decimal.RequireFromString("2.50"))

	amount := calc.Compute(4)
	assert.True(t, amount.Equal(decimal.RequireFromString("10.00")))
}

func TestOverdueDays(t *testing.T) {
	due := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name     string
		at       time.Time
		expected int32
	}{
		{"returned three days later", time.Date(2026, 3, 13, 8, 0, 0, 0, time.UTC), 3},
		{"returned late on the due day", time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC), 0},
		{"returned the next morning", time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC), 1},
		{"returned early", time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, OverdueDays(due, tt.at))
		})
	}
}

func TestOverdueDays_HourOfReturnIrrelevant(t *testing.T) {
	due := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	morning := OverdueDays(due, time.Date(2026, 5, 4, 0, 30, 0, 0, time.UTC))
	night := OverdueDays(due, time.Date(2026, 5, 4, 23, 30, 0, 0, time.UTC))

	assert.Equal(t, morning, night)
	assert.Equal(t, int32(3), morning)
}
