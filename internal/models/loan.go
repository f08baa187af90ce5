package models

import "time"

// LoanStatus is derived from stored fields, never persisted. Keeping it a
// pure function over DueDate/ReturnDate avoids drift between stored state
// and wall-clock truth.
type LoanStatus string

const (
	LoanStatusIssued   LoanStatus = "issued"
	LoanStatusOverdue  LoanStatus = "overdue"
	LoanStatusReturned LoanStatus = "returned"
)

// RenewalRecord is one entry in a loan's renewal history.
type RenewalRecord struct {
	PreviousDueDate time.Time `json:"previous_due_date"`
	NewDueDate      time.Time `json:"new_due_date"`
}

// Loan records one physical copy lent to one student for a bounded period.
// Loans are never deleted; they are the audit trail fines and reports
// depend on.
type Loan struct {
	ID             int32           `json:"id"`
	BookID         int32           `json:"book_id"`
	StudentID      int32           `json:"student_id"`
	IssueDate      time.Time       `json:"issue_date"`
	DueDate        time.Time       `json:"due_date"`
	ReturnDate     *time.Time      `json:"return_date,omitempty"`
	RenewalCount   int32           `json:"renewal_count"`
	RenewalHistory []RenewalRecord `json:"renewal_history"`
	ReminderCount  int32           `json:"reminder_count"`
	LastReminderAt *time.Time      `json:"last_reminder_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Status computes the loan state at the given instant.
func (l *Loan) Status(now time.Time) LoanStatus {
	if l.ReturnDate != nil {
		return LoanStatusReturned
	}
	if l.DueDate.Before(now) {
		return LoanStatusOverdue
	}
	return LoanStatusIssued
}

// Open reports whether the loan has not been returned yet.
func (l *Loan) Open() bool {
	return l.ReturnDate == nil
}
