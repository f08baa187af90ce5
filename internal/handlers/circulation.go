package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/schoolhub/circulation/internal/models"
)

// LedgerServiceInterface defines the interface for circulation ledger operations
type LedgerServiceInterface interface {
	IssueBook(ctx context.Context, bookID, studentID int32, dueDate time.Time) (*models.Loan, error)
	ReturnBook(ctx context.Context, loanID int32) (*models.ReturnResult, error)
	RenewBook(ctx context.Context, loanID int32, newDueDate time.Time) (*models.Loan, error)
	GetLoan(ctx context.Context, loanID int32) (*models.Loan, error)
	ListOverdueLoans(ctx context.Context) ([]models.Loan, error)
	PayFine(ctx context.Context, fineID int32) error
	WaiveFine(ctx context.Context, fineID int32, reason string) error
}

// CirculationHandler handles loan and fine HTTP requests
type CirculationHandler struct {
	ledger LedgerServiceInterface
}

// NewCirculationHandler creates a new circulation handler
func NewCirculationHandler(ledger LedgerServiceInterface) *CirculationHandler {
	return &CirculationHandler{ledger: ledger}
}

func parseID(c *gin.Context, name string) (int32, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 32)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error: ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid " + name,
				Details: name + " must be a positive integer",
			},
		})
		return 0, false
	}
	return int32(id), true
}

// IssueBook handles book issue requests
func (h *CirculationHandler) IssueBook(c *gin.Context) {
	var req models.IssueBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	loan, err := h.ledger.IssueBook(c.Request.Context(), req.BookID, req.StudentID, req.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Success: true,
		Data:    gin.H{"loan_id": loan.ID, "due_date": loan.DueDate},
		Message: "Book issued successfully",
	})
}

// ReturnBook handles book return requests
func (h *CirculationHandler) ReturnBook(c *gin.Context) {
	loanID, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.ledger.ReturnBook(c.Request.Context(), loanID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    result,
		Message: "Book returned successfully",
	})
}

// RenewBook handles loan renewal requests
func (h *CirculationHandler) RenewBook(c *gin.Context) {
	loanID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.RenewBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	loan, err := h.ledger.RenewBook(c.Request.Context(), loanID, req.NewDueDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    loan,
		Message: "Loan renewed successfully",
	})
}

// GetLoan handles loan detail requests
func (h *CirculationHandler) GetLoan(c *gin.Context) {
	loanID, ok := parseID(c, "id")
	if !ok {
		return
	}

	loan, err := h.ledger.GetLoan(c.Request.Context(), loanID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data: gin.H{
			"loan":   loan,
			"status": loan.Status(time.Now()),
		},
	})
}

// ListOverdueLoans handles overdue loan listing for librarian dashboards
func (h *CirculationHandler) ListOverdueLoans(c *gin.Context) {
	loans, err := h.ledger.ListOverdueLoans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    loans,
	})
}

// PayFine handles fine payment requests
func (h *CirculationHandler) PayFine(c *gin.Context) {
	fineID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.ledger.PayFine(c.Request.Context(), fineID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Fine paid successfully",
	})
}

// WaiveFine handles fine waiver requests
func (h *CirculationHandler) WaiveFine(c *gin.Context) {
	fineID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.WaiveFineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.ledger.WaiveFine(c.Request.Context(), fineID, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Fine waived successfully",
	})
}
