package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolhub/circulation/internal/models"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// errorCode maps a circulation error to its HTTP status and machine code.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, models.ErrBookNotAvailable):
		return http.StatusConflict, "BOOK_NOT_AVAILABLE"
	case errors.Is(err, models.ErrBookAvailable):
		return http.StatusConflict, "BOOK_AVAILABLE"
	case errors.Is(err, models.ErrInvalidDueDate):
		return http.StatusBadRequest, "INVALID_DUE_DATE"
	case errors.Is(err, models.ErrMaxRenewalsExceeded):
		return http.StatusConflict, "MAX_RENEWALS_EXCEEDED"
	case errors.Is(err, models.ErrAlreadyReserved):
		return http.StatusConflict, "ALREADY_RESERVED"
	case errors.Is(err, models.ErrStudentIneligible):
		return http.StatusForbidden, "STUDENT_INELIGIBLE"
	case errors.Is(err, models.ErrLoanLimitReached):
		return http.StatusConflict, "LOAN_LIMIT_REACHED"
	case errors.Is(err, models.ErrDuplicateLoan):
		return http.StatusConflict, "DUPLICATE_LOAN"
	case errors.Is(err, models.ErrConsistencyViolation):
		return http.StatusInternalServerError, "CONSISTENCY_VIOLATION"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func respondError(c *gin.Context, err error) {
	status, code := errorCode(err)
	c.JSON(status, ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request data",
			Details: err.Error(),
		},
	})
}
