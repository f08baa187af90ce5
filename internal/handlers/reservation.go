package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolhub/circulation/internal/models"
)

// ReservationServiceInterface defines the interface for reservation queue operations
type ReservationServiceInterface interface {
	Reserve(ctx context.Context, bookID, studentID int32) (*models.ReservationResult, error)
	Cancel(ctx context.Context, reservationID int32) error
	ListQueue(ctx context.Context, bookID int32) ([]models.Reservation, error)
}

// ReservationHandler handles reservation HTTP requests
type ReservationHandler struct {
	reservations ReservationServiceInterface
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(reservations ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

// Reserve handles requests to join a book's waiting list
func (h *ReservationHandler) Reserve(c *gin.Context) {
	var req models.ReserveBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.reservations.Reserve(c.Request.Context(), req.BookID, req.StudentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Success: true,
		Data:    result,
		Message: "Reservation created successfully",
	})
}

// Cancel handles reservation withdrawal requests
func (h *ReservationHandler) Cancel(c *gin.Context) {
	reservationID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.reservations.Cancel(c.Request.Context(), reservationID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Reservation cancelled successfully",
	})
}

// ListQueue handles waiting-list listing for a book
func (h *ReservationHandler) ListQueue(c *gin.Context) {
	bookID, ok := parseID(c, "id")
	if !ok {
		return
	}

	queue, err := h.reservations.ListQueue(c.Request.Context(), bookID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    queue,
	})
}
