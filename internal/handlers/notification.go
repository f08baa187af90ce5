package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolhub/circulation/internal/models"
)

// SchedulerServiceInterface defines the interface for reminder policy operations
type SchedulerServiceInterface interface {
	GetConfig(ctx context.Context) (models.NotificationConfig, error)
	UpdateConfig(ctx context.Context, req *models.UpdateNotificationConfigRequest) (models.NotificationConfig, error)
}

// NotificationHandler handles reminder policy HTTP requests
type NotificationHandler struct {
	scheduler SchedulerServiceInterface
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(scheduler SchedulerServiceInterface) *NotificationHandler {
	return &NotificationHandler{scheduler: scheduler}
}

// GetConfig returns the current reminder policy
func (h *NotificationHandler) GetConfig(c *gin.Context) {
	cfg, err := h.scheduler.GetConfig(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    cfg,
	})
}

// UpdateConfig saves an administrator's reminder policy edit
func (h *NotificationHandler) UpdateConfig(c *gin.Context) {
	var req models.UpdateNotificationConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	cfg, err := h.scheduler.UpdateConfig(c.Request.Context(), &req)
	if err != nil {
		respondValidationError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    cfg,
		Message: "Notification config updated successfully",
	})
}
