package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ReminderKind identifies the template a dispatched notice is rendered with.
type ReminderKind string

const (
	ReminderKindOverdue          ReminderKind = "overdue_reminder"
	ReminderKindReservationReady ReminderKind = "reservation_ready"
)

// IsValid checks if the reminder kind is valid.
func (rk ReminderKind) IsValid() bool {
	switch rk {
	case ReminderKindOverdue, ReminderKindReservationReady:
		return true
	default:
		return false
	}
}

// NotificationConfig is the process-wide reminder policy read by the
// scheduler on each run and edited by an administrator.
type NotificationConfig struct {
	AutoSendEnabled bool      `json:"auto_send_enabled"`
	SendAfterDays   int32     `json:"send_after_days"`
	RepeatEveryDays int32     `json:"repeat_every_days"`
	MaxReminders    int32     `json:"max_reminders"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Notice is the payload handed to the external notification dispatcher.
// Channel selection and delivery mechanics are entirely external.
type Notice struct {
	StudentID int32                  `json:"student_id"`
	Kind      ReminderKind           `json:"kind"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// UpdateNotificationConfigRequest carries an administrator's policy edit.
type UpdateNotificationConfigRequest struct {
	AutoSendEnabled bool  `json:"auto_send_enabled"`
	SendAfterDays   int32 `json:"send_after_days" validate:"min=0"`
	RepeatEveryDays int32 `json:"repeat_every_days" validate:"min=1"`
	MaxReminders    int32 `json:"max_reminders" validate:"min=0"`
}

// Validate validates the config update request.
func (r *UpdateNotificationConfigRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
