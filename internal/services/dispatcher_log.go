package services

import (
	"context"
	"log/slog"

	"github.com/schoolhub/circulation/internal/models"
)

// LogDispatcher is the Dispatcher used when no delivery channel is
// configured; it records the notice and succeeds.
type LogDispatcher struct {
	Logger *slog.Logger
}

// Dispatch logs the notice.
func (d LogDispatcher) Dispatch(ctx context.Context, notice models.Notice) error {
	d.Logger.Info("Notice dispatched",
		"student_id", notice.StudentID,
		"kind", notice.Kind,
		"payload", notice.Payload)
	return nil
}
