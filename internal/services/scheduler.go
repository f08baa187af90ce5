package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/schoolhub/circulation/internal/models"
)

// SchedulerQuerier defines the interface for scheduler database operations
type SchedulerQuerier interface {
	ListOverdueLoans(ctx context.Context, asOf time.Time) ([]models.Loan, error)
	RecordReminder(ctx context.Context, loanID int32, sentAt time.Time) (int64, error)
	GetNotificationConfig(ctx context.Context, defaults models.NotificationConfig) (models.NotificationConfig, error)
	UpsertNotificationConfig(ctx context.Context, cfg models.NotificationConfig) error
}

// NoticeEnqueuer hands reminders to the delivery pipeline. Delivery itself
// is asynchronous and best-effort.
type NoticeEnqueuer interface {
	Enqueue(ctx context.Context, notice models.Notice) error
}

// SchedulerService scans overdue loans on a fixed interval and emits
// reminders per the administrator-editable policy. It also sends the
// immediate "reservation ready" notice when a queue head is promoted.
type SchedulerService struct {
	querier  SchedulerQuerier
	enqueuer NoticeEnqueuer
	defaults models.NotificationConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewSchedulerService creates a new notification scheduler.
func NewSchedulerService(querier SchedulerQuerier, enqueuer NoticeEnqueuer, defaults models.NotificationConfig, logger *slog.Logger) *SchedulerService {
	return &SchedulerService{
		querier:  querier,
		enqueuer: enqueuer,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

// GetConfig reads the current reminder policy.
func (s *SchedulerService) GetConfig(ctx context.Context) (models.NotificationConfig, error) {
	return s.querier.GetNotificationConfig(ctx, s.defaults)
}

// UpdateConfig saves an administrator's policy edit.
func (s *SchedulerService) UpdateConfig(ctx context.Context, req *models.UpdateNotificationConfigRequest) (models.NotificationConfig, error) {
	if err := req.Validate(); err != nil {
		return models.NotificationConfig{}, err
	}
	cfg := models.NotificationConfig{
		AutoSendEnabled: req.AutoSendEnabled,
		SendAfterDays:   req.SendAfterDays,
		RepeatEveryDays: req.RepeatEveryDays,
		MaxReminders:    req.MaxReminders,
		UpdatedAt:       s.now(),
	}
	if err := s.querier.UpsertNotificationConfig(ctx, cfg); err != nil {
		return models.NotificationConfig{}, err
	}
	s.logger.Info("Notification config updated",
		"auto_send_enabled", cfg.AutoSendEnabled,
		"send_after_days", cfg.SendAfterDays,
		"repeat_every_days", cfg.RepeatEveryDays,
		"max_reminders", cfg.MaxReminders)
	return cfg, nil
}

// RunOverdueSweep emits one reminder per overdue loan that the policy
// allows. Enqueue failures are logged and retried on the next run; the
// per-loan reminder counter only advances after a successful enqueue, so
// re-running the sweep cannot double-remind.
func (s *SchedulerService) RunOverdueSweep(ctx context.Context) (int, error) {
	cfg, err := s.querier.GetNotificationConfig(ctx, s.defaults)
	if err != nil {
		return 0, err
	}
	if !cfg.AutoSendEnabled {
		return 0, nil
	}

	now := s.now()
	loans, err := s.querier.ListOverdueLoans(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list overdue loans: %w", err)
	}

	sent := 0
	for _, loan := range loans {
		if !s.shouldRemind(loan, cfg, now) {
			continue
		}

		notice := models.Notice{
			StudentID: loan.StudentID,
			Kind:      models.ReminderKindOverdue,
			Payload: map[string]interface{}{
				"loan_id":      loan.ID,
				"book_id":      loan.BookID,
				"due_date":     loan.DueDate,
				"overdue_days": OverdueDays(loan.DueDate, now),
			},
		}
		if err := s.enqueuer.Enqueue(ctx, notice); err != nil {
			s.logger.Warn("Failed to enqueue overdue reminder",
				"loan_id", loan.ID, "error", err)
			continue
		}

		// Guarded on the loan still being open: a return racing this sweep
		// wins and the counter is left untouched.
		if _, err := s.querier.RecordReminder(ctx, loan.ID, now); err != nil {
			s.logger.Error("Failed to record reminder", "loan_id", loan.ID, "error", err)
			continue
		}
		sent++
	}

	if sent > 0 {
		s.logger.Info("Overdue reminder sweep completed", "reminders_sent", sent, "overdue_loans", len(loans))
	}
	return sent, nil
}

func (s *SchedulerService) shouldRemind(loan models.Loan, cfg models.NotificationConfig, now time.Time) bool {
	if loan.ReminderCount >= cfg.MaxReminders {
		return false
	}
	if OverdueDays(loan.DueDate, now) < cfg.SendAfterDays {
		return false
	}
	if loan.LastReminderAt != nil {
		repeatAfter := time.Duration(cfg.RepeatEveryDays) * 24 * time.Hour
		if now.Sub(*loan.LastReminderAt) < repeatAfter {
			return false
		}
	}
	return true
}

// NotifyReservationReady sends the claim notice for a freshly promoted
// reservation. Invoked synchronously from the promotion path, not on the
// periodic schedule.
func (s *SchedulerService) NotifyReservationReady(ctx context.Context, res models.Reservation) error {
	notice := models.Notice{
		StudentID: res.StudentID,
		Kind:      models.ReminderKindReservationReady,
		Payload: map[string]interface{}{
			"reservation_id": res.ID,
			"book_id":        res.BookID,
			"expires_at":     res.ExpiresAt,
		},
	}
	return s.enqueuer.Enqueue(ctx, notice)
}

// Start runs the overdue sweep on a fixed interval until the context is
// cancelled.
func (s *SchedulerService) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOverdueSweep(ctx); err != nil {
				s.logger.Error("Overdue reminder sweep failed", "error", err)
			}
		}
	}
}
