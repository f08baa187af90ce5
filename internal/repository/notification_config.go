package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/schoolhub/circulation/internal/models"
)

// GetNotificationConfig reads the single policy row. Falls back to the
// provided defaults when no administrator has saved a policy yet.
func (r *Repository) GetNotificationConfig(ctx context.Context, defaults models.NotificationConfig) (models.NotificationConfig, error) {
	var cfg models.NotificationConfig
	err := r.db.QueryRow(ctx,
		`SELECT auto_send_enabled, send_after_days, repeat_every_days, max_reminders, updated_at
		 FROM notification_config WHERE id = 1`,
	).Scan(&cfg.AutoSendEnabled, &cfg.SendAfterDays, &cfg.RepeatEveryDays, &cfg.MaxReminders, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return defaults, nil
		}
		return models.NotificationConfig{}, fmt.Errorf("get notification config: %w", err)
	}
	return cfg, nil
}

// UpsertNotificationConfig saves an administrator's policy edit.
func (r *Repository) UpsertNotificationConfig(ctx context.Context, cfg models.NotificationConfig) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO notification_config (id, auto_send_enabled, send_after_days, repeat_every_days, max_reminders, updated_at)
		 VALUES (1, $1, $2, $3, $4, now())
		 ON CONFLICT (id) DO UPDATE
		 SET auto_send_enabled = EXCLUDED.auto_send_enabled,
		     send_after_days = EXCLUDED.send_after_days,
		     repeat_every_days = EXCLUDED.repeat_every_days,
		     max_reminders = EXCLUDED.max_reminders,
		     updated_at = now()`,
		cfg.AutoSendEnabled, cfg.SendAfterDays, cfg.RepeatEveryDays, cfg.MaxReminders,
	)
	if err != nil {
		return fmt.Errorf("upsert notification config: %w", err)
	}
	return nil
}
