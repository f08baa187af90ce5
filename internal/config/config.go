package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Circulation  CirculationConfig  `mapstructure:"circulation"`
	Notification NotificationConfig `mapstructure:"notification"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CirculationConfig carries the lending policy. These were implicit
// module-level constants in older systems; keeping them in config lets
// tests and deployments vary them.
type CirculationConfig struct {
	DefaultLoanDays    int     `mapstructure:"default_loan_days"`
	RenewalDays        int     `mapstructure:"renewal_days"`
	MaxRenewals        int     `mapstructure:"max_renewals"`
	FineRatePerDay     float64 `mapstructure:"fine_rate_per_day"`
	MaxLoansPerStudent int     `mapstructure:"max_loans_per_student"`
	ClaimWindowHours   int     `mapstructure:"claim_window_hours"`
	QueueTTLDays       int     `mapstructure:"queue_ttl_days"`
	SweepInterval      string  `mapstructure:"sweep_interval"`
}

// NotificationConfig holds the reminder policy defaults used until an
// administrator saves an explicit policy.
type NotificationConfig struct {
	AutoSendEnabled bool   `mapstructure:"auto_send_enabled"`
	SendAfterDays   int    `mapstructure:"send_after_days"`
	RepeatEveryDays int    `mapstructure:"repeat_every_days"`
	MaxReminders    int    `mapstructure:"max_reminders"`
	SweepInterval   string `mapstructure:"sweep_interval"`
}

// ClaimWindow returns the claim window as a duration.
func (c CirculationConfig) ClaimWindow() time.Duration {
	return time.Duration(c.ClaimWindowHours) * time.Hour
}

// QueueTTL returns the queue-membership expiry as a duration.
func (c CirculationConfig) QueueTTL() time.Duration {
	return time.Duration(c.QueueTTLDays) * 24 * time.Hour
}

// SweepIntervalDuration parses the reservation sweep interval, falling back
// to hourly.
func (c CirculationConfig) SweepIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// SweepIntervalDuration parses the reminder sweep interval, falling back to
// daily.
func (n NotificationConfig) SweepIntervalDuration() time.Duration {
	d, err := time.ParseDuration(n.SweepInterval)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/circulation")

	viper.SetEnvPrefix("CIRC")
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("circulation.default_loan_days", 14)
	viper.SetDefault("circulation.renewal_days", 14)
	viper.SetDefault("circulation.max_renewals", 2)
	viper.SetDefault("circulation.fine_rate_per_day", 5)
	viper.SetDefault("circulation.max_loans_per_student", 5)
	viper.SetDefault("circulation.claim_window_hours", 48)
	viper.SetDefault("circulation.queue_ttl_days", 30)
	viper.SetDefault("circulation.sweep_interval", "1h")
	viper.SetDefault("notification.auto_send_enabled", true)
	viper.SetDefault("notification.send_after_days", 1)
	viper.SetDefault("notification.repeat_every_days", 3)
	viper.SetDefault("notification.max_reminders", 3)
	viper.SetDefault("notification.sweep_interval", "24h")

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Override with environment variables
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		viper.Set("redis.url", redisURL)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}
