package config

import "fmt"

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DeliveryConfig holds the scheduling policy knobs for the delivery engine.
// All hour values are interpreted in the business timezone.
type DeliveryConfig struct {
	// BusinessTimezone is the single reference timezone for all calendar-day
	// comparisons and cutoff instants.
	BusinessTimezone string `mapstructure:"business_timezone"`
	// CancellationCutoffHours is how many hours before the next scheduled
	// delivery a subscription-level cancellation is still accepted.
	CancellationCutoffHours int `mapstructure:"cancellation_cutoff_hours"`
	// RescheduleWindowMonths bounds how far past the original date a single
	// delivery may be moved.
	RescheduleWindowMonths int `mapstructure:"reschedule_window_months"`
	// AvailabilityHorizonDays is scanned past the last scheduled delivery
	// when offering reschedule dates.
	AvailabilityHorizonDays int `mapstructure:"availability_horizon_days"`
	// AutoCancelHour is the business-local hour after which an unresolved
	// delivery for the day is force-cancelled with a concession.
	AutoCancelHour int `mapstructure:"auto_cancel_hour"`
	// SweepIntervalHours controls the global delivery sweep job.
	SweepIntervalHours int `mapstructure:"sweep_interval_hours"`
}
