// Package config holds the service configuration. Values are layered:
// built-in defaults, then an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Monitor   MonitorConfig   `koanf:"monitor"`
	ChessCom  ChessComConfig  `koanf:"chesscom"`
	Email     EmailConfig     `koanf:"email"`
	Redis     RedisConfig     `koanf:"redis"`
	Retention RetentionConfig `koanf:"retention"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Addr           string `koanf:"addr"`
	AllowedOrigins string `koanf:"allowed_origins"` // comma separated
}

type DatabaseConfig struct {
	URL         string `koanf:"url"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// MonitorConfig tunes the polling pipeline.
type MonitorConfig struct {
	BatchSize        int           `koanf:"batch_size"`
	BatchPause       time.Duration `koanf:"batch_pause"`
	CheckPause       time.Duration `koanf:"check_pause"`
	DedupWindow      time.Duration `koanf:"dedup_window"`
	PollInterval     time.Duration `koanf:"poll_interval"`
	SchedulerEnabled bool          `koanf:"scheduler_enabled"`
	LockMode         string        `koanf:"lock_mode"` // local | redis | none
	LockTTL          time.Duration `koanf:"lock_ttl"`
	TriggerToken     string        `koanf:"trigger_token"`
}

type ChessComConfig struct {
	BaseURL           string        `koanf:"base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	UserAgent         string        `koanf:"user_agent"`
	OnlineWindow      time.Duration `koanf:"online_window"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

type EmailConfig struct {
	Provider string `koanf:"provider"` // ses | smtp | log
	From     string `koanf:"from"`
	FromName string `koanf:"from_name"`

	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUser     string `koanf:"smtp_user"`
	SMTPPassword string `koanf:"smtp_password"`
	SMTPUseTLS   bool   `koanf:"smtp_use_tls"`

	AWSRegion          string `koanf:"aws_region"`
	AWSAccessKeyID     string `koanf:"aws_access_key_id"`
	AWSSecretAccessKey string `koanf:"aws_secret_access_key"`
	SESEndpoint        string `koanf:"ses_endpoint"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type RetentionConfig struct {
	Days int `koanf:"days"` // 0 disables the cleanup job
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":5200",
			AllowedOrigins: "http://localhost:3000",
		},
		Database: DatabaseConfig{
			AutoMigrate: true,
		},
		Monitor: MonitorConfig{
			BatchSize:        10,
			BatchPause:       time.Second,
			CheckPause:       500 * time.Millisecond,
			DedupWindow:      5 * time.Minute,
			PollInterval:     5 * time.Minute,
			SchedulerEnabled: true,
			LockMode:         "local",
			LockTTL:          30 * time.Minute,
		},
		ChessCom: ChessComConfig{
			BaseURL:           "https://api.chess.com",
			Timeout:           10 * time.Second,
			UserAgent:         "player-monitor-system/1.0 (+https://github.com)",
			OnlineWindow:      10 * time.Minute,
			RequestsPerSecond: 5,
		},
		Email: EmailConfig{
			Provider:   "log",
			FromName:   "Player Monitor",
			SMTPPort:   587,
			SMTPUseTLS: true,
			AWSRegion:  "us-east-1",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Retention: RetentionConfig{
			Days: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if strings.TrimSpace(c.Monitor.TriggerToken) == "" {
		errs = append(errs, errors.New("MONITOR_TRIGGER_TOKEN is required"))
	}
	if c.Monitor.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("monitor.batch_size must be positive, got %d", c.Monitor.BatchSize))
	}
	if c.Monitor.BatchPause < 0 || c.Monitor.CheckPause < 0 {
		errs = append(errs, errors.New("monitor pauses must not be negative"))
	}
	if c.Monitor.DedupWindow < 0 {
		errs = append(errs, errors.New("monitor.dedup_window must not be negative"))
	}
	if c.Monitor.SchedulerEnabled && c.Monitor.PollInterval <= 0 {
		errs = append(errs, errors.New("monitor.poll_interval must be positive when the scheduler is enabled"))
	}
	switch c.Monitor.LockMode {
	case "local", "redis", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown monitor.lock_mode %q", c.Monitor.LockMode))
	}
	if c.ChessCom.Timeout <= 0 {
		errs = append(errs, errors.New("chesscom.timeout must be positive"))
	}
	if c.ChessCom.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("chesscom.requests_per_second must be positive"))
	}

	switch c.Email.Provider {
	case "log":
	case "smtp":
		if c.Email.SMTPHost == "" || c.Email.From == "" {
			errs = append(errs, errors.New("smtp provider needs email.smtp_host and email.from"))
		}
	case "ses":
		if c.Email.From == "" {
			errs = append(errs, errors.New("ses provider needs email.from"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown email.provider %q", c.Email.Provider))
	}

	if c.Retention.Days < 0 {
		errs = append(errs, errors.New("retention.days must not be negative"))
	}

	return errors.Join(errs...)
}

// Origins splits AllowedOrigins and trims each entry.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
