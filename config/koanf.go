package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/player-monitor/config.yaml",
}

// envMappings maps environment variables to koanf paths. Unlisted variables are ignored.
var envMappings = map[string]string{
	"port":            "server.addr",
	"http_addr":       "server.addr",
	"allowed_origins": "server.allowed_origins",

	"database_url":          "database.url",
	"database_auto_migrate": "database.auto_migrate",

	"monitor_batch_size":        "monitor.batch_size",
	"monitor_batch_pause":       "monitor.batch_pause",
	"monitor_check_pause":       "monitor.check_pause",
	"monitor_dedup_window":      "monitor.dedup_window",
	"monitor_poll_interval":     "monitor.poll_interval",
	"monitor_scheduler_enabled": "monitor.scheduler_enabled",
	"monitor_lock_mode":         "monitor.lock_mode",
	"monitor_lock_ttl":          "monitor.lock_ttl",
	"monitor_trigger_token":     "monitor.trigger_token",

	"chesscom_base_url":            "chesscom.base_url",
	"chesscom_timeout":             "chesscom.timeout",
	"chesscom_user_agent":          "chesscom.user_agent",
	"chesscom_online_window":       "chesscom.online_window",
	"chesscom_requests_per_second": "chesscom.requests_per_second",

	"email_provider":        "email.provider",
	"email_from":            "email.from",
	"email_from_name":       "email.from_name",
	"smtp_host":             "email.smtp_host",
	"smtp_port":             "email.smtp_port",
	"smtp_user":             "email.smtp_user",
	"smtp_password":         "email.smtp_password",
	"smtp_use_tls":          "email.smtp_use_tls",
	"aws_region":            "email.aws_region",
	"aws_access_key_id":     "email.aws_access_key_id",
	"aws_secret_access_key": "email.aws_secret_access_key",
	"ses_endpoint":          "email.ses_endpoint",

	"redis_addr":     "redis.addr",
	"redis_password": "redis.password",
	"redis_db":       "redis.db",

	"retention_days": "retention.days",

	"log_level":  "logging.level",
	"log_format": "logging.format",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load reads .env (if present), then layers defaults, an optional YAML file
// and environment variables, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// PORT is commonly a bare number on PaaS hosts
	if cfg.Server.Addr != "" && !strings.Contains(cfg.Server.Addr, ":") {
		cfg.Server.Addr = ":" + cfg.Server.Addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
