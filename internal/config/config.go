package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"cyclewatch/internal/monitor/application"
	monitor "cyclewatch/internal/monitor/domain"
)

const defaultMeasurement = "device_cycles"

// EntityConfig configures monitoring for one entity.
type EntityConfig struct {
	Entity                 string  `yaml:"entity"`
	ThresholdWatt          float64 `yaml:"threshold_watt"`
	MinimumIntervalMinutes float64 `yaml:"minimum_interval_minutes"`
	CheckIntervalSeconds   int     `yaml:"check_interval_seconds"`
	MarginPercent          float64 `yaml:"margin_percent"`
	MarginMinutes          float64 `yaml:"margin_minutes"`
	StatisticMethod        string  `yaml:"statistic_method"`
	HistoryWindowHours     int     `yaml:"history_window_hours"`
	// Pointer so an explicit zero disables the cooldown instead of falling
	// back to the default.
	AlertCooldownMinutes *float64 `yaml:"alert_cooldown_minutes"`
}

// Config is the full service configuration.
type Config struct {
	DatabaseURL          string         `yaml:"database_url"`
	HTTPAddr             string         `yaml:"http_addr"`
	JWTSecret            string         `yaml:"jwt_secret"`
	IngestSecret         string         `yaml:"ingest_secret"`
	IngestSkewSeconds    int            `yaml:"ingest_skew_seconds"`
	NotifyWebhookURL     string         `yaml:"notify_webhook_url"`
	NotifyTemplate       string         `yaml:"notify_template"`
	NotifyTimeoutSeconds int            `yaml:"notify_timeout_seconds"`
	Measurement          string         `yaml:"measurement"`
	DebugLogging         bool           `yaml:"debug_logging"`
	SendTestNotification bool           `yaml:"send_test_notification"`
	Defaults             EntityConfig   `yaml:"defaults"`
	Entities             []EntityConfig `yaml:"entities"`
}

// Load reads configuration from an optional yaml file (MONITOR_CONFIG) with
// environment overrides, and validates it. Validation failures are fatal at
// startup; the tick loop never starts on a bad config.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:             ":8080",
		IngestSkewSeconds:    300,
		NotifyTimeoutSeconds: 5,
		Measurement:          defaultMeasurement,
		Defaults: EntityConfig{
			CheckIntervalSeconds: 60,
			HistoryWindowHours:   24,
			AlertCooldownMinutes: floatPtr(5),
			StatisticMethod:      string(monitor.StatisticMedian),
		},
	}

	if path := os.Getenv("MONITOR_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.DatabaseURL))
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.JWTSecret = getenvDefault("AUTH_JWT_SECRET", cfg.JWTSecret)
	cfg.IngestSecret = getenvDefault("INGEST_HMAC_SECRET", cfg.IngestSecret)
	cfg.IngestSkewSeconds = getenvIntDefault("INGEST_MAX_SKEW_SECONDS", cfg.IngestSkewSeconds)
	cfg.NotifyWebhookURL = getenvDefault("NOTIFY_WEBHOOK_URL", cfg.NotifyWebhookURL)
	cfg.NotifyTemplate = getenvDefault("NOTIFY_TEMPLATE", cfg.NotifyTemplate)
	cfg.Measurement = getenvDefault("MONITOR_MEASUREMENT", cfg.Measurement)
	cfg.DebugLogging = getenvBoolDefault("DEBUG_LOGGING", cfg.DebugLogging)
	cfg.SendTestNotification = getenvBoolDefault("SEND_TEST_NOTIFICATION", cfg.SendTestNotification)

	if len(cfg.Entities) == 0 {
		if entity := entityFromEnv(); entity != nil {
			cfg.Entities = []EntityConfig{*entity}
		}
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("config: AUTH_JWT_SECRET is required")
	}
	if len(cfg.Entities) == 0 {
		return cfg, errors.New("config: at least one monitored entity is required")
	}
	if cfg.Measurement == "" {
		cfg.Measurement = defaultMeasurement
	}
	return cfg, nil
}

// Settings resolves one entity config, merged over defaults, into engine
// settings. The margin pair is normalized here, once, rather than branching
// at evaluation time.
func (c Config) Settings(entity EntityConfig) (application.Settings, error) {
	merged := mergeEntity(c.Defaults, entity)

	method, err := monitor.ParseStatisticMethod(merged.StatisticMethod)
	if err != nil {
		return application.Settings{}, fmt.Errorf("config: entity %q: %w", merged.Entity, err)
	}

	cooldown := 0.0
	if merged.AlertCooldownMinutes != nil {
		cooldown = *merged.AlertCooldownMinutes
	}

	settings := application.Settings{
		Entity:          merged.Entity,
		ThresholdWatt:   merged.ThresholdWatt,
		MinimumInterval: minutes(merged.MinimumIntervalMinutes),
		CheckInterval:   time.Duration(merged.CheckIntervalSeconds) * time.Second,
		HistoryWindow:   time.Duration(merged.HistoryWindowHours) * time.Hour,
		Cooldown:        minutes(cooldown),
		Margin:          monitor.ResolveMargin(merged.MarginMinutes, merged.MarginPercent),
		Statistic:       method,
		DebugLogging:    c.DebugLogging,
	}
	if err := settings.Validate(); err != nil {
		return application.Settings{}, fmt.Errorf("config: entity %q: %w", merged.Entity, err)
	}
	return settings, nil
}

// NotifyTimeout returns the webhook request timeout.
func (c Config) NotifyTimeout() time.Duration {
	if c.NotifyTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.NotifyTimeoutSeconds) * time.Second
}

func mergeEntity(base, override EntityConfig) EntityConfig {
	merged := base
	merged.Entity = override.Entity
	if override.ThresholdWatt != 0 {
		merged.ThresholdWatt = override.ThresholdWatt
	}
	if override.MinimumIntervalMinutes != 0 {
		merged.MinimumIntervalMinutes = override.MinimumIntervalMinutes
	}
	if override.CheckIntervalSeconds != 0 {
		merged.CheckIntervalSeconds = override.CheckIntervalSeconds
	}
	if override.MarginPercent != 0 {
		merged.MarginPercent = override.MarginPercent
	}
	if override.MarginMinutes != 0 {
		merged.MarginMinutes = override.MarginMinutes
	}
	if override.StatisticMethod != "" {
		merged.StatisticMethod = override.StatisticMethod
	}
	if override.HistoryWindowHours != 0 {
		merged.HistoryWindowHours = override.HistoryWindowHours
	}
	if override.AlertCooldownMinutes != nil {
		merged.AlertCooldownMinutes = override.AlertCooldownMinutes
	}
	return merged
}

func entityFromEnv() *EntityConfig {
	entity := os.Getenv("MONITOR_ENTITY")
	if entity == "" {
		return nil
	}
	cfg := &EntityConfig{
		Entity:                 entity,
		ThresholdWatt:          getenvFloatDefault("MONITOR_THRESHOLD_WATT", 0),
		MinimumIntervalMinutes: getenvFloatDefault("MONITOR_MIN_INTERVAL_MINUTES", 0),
		CheckIntervalSeconds:   getenvIntDefault("MONITOR_CHECK_INTERVAL_SECONDS", 0),
		MarginPercent:          getenvFloatDefault("MONITOR_MARGIN_PERCENT", 0),
		MarginMinutes:          getenvFloatDefault("MONITOR_MARGIN_MINUTES", 0),
		StatisticMethod:        os.Getenv("MONITOR_STATISTIC_METHOD"),
		HistoryWindowHours:     getenvIntDefault("MONITOR_HISTORY_WINDOW_HOURS", 0),
	}
	if value, ok := os.LookupEnv("MONITOR_ALERT_COOLDOWN_MINUTES"); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			cfg.AlertCooldownMinutes = &parsed
		}
	}
	return cfg
}

func minutes(value float64) time.Duration {
	return time.Duration(value * float64(time.Minute))
}

func floatPtr(value float64) *float64 {
	return &value
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
