package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	monitor "cyclewatch/internal/monitor/domain"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FromYAML(t *testing.T) {
	path := writeConfigFile(t, `
database_url: postgres://localhost/cyclewatch
jwt_secret: secret
defaults:
  threshold_watt: 10
  minimum_interval_minutes: 5
  margin_percent: 20
entities:
  - entity: washer
  - entity: dryer
    threshold_watt: 25
    statistic_method: mean
`)
	t.Setenv("MONITOR_CONFIG", path)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PG_DSN", "")
	t.Setenv("AUTH_JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(cfg.Entities))
	}
	if cfg.Measurement != "device_cycles" {
		t.Fatalf("expected default measurement, got %s", cfg.Measurement)
	}

	washer, err := cfg.Settings(cfg.Entities[0])
	if err != nil {
		t.Fatalf("washer settings: %v", err)
	}
	if washer.ThresholdWatt != 10 {
		t.Fatalf("washer must inherit the default threshold, got %v", washer.ThresholdWatt)
	}
	if washer.MinimumInterval != 5*time.Minute {
		t.Fatalf("unexpected minimum interval %s", washer.MinimumInterval)
	}
	if washer.Statistic != monitor.StatisticMedian {
		t.Fatalf("expected default median statistic, got %s", washer.Statistic)
	}
	if washer.CheckInterval != time.Minute {
		t.Fatalf("expected default 60s check interval, got %s", washer.CheckInterval)
	}
	if washer.HistoryWindow != 24*time.Hour {
		t.Fatalf("expected default 24h history window, got %s", washer.HistoryWindow)
	}

	dryer, err := cfg.Settings(cfg.Entities[1])
	if err != nil {
		t.Fatalf("dryer settings: %v", err)
	}
	if dryer.ThresholdWatt != 25 {
		t.Fatalf("dryer override lost, got %v", dryer.ThresholdWatt)
	}
	if dryer.Statistic != monitor.StatisticMean {
		t.Fatalf("dryer statistic override lost, got %s", dryer.Statistic)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
database_url: postgres://file/db
jwt_secret: file-secret
entities:
  - entity: washer
    threshold_watt: 10
    minimum_interval_minutes: 5
`)
	t.Setenv("MONITOR_CONFIG", path)
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("AUTH_JWT_SECRET", "env-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://env/db" {
		t.Fatalf("env must override file, got %s", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Fatalf("env must override file, got %s", cfg.JWTSecret)
	}
}

func TestLoad_SingleEntityFromEnv(t *testing.T) {
	t.Setenv("MONITOR_CONFIG", "")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("MONITOR_ENTITY", "washer")
	t.Setenv("MONITOR_THRESHOLD_WATT", "10")
	t.Setenv("MONITOR_MIN_INTERVAL_MINUTES", "5")
	t.Setenv("MONITOR_MARGIN_PERCENT", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Entities) != 1 || cfg.Entities[0].Entity != "washer" {
		t.Fatalf("expected single env entity, got %+v", cfg.Entities)
	}
	settings, err := cfg.Settings(cfg.Entities[0])
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.ThresholdWatt != 10 {
		t.Fatalf("unexpected threshold %v", settings.ThresholdWatt)
	}
}

func TestLoad_RequiresDatabaseAndSecret(t *testing.T) {
	t.Setenv("MONITOR_CONFIG", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PG_DSN", "")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("MONITOR_ENTITY", "washer")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without a database url")
	}

	t.Setenv("DATABASE_URL", "postgres://env/db")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without a jwt secret")
	}
}

func TestLoad_RequiresEntities(t *testing.T) {
	t.Setenv("MONITOR_CONFIG", "")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("MONITOR_ENTITY", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without entities")
	}
}

func TestLoad_ZeroCooldownOverride(t *testing.T) {
	path := writeConfigFile(t, `
database_url: postgres://localhost/cyclewatch
jwt_secret: secret
defaults:
  threshold_watt: 10
  minimum_interval_minutes: 5
entities:
  - entity: washer
    alert_cooldown_minutes: 0
  - entity: dryer
`)
	t.Setenv("MONITOR_CONFIG", path)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PG_DSN", "")
	t.Setenv("AUTH_JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	washer, err := cfg.Settings(cfg.Entities[0])
	if err != nil {
		t.Fatalf("washer settings: %v", err)
	}
	if washer.Cooldown != 0 {
		t.Fatalf("explicit zero must disable the cooldown, got %s", washer.Cooldown)
	}

	dryer, err := cfg.Settings(cfg.Entities[1])
	if err != nil {
		t.Fatalf("dryer settings: %v", err)
	}
	if dryer.Cooldown != 5*time.Minute {
		t.Fatalf("expected the default 5m cooldown, got %s", dryer.Cooldown)
	}
}

func TestSettings_MarginMinutesPrecedence(t *testing.T) {
	cfg := Config{Defaults: EntityConfig{CheckIntervalSeconds: 60, HistoryWindowHours: 24}}
	settings, err := cfg.Settings(EntityConfig{
		Entity:                 "washer",
		ThresholdWatt:          10,
		MinimumIntervalMinutes: 5,
		MarginMinutes:          3,
		MarginPercent:          20,
	})
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if got := settings.Margin.Lower(10); got != 7 {
		t.Fatalf("absolute minutes must win over the percentage, lower=%v", got)
	}
}

func TestSettings_InvalidStatistic(t *testing.T) {
	cfg := Config{Defaults: EntityConfig{CheckIntervalSeconds: 60, HistoryWindowHours: 24}}
	_, err := cfg.Settings(EntityConfig{
		Entity:                 "washer",
		ThresholdWatt:          10,
		MinimumIntervalMinutes: 5,
		StatisticMethod:        "mode",
	})
	if err == nil {
		t.Fatalf("expected error for unknown statistic method")
	}
}

func TestSettings_InvalidSettings(t *testing.T) {
	cfg := Config{Defaults: EntityConfig{CheckIntervalSeconds: 60, HistoryWindowHours: 24}}
	if _, err := cfg.Settings(EntityConfig{Entity: "washer"}); err == nil {
		t.Fatalf("expected error for missing threshold")
	}
}
