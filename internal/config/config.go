package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log        LoggingConfig    `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	History    HistoryConfig    `yaml:"history"`
	Replay     ReplayConfig     `yaml:"replay"`
	Trend      TrendConfig      `yaml:"trend"`
	Strategies []StrategyConfig `yaml:"strategies"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type HistoryConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Driver          string        `yaml:"driver"` // sqlite or postgres
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type ReplayConfig struct {
	Enabled bool `yaml:"enabled"`
	Limit   int  `yaml:"limit"`
}

// TrendConfig carries the process-wide tuning constants for the equilibrium
// core. Thresholds are in quote-currency units.
type TrendConfig struct {
	WindowPeriod                 time.Duration `yaml:"window_period"`
	ResetDelay                   time.Duration `yaml:"reset_delay"`
	TargetSpreadThreshold        float64       `yaml:"target_spread_threshold"`
	ReferenceDeltaPriceThreshold float64       `yaml:"reference_delta_price_threshold"`
	PercentileRate               float64       `yaml:"percentile_rate"`
}

type TradePlaceConfig struct {
	Exchange string `yaml:"exchange"`
	Symbol   string `yaml:"symbol"`
}

type StrategyConfig struct {
	Target                           TradePlaceConfig `yaml:"target"`
	Reference                        TradePlaceConfig `yaml:"reference"`
	ReferenceDeltaPriceThresholdRate float64          `yaml:"reference_delta_price_threshold_rate"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 28
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9100"
	}
	if cfg.History.Driver == "" {
		cfg.History.Driver = "sqlite"
	}
	if cfg.History.DSN == "" && cfg.History.Driver == "sqlite" {
		cfg.History.DSN = "data/mx-trend-bot.db"
	}
	if cfg.History.QueueSize == 0 {
		cfg.History.QueueSize = 256
	}
	if cfg.Trend.WindowPeriod == 0 {
		cfg.Trend.WindowPeriod = 180 * time.Second
	}
	if cfg.Trend.TargetSpreadThreshold == 0 {
		cfg.Trend.TargetSpreadThreshold = 70
	}
	if cfg.Trend.ReferenceDeltaPriceThreshold == 0 {
		cfg.Trend.ReferenceDeltaPriceThreshold = 70
	}
	if cfg.Trend.PercentileRate == 0 {
		cfg.Trend.PercentileRate = 0.1
	}
}

// Secrets and connection strings may come from the environment instead of the
// config file.
func applyEnvOverrides(cfg *Config) {
	if dsn := os.Getenv("MXTREND_HISTORY_DSN"); dsn != "" {
		cfg.History.DSN = dsn
	}
	if token := os.Getenv("MXTREND_TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if chatID := os.Getenv("MXTREND_TELEGRAM_CHAT_ID"); chatID != "" {
		cfg.Telegram.ChatID = chatID
	}
}

func validate(cfg *Config) error {
	if len(cfg.Strategies) == 0 {
		return errors.New("at least one strategy is required")
	}
	for i, strat := range cfg.Strategies {
		if strat.Target.Exchange == "" || strat.Target.Symbol == "" {
			return fmt.Errorf("strategies[%d]: target exchange and symbol are required", i)
		}
		if strat.Reference.Exchange == "" || strat.Reference.Symbol == "" {
			return fmt.Errorf("strategies[%d]: reference exchange and symbol are required", i)
		}
		if strat.ReferenceDeltaPriceThresholdRate < 0 {
			return fmt.Errorf("strategies[%d]: reference_delta_price_threshold_rate must be >= 0", i)
		}
	}
	if cfg.Trend.PercentileRate <= 0 || cfg.Trend.PercentileRate > 1 {
		return errors.New("trend.percentile_rate must be in (0, 1]")
	}
	if cfg.Trend.WindowPeriod <= 0 {
		return errors.New("trend.window_period must be > 0")
	}
	if cfg.Trend.ResetDelay < 0 {
		return errors.New("trend.reset_delay must be >= 0")
	}
	switch cfg.History.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("history.driver %q is not supported", cfg.History.Driver)
	}
	if cfg.History.Enabled && cfg.History.DSN == "" {
		return errors.New("history.dsn is required when history is enabled")
	}
	return nil
}
