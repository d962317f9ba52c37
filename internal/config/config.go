package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type SynthesisConfig struct {
	Mode            string `yaml:"mode"` // edge, exec, mock
	Command         string `yaml:"command"`
	Voice           string `yaml:"voice"`
	Rate            string `yaml:"rate"`
	Volume          string `yaml:"volume"`
	Pitch           string `yaml:"pitch"`
	ConnectTimeoutS int    `yaml:"connect_timeout_s"`
	ReceiveTimeoutS int    `yaml:"receive_timeout_s"`
}

type VoicesConfig struct {
	LocalePrefix string `yaml:"locale_prefix"`
}

type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxRecords    int    `yaml:"max_records"`
}

type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

// Config is built once per invocation from defaults, an optional YAML file,
// PAPERVOICE_* environment overrides, and CLI flags. Never mutated afterwards.
type Config struct {
	// InputPath and OutputPath come from the command line, not the file.
	InputPath  string `yaml:"-"`
	OutputPath string `yaml:"-"`

	Synthesis SynthesisConfig `yaml:"synthesis"`
	Voices    VoicesConfig    `yaml:"voices"`
	History   HistoryConfig   `yaml:"history"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

func Default() Config {
	return Config{
		Synthesis: SynthesisConfig{
			Mode:            "edge",
			Voice:           "es-MX-DaliaNeural",
			Rate:            "-15%",
			Volume:          "+0%",
			Pitch:           "+0Hz",
			ConnectTimeoutS: 10,
			ReceiveTimeoutS: 60,
		},
		Voices: VoicesConfig{
			LocalePrefix: "es-",
		},
		History: HistoryConfig{
			Enabled:       true,
			Path:          defaultHistoryPath(),
			RetentionDays: 90,
			MaxRecords:    1000,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			LogLevel:     "info",
			OTLPInsecure: true,
		},
	}
}

func defaultHistoryPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "papervoice", "history.db")
	}
	return "./papervoice-history.db"
}

// Load builds the configuration. An empty path skips the file and returns
// defaults plus environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ConnectTimeout returns the connect-phase timeout as a duration.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Synthesis.ConnectTimeoutS) * time.Second
}

// ReceiveTimeout returns the receive-phase timeout as a duration.
func (c Config) ReceiveTimeout() time.Duration {
	return time.Duration(c.Synthesis.ReceiveTimeoutS) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Synthesis.Mode, "PAPERVOICE_SYNTHESIS_MODE")
	overrideString(&cfg.Synthesis.Command, "PAPERVOICE_SYNTHESIS_COMMAND")
	overrideString(&cfg.Synthesis.Voice, "PAPERVOICE_VOICE")
	overrideString(&cfg.Synthesis.Rate, "PAPERVOICE_RATE")
	overrideString(&cfg.Synthesis.Volume, "PAPERVOICE_VOLUME")
	overrideString(&cfg.Synthesis.Pitch, "PAPERVOICE_PITCH")
	overrideInt(&cfg.Synthesis.ConnectTimeoutS, "PAPERVOICE_CONNECT_TIMEOUT_S")
	overrideInt(&cfg.Synthesis.ReceiveTimeoutS, "PAPERVOICE_RECEIVE_TIMEOUT_S")
	overrideString(&cfg.Voices.LocalePrefix, "PAPERVOICE_LOCALE_PREFIX")
	overrideBool(&cfg.History.Enabled, "PAPERVOICE_HISTORY_ENABLED")
	overrideString(&cfg.History.Path, "PAPERVOICE_HISTORY_PATH")
	overrideInt(&cfg.History.RetentionDays, "PAPERVOICE_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxRecords, "PAPERVOICE_HISTORY_MAX_RECORDS")
	overrideBool(&cfg.Telemetry.Enabled, "PAPERVOICE_TELEMETRY_ENABLED")
	overrideString(&cfg.Telemetry.LogLevel, "PAPERVOICE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "PAPERVOICE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "PAPERVOICE_TELEMETRY_OTLP_INSECURE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	switch cfg.Synthesis.Mode {
	case "edge", "exec", "mock":
		// ok
	default:
		return errors.New("synthesis.mode must be one of edge|exec|mock")
	}
	if cfg.Synthesis.Mode == "exec" && cfg.Synthesis.Command == "" {
		return errors.New("synthesis.command must be set when mode=exec")
	}
	if cfg.Synthesis.Voice == "" {
		return errors.New("synthesis.voice must not be empty")
	}
	if cfg.Synthesis.ConnectTimeoutS <= 0 {
		return errors.New("synthesis.connect_timeout_s must be positive")
	}
	if cfg.Synthesis.ReceiveTimeoutS <= 0 {
		return errors.New("synthesis.receive_timeout_s must be positive")
	}
	if cfg.Voices.LocalePrefix == "" {
		return errors.New("voices.locale_prefix must not be empty")
	}
	if cfg.History.Enabled {
		if cfg.History.Path == "" {
			return errors.New("history.path must not be empty when history is enabled")
		}
		if cfg.History.RetentionDays < 0 {
			return errors.New("history.retention_days must be >= 0")
		}
		if cfg.History.MaxRecords < 0 {
			return errors.New("history.max_records must be >= 0")
		}
	}
	return nil
}
