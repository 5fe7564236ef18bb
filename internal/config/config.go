package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/kerf-planner/internal/planner"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultJobWorkers     = 2
	defaultJobQueueSize   = 32
	defaultMaxUploadBytes = 10 << 20
	defaultMaxStoredPlans = 100
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	LogLevel             string
	RateLimitRPS         float64
	RateLimitBurst       int

	// Planning holds the default stock parameters used when a request omits them.
	Planning        planner.Params
	RejectOversized bool

	JobWorkers     int
	JobQueueSize   int
	JobRetention   time.Duration
	MaxUploadBytes int64
	MaxStoredPlans int
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	LogLevel             string        `yaml:"log_level"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	Planning             yamlPlanning  `yaml:"planning"`
	Jobs                 yamlJobs      `yaml:"jobs"`
	MaxUploadBytes       int64         `yaml:"max_upload_bytes"`
	MaxStoredPlans       int           `yaml:"max_stored_plans"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// yamlPlanning represents the planning defaults section in YAML.
type yamlPlanning struct {
	StockLength     *float64 `yaml:"stock_length"`
	Kerf            *float64 `yaml:"kerf"`
	Precision       *int     `yaml:"precision"`
	RejectOversized *bool    `yaml:"reject_oversized"`
}

// yamlJobs represents the background job section in YAML.
type yamlJobs struct {
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
	Retention string `yaml:"retention"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	LogLevel       *string
	StockLength    *float64
	Kerf           *float64
	Precision      *int
	RateLimitRPS   *float64
	RateLimitBurst *int
	JobWorkers     *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Environment variables sit just above defaults.
	applyEnvConfig(&cfg)

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         30 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		LogLevel:             "info",
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		Planning:             planner.DefaultParams(),
		JobWorkers:           defaultJobWorkers,
		JobQueueSize:         defaultJobQueueSize,
		JobRetention:         15 * time.Minute,
		MaxUploadBytes:       defaultMaxUploadBytes,
		MaxStoredPlans:       defaultMaxStoredPlans,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	durations := []struct {
		raw    string
		target *time.Duration
		name   string
	}{
		{yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod, "shutdown_grace_period"},
		{yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout, "read_header_timeout"},
		{yamlCfg.WriteTimeout, &cfg.WriteTimeout, "write_timeout"},
		{yamlCfg.IdleTimeout, &cfg.IdleTimeout, "idle_timeout"},
		{yamlCfg.Jobs.Retention, &cfg.JobRetention, "jobs.retention"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.target = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.Planning.StockLength != nil {
		cfg.Planning.Limit = *yamlCfg.Planning.StockLength
	}
	if yamlCfg.Planning.Kerf != nil {
		cfg.Planning.Kerf = *yamlCfg.Planning.Kerf
	}
	if yamlCfg.Planning.Precision != nil {
		cfg.Planning.Precision = *yamlCfg.Planning.Precision
	}
	if yamlCfg.Planning.RejectOversized != nil {
		cfg.RejectOversized = *yamlCfg.Planning.RejectOversized
	}

	if yamlCfg.Jobs.Workers > 0 {
		cfg.JobWorkers = yamlCfg.Jobs.Workers
	}
	if yamlCfg.Jobs.QueueSize > 0 {
		cfg.JobQueueSize = yamlCfg.Jobs.QueueSize
	}
	if yamlCfg.MaxUploadBytes > 0 {
		cfg.MaxUploadBytes = yamlCfg.MaxUploadBytes
	}
	if yamlCfg.MaxStoredPlans > 0 {
		cfg.MaxStoredPlans = yamlCfg.MaxStoredPlans
	}
	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if raw := strings.TrimSpace(os.Getenv("STOCK_LENGTH")); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.Planning.Limit = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("KERF")); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value >= 0 {
			cfg.Planning.Kerf = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("PRECISION")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.Planning.Precision = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("REJECT_OVERSIZED")); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.RejectOversized = value
		}
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if workers := strings.TrimSpace(os.Getenv("JOB_WORKERS")); workers != "" {
		if value, err := strconv.Atoi(workers); err == nil && value > 0 {
			cfg.JobWorkers = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}
	if overrides.StockLength != nil {
		cfg.Planning.Limit = *overrides.StockLength
	}
	if overrides.Kerf != nil {
		cfg.Planning.Kerf = *overrides.Kerf
	}
	if overrides.Precision != nil {
		cfg.Planning.Precision = *overrides.Precision
	}
	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
	if overrides.JobWorkers != nil && *overrides.JobWorkers > 0 {
		cfg.JobWorkers = *overrides.JobWorkers
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if err := planner.ValidateParams(cfg.Planning); err != nil {
		return fmt.Errorf("planning defaults: %w", err)
	}
	if cfg.JobWorkers <= 0 || cfg.JobQueueSize <= 0 {
		return fmt.Errorf("job workers and queue size must be positive")
	}
	return nil
}
