// Package core provides the shared building blocks of the advisory
// engine: configuration, structured logging, the error taxonomy, and the
// Redis client used by the learning store and rate limiter.
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for the advisory engine.
// Precedence: defaults < environment < config file < functional options.
type Config struct {
	ServiceName string `yaml:"service_name"`
	Port        int    `yaml:"port"`

	// Redis backing the learning store (DB 0) and rate limiter (DB 1)
	RedisURL           string `yaml:"redis_url"`
	LearningNamespace  string `yaml:"learning_namespace"`
	RateLimitNamespace string `yaml:"ratelimit_namespace"`

	// Per-session request limits for advisory queries
	MaxRequestsPerWindow int `yaml:"max_requests_per_hour"`
	RateLimitWindowSecs  int `yaml:"ratelimit_window_seconds"`

	// Country-center fallback used when no location signal resolves
	DefaultLatitude  float64 `yaml:"default_latitude"`
	DefaultLongitude float64 `yaml:"default_longitude"`

	// Optional document retrieval endpoint; empty disables retrieval
	RetrievalURL string `yaml:"retrieval_url"`

	LogLevel         string `yaml:"log_level"`
	TelemetryEnabled bool   `yaml:"telemetry_enabled"`
}

// Option is a functional option for configuring the engine
type Option func(*Config)

// DefaultConfig returns a configuration with sensible defaults.
// These can be overridden by environment variables, a config file, or
// functional options.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:          "krishimitra-advisor",
		Port:                 8080,
		RedisURL:             "redis://localhost:6379",
		LearningNamespace:    "krishi:learning",
		RateLimitNamespace:   "krishi:ratelimit",
		MaxRequestsPerWindow: 5,
		RateLimitWindowSecs:  3600,
		DefaultLatitude:      20.5937,
		DefaultLongitude:     78.9629,
		LogLevel:             "INFO",
		TelemetryEnabled:     false,
	}
}

// NewConfig builds a Config applying defaults, environment, then options
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	cfg.LoadFromEnv()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv applies environment variables onto the config.
// Environment variables take precedence over defaults but are overridden
// by config files and functional options.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("KRISHI_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("KRISHI_REDIS_URL"); v != "" {
		c.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("KRISHI_LEARNING_NAMESPACE"); v != "" {
		c.LearningNamespace = v
	}
	if v := os.Getenv("KRISHI_RATELIMIT_NAMESPACE"); v != "" {
		c.RateLimitNamespace = v
	}
	if v := os.Getenv("KRISHI_MAX_REQUESTS_PER_HOUR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxRequestsPerWindow = n
		}
	}
	if v := os.Getenv("KRISHI_RATELIMIT_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateLimitWindowSecs = n
		}
	}
	if v := os.Getenv("KRISHI_DEFAULT_LATITUDE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.DefaultLatitude = f
		}
	}
	if v := os.Getenv("KRISHI_DEFAULT_LONGITUDE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.DefaultLongitude = f
		}
	}
	if v := os.Getenv("KRISHI_RETRIEVAL_URL"); v != "" {
		c.RetrievalURL = v
	}
	if v := os.Getenv("KRISHI_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("KRISHI_TELEMETRY_ENABLED"); v != "" {
		c.TelemetryEnabled = v == "true" || v == "1"
	}
}

// LoadFromFile merges settings from a YAML config file.
// File settings override environment variables but are overridden by
// functional options.
func (c *Config) LoadFromFile(path string) error {
	ext := filepath.Ext(path)
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file type %q: %w", ext, ErrInvalidConfiguration)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range: %w", c.Port, ErrInvalidConfiguration)
	}
	if c.MaxRequestsPerWindow <= 0 {
		return fmt.Errorf("max requests per window must be positive: %w", ErrInvalidConfiguration)
	}
	if c.RateLimitWindowSecs <= 0 {
		return fmt.Errorf("rate limit window must be positive: %w", ErrInvalidConfiguration)
	}
	if c.DefaultLatitude < -90 || c.DefaultLatitude > 90 {
		return fmt.Errorf("default latitude out of range: %w", ErrInvalidConfiguration)
	}
	if c.DefaultLongitude < -180 || c.DefaultLongitude > 180 {
		return fmt.Errorf("default longitude out of range: %w", ErrInvalidConfiguration)
	}
	return nil
}

// Functional options

// WithRedisURL overrides the Redis connection URL
func WithRedisURL(url string) Option {
	return func(c *Config) { c.RedisURL = url }
}

// WithPort overrides the HTTP listen port
func WithPort(port int) Option {
	return func(c *Config) { c.Port = port }
}

// WithRateLimit overrides the rate-limit window parameters
func WithRateLimit(maxPerWindow, windowSecs int) Option {
	return func(c *Config) {
		c.MaxRequestsPerWindow = maxPerWindow
		c.RateLimitWindowSecs = windowSecs
	}
}

// WithRetrievalURL sets the document retrieval endpoint
func WithRetrievalURL(url string) Option {
	return func(c *Config) { c.RetrievalURL = url }
}

// WithConfigFile merges a YAML file into the config. Load errors are
// surfaced through NewConfig's validation pass.
func WithConfigFile(path string) Option {
	return func(c *Config) { _ = c.LoadFromFile(path) }
}
