// Package config loads report service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the process-wide settings of reportd and reportctl.
type Config struct {
	Port         string        `yaml:"port"`
	LogLevel     string        `yaml:"logLevel"`
	LogFormat    string        `yaml:"logFormat"`
	DatabaseURL  string        `yaml:"databaseUrl"`
	RedisAddr    string        `yaml:"redisAddr"`
	AnalyticsURL string        `yaml:"analyticsUrl"`
	AnalyticsKey string        `yaml:"analyticsKey"`
	ChartTTL     time.Duration `yaml:"chartTtl"`
	HistoryLimit int           `yaml:"historyLimit"`
	Source       string        `yaml:"-"`
}

// Load reads .env files (".env" when none are given, missing files are
// skipped), then REPORTS_* variables, then the YAML file named by
// REPORTS_CONFIG_FILE. Later sources win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", file, err)
		}
	}

	cfg := &Config{
		Port:         getEnv("REPORTS_PORT", "8080"),
		LogLevel:     getEnv("REPORTS_LOG_LEVEL", "info"),
		LogFormat:    getEnv("REPORTS_LOG_FORMAT", "json"),
		DatabaseURL:  getEnv("REPORTS_DATABASE_URL", ""),
		RedisAddr:    getEnv("REPORTS_REDIS_ADDR", ""),
		AnalyticsURL: getEnv("REPORTS_ANALYTICS_URL", ""),
		AnalyticsKey: getEnv("REPORTS_ANALYTICS_KEY", ""),
	}

	ttl, err := time.ParseDuration(getEnv("REPORTS_CHART_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("config: REPORTS_CHART_TTL: %w", err)
	}
	cfg.ChartTTL = ttl

	limit, err := strconv.Atoi(getEnv("REPORTS_HISTORY_LIMIT", "50"))
	if err != nil {
		return nil, fmt.Errorf("config: REPORTS_HISTORY_LIMIT: %w", err)
	}
	cfg.HistoryLimit = limit

	if path := os.Getenv("REPORTS_CONFIG_FILE"); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	c.Source = path
	return nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: port is required")
	}
	if c.ChartTTL < 0 {
		return fmt.Errorf("config: chart ttl must not be negative")
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("config: history limit must be at least 1")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
