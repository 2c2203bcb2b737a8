// Package config loads coa settings from a YAML file, .env and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// CoA backend
	APIURL  string        `yaml:"api_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`

	// Progress tracking
	Store        string        `yaml:"store"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PollStep     int           `yaml:"poll_step"`
	MaxFailures  int           `yaml:"max_failures"`

	// Local server
	Addr string `yaml:"addr"`
	Port int    `yaml:"port"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
	Level    string     `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		APIURL:       "http://localhost:8080",
		Timeout:      30 * time.Second,
		PollInterval: time.Second,
		PollStep:     10,
		MaxFailures:  5,
		Addr:         "127.0.0.1",
		Port:         6142,
		LogFile:      filepath.Join(os.TempDir(), "coa.log"),
		LogLevel:     slog.LevelInfo,
		Level:        "INFO",
	}
}

// DefaultPath is $XDG_CONFIG_HOME/coa/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "coa", "config.yaml")
}

// Load layers defaults, the YAML file at path, a .env file in the working
// directory and the environment. A missing file at the default path is not
// an error; a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}

	cfg.LogLevel = ParseLogLevel(cfg.Level)
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	c.APIURL = getEnv("COA_API_URL", c.APIURL)
	c.Token = getEnv("COA_TOKEN", c.Token)
	c.Store = getEnv("COA_STORE", c.Store)
	c.Addr = getEnv("COA_ADDR", c.Addr)
	c.LogFile = getEnv("COA_LOG_FILE", c.LogFile)
	c.Level = getEnv("COA_LOG_LEVEL", c.Level)

	if v := os.Getenv("COA_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COA_POLL_INTERVAL: %w", err)
		}
		c.PollInterval = d
	}
	if v := os.Getenv("COA_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COA_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("COA_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COA_PORT: %w", err)
		}
		c.Port = p
	}
	return nil
}

// Validate rejects settings the rest of the program cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("api_url is required"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.PollStep <= 0 || c.PollStep > 100 {
		errs = append(errs, fmt.Errorf("poll_step must be in 1..100, got %d", c.PollStep))
	}
	if c.MaxFailures < 1 {
		errs = append(errs, fmt.Errorf("max_failures must be at least 1, got %d", c.MaxFailures))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// ParseLogLevel maps DEBUG/INFO/WARN/ERROR to slog levels, defaulting to INFO.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
