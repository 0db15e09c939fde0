// Package config provides YAML-based configuration management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kylixs/flareon/internal/aggregate"
	"github.com/kylixs/flareon/internal/history"
	"github.com/kylixs/flareon/internal/logging"
	"gopkg.in/yaml.v3"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage"`

	// Processing configuration
	Processing ProcessingConfig `yaml:"processing"`

	// Advanced options
	Advanced AdvancedConfig `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCORS"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// StorageConfig contains trace and data directory settings
type StorageConfig struct {
	TraceDirectory    string `yaml:"traceDirectory"`
	TraceExtension    string `yaml:"traceExtension"`
	DataDirectory     string `yaml:"dataDirectory"`
	HistoryDatabase   string `yaml:"historyDatabase"`
	EnablePersistence bool   `yaml:"enablePersistence"`
}

// ProcessingConfig contains parsing settings
type ProcessingConfig struct {
	MaxConcurrentParses int    `yaml:"maxConcurrentParses"`
	WatchDirectory      bool   `yaml:"watchDirectory"`
	TimeSpanMode        string `yaml:"timeSpanMode"`
	EnableCompression   bool   `yaml:"enableCompression"`
	CompressionLevel    int    `yaml:"compressionLevel"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `yaml:"logLevel"`
	EnableRequestLogging bool   `yaml:"enableRequestLogging"`
	DuckDBThreads        int    `yaml:"duckdbThreads"`
	DuckDBMemoryLimit    string `yaml:"duckdbMemoryLimit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "1M",
		},
		Storage: StorageConfig{
			TraceDirectory:    "./traces",
			TraceExtension:    ".jfr",
			DataDirectory:     "./data",
			HistoryDatabase:   "./data/history.duckdb",
			EnablePersistence: true,
		},
		Processing: ProcessingConfig{
			MaxConcurrentParses: 3,
			WatchDirectory:      true,
			TimeSpanMode:        string(aggregate.SpanFirstLast),
			EnableCompression:   true,
			CompressionLevel:    5,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			DuckDBThreads:        2,
			DuckDBMemoryLimit:    "256MB",
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file is created
// with the defaults.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		// Fields absent from the file keep their defaults
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Flareon Configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that cannot be corrected silently.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Storage.TraceExtension == "" {
		return fmt.Errorf("trace extension must not be empty")
	}
	if _, err := aggregate.ParseSpanMode(c.Processing.TimeSpanMode); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Advanced.LogLevel); err != nil {
		return err
	}
	if err := history.ValidateMemoryLimit(c.Advanced.DuckDBMemoryLimit); err != nil {
		return err
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// TRACE_DIR override
	if traceDir := os.Getenv("TRACE_DIR"); traceDir != "" {
		c.Storage.TraceDirectory = traceDir
	}

	// DATA_DIR override
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}

	// LOG_LEVEL override
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = strings.ToLower(level)
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(configDir, p)
	}
	c.Storage.TraceDirectory = resolve(c.Storage.TraceDirectory)
	c.Storage.DataDirectory = resolve(c.Storage.DataDirectory)
	c.Storage.HistoryDatabase = resolve(c.Storage.HistoryDatabase)
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetSpanMode returns the configured time span mode
func (c *AppConfig) GetSpanMode() aggregate.SpanMode {
	mode, _ := aggregate.ParseSpanMode(c.Processing.TimeSpanMode)
	return mode
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.TraceDirectory,
		c.Storage.DataDirectory,
	}
	if c.Storage.EnablePersistence && c.Storage.HistoryDatabase != "" {
		dirs = append(dirs, filepath.Dir(c.Storage.HistoryDatabase))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
