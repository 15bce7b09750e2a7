// Package config provides YAML-based configuration with full defaults so the
// server runs with no config file at all.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Queue      QueueConfig      `yaml:"queue"`
	Processing ProcessingConfig `yaml:"processing"`
	Advanced   AdvancedConfig   `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCors"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// QueueConfig contains the batch queue limits. These are fixed constants for
// the lifetime of the process, exposed to the views for display.
type QueueConfig struct {
	MaxFiles           int   `yaml:"maxFiles"`
	MaxFileSizeMB      int64 `yaml:"maxFileSizeMb"`
	MaxConcurrent      int   `yaml:"maxConcurrent"`
	FileTimeoutSeconds int   `yaml:"fileTimeoutSeconds"`
}

// ProcessingConfig points at the external diagnostics endpoint.
type ProcessingConfig struct {
	Endpoint              string `yaml:"endpoint"`
	RequestTimeoutSeconds int    `yaml:"requestTimeoutSeconds"`
}

// AdvancedConfig contains tuning options.
type AdvancedConfig struct {
	EnableRequestLogging bool `yaml:"enableRequestLogging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "512M",
		},
		Queue: QueueConfig{
			MaxFiles:           10,
			MaxFileSizeMB:      25,
			MaxConcurrent:      3,
			FileTimeoutSeconds: 120,
		},
		Processing: ProcessingConfig{
			Endpoint:              "http://localhost:9000",
			RequestTimeoutSeconds: 120,
		},
		Advanced: AdvancedConfig{
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig reads the YAML config at path, falling back to defaults when the
// file does not exist. Values absent from the file keep their defaults.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Queue.MaxFiles <= 0 {
		return fmt.Errorf("queue.maxFiles must be positive")
	}
	if c.Queue.MaxFileSizeMB <= 0 {
		return fmt.Errorf("queue.maxFileSizeMb must be positive")
	}
	if c.Queue.MaxConcurrent <= 0 {
		return fmt.Errorf("queue.maxConcurrent must be positive")
	}
	if c.Processing.Endpoint == "" {
		return fmt.Errorf("processing.endpoint is required")
	}
	return nil
}

// MaxFileSizeBytes returns the per-file byte ceiling.
func (c *AppConfig) MaxFileSizeBytes() int64 {
	return c.Queue.MaxFileSizeMB * 1024 * 1024
}

// GetServerAddr returns the listen address.
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}
