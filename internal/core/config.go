package core

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Database struct {
	Type             string        `yaml:"type"`
	ConnectionString string        `yaml:"connectionString"`
	TTL              time.Duration `yaml:"ttl"`
}

type Sampler struct {
	Enabled bool `yaml:"enabled"`
}

// Clipboard selects where copied values go: "browser" hands them to the page,
// "system" writes the clipboard of the host running the server.
type Clipboard struct {
	Type string `yaml:"type"`
}

type Image struct {
	MaxUploadBytes    int64 `yaml:"maxUploadBytes"`
	MaxPixels         int64 `yaml:"maxPixels"`
	SVGFallbackWidth  int   `yaml:"svgFallbackWidth"`
	SVGFallbackHeight int   `yaml:"svgFallbackHeight"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type ServiceConfig struct {
	Port      int       `yaml:"port"`
	Database  Database  `yaml:"database"`
	Sampler   Sampler   `yaml:"sampler"`
	Clipboard Clipboard `yaml:"clipboard"`
	Image     Image     `yaml:"image"`
	Logging   Logging   `yaml:"logging"`
}

// DefaultConfig is used for every key missing from the config file
func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Port: 8080,
		Database: Database{
			Type: "memory",
			TTL:  time.Hour,
		},
		Sampler:   Sampler{Enabled: true},
		Clipboard: Clipboard{Type: "browser"},
		Image: Image{
			MaxUploadBytes:    20 << 20,
			MaxPixels:         40_000_000,
			SVGFallbackWidth:  800,
			SVGFallbackHeight: 600,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from the specified YAML file. A missing
// file yields the defaults.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	config := DefaultConfig()

	// Read the config file
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config file not found; using defaults", "path", configPath)
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML over the defaults
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *ServiceConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}

	switch c.Database.Type {
	case "", "memory":
	case "sqlite", "redis":
		if c.Database.ConnectionString == "" {
			return fmt.Errorf("database type %s requires a connectionString", c.Database.Type)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.TTL < 0 {
		return fmt.Errorf("database ttl must not be negative, got %s", c.Database.TTL)
	}

	switch c.Clipboard.Type {
	case "", "browser", "system":
	default:
		return fmt.Errorf("unsupported clipboard type: %s", c.Clipboard.Type)
	}

	if c.Image.MaxUploadBytes < 0 {
		return fmt.Errorf("image maxUploadBytes must not be negative, got %d", c.Image.MaxUploadBytes)
	}
	if c.Image.MaxPixels < 0 {
		return fmt.Errorf("image maxPixels must not be negative, got %d", c.Image.MaxPixels)
	}
	if c.Image.SVGFallbackWidth < 0 || c.Image.SVGFallbackHeight < 0 {
		return fmt.Errorf("svg fallback size must not be negative, got %dx%d",
			c.Image.SVGFallbackWidth, c.Image.SVGFallbackHeight)
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported logging format: %s", c.Logging.Format)
	}

	return nil
}
