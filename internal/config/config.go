// Package config handles formfill configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/formfill/autofill"
)

// Config is the top-level formfill configuration.
type Config struct {
	DBPath      string        `yaml:"db_path"`
	Retry       RetryConfig   `yaml:"retry"`
	Frames      FramesConfig  `yaml:"frames"`
	Browser     BrowserConfig `yaml:"browser"`
	PassTimeout time.Duration `yaml:"pass_timeout"`
	HTTP        HTTPConfig    `yaml:"http"`
}

// RetryConfig controls the readiness loop.
type RetryConfig struct {
	Threshold   int           `yaml:"threshold"`
	MaxAttempts int           `yaml:"max_attempts"`
	Settle      time.Duration `yaml:"settle"` // quiet period that ends a pass short of the threshold
}

// FramesConfig controls frame traversal.
type FramesConfig struct {
	Enabled  *bool `yaml:"enabled"`
	MaxDepth int   `yaml:"max_depth"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`            // ws:// of a running Chrome; empty launches one
	Stealth          string        `yaml:"stealth"`           // headless | headful
	ResourceBlocking []string      `yaml:"resource_blocking"` // image, font, media, stylesheet
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
}

// HTTPConfig controls the trigger server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "formfill.db"
	}
	if c.Retry.Threshold <= 0 {
		c.Retry.Threshold = 3
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 10
	}
	if c.Retry.Settle <= 0 {
		c.Retry.Settle = time.Second
	}
	if c.Frames.Enabled == nil {
		on := true
		c.Frames.Enabled = &on
	}
	if c.Frames.MaxDepth <= 0 {
		c.Frames.MaxDepth = 4
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if c.PassTimeout <= 0 {
		c.PassTimeout = 30 * time.Second
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8088"
	}
}

// Engine returns the autofill engine configuration.
func (c *Config) Engine() autofill.Config {
	return autofill.Config{
		Threshold:     c.Retry.Threshold,
		MaxAttempts:   c.Retry.MaxAttempts,
		Settle:        c.Retry.Settle,
		Frames:        c.Frames.Enabled == nil || *c.Frames.Enabled,
		MaxFrameDepth: c.Frames.MaxDepth,
	}
}
