// Package config loads the YAML configuration shared by every subcommand.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultPath is read when no --config flag is given. A missing default file
// is not an error.
const DefaultPath = "config.yaml"

// Config mirrors config.yaml.
type Config struct {
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	HTTP struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	ML struct {
		MaxTreeDepth int     `yaml:"max_tree_depth"`
		TestRatio    float64 `yaml:"test_ratio"`
		Seed         int64   `yaml:"seed"`
		ModelDir     string  `yaml:"model_dir"`
	} `yaml:"ml"`
	Serve struct {
		Models map[string]string `yaml:"models"`
		Active string            `yaml:"active"`
		Watch  bool              `yaml:"watch"`
	} `yaml:"serve"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	c := &Config{}
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 100
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	c.Database.Path = "data/langclass.db"
	c.HTTP.Port = 8080
	c.HTTP.Timeout = 30 * time.Second
	c.HTTP.AllowedOrigins = []string{"*"}
	c.HTTP.MaxBodyBytes = 10 << 20
	c.ML.MaxTreeDepth = 10
	c.ML.Seed = 1
	c.ML.ModelDir = "models"
	c.Cache.Size = 4096
	return c
}

// Load reads path over the defaults. When explicit is false a missing file
// yields the defaults.
func Load(path string, explicit bool) (*Config, error) {
	c := Default()
	file, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate reports the first setting that cannot be served.
func (c *Config) Validate() error {
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if c.ML.TestRatio < 0 || c.ML.TestRatio >= 1 {
		return fmt.Errorf("ml.test_ratio %v must be in [0, 1)", c.ML.TestRatio)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size %d must not be negative", c.Cache.Size)
	}
	if c.Serve.Active != "" && len(c.Serve.Models) > 0 {
		if _, ok := c.Serve.Models[c.Serve.Active]; !ok {
			return fmt.Errorf("serve.active %q is not listed in serve.models", c.Serve.Active)
		}
	}
	return nil
}
