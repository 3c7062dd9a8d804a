package config

import (
	"bytes"
	"compress/flate"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment variables that override the config file
const EnvPrefix = "LEAN"

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds all application configuration.
type Config struct {
	Addr string `yaml:"addr"`
	Env  string `yaml:"env"`

	// ReadChunkSize is the size of one socket read
	ReadChunkSize int `yaml:"read_chunk_size"`

	// MaxRequestBytes caps request head plus body; 0 disables the limit
	MaxRequestBytes int `yaml:"max_request_bytes"`

	LogRequests bool `yaml:"log_requests"`

	// Metrics enables per-route request metrics
	Metrics bool `yaml:"metrics"`

	Compression CompressionConfig `yaml:"compression"`
	RequestID   RequestIDConfig   `yaml:"request_id"`
}

// CompressionConfig configures response compression
type CompressionConfig struct {
	Enabled   bool `yaml:"enabled"`
	Level     int  `yaml:"level"`
	MinLength int  `yaml:"min_length"`
}

// RequestIDConfig configures request ID propagation
type RequestIDConfig struct {
	Header        string `yaml:"header"`
	TrustIncoming bool   `yaml:"trust_incoming"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Addr:            ":8080",
		Env:             EnvDevelopment,
		ReadChunkSize:   1024,
		MaxRequestBytes: 8 << 20,
		LogRequests:     true,
		Metrics:         true,
		Compression: CompressionConfig{
			Enabled:   true,
			MinLength: 256,
		},
		RequestID: RequestIDConfig{
			Header: "X-Request-ID",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and LEAN_* environment variables, in that order, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := LoadFromEnv(cfg, EnvPrefix, os.Environ()); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}

	return errors.Wrapf(c.Parse(data), "parse config file %s", path)
}

// Parse overlays YAML data onto c. Unknown keys are rejected.
func (c *Config) Parse(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(c); err != nil {
		// an empty document leaves the defaults untouched
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	return nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr must not be empty")
	}

	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return errors.Errorf("config: unknown env %q", c.Env)
	}

	if c.ReadChunkSize <= 0 {
		return errors.Errorf("config: read_chunk_size must be positive, got %d", c.ReadChunkSize)
	}
	if c.MaxRequestBytes < 0 {
		return errors.Errorf("config: max_request_bytes must not be negative, got %d", c.MaxRequestBytes)
	}

	if c.Compression.Level != 0 && (c.Compression.Level < flate.HuffmanOnly || c.Compression.Level > flate.BestCompression) {
		return errors.Errorf("config: compression.level must be in [%d, %d], got %d",
			flate.HuffmanOnly, flate.BestCompression, c.Compression.Level)
	}
	if c.Compression.MinLength < 0 {
		return errors.Errorf("config: compression.min_length must not be negative, got %d", c.Compression.MinLength)
	}

	return nil
}

// IsProduction reports whether the server runs in production
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}
