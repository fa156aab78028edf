// Package config loads the gqlengine configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Schema  SchemaConfig  `yaml:"schema"`
	Data    DataConfig    `yaml:"data"`
	Engine  EngineConfig  `yaml:"engine"`
	Otel    OtelConfig    `yaml:"otel"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
	Pretty  bool          `yaml:"pretty"`
	// MaxBodyBytes limits POST bodies. 0 means no limit.
	MaxBodyBytes int64 `yaml:"maxBodyBytes"`
	// CORS lists allowed origins; "*" allows any.
	CORS []string `yaml:"cors"`
	// MetadataHeaders are HTTP headers forwarded as outgoing gRPC metadata.
	MetadataHeaders []string `yaml:"metadataHeaders"`
	GraphiQL        bool     `yaml:"graphiql"`
	Gzip            bool     `yaml:"gzip"`
}

// SchemaConfig points at the SDL files.
type SchemaConfig struct {
	Paths []string `yaml:"paths"`
	// Watch rebuilds the schema when one of the files changes.
	Watch bool `yaml:"watch"`
}

// DataConfig points at the YAML or JSON document used as root value.
type DataConfig struct {
	Path string `yaml:"path"`
}

type EngineConfig struct {
	CacheSize     int64 `yaml:"cacheSize"`
	Concurrency   int   `yaml:"concurrency"`
	Introspection bool  `yaml:"introspection"`
}

// OtelConfig configures tracing. An empty endpoint disables it.
type OtelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

// MetricsConfig configures the Prometheus listener. An empty addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     ":8080",
			Timeout:  10 * time.Second,
			GraphiQL: true,
		},
		Engine: EngineConfig{
			CacheSize:     1000,
			Concurrency:   1,
			Introspection: true,
		},
		Otel: OtelConfig{Service: "gqlengine"},
		Log:  LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative")
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.maxBodyBytes must not be negative")
	}
	if c.Engine.CacheSize < 0 {
		return fmt.Errorf("engine.cacheSize must not be negative")
	}
	if c.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be at least 1")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
