// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

// Package config loads server configuration from file, environment, and flags.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Backend selectors for the credential store.
const (
	BackendMemory  = "memory"
	BackendRedis   = "redis"
	BackendMongoDB = "mongodb"
)

// envPrefix is the prefix for environment variable overrides.
// Double underscore separates key segments: GEEKCRAFT_AUTH__BACKEND=redis.
const envPrefix = "GEEKCRAFT_"

// Config holds the full server configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Metrics MetricsConfig `koanf:"metrics"`
	Auth    AuthConfig    `koanf:"auth"`
	Redis   RedisConfig   `koanf:"redis"`
	Mongo   MongoConfig   `koanf:"mongo"`
	Game    GameConfig    `koanf:"game"`
	Log     LogConfig     `koanf:"log"`
}

// ServerConfig configures the public HTTP/WebSocket listener.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig configures the observability listener.
// An empty Addr disables the listener.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// AuthConfig selects the credential store backend.
type AuthConfig struct {
	Backend string `koanf:"backend"`
}

// RedisConfig configures the Redis credential store.
type RedisConfig struct {
	URL string `koanf:"url"`
}

// MongoConfig configures the MongoDB credential store.
type MongoConfig struct {
	URL      string `koanf:"url"`
	Database string `koanf:"database"`
}

// GameConfig configures the game world and campaign persistence.
type GameConfig struct {
	SaveDir  string `koanf:"save_dir"`
	TickRate int    `koanf:"tick_rate"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Format string `koanf:"format"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":3030"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Auth:    AuthConfig{Backend: BackendMemory},
		Redis:   RedisConfig{URL: "redis://127.0.0.1:6379"},
		Mongo:   MongoConfig{URL: "mongodb://127.0.0.1:27017", Database: "geekcraft"},
		Game:    GameConfig{SaveDir: "./saves", TickRate: 60},
		Log:     LogConfig{Format: "json"},
	}
}

// Load builds the configuration by layering, in increasing precedence:
// defaults, the optional YAML file at path, GEEKCRAFT_* environment
// variables, and the given flag set (flags that were actually set).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_LOAD_FAILED").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAG_LOAD_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	switch c.Auth.Backend {
	case BackendMemory, BackendRedis, BackendMongoDB:
	default:
		return oops.Code("CONFIG_INVALID_BACKEND").
			With("backend", c.Auth.Backend).
			Errorf("auth.backend must be one of %q, %q, %q", BackendMemory, BackendRedis, BackendMongoDB)
	}

	if c.Auth.Backend == BackendRedis && c.Redis.URL == "" {
		return oops.Code("CONFIG_MISSING_REDIS_URL").Errorf("redis.url is required when auth.backend is %q", BackendRedis)
	}
	if c.Auth.Backend == BackendMongoDB && c.Mongo.URL == "" {
		return oops.Code("CONFIG_MISSING_MONGO_URL").Errorf("mongo.url is required when auth.backend is %q", BackendMongoDB)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID_LOG_FORMAT").
			With("format", c.Log.Format).
			Errorf("log.format must be 'json' or 'text'")
	}

	if c.Game.TickRate <= 0 {
		return oops.Code("CONFIG_INVALID_TICK_RATE").
			With("tick_rate", c.Game.TickRate).
			Errorf("game.tick_rate must be positive")
	}

	if c.Server.Addr == "" {
		return oops.Code("CONFIG_MISSING_ADDR").Errorf("server.addr is required")
	}
	return nil
}
