// Package config loads rewind settings from defaults, an optional YAML file,
// REWIND_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/rewind/internal/logging"
)

// Counter backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendHTTP   = "http"
)

// EnvPrefix prefixes every environment override, e.g. REWIND_COUNTER_BACKEND.
const EnvPrefix = "REWIND"

// Config holds application configuration.
type Config struct {
	Addr     string        `mapstructure:"addr"`
	LogLevel string        `mapstructure:"log_level"`
	Journal  JournalConfig `mapstructure:"journal"`
	Effects  EffectsConfig `mapstructure:"effects"`
	Stuff    StuffConfig   `mapstructure:"stuff"`
	Counter  CounterConfig `mapstructure:"counter"`
	Initial  InitialConfig `mapstructure:"initial"`
}

// JournalConfig locates the SQLite dispatch journal. An empty path
// disables journaling.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// EffectsConfig bounds effect execution.
type EffectsConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// StuffConfig shapes the timed stuff load.
type StuffConfig struct {
	Delay time.Duration `mapstructure:"delay"`
	Value string        `mapstructure:"value"`
}

// CounterConfig selects and addresses the counter service.
type CounterConfig struct {
	Backend   string `mapstructure:"backend"`
	ID        string `mapstructure:"id"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisKey  string `mapstructure:"redis_key"`
	URL       string `mapstructure:"url"`
}

// InitialConfig seeds the thing slice.
type InitialConfig struct {
	A int64  `mapstructure:"a"`
	B string `mapstructure:"b"`
}

// FlagKeys maps command-line flag names to config keys. Flags not present
// in the set passed to Load are skipped.
var FlagKeys = map[string]string{
	"addr":            "addr",
	"log-level":       "log_level",
	"journal":         "journal.path",
	"effect-timeout":  "effects.timeout",
	"stuff-delay":     "stuff.delay",
	"counter-backend": "counter.backend",
	"counter-url":     "counter.url",
	"redis-addr":      "counter.redis_addr",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("journal.path", "")
	v.SetDefault("effects.timeout", 30*time.Second)
	v.SetDefault("stuff.delay", time.Second)
	v.SetDefault("stuff.value", "stuff")
	v.SetDefault("counter.backend", BackendMemory)
	v.SetDefault("counter.id", "main")
	v.SetDefault("counter.redis_addr", "localhost:6379")
	v.SetDefault("counter.redis_key", "rewind:counter:")
	v.SetDefault("counter.url", "")
	v.SetDefault("initial.a", 13)
	v.SetDefault("initial.b", "hello")
}

// Load reads configuration. path names a YAML file; when empty, rewind.yaml
// is looked up in the working directory and skipped if absent. flags may
// be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("rewind")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values that viper cannot type-check.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Effects.Timeout < 0 {
		return fmt.Errorf("effects.timeout must not be negative, got %s", c.Effects.Timeout)
	}
	if c.Stuff.Delay < 0 {
		return fmt.Errorf("stuff.delay must not be negative, got %s", c.Stuff.Delay)
	}

	switch c.Counter.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Counter.RedisAddr == "" {
			return errors.New("counter.redis_addr is required for the redis backend")
		}
	case BackendHTTP:
		if c.Counter.URL == "" {
			return errors.New("counter.url is required for the http backend")
		}
	default:
		return fmt.Errorf("invalid counter.backend %q: must be one of %s, %s, %s",
			c.Counter.Backend, BackendMemory, BackendRedis, BackendHTTP)
	}
	return nil
}
