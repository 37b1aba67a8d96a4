package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "BATCHLEDGER_"

// Config is the runtime configuration of the batchledger binary
type Config struct {
	Store StoreConfig `yaml:"store"`
	Log   LogConfig   `yaml:"log"`
	Trace bool        `yaml:"trace"`
}

// StoreConfig selects and configures the storage backend
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=memory badger mysql"`
	Path   string `yaml:"path" validate:"required_if=Driver badger"`
	DSN    string `yaml:"dsn" validate:"required_if=Driver mysql"`

	// Connection pool settings for the mysql driver
	MaxOpenConns           int `yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns           int `yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime_seconds" validate:"gte=0"`
}

// LogConfig configures the logrus logger
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=panic fatal error warn warning info debug trace"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:                 "badger",
			Path:                   "./batchledger-data",
			MaxOpenConns:           10,
			MaxIdleConns:           5,
			ConnMaxLifetimeSeconds: 300,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads .env (if present), then the YAML file at path (if non-empty),
// then BATCHLEDGER_* environment overrides, and validates the result
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_PATH", &c.Store.Path)
	str("STORE_DSN", &c.Store.DSN)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup(envPrefix + "TRACE"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %sTRACE: %w", envPrefix, err)
		}
		c.Trace = b
	}
	return nil
}

// Validate checks the configuration with struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
