// Package config loads the store configuration from a YAML file with
// environment overrides.
package config

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-yaml/yaml"

	"github.com/goliatone/go-household-store/cache"
)

// Database drivers. DriverMemory keeps everything in process.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Audit sinks.
const (
	SinkLog   = "log"
	SinkKafka = "kafka"
	SinkNone  = "none"
)

// Environment variables that override the file.
const (
	EnvDBDriver             = "HOUSEHOLD_DB_DRIVER"
	EnvDBDSN                = "HOUSEHOLD_DB_DSN"
	EnvEncryptionKey        = "HOUSEHOLD_ENCRYPTION_KEY"
	EnvEncryptionPassphrase = "HOUSEHOLD_ENCRYPTION_PASSPHRASE"
	EnvCacheBackend         = "HOUSEHOLD_CACHE_BACKEND"
	EnvAuditSink            = "HOUSEHOLD_AUDIT_SINK"
	EnvKafkaBrokers         = "HOUSEHOLD_KAFKA_BROKERS"
	EnvLogLevel             = "HOUSEHOLD_LOG_LEVEL"
)

// Config is the full store configuration.
type Config struct {
	Database   Database     `yaml:"database"`
	Cache      cache.Config `yaml:"cache"`
	Encryption Encryption   `yaml:"encryption"`
	Audit      Audit        `yaml:"audit"`
	LogLevel   string       `yaml:"logLevel"`
}

// Database selects the backing store. DSN is ignored by DriverMemory.
type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Encryption configures the field codec. Key is a base64 encoded AES key;
// when it is empty the key is derived from Passphrase and Salt.
type Encryption struct {
	Key        string `yaml:"key"`
	Passphrase string `yaml:"passphrase"`
	Salt       string `yaml:"salt"`
	BcryptCost int    `yaml:"bcryptCost"`
}

// Audit selects where audit entries go and how many may queue.
type Audit struct {
	Sink       string   `yaml:"sink"`
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic"`
	BufferSize int      `yaml:"bufferSize"`
}

// Default returns an in-memory configuration without encryption material.
func Default() Config {
	return Config{
		Database: Database{Driver: DriverMemory},
		Cache:    cache.DefaultConfig(),
		Audit: Audit{
			Sink:       SinkLog,
			Topic:      "household.audit",
			BufferSize: 256,
		},
		LogLevel: "info",
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if cfg, err = Parse(data); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(EnvDBDriver, &c.Database.Driver)
	set(EnvDBDSN, &c.Database.DSN)
	set(EnvEncryptionKey, &c.Encryption.Key)
	set(EnvEncryptionPassphrase, &c.Encryption.Passphrase)
	set(EnvCacheBackend, &c.Cache.Backend)
	set(EnvAuditSink, &c.Audit.Sink)
	set(EnvLogLevel, &c.LogLevel)

	if v, ok := lookup(EnvKafkaBrokers); ok && v != "" {
		c.Audit.Brokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.Audit.Brokers = append(c.Audit.Brokers, b)
			}
		}
	}
}

// Validate reports every invalid section at once.
func (c Config) Validate() error {
	return validation.Errors{
		"database":   c.Database.validate(),
		"cache":      c.Cache.Validate(),
		"encryption": c.Encryption.validate(),
		"audit":      c.Audit.validate(),
		"logLevel":   validation.Validate(strings.ToLower(c.LogLevel), validation.In("", "debug", "info", "warn", "error")),
	}.Filter()
}

func (d Database) validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres, DriverMemory)),
		validation.Field(&d.DSN, validation.When(d.Driver != DriverMemory, validation.Required)),
	)
}

func (e Encryption) validate() error {
	keySet := validation.By(func(any) error {
		if e.Key == "" && e.Passphrase == "" {
			return validation.NewError("validation_key_required", "either key or passphrase is required")
		}
		return nil
	})
	return validation.ValidateStruct(&e,
		validation.Field(&e.Key, keySet, validation.By(func(any) error {
			if e.Key == "" {
				return nil
			}
			_, err := e.KeyBytes()
			return err
		})),
		validation.Field(&e.Salt, validation.When(e.Key == "" && e.Passphrase != "", validation.Required, validation.Length(8, 0))),
		validation.Field(&e.BcryptCost, validation.When(e.BcryptCost != 0, validation.Min(4), validation.Max(31))),
	)
}

// KeyBytes decodes Key.
func (e Encryption) KeyBytes() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(e.Key)
	if err != nil {
		return nil, validation.NewError("validation_key_encoding", "must be base64 encoded")
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	}
	return nil, validation.NewError("validation_key_length", "must decode to 16, 24 or 32 bytes")
}

func (a Audit) validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Sink, validation.In(SinkLog, SinkKafka, SinkNone)),
		validation.Field(&a.Brokers, validation.When(a.Sink == SinkKafka, validation.Required)),
		validation.Field(&a.Topic, validation.When(a.Sink == SinkKafka, validation.Required)),
		validation.Field(&a.BufferSize, validation.Min(0)),
	)
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// String renders the configuration with secrets masked.
func (c Config) String() string {
	masked := c
	if masked.Encryption.Key != "" {
		masked.Encryption.Key = "***"
	}
	if masked.Encryption.Passphrase != "" {
		masked.Encryption.Passphrase = "***"
	}
	if masked.Database.DSN != "" && masked.Database.Driver == DriverPostgres {
		masked.Database.DSN = "***"
	}
	out, err := yaml.Marshal(masked)
	if err != nil {
		return "config: " + strconv.Quote(err.Error())
	}
	return string(out)
}
