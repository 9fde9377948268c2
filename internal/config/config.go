// Package config loads the tap configuration from a JSON or YAML file,
// falling back to environment variables (populated from .env in main.go)
// for keys the file leaves empty.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BartekS5/tap-netsuite/pkg/database"
	"github.com/BartekS5/tap-netsuite/pkg/utils"
)

// EnvPrefix is prepended to the upper-cased key name for env fallbacks.
const EnvPrefix = "TAP_NETSUITE_"

const (
	SourceNetSuite = "netsuite"
	SourceFixture  = "fixture"
)

const (
	LoaderMongo = "mongo"
	LoaderSQL   = "sql"
	LoaderCSV   = "csv"
)

// ConfigError reports a missing or invalid configuration key.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("config: missing required key '%s'", e.Key)
	}
	return fmt.Sprintf("config: invalid '%s': %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoaderConfig declares one sink the engine hands records to after each stream.
type LoaderConfig struct {
	Type        string `json:"type" yaml:"type"`
	URI         string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Database    string `json:"database,omitempty" yaml:"database,omitempty"`
	Driver      string `json:"driver,omitempty" yaml:"driver,omitempty"`
	DSN         string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	TablePrefix string `json:"table_prefix,omitempty" yaml:"table_prefix,omitempty"`
	Dir         string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Config holds all settings for a run.
type Config struct {
	StartDate      string `json:"start_date" yaml:"start_date"`
	Username       string `json:"username" yaml:"username"`
	Password       string `json:"password" yaml:"password"`
	ConsumerKey    string `json:"consumer_key" yaml:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret" yaml:"consumer_secret"`
	Token          string `json:"token" yaml:"token"`
	TokenSecret    string `json:"token_secret" yaml:"token_secret"`

	AccountID   string         `json:"account_id,omitempty" yaml:"account_id,omitempty"`
	BaseURL     string         `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Source      string         `json:"source,omitempty" yaml:"source,omitempty"`
	FixturePath string         `json:"fixture_path,omitempty" yaml:"fixture_path,omitempty"`
	LogLevel    string         `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	Loaders     []LoaderConfig `json:"loaders,omitempty" yaml:"loaders,omitempty"`
}

// RequiredKeys are the keys every configuration must provide.
var RequiredKeys = []string{
	"start_date", "username", "password",
	"consumer_key", "consumer_secret", "token", "token_secret",
}

// LoadConfig reads the file at path. Files ending in .yaml or .yml are
// parsed as YAML, anything else as JSON.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}

	cfg, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration document, applies environment fallbacks
// and defaults, and validates the result.
func Parse(data []byte, format string) (*Config, error) {
	var cfg Config
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) fields() map[string]*string {
	return map[string]*string{
		"start_date":      &c.StartDate,
		"username":        &c.Username,
		"password":        &c.Password,
		"consumer_key":    &c.ConsumerKey,
		"consumer_secret": &c.ConsumerSecret,
		"token":           &c.Token,
		"token_secret":    &c.TokenSecret,
		"account_id":      &c.AccountID,
		"base_url":        &c.BaseURL,
		"source":          &c.Source,
		"fixture_path":    &c.FixturePath,
		"log_level":       &c.LogLevel,
	}
}

func (c *Config) applyEnv() {
	for key, ptr := range c.fields() {
		if *ptr != "" {
			continue
		}
		*ptr = os.Getenv(EnvPrefix + strings.ToUpper(key))
	}

	for i := range c.Loaders {
		l := &c.Loaders[i]
		switch l.Type {
		case LoaderMongo:
			if l.URI == "" {
				l.URI = os.Getenv("MONGO_CONNECTION_STRING")
			}
		case LoaderSQL:
			if l.DSN == "" {
				l.DSN = os.Getenv("SQL_CONNECTION_STRING")
			}
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Source == "" {
		c.Source = SourceNetSuite
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks required keys, the start date format and loader settings.
func (c *Config) Validate() error {
	fields := c.fields()
	for _, key := range RequiredKeys {
		if *fields[key] == "" {
			return &ConfigError{Key: key}
		}
	}
	if _, err := utils.ParseWireTime(c.StartDate); err != nil {
		return &ConfigError{Key: "start_date", Err: err}
	}

	switch c.Source {
	case SourceNetSuite:
		if c.AccountID == "" && c.BaseURL == "" {
			return &ConfigError{Key: "account_id"}
		}
	case SourceFixture:
	default:
		return &ConfigError{Key: "source", Err: fmt.Errorf("unknown source %q", c.Source)}
	}

	for i, l := range c.Loaders {
		if err := l.validate(); err != nil {
			return &ConfigError{Key: fmt.Sprintf("loaders[%d]", i), Err: err}
		}
	}
	return nil
}

func (l LoaderConfig) validate() error {
	switch l.Type {
	case LoaderMongo:
		if l.URI == "" || l.Database == "" {
			return fmt.Errorf("mongo loader needs uri and database")
		}
	case LoaderSQL:
		if !database.SupportedDriver(l.Driver) {
			return fmt.Errorf("unsupported driver %q (want one of %s)", l.Driver, strings.Join(database.Drivers, ", "))
		}
		if l.DSN == "" {
			return fmt.Errorf("sql loader needs dsn")
		}
	case LoaderCSV:
		if l.Dir == "" {
			return fmt.Errorf("csv loader needs dir")
		}
	default:
		return fmt.Errorf("unknown loader type %q", l.Type)
	}
	return nil
}
