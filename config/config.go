/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/suparena/ddbquery/errors"
)

// Environment variables that override file settings.
const (
	EnvRegion    = "AWS_REGION"
	EnvAccessKey = "AWS_ACCESS_KEY_ID"
	EnvSecretKey = "AWS_SECRET_ACCESS_KEY"
	EnvEndpoint  = "DDBQUERY_ENDPOINT"
	EnvLogLevel  = "DDBQUERY_LOG_LEVEL"
)

// Config is the root configuration.
type Config struct {
	AWS       AWSConfig     `yaml:"aws"`
	Logging   LoggingConfig `yaml:"logging"`
	Retry     RetryConfig   `yaml:"retry"`
	BatchSize int32         `yaml:"batchSize" validate:"gte=0"`
	Tables    []TableConfig `yaml:"tables" validate:"unique=Name,dive"`
}

// AWSConfig holds connection settings for the DynamoDB client.
type AWSConfig struct {
	Region          string `yaml:"region" validate:"required"`
	Endpoint        string `yaml:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey" validate:"required_with=AccessKeyID"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format  string `yaml:"format" validate:"omitempty,oneof=json console"`
}

// RetryConfig controls retries of throttled reads.
type RetryConfig struct {
	MaxRetries int    `yaml:"maxRetries" validate:"gte=0,lte=20"`
	Backoff    string `yaml:"backoff"`

	backoff time.Duration
}

// BackoffDuration returns the parsed backoff. It is valid after Validate.
func (r RetryConfig) BackoffDuration() time.Duration {
	return r.backoff
}

// TableConfig declares a table and its secondary indexes.
type TableConfig struct {
	Name     string        `yaml:"name" validate:"required"`
	HashKey  KeyConfig     `yaml:"hashKey"`
	RangeKey *KeyConfig    `yaml:"rangeKey"`
	Indexes  []IndexConfig `yaml:"indexes" validate:"unique=Name,dive"`
}

// IndexConfig declares a secondary index.
type IndexConfig struct {
	Name     string     `yaml:"name" validate:"required"`
	HashKey  KeyConfig  `yaml:"hashKey"`
	RangeKey *KeyConfig `yaml:"rangeKey"`
}

// KeyConfig names a key attribute and its scalar type (string, number or binary).
type KeyConfig struct {
	Name string `yaml:"name" validate:"required"`
	Type string `yaml:"type" validate:"required"`
}

// Default returns a configuration with every optional field filled in.
func Default() *Config {
	return &Config{
		AWS: AWSConfig{Region: "us-east-1"},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Format:  "json",
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			Backoff:    "100ms",
		},
	}
}

// Load reads the YAML file at path over the defaults. Variables from a .env
// file in the working directory are loaded first when one exists, then
// environment overrides are applied and the result is validated. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, applies environment overrides and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.NewValidationError("config", err.Error())
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&c.AWS.Region, EnvRegion)
	override(&c.AWS.AccessKeyID, EnvAccessKey)
	override(&c.AWS.SecretAccessKey, EnvSecretKey)
	override(&c.AWS.Endpoint, EnvEndpoint)
	override(&c.Logging.Level, EnvLogLevel)
}

var validate = validator.New()

// Validate checks field constraints and parses the retry backoff.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.NewValidationError(fe.Namespace(), fmt.Sprintf("failed on %q", fe.Tag()))
		}
		return errors.NewValidationError("config", err.Error())
	}

	c.Retry.backoff = 0
	if c.Retry.Backoff != "" {
		d, err := strfmt.ParseDuration(c.Retry.Backoff)
		if err != nil {
			return errors.NewValidationError("Config.Retry.Backoff", err.Error())
		}
		if d < 0 {
			return errors.NewValidationError("Config.Retry.Backoff", "must not be negative")
		}
		c.Retry.backoff = d
	}
	return nil
}

// Table returns the declaration of the named table.
func (c *Config) Table(name string) (TableConfig, bool) {
	for _, t := range c.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableConfig{}, false
}
