// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the bulk mailer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// defaultMaxMessageSize is 25 MB in bytes.
	defaultMaxMessageSize = 26214400

	defaultTimeout = 30 * time.Second

	appDir = "bulk-mailer"
)

// Config holds the complete application configuration.
type Config struct {
	Profiles   ProfilesConfig   `yaml:"profiles"`
	Recipients RecipientsConfig `yaml:"recipients"`
	Message    MessageConfig    `yaml:"message"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	SES        SESConfig        `yaml:"ses"`
	Graph      GraphConfig      `yaml:"graph"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ProfilesConfig locates the saved server profiles.
type ProfilesConfig struct {
	File string `yaml:"file"`
}

// RecipientsConfig names a recipient file loaded at startup.
type RecipientsConfig struct {
	File string `yaml:"file"`
}

// MessageConfig names a message file loaded at startup and caps message size.
type MessageConfig struct {
	File    string `yaml:"file"`
	MaxSize int64  `yaml:"max_size" validate:"gte=0"`
}

// DispatchConfig selects and tunes the delivery transport.
type DispatchConfig struct {
	Transport     string        `yaml:"transport" validate:"oneof=smtp ses graph stdout"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	HeloName      string        `yaml:"helo_name"`
	TLSSkipVerify bool          `yaml:"tls_skip_verify"`
}

// SESConfig holds AWS SES v2 settings. Empty keys use the default AWS
// credential chain.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// GraphConfig holds Microsoft Graph app registration credentials.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file"`
}

var validate = validator.New()

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field rules, reporting every violation as "field: rule".
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config.")), rule))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
}

// SESConfigured returns true if a region is set for the SES transport.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != ""
}

// GraphConfigured returns true if all three Graph credentials are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != ""
}

// DefaultDir returns the per-user directory for profiles and logs.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "." + appDir
	}
	return filepath.Join(dir, appDir)
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	dir := DefaultDir()
	c.Profiles.File = filepath.Join(dir, "profiles.yaml")
	c.Message.MaxSize = defaultMaxMessageSize
	c.Dispatch.Transport = "smtp"
	c.Dispatch.Timeout = defaultTimeout
	c.Logging.Level = "info"
	c.Logging.File = filepath.Join(dir, "bulk-mailer.log")
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("PROFILES_FILE"); v != "" {
		c.Profiles.File = v
	}
	if v := os.Getenv("RECIPIENTS_FILE"); v != "" {
		c.Recipients.File = v
	}
	if v := os.Getenv("MESSAGE_FILE"); v != "" {
		c.Message.File = v
	}
	if v := os.Getenv("MESSAGE_MAX_SIZE"); v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Message.MaxSize = size
		}
	}

	if v := os.Getenv("DISPATCH_TRANSPORT"); v != "" {
		c.Dispatch.Transport = strings.ToLower(v)
	}
	if v := os.Getenv("DISPATCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Dispatch.Timeout = d
		}
	}
	if v := os.Getenv("HELO_NAME"); v != "" {
		c.Dispatch.HeloName = v
	}
	if v := os.Getenv("TLS_SKIP_VERIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Dispatch.TLSSkipVerify = b
		}
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}

	if v := os.Getenv("GRAPH_TENANT_ID"); v != "" {
		c.Graph.TenantID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_ID"); v != "" {
		c.Graph.ClientID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_SECRET"); v != "" {
		c.Graph.ClientSecret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}
