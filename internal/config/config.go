// Package config provides environment-variable-first configuration loading
// with optional YAML file and .env fallbacks.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names accepted by Config.Provider.
const (
	ProviderWorker = "worker"
	ProviderStdout = "stdout"
	ProviderSES    = "ses"
	ProviderGraph  = "graph"
	ProviderResend = "resend"
)

// Config holds the complete application configuration.
type Config struct {
	Provider string        `yaml:"provider"`
	Worker   WorkerConfig  `yaml:"worker"`
	Message  MessageConfig `yaml:"message"`
	SES      SESConfig     `yaml:"ses"`
	Graph    GraphConfig   `yaml:"graph"`
	Resend   ResendConfig  `yaml:"resend"`
	Logging  LoggingConfig `yaml:"logging"`
}

// WorkerConfig holds the local email worker endpoint settings.
type WorkerConfig struct {
	URL         string        `yaml:"url"`
	ContentType string        `yaml:"content_type"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MessageConfig holds the fixed parts of every composed message.
type MessageConfig struct {
	FromName string `yaml:"from_name"`
	Subject  string `yaml:"subject"`
	Body     string `yaml:"body"`
	Mailer   string `yaml:"mailer"`
}

// SESConfig holds AWS SES settings.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Sender       string `yaml:"sender"`
}

// ResendConfig holds Resend API settings.
type ResendConfig struct {
	APIKey string `yaml:"api_key"`
	From   string `yaml:"from"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
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

	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv reads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks that the selected provider is known and has the settings
// it needs.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderWorker, ProviderStdout:
		return nil
	case ProviderSES:
		if !c.SESConfigured() {
			return errors.New("ses provider requires SES_REGION")
		}
	case ProviderGraph:
		if !c.GraphConfigured() {
			return errors.New("graph provider requires GRAPH_TENANT_ID, GRAPH_CLIENT_ID, GRAPH_CLIENT_SECRET and GRAPH_SENDER")
		}
	case ProviderResend:
		if c.Resend.APIKey == "" {
			return errors.New("resend provider requires RESEND_API_KEY")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}

// SESConfigured returns true if an SES region is set.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != ""
}

// GraphConfigured returns true if all four Graph API credentials are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != "" &&
		c.Graph.Sender != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Provider = ProviderWorker
	c.Worker.URL = "http://localhost:8787/cdn-cgi/handler/email"
	c.Worker.ContentType = "application/json"
	c.Message.FromName = "John"
	c.Message.Subject = "Testing Email Workers Local Dev"
	c.Message.Body = "Hi there"
	c.Message.Mailer = "devsend"
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("WORKER_URL"); v != "" {
		c.Worker.URL = v
	}
	if v := os.Getenv("WORKER_CONTENT_TYPE"); v != "" {
		c.Worker.ContentType = v
	}
	if v := os.Getenv("WORKER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid WORKER_TIMEOUT %q: %w", v, err)
		}
		c.Worker.Timeout = d
	}

	if v := os.Getenv("MESSAGE_FROM_NAME"); v != "" {
		c.Message.FromName = v
	}
	if v := os.Getenv("MESSAGE_SUBJECT"); v != "" {
		c.Message.Subject = v
	}
	if v := os.Getenv("MESSAGE_BODY"); v != "" {
		c.Message.Body = v
	}
	if v := os.Getenv("MESSAGE_MAILER"); v != "" {
		c.Message.Mailer = v
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
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.SES.Sender = v
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
	if v := os.Getenv("GRAPH_SENDER"); v != "" {
		c.Graph.Sender = v
	}

	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		c.Resend.APIKey = v
	}
	if v := os.Getenv("RESEND_FROM"); v != "" {
		c.Resend.From = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	return nil
}
