// Package config provides configuration management for the application.
// It supports YAML configuration files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verustcode/verustcode/pkg/logger"
)

// Feature names recognized in the `features` set.
const (
	FeatureExternalPR = "ExternalPr"
	FeatureCommands   = "Commands"
)

// Command names recognized in the `enabled_commands` set.
const (
	CommandRetry = "Retry"
)

// Default PR actions handled when `enabled_actions` is not set explicitly.
var defaultEnabledActions = []string{"opened", "synchronize", "closed", "reopened"}

// Config represents the complete application configuration.
type Config struct {
	Server          ServerConfig  `yaml:"server"`
	GitHub          HubConfig     `yaml:"github"`
	GitLab          LabConfig     `yaml:"gitlab"`
	Features        []string      `yaml:"features"`
	EnabledActions  []string      `yaml:"enabled_actions"`
	EnabledCommands []string      `yaml:"enabled_commands"`
	HubToLab        map[string]string `yaml:"hub_to_lab"`
	Logging         logger.Config `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	BindTo      string   `yaml:"bindto"`
	Debug       bool     `yaml:"debug"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// HubConfig holds Hub (GitHub) connection settings.
type HubConfig struct {
	Hostname      string `yaml:"hostname"`
	APIToken      string `yaml:"api_token"`
	WebhookSecret string `yaml:"webhook_secret"`
	Username      string `yaml:"username"`
	SSHKey        string `yaml:"ssh_key"`
}

// LabConfig holds Lab (GitLab) connection settings.
type LabConfig struct {
	Hostname string `yaml:"hostname"`
	APIToken string `yaml:"api_token"`
	SSHKey   string `yaml:"ssh_key"`
}

// APIHost returns the API host for the Hub, defaulting to api.github.com.
func (c *HubConfig) APIHost() string {
	hostname := c.Hostname
	if hostname == "" {
		hostname = "github.com"
	}
	return "api." + hostname
}

// BaseURL returns the Lab base URL, defaulting to https://gitlab.com.
func (c *LabConfig) BaseURL() string {
	hostname := c.Hostname
	if hostname == "" {
		hostname = "gitlab.com"
	}
	return "https://" + hostname
}

// HasFeature reports whether the named feature is enabled.
func (c *Config) HasFeature(name string) bool {
	for _, f := range c.Features {
		if f == name {
			return true
		}
	}
	return false
}

// HandlesAction reports whether the given PR action string should be processed.
func (c *Config) HandlesAction(action string) bool {
	actions := c.EnabledActions
	if len(actions) == 0 {
		actions = defaultEnabledActions
	}
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// CommandEnabled reports whether the named command is enabled.
func (c *Config) CommandEnabled(name string) bool {
	for _, cmd := range c.EnabledCommands {
		if cmd == name {
			return true
		}
	}
	return false
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BindTo: "0.0.0.0:8080",
			Debug:  false,
		},
		GitHub: HubConfig{
			Hostname: "github.com",
		},
		GitLab: LabConfig{
			Hostname: "gitlab.com",
		},
		Features:        []string{FeatureExternalPR, FeatureCommands},
		EnabledActions:  defaultEnabledActions,
		EnabledCommands: []string{CommandRetry},
		HubToLab:        map[string]string{},
		Logging: logger.Config{
			Level:      "info",
			Format:     "text",
			File:       "",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 5,
			Compress:   false,
		},
	}
}

// Load loads configuration from a YAML file with environment variable expansion.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} patterns with
// environment variable values before the YAML is parsed.
func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]

		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]

		if value := os.Getenv(varName); value != "" {
			return value
		}

		if len(parts) > 1 {
			return parts[1]
		}

		return ""
	})
}
