// Package config loads and saves the devboy configuration file.
//
// The file lives at ~/.config/devboy/config.yaml (os.UserConfigDir decides
// the platform-specific base). A missing file loads as an empty config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = "devboy"
	configFileName = "config.yaml"

	// DefaultGitLabURL is used when a GitLab section omits the url field.
	DefaultGitLabURL = "https://gitlab.com"
)

// Config is the on-disk configuration. A nil section means the provider is
// not configured.
type Config struct {
	GitHub  *GitHubConfig  `yaml:"github,omitempty"`
	GitLab  *GitLabConfig  `yaml:"gitlab,omitempty"`
	ClickUp *ClickUpConfig `yaml:"clickup,omitempty"`
	Jira    *JiraConfig    `yaml:"jira,omitempty"`
}

// GitHubConfig selects a single repository.
type GitHubConfig struct {
	Owner   string `yaml:"owner"`
	Repo    string `yaml:"repo"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// GitLabConfig selects a single project on an instance.
type GitLabConfig struct {
	URL       string `yaml:"url,omitempty"`
	ProjectID string `yaml:"project_id"`
}

// ClickUpConfig selects a single list.
type ClickUpConfig struct {
	ListID string `yaml:"list_id"`
}

// JiraConfig selects a project on an instance. Email is part of the auth
// pair for Jira's API.
type JiraConfig struct {
	URL        string `yaml:"url"`
	ProjectKey string `yaml:"project_key"`
	Email      string `yaml:"email"`
}

// Dir returns the configuration directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(base, configDirName), nil
}

// Path returns the configuration file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config from the default location. A missing file is not
// an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to the default location, creating the directory
// when needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to an explicit path.
func (c *Config) SaveTo(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// HasAnyProvider reports whether at least one provider section exists.
func (c *Config) HasAnyProvider() bool {
	return c.GitHub != nil || c.GitLab != nil || c.ClickUp != nil || c.Jira != nil
}

// ConfiguredProviders lists the provider sections present, in a fixed
// order.
func (c *Config) ConfiguredProviders() []string {
	var providers []string
	if c.GitHub != nil {
		providers = append(providers, "github")
	}
	if c.GitLab != nil {
		providers = append(providers, "gitlab")
	}
	if c.ClickUp != nil {
		providers = append(providers, "clickup")
	}
	if c.Jira != nil {
		providers = append(providers, "jira")
	}
	return providers
}

// Set assigns a value by dotted key, e.g. "github.owner" or "gitlab.url".
// Missing sections are created on first assignment.
func (c *Config) Set(key, value string) error {
	provider, field, err := splitKey(key)
	if err != nil {
		return err
	}

	// Sections are attached only after the field name checks out, so a
	// rejected key never leaves an empty section behind.
	switch provider {
	case "github":
		section := c.GitHub
		if section == nil {
			section = &GitHubConfig{}
		}
		switch field {
		case "owner":
			section.Owner = value
		case "repo":
			section.Repo = value
		case "base_url", "url":
			section.BaseURL = value
		default:
			return fmt.Errorf("unknown github config field: %s", field)
		}
		c.GitHub = section
	case "gitlab":
		section := c.GitLab
		if section == nil {
			section = &GitLabConfig{URL: DefaultGitLabURL}
		}
		switch field {
		case "url":
			section.URL = value
		case "project_id", "project":
			section.ProjectID = value
		default:
			return fmt.Errorf("unknown gitlab config field: %s", field)
		}
		c.GitLab = section
	case "clickup":
		section := c.ClickUp
		if section == nil {
			section = &ClickUpConfig{}
		}
		switch field {
		case "list_id", "list":
			section.ListID = value
		default:
			return fmt.Errorf("unknown clickup config field: %s", field)
		}
		c.ClickUp = section
	case "jira":
		section := c.Jira
		if section == nil {
			section = &JiraConfig{}
		}
		switch field {
		case "url":
			section.URL = value
		case "project_key", "project":
			section.ProjectKey = value
		case "email":
			section.Email = value
		default:
			return fmt.Errorf("unknown jira config field: %s", field)
		}
		c.Jira = section
	default:
		return fmt.Errorf("unknown provider: %s", provider)
	}
	return nil
}

// Get reads a value by dotted key. It returns ok=false when the provider
// section is absent, and an error for malformed keys or unknown fields.
func (c *Config) Get(key string) (value string, ok bool, err error) {
	provider, field, err := splitKey(key)
	if err != nil {
		return "", false, err
	}

	switch provider {
	case "github":
		if c.GitHub == nil {
			return "", false, nil
		}
		switch field {
		case "owner":
			return c.GitHub.Owner, true, nil
		case "repo":
			return c.GitHub.Repo, true, nil
		case "base_url", "url":
			return c.GitHub.BaseURL, true, nil
		default:
			return "", false, fmt.Errorf("unknown github config field: %s", field)
		}
	case "gitlab":
		if c.GitLab == nil {
			return "", false, nil
		}
		switch field {
		case "url":
			return c.GitLab.URL, true, nil
		case "project_id", "project":
			return c.GitLab.ProjectID, true, nil
		default:
			return "", false, fmt.Errorf("unknown gitlab config field: %s", field)
		}
	case "clickup":
		if c.ClickUp == nil {
			return "", false, nil
		}
		switch field {
		case "list_id", "list":
			return c.ClickUp.ListID, true, nil
		default:
			return "", false, fmt.Errorf("unknown clickup config field: %s", field)
		}
	case "jira":
		if c.Jira == nil {
			return "", false, nil
		}
		switch field {
		case "url":
			return c.Jira.URL, true, nil
		case "project_key", "project":
			return c.Jira.ProjectKey, true, nil
		case "email":
			return c.Jira.Email, true, nil
		default:
			return "", false, fmt.Errorf("unknown jira config field: %s", field)
		}
	default:
		return "", false, fmt.Errorf("unknown provider: %s", provider)
	}
}

func splitKey(key string) (provider, field string, err error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid config key %q, expected provider.field", key)
	}
	return parts[0], parts[1], nil
}
