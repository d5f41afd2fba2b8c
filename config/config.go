package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/m4xw311/drover/errors"
)

// Config is the persisted key-value store backing the session. It is loaded
// once in main and handed to collaborators; nothing reads it ambiently.
type Config struct {
	APIKey            string   `json:"apiKey"`
	BaseURL           string   `json:"baseUrl,omitempty"`
	Provider          string   `json:"provider,omitempty"`
	DefaultModel      string   `json:"defaultModel,omitempty"`
	Temperature       float64  `json:"temperature"`
	MaxTokens         int      `json:"maxTokens"`
	Stream            bool     `json:"stream,omitempty"`
	TrustedWorkspaces []string `json:"trustedWorkspaces,omitempty"`

	path string
}

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
)

// Load reads the user-level config from the home directory and overlays the
// project-level config from the working directory, with the latter taking
// precedence. A missing file is not an error; an unreadable one is.
func Load() (*Config, error) {
	cfg := &Config{
		Provider:    "openai",
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}

	home, err := os.UserHomeDir()
	if err == nil {
		cfg.path = filepath.Join(home, ".drover", "config.json")
		if err := loadFromFile(cfg.path, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading user config")
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	// Project-level values overwrite user-level ones field by field.
	if err := loadFromFile(filepath.Join(wd, ".drover", "config.json"), cfg); err != nil {
		return nil, errors.Wrapf(err, "error loading project config")
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, cfg)
}

// Save writes the config back to the user-level file, creating the
// directory on first use. Trust approvals go through here.
func (c *Config) Save() error {
	if c.path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrapf(err, "could not determine home directory")
		}
		c.path = filepath.Join(home, ".drover", "config.json")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return errors.Wrapf(err, "could not create config directory")
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to serialize config")
	}
	return os.WriteFile(c.path, data, 0600)
}

// SetPath overrides the persistence location. Used by tests and by the
// project-level store.
func (c *Config) SetPath(path string) { c.path = path }

// Get returns the string form of a top-level key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "apiKey":
		return c.APIKey, nil
	case "baseUrl":
		return c.BaseURL, nil
	case "provider":
		return c.Provider, nil
	case "defaultModel":
		return c.DefaultModel, nil
	case "temperature":
		return strconv.FormatFloat(c.Temperature, 'f', -1, 64), nil
	case "maxTokens":
		return strconv.Itoa(c.MaxTokens), nil
	case "stream":
		return strconv.FormatBool(c.Stream), nil
	}
	return "", errors.New("unknown config key '%s'", key)
}

// Set updates a top-level key from its string form.
func (c *Config) Set(key, value string) error {
	switch key {
	case "apiKey":
		c.APIKey = value
	case "baseUrl":
		c.BaseURL = value
	case "provider":
		c.Provider = value
	case "defaultModel":
		c.DefaultModel = value
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return errors.Wrapf(err, "temperature must be a number")
		}
		c.Temperature = f
	case "maxTokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "maxTokens must be an integer")
		}
		c.MaxTokens = n
	case "stream":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrapf(err, "stream must be true or false")
		}
		c.Stream = b
	default:
		return errors.New("unknown config key '%s'", key)
	}
	return nil
}

// IsTrustedWorkspace reports whether the user has previously approved side
// effects in the given absolute path.
func (c *Config) IsTrustedWorkspace(path string) bool {
	for _, p := range c.TrustedWorkspaces {
		if p == path {
			return true
		}
	}
	return false
}

// TrustWorkspace records approval for a workspace path and persists it.
// Idempotent.
func (c *Config) TrustWorkspace(path string) error {
	if c.IsTrustedWorkspace(path) {
		return nil
	}
	c.TrustedWorkspaces = append(c.TrustedWorkspaces, path)
	sort.Strings(c.TrustedWorkspaces)
	return c.Save()
}
