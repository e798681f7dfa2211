package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const configDir = ".pulse"
const configFile = "config.json"

const (
	DefaultModel          = "gemini-2.5-flash"
	DefaultReasoningModel = "gemini-2.5-pro"
	DefaultBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	DefaultRPS            = 2.0
)

// Environment variables that override the stored API key, in priority
// order.
var apiKeyEnv = []string{"PULSE_API_KEY", "GEMINI_API_KEY"}

type Config struct {
	APIKey            string            `json:"api_key,omitempty"`
	Model             string            `json:"model,omitempty"`
	ReasoningModel    string            `json:"reasoning_model,omitempty"`
	BaseURL           string            `json:"base_url,omitempty"`
	RequestsPerSecond float64           `json:"requests_per_second,omitempty"`
	LogLevel          string            `json:"log_level,omitempty"`
	LogFile           string            `json:"log_file,omitempty"`
	Filters           map[string]string `json:"filters,omitempty"`
	Profile           string            `json:"-"`
}

// Path returns the config file for profile.
func Path(profile string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot find home directory: %w", err)
	}
	filename := configFile
	if profile != "" {
		filename = fmt.Sprintf("config-%s.json", profile)
	}
	return filepath.Join(home, configDir, filename), nil
}

// LoadEnv reads a .env file from the working directory if there is one.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

func Load(profile string) (*Config, error) {
	path, err := Path(profile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Profile: profile}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Profile = profile
	return &cfg, nil
}

func (c *Config) Save() error {
	path, err := Path(c.Profile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// EffectiveAPIKey is the key requests are sent with: the environment
// first, then the stored key.
func (c *Config) EffectiveAPIKey() string {
	for _, name := range apiKeyEnv {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return c.APIKey
}

// KeySource describes where EffectiveAPIKey came from.
func (c *Config) KeySource() string {
	for _, name := range apiKeyEnv {
		if strings.TrimSpace(os.Getenv(name)) != "" {
			return "$" + name
		}
	}
	if c.APIKey != "" {
		return "config"
	}
	return ""
}

func (c *Config) ModelName() string {
	if c.Model == "" {
		return DefaultModel
	}
	return c.Model
}

func (c *Config) ReasoningModelName() string {
	if c.ReasoningModel == "" {
		return DefaultReasoningModel
	}
	return c.ReasoningModel
}

func (c *Config) Endpoint() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

func (c *Config) RPS() float64 {
	if c.RequestsPerSecond <= 0 {
		return DefaultRPS
	}
	return c.RequestsPerSecond
}

// LogPath is the log file, defaulting to pulse.log next to the config.
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configDir, "pulse.log")
}

func (c *Config) profileFlag() string {
	if c.Profile == "" {
		return ""
	}
	return " --profile " + c.Profile
}

func (c *Config) Validate() error {
	if c.EffectiveAPIKey() == "" {
		return fmt.Errorf("no API key configured. Run: pulse%s set key <api-key> (or export GEMINI_API_KEY)", c.profileFlag())
	}
	return nil
}

// Keys lists the settings accepted by Set.
var Keys = []string{"key", "model", "reasoning-model", "base-url", "rps", "log-level", "log-file"}

// Set updates one setting by its command-line name.
func (c *Config) Set(key, value string) error {
	switch key {
	case "key":
		c.APIKey = value
	case "model":
		c.Model = value
	case "reasoning-model":
		c.ReasoningModel = value
	case "base-url":
		c.BaseURL = value
	case "rps":
		rps, err := strconv.ParseFloat(value, 64)
		if err != nil || rps <= 0 {
			return fmt.Errorf("rps must be a positive number, got %q", value)
		}
		c.RequestsPerSecond = rps
	case "log-level":
		c.LogLevel = value
	case "log-file":
		c.LogFile = value
	default:
		return fmt.Errorf("unknown config key: %s (valid: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// Equal reports whether two configs hold the same settings.
func (c *Config) Equal(o *Config) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.APIKey == o.APIKey &&
		c.Model == o.Model &&
		c.ReasoningModel == o.ReasoningModel &&
		c.BaseURL == o.BaseURL &&
		c.RequestsPerSecond == o.RequestsPerSecond &&
		c.LogLevel == o.LogLevel &&
		c.LogFile == o.LogFile &&
		c.Profile == o.Profile &&
		maps.Equal(c.Filters, o.Filters)
}

// SetFilter stores a default search filter. An empty value removes it.
func (c *Config) SetFilter(name, value string) {
	if value == "" {
		delete(c.Filters, name)
		return
	}
	if c.Filters == nil {
		c.Filters = make(map[string]string)
	}
	c.Filters[name] = value
}

func ListProfiles() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot find home directory: %w", err)
	}
	dir := filepath.Join(home, configDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config directory: %w", err)
	}
	var profiles []string
	for _, e := range entries {
		name := e.Name()
		if name == configFile {
			profiles = append(profiles, "default")
			continue
		}
		if strings.HasPrefix(name, "config-") && strings.HasSuffix(name, ".json") {
			profiles = append(profiles, strings.TrimSuffix(strings.TrimPrefix(name, "config-"), ".json"))
		}
	}
	return profiles, nil
}

func ProfileName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}

// MaskKey shows only the start of a secret.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	end := 6
	if len(key) < end {
		end = len(key)
	}
	return key[:end] + "..."
}
