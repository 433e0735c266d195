package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultProvider        = "openai"
	DefaultServerAddress   = ":3000"
	DefaultSessionIdle     = 30 // minutes
	DefaultMaxFileBytes    = 512 << 10
	DefaultMaxArchiveBytes = 100 << 20
	DefaultMaxExtracted    = 500 << 20
)

// DefaultExtensions is the allow-list of reviewable file types.
var DefaultExtensions = []string{".py", ".ipynb", ".md", ".txt", ".sql"}

// defaultModels is used when a provider entry leaves the model empty.
var defaultModels = map[string]string{
	"openai": "gpt-4o-mini",
	"claude": "claude-3-5-sonnet-latest",
	"gemini": "gemini-2.0-flash",
}

// providerKeyEnv maps providers to the env var holding their API key.
var providerKeyEnv = map[string]string{
	"openai": "OPENAI_API_KEY",
	"claude": "ANTHROPIC_API_KEY",
	"gemini": "GEMINI_API_KEY",
}

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Provider    string                    `json:"provider"`
	Providers   map[string]ProviderConfig `json:"providers"`
	GitHub      GitHubConfig              `json:"github"`
	Collector   CollectorConfig           `json:"collector"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type BasicConfig struct {
	ServerAddress      string `json:"server_address"`
	WorkDir            string `json:"work_dir"`
	StaticDir          string `json:"static_dir"`
	SessionIdleTimeout int    `json:"session_idle_timeout"` // minutes
	KeepWorkDir        bool   `json:"keep_work_dir"`
}

type GitHubConfig struct {
	Token           string `json:"token"`
	APIURL          string `json:"api_url"`
	MaxArchiveBytes int64  `json:"max_archive_bytes"`
	// MaxExtractedBytes caps the unpacked size of the archive.
	MaxExtractedBytes int64 `json:"max_extracted_bytes"`
}

type CollectorConfig struct {
	Extensions    []string `json:"extensions"`
	MaxFileBytes  int64    `json:"max_file_bytes"`
	RedactSecrets bool     `json:"redact_secrets"`
}

// Load reads configuration from the provided path (defaults to config.json).
// A missing default file is not an error; an explicitly named one is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	var cfg Config
	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		if cfg.BasicConfig.WorkDir != "" && !filepath.IsAbs(cfg.BasicConfig.WorkDir) {
			cfg.BasicConfig.WorkDir = filepath.Join(filepath.Dir(absPath), cfg.BasicConfig.WorkDir)
		}
		if cfg.BasicConfig.StaticDir != "" && !filepath.IsAbs(cfg.BasicConfig.StaticDir) {
			cfg.BasicConfig.StaticDir = filepath.Join(filepath.Dir(absPath), cfg.BasicConfig.StaticDir)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		c.BasicConfig.ServerAddress = ":" + strings.TrimPrefix(port, ":")
	}
	if token := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); token != "" {
		c.GitHub.Token = token
	}
	if provider := strings.TrimSpace(os.Getenv("REVIEW_PROVIDER")); provider != "" {
		c.Provider = provider
	}
	for provider, env := range providerKeyEnv {
		key := strings.TrimSpace(os.Getenv(env))
		if key == "" {
			continue
		}
		if c.Providers == nil {
			c.Providers = make(map[string]ProviderConfig)
		}
		p := c.Providers[provider]
		p.APIKey = key
		c.Providers[provider] = p
	}
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	c.Provider = strings.ToLower(c.Provider)
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	p := c.Providers[c.Provider]
	if p.Model == "" {
		p.Model = defaultModels[c.Provider]
	}
	c.Providers[c.Provider] = p

	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = DefaultServerAddress
	}
	if c.BasicConfig.SessionIdleTimeout <= 0 {
		c.BasicConfig.SessionIdleTimeout = DefaultSessionIdle
	}
	if c.GitHub.MaxArchiveBytes <= 0 {
		c.GitHub.MaxArchiveBytes = DefaultMaxArchiveBytes
	}
	if c.GitHub.MaxExtractedBytes <= 0 {
		c.GitHub.MaxExtractedBytes = DefaultMaxExtracted
	}
	if len(c.Collector.Extensions) == 0 {
		c.Collector.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if c.Collector.MaxFileBytes <= 0 {
		c.Collector.MaxFileBytes = DefaultMaxFileBytes
	}
}

// Validate reports configuration that cannot run.
func (c *Config) Validate() error {
	if _, ok := defaultModels[c.Provider]; !ok {
		return fmt.Errorf("invalid provider: %s", c.Provider)
	}
	for _, ext := range c.Collector.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("collector extension %q must start with a dot", ext)
		}
	}
	return nil
}

// ActiveProvider returns the settings of the selected model provider.
func (c *Config) ActiveProvider() ProviderConfig {
	return c.Providers[c.Provider]
}

// SessionIdle returns the session idle timeout.
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.BasicConfig.SessionIdleTimeout) * time.Minute
}
