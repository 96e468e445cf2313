package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListen         = "127.0.0.1:8080"
	DefaultRefresh        = "0 * * * *"
	DefaultUpcomingLimit  = 10
	DefaultQueryCacheSize = 256
	DefaultLogLevel       = "info"
	DefaultFeedCacheDir   = "./var/feed-cache"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvConfig = "LUSOCAL_CONFIG"
	EnvListen = "LUSOCAL_LISTEN"
)

// FeedConfig describes one community ICS subscription.
type FeedConfig struct {
	ID   string `yaml:"id" json:"id" validate:"required"`
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url" validate:"required,url"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" validate:"required"`
	Password string `yaml:"password" json:"password" validate:"required"`
}

// Config is the top-level service configuration.
type Config struct {
	// Listen is the HTTP listen address of the API.
	Listen string `yaml:"listen" json:"listen" validate:"required"`

	// RefreshCron is a five-field cron schedule for rebuilding the calendar.
	RefreshCron string `yaml:"refresh" json:"refresh" validate:"required"`

	// Catalog is the path of the event catalog; empty uses the embedded one.
	Catalog string `yaml:"catalog" json:"catalog"`

	UpcomingLimit  int    `yaml:"upcoming_limit" json:"upcoming_limit" validate:"min=1"`
	QueryCacheSize int    `yaml:"query_cache_size" json:"query_cache_size" validate:"min=1"`
	LogLevel       string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn warning error"`

	Feeds        []FeedConfig `yaml:"feeds" json:"feeds" validate:"dive"`
	FeedCacheDir string       `yaml:"feed_cache_dir" json:"feed_cache_dir"`

	// BasicAuth, if non-nil, protects every endpoint except /health and
	// /metrics.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

var validate = validator.New()

func DefaultConfig() *Config {
	return &Config{
		Listen:         DefaultListen,
		RefreshCron:    DefaultRefresh,
		UpcomingLimit:  DefaultUpcomingLimit,
		QueryCacheSize: DefaultQueryCacheSize,
		LogLevel:       DefaultLogLevel,
		Feeds:          []FeedConfig{},
		FeedCacheDir:   DefaultFeedCacheDir,
	}
}

// Normalize fills missing or zero values with defaults so partially filled
// files still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if strings.TrimSpace(c.RefreshCron) == "" {
		c.RefreshCron = DefaultRefresh
	}
	if c.UpcomingLimit <= 0 {
		c.UpcomingLimit = DefaultUpcomingLimit
	}
	if c.QueryCacheSize <= 0 {
		c.QueryCacheSize = DefaultQueryCacheSize
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	for i := range c.Feeds {
		if c.Feeds[i].Name == "" {
			c.Feeds[i].Name = c.Feeds[i].ID
		}
	}
	if c.FeedCacheDir == "" {
		c.FeedCacheDir = DefaultFeedCacheDir
	}
}

// Validate checks field constraints and that feed ids are unique.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	seen := make(map[string]bool, len(c.Feeds))
	for _, f := range c.Feeds {
		if seen[f.ID] {
			return fmt.Errorf("config: duplicate feed id %q", f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}

// ApplyEnv overrides fields from the environment (after .env loading).
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvListen)); v != "" {
		c.Listen = v
	}
}

// Load reads the YAML config at path. When the file does not exist a
// default config is written there (0600) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			return cfg, Save(path, cfg)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg atomically (temp file + rename) with 0600 permissions,
// creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".lusocal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
