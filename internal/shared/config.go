package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Slack    SlackConfig    `toml:"slack"`
	Resolver ResolverConfig `toml:"resolver"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SlackConfig contains the Slack credentials and delivery settings.
type SlackConfig struct {
	BotToken      string   `toml:"bot_token"`
	SigningSecret string   `toml:"signing_secret"`
	Channels      []string `toml:"channels"`
	Placeholder   bool     `toml:"placeholder"`
}

// ResolverConfig contains timing knobs for the resolution engine.
type ResolverConfig struct {
	FetchTimeoutMS int    `toml:"fetch_timeout_ms"`
	ProbeTimeoutMS int    `toml:"probe_timeout_ms"`
	CacheTTLMin    int    `toml:"cache_ttl_min"`
	Country        string `toml:"country"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Debug bool `toml:"debug"`
}

// maxFetchTimeout keeps the lookup budget below the response deadline of
// constrained hosts (Slack expects an ack within three seconds, so the
// heavy lifting has to finish well inside the worker's lifetime).
const maxFetchTimeout = 8 * time.Second

// FetchTimeout returns the configured lookup budget as a [time.Duration], clamped to a sane ceiling.
func (r ResolverConfig) FetchTimeout() time.Duration {
	d := time.Duration(r.FetchTimeoutMS) * time.Millisecond
	if d <= 0 {
		d = 2500 * time.Millisecond
	}
	if d > maxFetchTimeout {
		d = maxFetchTimeout
	}
	return d
}

// ProbeTimeout returns the metadata probe budget as a [time.Duration].
func (r ResolverConfig) ProbeTimeout() time.Duration {
	if r.ProbeTimeoutMS <= 0 {
		return 800 * time.Millisecond
	}
	return time.Duration(r.ProbeTimeoutMS) * time.Millisecond
}

// CacheTTL returns the equivalence cache freshness window.
func (r ResolverConfig) CacheTTL() time.Duration {
	if r.CacheTTLMin <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(r.CacheTTLMin) * time.Minute
}

// ChannelAllowed reports whether the bot should respond in the given channel.
//
// An empty allow-list permits every channel.
func (s SlackConfig) ChannelAllowed(channel string) bool {
	if len(s.Channels) == 0 {
		return true
	}
	for _, c := range s.Channels {
		if c == channel {
			return true
		}
	}
	return false
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	overrideFromEnv(&config)
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	overrideFromEnv(&config)
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// overrideFromEnv lets secrets come from the environment instead of the config file.
func overrideFromEnv(config *Config) {
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		config.Slack.BotToken = v
	}
	if v := os.Getenv("SLACK_SIGNING_SECRET"); v != "" {
		config.Slack.SigningSecret = v
	}
}
