package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the companion configuration loaded from a TOML file.
type Config struct {
	Bridge      BridgeConfig      `toml:"bridge"`
	Database    DatabaseConfig    `toml:"database"`
	Plugins     PluginsConfig     `toml:"plugins"`
	Credentials CredentialsConfig `toml:"credentials"`
}

// BridgeConfig contains the websocket bridge listener settings.
type BridgeConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	PollInterval int    `toml:"poll_interval"`
}

// DatabaseConfig contains sqlite settings for the lyrics cache.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PluginsConfig contains per-plugin feature toggles.
type PluginsConfig struct {
	QuickControls QuickControlsConfig `toml:"quickcontrols"`
	Lyrics        LyricsConfig        `toml:"lyrics"`
	Shortcuts     ShortcutsConfig     `toml:"shortcuts"`
}

// QuickControlsConfig holds the static feature toggles for the tray/dock menu.
// Loaded once at plugin start; it never changes while the plugin runs.
type QuickControlsConfig struct {
	Enabled              bool `toml:"enabled"`
	ShowPlaybackControls bool `toml:"show_playback_controls"`
	ShowLikeButton       bool `toml:"show_like_button"`
	ShowRepeatControl    bool `toml:"show_repeat_control"`
	ShowShuffleControl   bool `toml:"show_shuffle_control"`
}

// LyricsConfig toggles the lyrics plugin and orders its providers.
type LyricsConfig struct {
	Enabled   bool     `toml:"enabled"`
	Providers []string `toml:"providers"`
}

// ShortcutsConfig toggles the external-service shortcuts plugin.
type ShortcutsConfig struct {
	Enabled bool `toml:"enabled"`
}

// CredentialsConfig contains provider-specific credentials.
type CredentialsConfig struct {
	Genius GeniusConfig `toml:"genius"`
	LRCLib LRCLibConfig `toml:"lrclib"`
}

// GeniusConfig contains the Genius API access token.
type GeniusConfig struct {
	AccessToken string `toml:"access_token"`
}

// LRCLibConfig contains LRCLIB endpoint settings.
type LRCLibConfig struct {
	BaseURL   string  `toml:"base_url"`
	RateLimit float64 `toml:"rate_limit"`
}

// BridgeAddr returns the host:port the bridge listener binds to.
func (c *Config) BridgeAddr() string {
	return fmt.Sprintf("%s:%d", c.Bridge.Host, c.Bridge.Port)
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

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
