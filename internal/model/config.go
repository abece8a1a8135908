package model

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIConfig holds the HTTP backend settings.
type APIConfig struct {
	// BaseURL is the root URL of the backend, e.g. http://localhost:8080.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds every HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// TopicsConfig lists the broker destinations the client subscribes to.
// "{userId}" is replaced with the session's user ID.
type TopicsConfig struct {
	Alerts    string `mapstructure:"alerts" yaml:"alerts"`
	Chat      string `mapstructure:"chat" yaml:"chat"`
	Assistant string `mapstructure:"assistant" yaml:"assistant"`
}

// RealtimeConfig holds the STOMP connection settings.
type RealtimeConfig struct {
	// URL overrides the endpoint derived from the API base URL.
	URL string `mapstructure:"url" yaml:"url"`

	// Transport is "sockjs" (SockJS websocket framing) or "websocket" (raw STOMP).
	Transport string `mapstructure:"transport" yaml:"transport"`

	// Reconnect is "fixed" or "exponential".
	Reconnect        string       `mapstructure:"reconnect" yaml:"reconnect"`
	ReconnectDelayMs int          `mapstructure:"reconnect_delay_ms" yaml:"reconnect_delay_ms"`
	MaxAttempts      int          `mapstructure:"max_attempts" yaml:"max_attempts"`
	Topics           TopicsConfig `mapstructure:"topics" yaml:"topics"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme              string `mapstructure:"theme" yaml:"theme"`
	RefreshIntervalSec int    `mapstructure:"refresh_interval_sec" yaml:"refresh_interval_sec"`
}

// StorageConfig locates the local SQLite database.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// LogConfig locates the log file. An empty path disables logging.
type LogConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// GeocodeConfig holds the reverse-geocoding service settings.
type GeocodeConfig struct {
	URL         string `mapstructure:"url" yaml:"url"`
	CacheSize   int    `mapstructure:"cache_size" yaml:"cache_size"`
	CacheTTLMin int    `mapstructure:"cache_ttl_min" yaml:"cache_ttl_min"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API      APIConfig      `mapstructure:"api" yaml:"api"`
	Realtime RealtimeConfig `mapstructure:"realtime" yaml:"realtime"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Geocode  GeocodeConfig  `mapstructure:"geocode" yaml:"geocode"`
}

// Transport and reconnect policy names.
const (
	TransportSockJS    = "sockjs"
	TransportWebSocket = "websocket"

	ReconnectFixed       = "fixed"
	ReconnectExponential = "exponential"
)

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/airwatch/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "airwatch")
}

var configDefaults = map[string]any{
	"api.base_url":                 "http://localhost:8080",
	"api.timeout_sec":              30,
	"realtime.url":                 "",
	"realtime.transport":           TransportSockJS,
	"realtime.reconnect":           ReconnectFixed,
	"realtime.reconnect_delay_ms":  5000,
	"realtime.max_attempts":        5,
	"realtime.topics.alerts":       "/topic/alert/{userId}",
	"realtime.topics.chat":         "/user/queue/messages",
	"realtime.topics.assistant":    "/user/topic/messages",
	"display.theme":                "default",
	"display.refresh_interval_sec": 60,
	"storage.db_path":              "",
	"log.file":                     "",
	"geocode.url":                  "https://nominatim.openstreetmap.org",
	"geocode.cache_size":           256,
	"geocode.cache_ttl_min":        60,
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	for key, value := range configDefaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("AIRWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file yields the defaults; AIRWATCH_* environment variables
// override both (e.g. AIRWATCH_API_BASE_URL).
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.applyFallbacks()
	return cfg, nil
}

func (c *AppConfig) applyFallbacks() {
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.TimeoutSec <= 0 {
		c.API.TimeoutSec = 30
	}
	if c.Realtime.ReconnectDelayMs <= 0 {
		c.Realtime.ReconnectDelayMs = 5000
	}
	if c.Realtime.MaxAttempts <= 0 {
		c.Realtime.MaxAttempts = 5
	}
	if c.Display.RefreshIntervalSec <= 0 {
		c.Display.RefreshIntervalSec = 60
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = filepath.Join(configDir(), "airwatch.db")
	}
}

// Timeout returns the HTTP timeout as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// ReconnectDelay returns the base reconnect delay.
func (c RealtimeConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMs) * time.Millisecond
}

// RefreshInterval returns the dashboard auto-refresh interval.
func (c DisplayConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

// RealtimeEndpoint returns the WebSocket URL of the broker endpoint.
// Without an explicit realtime.url it is derived from the API base URL
// by switching the scheme and appending /ws.
func (c *AppConfig) RealtimeEndpoint() (string, error) {
	raw := c.Realtime.URL
	if raw == "" {
		raw = c.API.BaseURL + "/ws"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing realtime url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported realtime url scheme %q", u.Scheme)
	}
	return u.String(), nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("realtime", cfg.Realtime)
	v.Set("display", cfg.Display)
	v.Set("storage", cfg.Storage)
	v.Set("log", cfg.Log)
	v.Set("geocode", cfg.Geocode)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
