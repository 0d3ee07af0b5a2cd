package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
	"github.com/strandmedia/strand/internal/player"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Captions CaptionsConfig `mapstructure:"captions"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds content-service configuration
type ServerConfig struct {
	URL   string `mapstructure:"url"`   // Content service base URL
	Token string `mapstructure:"token"` // Bearer token
}

// PlaybackConfig holds player configuration. Buffer values of 0 fall back
// to the device-class profile.
type PlaybackConfig struct {
	Command     string   `mapstructure:"command"`      // mpv binary, empty = auto-detect
	Args        []string `mapstructure:"args"`         // extra mpv arguments
	DeviceClass string   `mapstructure:"device_class"` // "handheld" or "tv"
	SeekStep    int      `mapstructure:"seek_step"`    // transport seek step in seconds

	ForwardBufferSeconds int   `mapstructure:"forward_buffer_seconds"`
	MinBufferForPlayback int   `mapstructure:"min_buffer_for_playback"`
	MaxBufferBytes       int64 `mapstructure:"max_buffer_bytes"`
}

// CaptionsConfig holds subtitle defaults. The live choice is persisted in
// the store; this only seeds first-run behavior.
type CaptionsConfig struct {
	PreferredLanguage string `mapstructure:"preferred_language"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:   "",
			Token: "",
		},
		Playback: PlaybackConfig{
			Command:     "",
			DeviceClass: string(player.DeviceClassHandheld),
			SeekStep:    10,
		},
		Captions: CaptionsConfig{
			PreferredLanguage: "",
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// BufferConfig resolves the effective buffer tuning: device-class profile
// with any explicit overrides applied on top.
func (c *PlaybackConfig) BufferConfig() player.BufferConfig {
	cfg := player.ProfileFor(player.DeviceClass(c.DeviceClass))
	if c.ForwardBufferSeconds > 0 {
		cfg.ForwardBufferSeconds = c.ForwardBufferSeconds
	}
	if c.MinBufferForPlayback > 0 {
		cfg.MinBufferForPlayback = c.MinBufferForPlayback
	}
	if c.MaxBufferBytes > 0 {
		cfg.MaxBufferBytes = c.MaxBufferBytes
	}
	return cfg
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "strand", "strand.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "strand", "strand.log")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "strand")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "strand")
	}
}

// DefaultCachePath returns the default cache directory path for the current OS
func DefaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "strand", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "strand", "cache")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("STRAND")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()

	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	viper.Set("server.url", cfg.Server.URL)
	viper.Set("server.token", cfg.Server.Token)

	viper.Set("playback.command", cfg.Playback.Command)
	viper.Set("playback.args", cfg.Playback.Args)
	viper.Set("playback.device_class", cfg.Playback.DeviceClass)
	viper.Set("playback.seek_step", cfg.Playback.SeekStep)
	viper.Set("playback.forward_buffer_seconds", cfg.Playback.ForwardBufferSeconds)
	viper.Set("playback.min_buffer_for_playback", cfg.Playback.MinBufferForPlayback)
	viper.Set("playback.max_buffer_bytes", cfg.Playback.MaxBufferBytes)

	viper.Set("captions.preferred_language", cfg.Captions.PreferredLanguage)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the server URL and token are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.Token != ""
}
