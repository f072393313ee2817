// Package config loads player settings from the user's config file,
// with .env and environment overrides on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Laky-64/gologging"
	"github.com/joho/godotenv"
)

// Config holds all user-tunable settings.
type Config struct {
	MusicDirs      []string `json:"music_dirs"`
	DataDir        string   `json:"data_dir"`
	DefaultVolume  float64  `json:"default_volume"`
	Locale         string   `json:"locale"`
	PreferredVoice string   `json:"preferred_voice"`
	MarketFeed     bool     `json:"market_feed"`
	LogLevel       string   `json:"log_level"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		MusicDirs:     []string{filepath.Join(home, "Music")},
		DataDir:       defaultDataDir(home),
		DefaultVolume: 0.7,
		Locale:        "zh-CN",
		MarketFeed:    true,
		LogLevel:      "info",
	}
}

// Load reads the config file, creating it with defaults on first run,
// then applies .env and environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		gologging.WarnF("config: .env: %v", err)
	}

	path := configPath()
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if cfg.DefaultVolume < 0 || cfg.DefaultVolume > 1 {
		gologging.WarnF("config: volume %v out of range, using 0.7", cfg.DefaultVolume)
		cfg.DefaultVolume = 0.7
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.save(path); err != nil {
			gologging.WarnF("config: write defaults: %v", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv overlays SOULSYNC_* environment variables onto the file
// values.
func (c *Config) applyEnv() {
	if dirs := os.Getenv("SOULSYNC_MUSIC_DIRS"); dirs != "" {
		c.MusicDirs = strings.Split(dirs, string(os.PathListSeparator))
	}
	if dir := os.Getenv("SOULSYNC_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if vol := os.Getenv("SOULSYNC_VOLUME"); vol != "" {
		if v, err := strconv.ParseFloat(vol, 64); err == nil {
			c.DefaultVolume = v
		} else {
			gologging.WarnF("config: SOULSYNC_VOLUME %q: %v", vol, err)
		}
	}
	if locale := os.Getenv("SOULSYNC_LOCALE"); locale != "" {
		c.Locale = locale
	}
	if voice := os.Getenv("SOULSYNC_VOICE"); voice != "" {
		c.PreferredVoice = voice
	}
	if feed := os.Getenv("SOULSYNC_MARKET_FEED"); feed != "" {
		c.MarketFeed = feed == "1" || strings.EqualFold(feed, "true")
	}
	if level := os.Getenv("SOULSYNC_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

// StatePath is where the key-value store persists volume and history.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state.json")
}

func configPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "soulsync", "config.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "soulsync", "config.json")
}

func defaultDataDir(home string) string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "soulsync")
	}
	return filepath.Join(home, ".local", "share", "soulsync")
}
