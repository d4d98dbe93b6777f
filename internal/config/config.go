package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appDir         = "ytfetch"
	configFileName = "config.yml"
)

// Config holds user settings shared by the CLI and the web server
type Config struct {
	OutputDir  string       `yaml:"output_dir"`
	Format     string       `yaml:"format"`
	Quality    string       `yaml:"quality"`
	Extractor  string       `yaml:"extractor"`
	FFmpegPath string       `yaml:"ffmpeg_path"`
	Proxy      string       `yaml:"proxy,omitempty"`
	Timeout    Duration     `yaml:"timeout,omitempty"`
	LogLevel   string       `yaml:"log_level"`
	Server     ServerConfig `yaml:"server"`
}

// ServerConfig holds settings for `ytfetch serve`
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	OutputDir   string `yaml:"output_dir,omitempty"`
	HistorySize int    `yaml:"history_size"`
}

// Duration is a time.Duration that reads and writes as "90s" style strings
type Duration time.Duration

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return d, nil
}

// DefaultConfig returns the settings used when no config file exists
func DefaultConfig() *Config {
	return &Config{
		OutputDir:  "./downloads",
		Format:     "mp4",
		Quality:    "high",
		Extractor:  "kkdai",
		FFmpegPath: "ffmpeg",
		LogLevel:   "warn",
		Server: ServerConfig{
			Addr:        ":8080",
			HistorySize: 10,
		},
	}
}

// ConfigDir returns the directory holding config.yml
func ConfigDir() (string, error) {
	if dir := os.Getenv("YTFETCH_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDir), nil
}

// SavePath returns the config file path, or an empty string if it cannot be determined
func SavePath() string {
	dir, err := ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, configFileName)
}

// Exists reports whether a config file is present
func Exists() bool {
	path := SavePath()
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Load reads the config file. Missing fields keep their defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path := SavePath()
	if path == "" {
		return nil, errors.New("could not determine config directory")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// LoadOrDefault reads the config file, falling back to defaults on any error
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// Save writes cfg to the config file, creating the directory if needed
func Save(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, configFileName), data, 0644)
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.Format == "" {
		c.Format = def.Format
	}
	if c.Quality == "" {
		c.Quality = def.Quality
	}
	if c.Extractor == "" {
		c.Extractor = def.Extractor
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = def.FFmpegPath
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.HistorySize <= 0 {
		c.Server.HistorySize = def.Server.HistorySize
	}
}

// Keys lists the settings accepted by Set, in display order
var Keys = []string{
	"output_dir",
	"format",
	"quality",
	"extractor",
	"ffmpeg_path",
	"proxy",
	"timeout",
	"log_level",
	"server.addr",
	"server.output_dir",
	"server.history_size",
}

// Set updates a single setting by its YAML key
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "output_dir":
		c.OutputDir = value
	case "format":
		v := strings.ToLower(value)
		if v != "mp3" && v != "mp4" {
			return fmt.Errorf("format must be mp3 or mp4, got %q", value)
		}
		c.Format = v
	case "quality":
		c.Quality = strings.ToLower(value)
	case "extractor":
		c.Extractor = strings.ToLower(value)
	case "ffmpeg_path":
		c.FFmpegPath = value
	case "proxy":
		c.Proxy = value
	case "timeout":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		c.Timeout = Duration(d)
	case "log_level":
		c.LogLevel = strings.ToLower(value)
	case "server.addr":
		c.Server.Addr = value
	case "server.output_dir":
		c.Server.OutputDir = value
	case "server.history_size":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("history_size must be a positive integer, got %q", value)
		}
		c.Server.HistorySize = n
	default:
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// ServerOutputDir returns the directory the web server downloads into
func (c *Config) ServerOutputDir() string {
	if c.Server.OutputDir != "" {
		return c.Server.OutputDir
	}
	return c.OutputDir
}
