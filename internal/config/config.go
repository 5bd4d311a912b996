// Package config loads autogroup settings from an optional YAML file and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPort is the WebSocket port the extension connects to.
const DefaultPort = 19192

// Config holds all daemon and CLI settings.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Router RouterConfig `yaml:"router"`
	Rules  RulesConfig  `yaml:"rules"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type RouterConfig struct {
	CreateDelay    time.Duration `yaml:"create_delay"`
	UpdateDelay    time.Duration `yaml:"update_delay"`
	DedupCapacity  int           `yaml:"dedup_capacity"`
	DedupTrimTo    int           `yaml:"dedup_trim_to"`
	TaskTimeout    time.Duration `yaml:"task_timeout"`
	SweepOnConnect bool          `yaml:"sweep_on_connect"`
}

type RulesConfig struct {
	DBPath        string        `yaml:"db_path"`
	WatchInterval time.Duration `yaml:"watch_interval"`
}

type LogConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the built-in settings.
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Server: ServerConfig{Port: DefaultPort},
		Router: RouterConfig{
			CreateDelay:   500 * time.Millisecond,
			UpdateDelay:   300 * time.Millisecond,
			DedupCapacity: 100,
			DedupTrimTo:   50,
			TaskTimeout:   10 * time.Second,
		},
		Rules: RulesConfig{
			DBPath:        filepath.Join(dataDir, "autogroup.db"),
			WatchInterval: 2 * time.Second,
		},
		Log: LogConfig{Dir: dataDir},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "autogroup")
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path falls back to AUTOGROUP_CONFIG; a
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("AUTOGROUP_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("AUTOGROUP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AUTOGROUP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("AUTOGROUP_DB"); v != "" {
		c.Rules.DBPath = v
	}
	if v := os.Getenv("AUTOGROUP_LOG_DIR"); v != "" {
		c.Log.Dir = v
	}
	return nil
}

// Validate rejects settings the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Router.CreateDelay < 0 || c.Router.UpdateDelay < 0 {
		return fmt.Errorf("router delays must not be negative")
	}
	if c.Router.DedupCapacity <= 0 {
		return fmt.Errorf("router.dedup_capacity must be positive")
	}
	if c.Router.DedupTrimTo < 0 || c.Router.DedupTrimTo > c.Router.DedupCapacity {
		return fmt.Errorf("router.dedup_trim_to must be between 0 and dedup_capacity")
	}
	if c.Rules.WatchInterval <= 0 {
		return fmt.Errorf("rules.watch_interval must be positive")
	}
	if c.Rules.DBPath == "" {
		return fmt.Errorf("rules.db_path is required")
	}
	return nil
}
