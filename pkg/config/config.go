package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerPort int `yaml:"server_port"`

	// Directory served as static files on "/". Empty disables it.
	PublicDir string `yaml:"public_dir"`

	CooldownSeconds              int `yaml:"cooldown_seconds"`
	HeartbeatTimeoutSeconds      int `yaml:"heartbeat_timeout_seconds"`
	PresenceSweepIntervalSeconds int `yaml:"presence_sweep_interval_seconds"`

	NotifyStatsIntervalSeconds int `yaml:"notify_stats_interval_seconds"`
	AverageWaitWindowSize      int `yaml:"average_wait_window_size"`

	SessionCookieMaxAgeSeconds int `yaml:"session_cookie_max_age_seconds"`

	// Teacher accounts live in redis when RedisHost is set, in memory
	// otherwise.
	RedisHost string `yaml:"redis_host"`
	RedisDB   int    `yaml:"redis_db"`
}

var (
	configFile                   = flag.String("config", "", "Optional YAML file. Non-zero values in it override the flag values.")
	serverPort                   = flag.Int("server-port", envInt("SERVER_PORT", 3000), "Port the HTTP server listens on.")
	publicDir                    = flag.String("public-dir", "", "Directory with the student and teacher pages. Served on / when set.")
	cooldownSeconds              = flag.Int("cooldown-seconds", 120, "After a student removes their own number, they have to wait this long before getting a new one.")
	heartbeatTimeoutSeconds      = flag.Int("heartbeat-timeout-seconds", 15, "A student without heartbeat for longer than this is flagged as disconnected on the next presence sweep.")
	presenceSweepIntervalSeconds = flag.Int("presence-sweep-interval-seconds", 10, "Interval to scan heartbeats for disconnected students.")
	notifyStatsIntervalSeconds   = flag.Int("notify-stats-interval-seconds", 60, "Interval to log queue stats.")
	averageWaitWindowSize        = flag.Int("average-wait-window-size", 50, "The size of sliding window for calculating average wait time of a ticket.")
	sessionCookieMaxAgeSeconds   = flag.Int("session-cookie-max-age-seconds", 24*60*60, "Max age of the session cookies handed to students and teachers.")
	redisHost                    = flag.String("redis-host", os.Getenv("REDIS_HOST"), "Redis address for teacher accounts. Accounts are kept in memory when empty.")
	redisDB                      = flag.Int("redis-db", envInt("REDIS_DB", 0), "Redis db for teacher accounts.")
)

func envInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

// Default returns the built-in values without looking at flags.
func Default() *Config {
	return &Config{
		ServerPort:                   3000,
		CooldownSeconds:              120,
		HeartbeatTimeoutSeconds:      15,
		PresenceSweepIntervalSeconds: 10,
		NotifyStatsIntervalSeconds:   60,
		AverageWaitWindowSize:        50,
		SessionCookieMaxAgeSeconds:   24 * 60 * 60,
	}
}

func ProvideConfig() (*Config, error) {
	if !flag.Parsed() {
		flag.Parse()
	}

	cfg := &Config{
		ServerPort:                   *serverPort,
		PublicDir:                    *publicDir,
		CooldownSeconds:              *cooldownSeconds,
		HeartbeatTimeoutSeconds:      *heartbeatTimeoutSeconds,
		PresenceSweepIntervalSeconds: *presenceSweepIntervalSeconds,
		NotifyStatsIntervalSeconds:   *notifyStatsIntervalSeconds,
		AverageWaitWindowSize:        *averageWaitWindowSize,
		SessionCookieMaxAgeSeconds:   *sessionCookieMaxAgeSeconds,
		RedisHost:                    *redisHost,
		RedisDB:                      *redisDB,
	}

	if *configFile != "" {
		if err := cfg.LoadFile(*configFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the non-zero values of a YAML file onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	c.overlay(&file)
	return nil
}

func (c *Config) overlay(o *Config) {
	if o.ServerPort != 0 {
		c.ServerPort = o.ServerPort
	}
	if o.PublicDir != "" {
		c.PublicDir = o.PublicDir
	}
	if o.CooldownSeconds != 0 {
		c.CooldownSeconds = o.CooldownSeconds
	}
	if o.HeartbeatTimeoutSeconds != 0 {
		c.HeartbeatTimeoutSeconds = o.HeartbeatTimeoutSeconds
	}
	if o.PresenceSweepIntervalSeconds != 0 {
		c.PresenceSweepIntervalSeconds = o.PresenceSweepIntervalSeconds
	}
	if o.NotifyStatsIntervalSeconds != 0 {
		c.NotifyStatsIntervalSeconds = o.NotifyStatsIntervalSeconds
	}
	if o.AverageWaitWindowSize != 0 {
		c.AverageWaitWindowSize = o.AverageWaitWindowSize
	}
	if o.SessionCookieMaxAgeSeconds != 0 {
		c.SessionCookieMaxAgeSeconds = o.SessionCookieMaxAgeSeconds
	}
	if o.RedisHost != "" {
		c.RedisHost = o.RedisHost
	}
	if o.RedisDB != 0 {
		c.RedisDB = o.RedisDB
	}
}

func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.CooldownSeconds <= 0 {
		return errors.New("cooldown seconds must be positive")
	}
	if c.HeartbeatTimeoutSeconds <= 0 {
		return errors.New("heartbeat timeout seconds must be positive")
	}
	if c.PresenceSweepIntervalSeconds <= 0 {
		return errors.New("presence sweep interval seconds must be positive")
	}
	if c.NotifyStatsIntervalSeconds <= 0 {
		return errors.New("notify stats interval seconds must be positive")
	}
	if c.AverageWaitWindowSize <= 0 {
		return errors.New("average wait window size must be positive")
	}
	if c.SessionCookieMaxAgeSeconds <= 0 {
		return errors.New("session cookie max age seconds must be positive")
	}
	return nil
}

func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.HeartbeatTimeoutSeconds) * time.Second
}

func (c *Config) PresenceSweepInterval() time.Duration {
	return time.Duration(c.PresenceSweepIntervalSeconds) * time.Second
}

func (c *Config) NotifyStatsInterval() time.Duration {
	return time.Duration(c.NotifyStatsIntervalSeconds) * time.Second
}
