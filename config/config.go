package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Allocation AllocationConfig `yaml:"allocation"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// TrackerConfig holds the live occupancy tracker configuration.
type TrackerConfig struct {
	TickIntervalSeconds int           `yaml:"tick_interval_seconds"`
	TickInterval        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// AllocationConfig holds the allocation policy configuration.
type AllocationConfig struct {
	DefaultDurationMinutes int `yaml:"default_duration_minutes"`
	// Whether an assignment may displace an occupant whose planned duration
	// has not elapsed yet. Displacing a kickable occupant is always allowed.
	AllowDisplaceOccupied bool `yaml:"allow_displace_occupied"`
	// When true, rooms reserved for an instrument are excluded from the
	// priority candidate list.
	StrictReserved bool `yaml:"strict_reserved"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Tracker.TickIntervalSeconds <= 0 {
		cfg.Tracker.TickIntervalSeconds = 1
	}
	cfg.Tracker.TickInterval = time.Duration(cfg.Tracker.TickIntervalSeconds) * time.Second

	if cfg.Allocation.DefaultDurationMinutes <= 0 {
		cfg.Allocation.DefaultDurationMinutes = 120
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
