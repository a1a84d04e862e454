// Package config loads the server's tunables from a YAML file, applies
// defaults for anything left unset, and hands back an immutable
// snapshot. It plays the role the teacher's tuning.Load plays for its
// world simulation, generalized to the full option surface this server
// exposes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the fully-resolved, immutable set of tunables. It is
// loaded once at startup and nothing downstream mutates it; there is
// no reload path.
type Config struct {
	ChunkSize          int   `yaml:"chunk_size"`
	ChunkHeight        int   `yaml:"chunk_height"`
	MaxLoadedChunks    int   `yaml:"max_loaded_chunks"`
	ChunkUnloadDelayMs int   `yaml:"chunk_unload_delay_ms"`
	MaxRetainedChunks  int   `yaml:"max_retained_chunks"`
	ChunkEvictionIntervalMs int `yaml:"chunk_eviction_interval_ms"`

	TargetFPS       int  `yaml:"target_fps"`
	MaxDeltaTimeMs  int  `yaml:"max_delta_time_ms"`
	TickRateDisabled bool `yaml:"tick_rate_disabled"`

	WSHeartbeatMs        int `yaml:"ws_heartbeat_ms"`
	WSConnectionTimeoutMs int `yaml:"ws_connection_timeout_ms"`
	MaxSubsPerClient     int `yaml:"max_subs_per_client"`
	MaxMessageSize       int `yaml:"max_message_size"`
	MaxMessagesPerSecond int `yaml:"max_messages_per_second"`

	Gravity          float64 `yaml:"gravity"`
	TerminalVelocity float64 `yaml:"terminal_velocity"`
	GroundFriction   float64 `yaml:"ground_friction"`
	AirFriction      float64 `yaml:"air_friction"`
	CollisionEpsilon float64 `yaml:"collision_epsilon"`

	DataDirectory        string `yaml:"data_directory"`
	AutoSaveIntervalMs   int    `yaml:"auto_save_interval_ms"`

	RateLimitWindowMs     int `yaml:"rate_limit_window_ms"`
	RateLimitMaxRequests  int `yaml:"rate_limit_max_requests"`
	MaxConcurrentConns    int `yaml:"max_concurrent_connections"`
}

// Load reads path and returns a Config with defaults applied. A
// missing file is not an error: a zero-value Config with defaults
// applied is returned, matching the teacher's convention of running
// off built-in tuning when no override file is present.
func Load(path string) (Config, error) {
	var c Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				c.applyDefaults()
				return c, nil
			}
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return c, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 32
	}
	if c.ChunkHeight <= 0 {
		c.ChunkHeight = 256
	}
	if c.MaxLoadedChunks <= 0 {
		c.MaxLoadedChunks = 1000
	}
	if c.ChunkUnloadDelayMs <= 0 {
		c.ChunkUnloadDelayMs = 60_000
	}
	if c.MaxRetainedChunks <= 0 {
		c.MaxRetainedChunks = 20_000
	}
	if c.ChunkEvictionIntervalMs <= 0 {
		c.ChunkEvictionIntervalMs = 30_000
	}
	if c.TargetFPS <= 0 {
		c.TargetFPS = 60
	}
	if c.MaxDeltaTimeMs <= 0 {
		c.MaxDeltaTimeMs = 100
	}
	if c.WSHeartbeatMs <= 0 {
		c.WSHeartbeatMs = 30_000
	}
	if c.WSConnectionTimeoutMs <= 0 {
		c.WSConnectionTimeoutMs = 60_000
	}
	if c.MaxSubsPerClient <= 0 {
		c.MaxSubsPerClient = 512
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 65536
	}
	if c.MaxMessagesPerSecond <= 0 {
		c.MaxMessagesPerSecond = 60
	}
	if c.Gravity == 0 {
		c.Gravity = -9.81
	}
	if c.TerminalVelocity == 0 {
		c.TerminalVelocity = -53
	}
	if c.GroundFriction == 0 {
		c.GroundFriction = 0.8
	}
	if c.AirFriction == 0 {
		c.AirFriction = 0.98
	}
	if c.CollisionEpsilon <= 0 {
		c.CollisionEpsilon = 0.001
	}
	if c.DataDirectory == "" {
		c.DataDirectory = "./data"
	}
	if c.AutoSaveIntervalMs <= 0 {
		c.AutoSaveIntervalMs = 300_000
	}
	if c.RateLimitWindowMs <= 0 {
		c.RateLimitWindowMs = 1000
	}
	if c.RateLimitMaxRequests <= 0 {
		c.RateLimitMaxRequests = 60
	}
	if c.MaxConcurrentConns <= 0 {
		c.MaxConcurrentConns = 10_000
	}
}

func (c Config) WSHeartbeatInterval() time.Duration {
	return time.Duration(c.WSHeartbeatMs) * time.Millisecond
}

func (c Config) WSConnectionTimeout() time.Duration {
	return time.Duration(c.WSConnectionTimeoutMs) * time.Millisecond
}

func (c Config) MaxDeltaTime() time.Duration {
	return time.Duration(c.MaxDeltaTimeMs) * time.Millisecond
}

func (c Config) AutoSaveInterval() time.Duration {
	return time.Duration(c.AutoSaveIntervalMs) * time.Millisecond
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMs) * time.Millisecond
}

func (c Config) ChunkUnloadDelay() time.Duration {
	return time.Duration(c.ChunkUnloadDelayMs) * time.Millisecond
}

func (c Config) ChunkEvictionInterval() time.Duration {
	return time.Duration(c.ChunkEvictionIntervalMs) * time.Millisecond
}
