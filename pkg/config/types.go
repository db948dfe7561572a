package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Server       ServerConfig    `mapstructure:"server"`
	Database     DatabaseConfig  `mapstructure:"database"`
	Library      LibraryConfig   `mapstructure:"library"`
	Engine       EngineConfig    `mapstructure:"engine"`
	Tags         TagsConfig      `mapstructure:"tags"`
	RateLimiting RateLimitConfig `mapstructure:"rate_limiting"`
	Security     SecurityConfig  `mapstructure:"security"`
	Logging      LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// DatabaseConfig contains catalog database settings
type DatabaseConfig struct {
	Path                  string        `mapstructure:"path"`
	MaxConnections        int           `mapstructure:"max_connections"`
	MaxIdleConnections    int           `mapstructure:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `mapstructure:"connection_max_lifetime"`
	Verbose               bool          `mapstructure:"verbose"`
}

// LibraryConfig describes where recordings and their sidecar metadata live
type LibraryConfig struct {
	Root        string   `mapstructure:"root"`
	Extensions  []string `mapstructure:"extensions"`
	Recursive   bool     `mapstructure:"recursive"`
	SidecarPath string   `mapstructure:"sidecar_path"`
	RecentLimit int      `mapstructure:"recent_limit"`
	ScanOnStart bool     `mapstructure:"scan_on_start"`
}

// EngineConfig contains waveform pyramid settings
type EngineConfig struct {
	BaseFactor      int           `mapstructure:"base_factor"`
	LevelMultiplier int           `mapstructure:"level_multiplier"`
	CacheBudgetMB   int           `mapstructure:"cache_budget_mb"`
	Workers         int           `mapstructure:"workers"`
	MaxQueueSize    int           `mapstructure:"max_queue_size"`
	BuildTimeout    time.Duration `mapstructure:"build_timeout"`
}

// TagsConfig holds the default tag values applied to newly imported assets
type TagsConfig struct {
	Defaults map[string]string `mapstructure:"defaults"`
}

// RateLimitConfig contains rate limiting settings
type RateLimitConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	Endpoints map[string]int `mapstructure:"endpoints"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	EnableCORS     bool     `mapstructure:"enable_cors"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	CORSMethods    []string `mapstructure:"cors_methods"`
	CORSHeaders    []string `mapstructure:"cors_headers"`
	EnableRecovery bool     `mapstructure:"enable_recovery"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
