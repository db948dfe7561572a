package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/fieldscope/fieldrec-api/pkg/errors"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		// Set default values
		setDefaults()

		// Set up environment variable reading for overrides
		viper.SetEnvPrefix("FIELDREC")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		// Load config from fixed location (cleaned for safety)
		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		// Try to read the config file
		if err := viper.ReadInConfig(); err != nil {
			// If the config file doesn't exist, just use defaults and env vars
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		// Validate the configuration
		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// IsInitialized reports whether Init has completed without error
func IsInitialized() bool {
	return viper.IsSet("server.port")
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Get returns a config value by key using Viper directly
func Get(key string) any {
	return viper.Get(key)
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetStringMapString returns a string map config value
func GetStringMapString(key string) map[string]string {
	return viper.GetStringMapString(key)
}

// GetStringSlice returns a string slice config value
func GetStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return apperrors.ConfigError("server.port", fmt.Sprintf("invalid port %d", port))
	}

	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		fmt.Println("Warning: No database path configured")
	}

	if viper.GetInt("engine.base_factor") <= 0 {
		return apperrors.ConfigError("engine.base_factor", fmt.Sprintf("must be positive, got %d", viper.GetInt("engine.base_factor")))
	}
	if viper.GetInt("engine.level_multiplier") < 2 {
		return apperrors.ConfigError("engine.level_multiplier", fmt.Sprintf("must be at least 2, got %d", viper.GetInt("engine.level_multiplier")))
	}

	// Auto-correct invalid worker count
	if viper.GetInt("engine.workers") <= 0 {
		viper.Set("engine.workers", 2)
	}

	// Auto-correct invalid queue size
	if viper.GetInt("engine.max_queue_size") <= 0 {
		viper.Set("engine.max_queue_size", 100)
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.ConfigError("server.port", fmt.Sprintf("invalid port %d", c.Server.Port))
	}

	if c.Engine.BaseFactor <= 0 {
		return apperrors.ConfigError("engine.base_factor", fmt.Sprintf("must be positive, got %d", c.Engine.BaseFactor))
	}
	if c.Engine.LevelMultiplier < 2 {
		return apperrors.ConfigError("engine.level_multiplier", fmt.Sprintf("must be at least 2, got %d", c.Engine.LevelMultiplier))
	}

	if c.Engine.Workers <= 0 {
		c.Engine.Workers = 2
	}
	if c.Engine.MaxQueueSize <= 0 {
		c.Engine.MaxQueueSize = 100
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Environment defaults
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)

	// Database defaults
	viper.SetDefault("database.path", "./data/fieldrec.db")
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("database.max_idle_connections", 5)
	viper.SetDefault("database.connection_max_lifetime", 30*time.Minute)
	viper.SetDefault("database.verbose", false)

	// Library defaults
	viper.SetDefault("library.root", "./recordings")
	viper.SetDefault("library.extensions", []string{".wav"})
	viper.SetDefault("library.recursive", true)
	viper.SetDefault("library.sidecar_path", "./data/metadata.json")
	viper.SetDefault("library.recent_limit", 20)
	viper.SetDefault("library.scan_on_start", false)

	// Engine defaults
	viper.SetDefault("engine.base_factor", 256)
	viper.SetDefault("engine.level_multiplier", 4)
	viper.SetDefault("engine.cache_budget_mb", 128)
	viper.SetDefault("engine.workers", 2)
	viper.SetDefault("engine.max_queue_size", 100)
	viper.SetDefault("engine.build_timeout", 5*time.Minute)

	// Default tags applied on first import
	viper.SetDefault("tags.defaults", map[string]string{})

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.endpoints", map[string]int{
		"waveform": 100,
		"scan":     10,
		"default":  120,
	})

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.cors_origins", []string{"*"})
	viper.SetDefault("security.cors_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors_headers", []string{"Content-Type", "Authorization", "Range"})
	viper.SetDefault("security.enable_recovery", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}
