package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrConfigInvalid         = errors.New("config file failed validation")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.1.0"

// Current version of the config file.
const (
	CurrentCommonVersion     = 1
	CurrentBotVersion        = 1
	CurrentModerationVersion = 1
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config represents the entire application configuration.
type Config struct {
	Common     CommonConfig     `koanf:"common"`
	Bot        BotConfig        `koanf:"bot"`
	Moderation ModerationConfig `koanf:"moderation"`
}

// CommonConfig contains configuration shared between every binary.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	Storage    Storage    `koanf:"storage"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	SQLite     SQLite     `koanf:"sqlite"`
	Redis      Redis      `koanf:"redis"`
	Metrics    Metrics    `koanf:"metrics"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"        validate:"oneof=debug info warn error"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep" validate:"gte=1"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"    validate:"gte=100"`
}

// Storage selects the persistence backend.
type Storage struct {
	// Backend is one of file, postgres or sqlite.
	Backend string `koanf:"backend"  validate:"oneof=file postgres sqlite"`
	// Directory holding the JSON documents of the file backend.
	DataDir string `koanf:"data_dir" validate:"required_if=Backend file"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// SQLite contains the embedded database configuration.
type SQLite struct {
	// Path to the database file.
	Path string `koanf:"path"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Store pending approvals in Redis instead of memory.
	Enabled bool `koanf:"enabled"`
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
	// Disable client-side caching for servers without RESP3 tracking.
	DisableCache bool `koanf:"disable_cache"`
}

// Metrics contains metrics export configuration.
type Metrics struct {
	// Serve Prometheus metrics over HTTP.
	Enabled bool `koanf:"enabled"`
	// Port for the metrics endpoint.
	Port int `koanf:"port"            validate:"gte=0,lte=65535"`
	// Memory sample interval in milliseconds.
	SampleInterval int `koanf:"sample_interval" validate:"gte=1000"`
}

// BotConfig contains Discord bot specific configuration.
type BotConfig struct {
	// Version of the bot config.
	Version int `koanf:"version"`
	// Timeout for every chat platform call in milliseconds.
	RequestTimeout int `koanf:"request_timeout" validate:"gte=100"`
	// Discord user ID of the privileged operator.
	OwnerID string `koanf:"owner_id"        validate:"required,numeric"`
	// Prefix for text admin commands.
	CommandPrefix string `koanf:"command_prefix"  validate:"required"`
	// Discord configuration.
	Discord Discord `koanf:"discord"`
	// Approval configuration.
	Approval Approval `koanf:"approval"`
}

// Discord contains Discord bot configuration.
type Discord struct {
	// Discord bot token for authentication.
	Token string `koanf:"token"`
}

// Approval contains human approval configuration.
type Approval struct {
	// Seconds before an unanswered approval request is treated as denied.
	TTL int `koanf:"ttl" validate:"gte=60"`
}

// LoadConfig loads the configuration from the default search paths.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return LoadConfigFrom(
		".retract",
		homeDir+"/.retract/config",
		"/etc/retract/config",
		"/app/config",
		"config",
		".",
	)
}

// LoadConfigFrom loads the configuration from the first path that holds each config file.
func LoadConfigFrom(configPaths ...string) (*Config, string, error) {
	k := koanf.New(".")

	var usedConfigPath string

	configFiles := []string{"common", "bot", "moderation"}
	for _, configName := range configFiles {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if err := k.Load(file.Provider(configPath), toml.Parser(), koanf.WithMergeFunc(prefixMerge(configName))); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	config := Default()
	if err := k.Unmarshal("", config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("moderation", config.Moderation.Version, CurrentModerationVersion); err != nil {
		return nil, "", err
	}

	if err := config.Validate(); err != nil {
		return nil, "", err
	}

	return config, usedConfigPath, nil
}

// Validate checks every section against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	return nil
}

// prefixMerge nests each file under its own top-level key so identical keys never collide.
func prefixMerge(name string) func(src, dest map[string]any) error {
	return func(src, dest map[string]any) error {
		dest[name] = src
		return nil
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/robalyx/retract/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
