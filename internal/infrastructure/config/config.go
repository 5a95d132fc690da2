package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Backfill BackfillConfig `mapstructure:"backfill"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment" validate:"oneof=development staging production"`
}

// BackfillConfig holds the location and write behavior of the tracks file
type BackfillConfig struct {
	InputPath   string `mapstructure:"input_path" validate:"required"`
	OutputPath  string `mapstructure:"output_path"`
	AtomicWrite bool   `mapstructure:"atomic_write"`
	Indent      int    `mapstructure:"indent" validate:"min=0,max=8"`
	FilePerm    uint32 `mapstructure:"file_perm" validate:"max=511"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level    string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format   string `mapstructure:"format" validate:"oneof=json console"`
	Output   string `mapstructure:"output" validate:"oneof=stdout stderr file"`
	Filename string `mapstructure:"filename" validate:"required_if=Output file"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	TextfilePath string `mapstructure:"textfile_path" validate:"required_if=Enabled true"`
}

// Options tune where Load looks for values besides the environment
type Options struct {
	// ConfigFile is an optional yaml/json/toml file read before env overrides.
	ConfigFile string
	// Flags are command-line flags bound onto config keys by FlagBindings.
	Flags *pflag.FlagSet
}

// DefaultVersion is the app.version default, set with -ldflags "-X ..." at build time
var DefaultVersion = "1.0.0"

// FlagBindings maps command-line flag names to config keys
var FlagBindings = map[string]string{
	"file":      "backfill.input_path",
	"output":    "backfill.output_path",
	"atomic":    "backfill.atomic_write",
	"indent":    "backfill.indent",
	"log-level": "logger.level",
}

// LoadWithOptions loads configuration from various sources.
// Precedence: flags, environment, config file, defaults.
func LoadWithOptions(opts Options) (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	}

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "trackcounters")
	v.SetDefault("app.version", DefaultVersion)
	v.SetDefault("app.environment", "development")

	// Backfill defaults
	v.SetDefault("backfill.input_path", "spotify_1000_tracks_20250618_153243.json")
	v.SetDefault("backfill.output_path", "")
	v.SetDefault("backfill.atomic_write", false)
	v.SetDefault("backfill.indent", 2)
	v.SetDefault("backfill.file_perm", 0o644)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stderr")
	v.SetDefault("logger.filename", "")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.textfile_path", "")
}

var envBindings = map[string]string{
	"app.name":        "APP_NAME",
	"app.version":     "APP_VERSION",
	"app.environment": "APP_ENVIRONMENT",

	"backfill.input_path":   "BACKFILL_INPUT_PATH",
	"backfill.output_path":  "BACKFILL_OUTPUT_PATH",
	"backfill.atomic_write": "BACKFILL_ATOMIC_WRITE",
	"backfill.indent":       "BACKFILL_INDENT",
	"backfill.file_perm":    "BACKFILL_FILE_PERM",

	"logger.level":    "LOG_LEVEL",
	"logger.format":   "LOG_FORMAT",
	"logger.output":   "LOG_OUTPUT",
	"logger.filename": "LOG_FILENAME",

	"metrics.enabled":       "ENABLE_METRICS",
	"metrics.textfile_path": "METRICS_TEXTFILE_PATH",
}

func bindEnvVars(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range FlagBindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

func validateConfig(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	return nil
}

// TargetPath returns where the backfilled document is written
func (cfg *BackfillConfig) TargetPath() string {
	if cfg.OutputPath == "" {
		return cfg.InputPath
	}
	return cfg.OutputPath
}

// InPlace reports whether the document is written over its own source
func (cfg *BackfillConfig) InPlace() bool {
	return cfg.TargetPath() == cfg.InputPath
}
