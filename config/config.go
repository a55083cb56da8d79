// Package config provides configuration loading and validation for the crosstab CLI.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/spektr-org/crosstab/render"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers    = errors.New("cube workers must not be negative")
	ErrInvalidSampleSize = errors.New("discover sample size must be positive")
	ErrInvalidLevel      = errors.New("invalid log level")
	ErrInvalidLogFormat  = errors.New("invalid log format")
	ErrInvalidMaxSize    = errors.New("invalid input max size")
	ErrInvalidOutput     = errors.New("invalid output setting")
)

// Default configuration values.
const (
	DefaultLogLevel    = "warn"
	DefaultLogFormat   = "text"
	DefaultWorkers     = 1
	DefaultSampleSize  = 1000
	DefaultOutput      = "table"
	DefaultStyle       = "light"
	DefaultMaxSize     = "64MB"
	envPrefix          = "CROSSTAB"
	defaultConfigName  = ".crosstab"
	logFormatJSON      = "json"
	logFormatPlainText = "text"
)

// Config holds all configuration for the crosstab CLI.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Cube     CubeConfig     `mapstructure:"cube"`
	Discover DiscoverConfig `mapstructure:"discover"`
	Output   OutputConfig   `mapstructure:"output"`
	Input    InputConfig    `mapstructure:"input"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CubeConfig holds cube build settings.
type CubeConfig struct {
	Workers int `mapstructure:"workers"`
}

// DiscoverConfig holds schema discovery settings.
type DiscoverConfig struct {
	SampleSize int `mapstructure:"sample_size"`
}

// OutputConfig holds rendering settings.
type OutputConfig struct {
	Format     string `mapstructure:"format"`
	Style      string `mapstructure:"style"`
	DetailOnly bool   `mapstructure:"detail_only"`
}

// InputConfig bounds what the CLI will read.
type InputConfig struct {
	MaxSize string `mapstructure:"max_size"`
}

// MaxSizeBytes parses MaxSize ("64MB", "1GiB", ...).
func (c InputConfig) MaxSizeBytes() (uint64, error) {
	n, err := humanize.ParseBytes(c.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidMaxSize, c.MaxSize, err)
	}
	return n, nil
}

// LoadConfig loads configuration from file and environment variables.
// With an empty path it looks for .crosstab.yaml in the working directory
// and the home directory, and falls back to defaults when there is none.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(defaultConfigName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	return &Config{
		Logging:  LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Cube:     CubeConfig{Workers: DefaultWorkers},
		Discover: DiscoverConfig{SampleSize: DefaultSampleSize},
		Output:   OutputConfig{Format: DefaultOutput, Style: DefaultStyle},
		Input:    InputConfig{MaxSize: DefaultMaxSize},
	}
}

func setDefaults(viperCfg *viper.Viper) {
	def := Default()

	viperCfg.SetDefault("logging.level", def.Logging.Level)
	viperCfg.SetDefault("logging.format", def.Logging.Format)

	viperCfg.SetDefault("cube.workers", def.Cube.Workers)
	viperCfg.SetDefault("discover.sample_size", def.Discover.SampleSize)

	viperCfg.SetDefault("output.format", def.Output.Format)
	viperCfg.SetDefault("output.style", def.Output.Style)
	viperCfg.SetDefault("output.detail_only", def.Output.DetailOnly)

	viperCfg.SetDefault("input.max_size", def.Input.MaxSize)
}

func validateConfig(config *Config) error {
	if config.Cube.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Cube.Workers)
	}

	if config.Discover.SampleSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleSize, config.Discover.SampleSize)
	}

	if _, err := ParseLevel(config.Logging.Level); err != nil {
		return err
	}

	switch strings.ToLower(config.Logging.Format) {
	case logFormatPlainText, logFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if _, err := render.ParseFormat(config.Output.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}

	if _, err := render.Style(config.Output.Style); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}

	if _, err := config.Input.MaxSizeBytes(); err != nil {
		return err
	}

	return nil
}
