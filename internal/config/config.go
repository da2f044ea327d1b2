package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/levyline/levyline/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Rates      RatesConfig      `validate:"required"`
	Batch      BatchConfig      `validate:"required"`
	Cache      CacheConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

// RatesConfig points at the persisted rate and penalty configuration
// the registry snapshots are built from
type RatesConfig struct {
	Path string `validate:"required"`
}

// BatchConfig bounds the worker pool used for batch recomputation
type BatchConfig struct {
	MaxWorkers int `validate:"required,gt=0"`
}

// CacheConfig controls how long a built registry snapshot is reused
// before being rebuilt from the rate repositories
type CacheConfig struct {
	SnapshotTTL time.Duration
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/levyline")

	// Set up environment variables support
	v.SetEnvPrefix("LEVYLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	v.SetDefault("deployment.mode", string(types.ModeLocal))
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("batch.maxworkers", 8)
	v.SetDefault("cache.snapshotttl", "30m")

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Rates:      RatesConfig{Path: "./config/rates.yaml"},
		Batch:      BatchConfig{MaxWorkers: 4},
		Cache:      CacheConfig{SnapshotTTL: 30 * time.Minute},
	}
}
