// Package config loads server settings from an optional app.env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jezdimedoprace/carpool/pkg/carpool/models"
	"github.com/spf13/viper"
)

// Config stores all configuration of the server.
// The values are read by viper from a config file or environment variable.
type Config struct {
	Environment    string        `mapstructure:"ENVIRONMENT"`
	HTTPAddr       string        `mapstructure:"HTTP_ADDR"`
	DBDriver       string        `mapstructure:"DB_DRIVER"`
	DBSource       string        `mapstructure:"DB_SOURCE"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	TokenDuration  time.Duration `mapstructure:"TOKEN_DURATION"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	MaxOwnedGroups int           `mapstructure:"MAX_OWNED_GROUPS"`
}

var defaults = map[string]any{
	"ENVIRONMENT":      "development",
	"HTTP_ADDR":        ":8080",
	"DB_DRIVER":        "sqlite",
	"DB_SOURCE":        "carpool.db",
	"JWT_SECRET":       "carpool-dev-secret-change-in-production",
	"TOKEN_DURATION":   24 * time.Hour,
	"LOG_LEVEL":        "info",
	"MAX_OWNED_GROUPS": models.MaxOwnedGroups,
}

// Load reads configuration from path/app.env (if present) and environment
// variables. Environment variables win over the file.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var config Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, err
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, err
	}

	// The cap may be lowered for a deployment but never raised above four.
	if config.MaxOwnedGroups < 1 || config.MaxOwnedGroups > models.MaxOwnedGroups {
		return config, fmt.Errorf("MAX_OWNED_GROUPS must be between 1 and %d, got %d", models.MaxOwnedGroups, config.MaxOwnedGroups)
	}

	config.DBDriver = strings.ToLower(strings.TrimSpace(config.DBDriver))
	config.JWTSecret = trimOptionalQuotes(config.JWTSecret)
	return config, nil
}

// IsProduction reports whether the server runs with production settings
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func trimOptionalQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "\"")
	s = strings.TrimSuffix(s, "\"")
	s = strings.TrimPrefix(s, "'")
	s = strings.TrimSuffix(s, "'")
	return s
}
