package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/agentuity/go-objectcache/logger"
)

// FlagOrEnv will try and get a flag from the cobra.Command and if not found, look it up in the environment
// and fallback to defaultValue if non found
func FlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok {
		return val
	}
	return defaultValue
}

// NewLogger returns a console or JSON logger at the configured level.
func NewLogger(c *Config) logger.Logger {
	level := logger.LevelInfo
	if c.LogLevel != "" {
		if l, err := logger.ParseLevel(c.LogLevel); err == nil {
			level = l
		}
	}
	if c.LogFormat == "json" {
		return logger.NewJSONLogger(level)
	}
	return logger.NewConsoleLogger(level)
}
