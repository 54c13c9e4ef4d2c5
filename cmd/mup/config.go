package main

import (
	"fmt"

	"github.com/franz/minutes-janitor/internal/util"
	"github.com/spf13/viper"
)

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (MUP_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// requireDBPath returns the configured archive path
func requireDBPath() (string, error) {
	path := viper.GetString("db")
	if path == "" {
		return "", fmt.Errorf("%w: archive path is required (use --db or set db in config)", util.ErrInvalidConfig)
	}
	return path, nil
}
