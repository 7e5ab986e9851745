package core

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvOrDefault returns the value of an environment variable or a default value.
// This is a pure function with no side effects beyond reading env vars.
func EnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IntEnv parses an environment variable as an integer.
// Returns the default value if the variable is not set or cannot be parsed.
func IntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// Int64Env parses an environment variable as an int64.
// Returns the default value if the variable is not set or cannot be parsed.
func Int64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

// Float64Env parses an environment variable as a float64.
// Returns the default value if the variable is not set or cannot be parsed.
func Float64Env(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// BoolEnv parses an environment variable as a boolean.
// Accepts case-insensitive: "true", "1", "yes", "on" as true values.
// Accepts case-insensitive: "false", "0", "no", "off" as false values.
// Returns the default value if the variable is not set or cannot be parsed.
func BoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// SecondsEnv parses an environment variable as a duration expressed in whole seconds.
// Returns the default value if the variable is not set or cannot be parsed.
func SecondsEnv(key string, defaultSeconds int) time.Duration {
	return time.Duration(IntEnv(key, defaultSeconds)) * time.Second
}
