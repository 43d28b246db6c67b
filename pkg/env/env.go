// Package env reads service configuration from the process environment.
// Getters fall back to a default instead of failing: a missing or malformed
// value never stops a service from booting. Anything that genuinely must be
// present is checked by the caller at wiring time.
package env

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// GetString returns the value of key, or fallback when unset or empty.
func GetString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetStringFromFile resolves secrets that may be mounted as files. KEY_FILE
// wins when it names a readable file (Docker and Kubernetes secret mounts);
// otherwise the plain KEY variable is consulted. File content is trimmed
// because secret files routinely end with a newline.
func GetStringFromFile(key, fallback string) string {
	if path := os.Getenv(key + "_FILE"); path != "" {
		if raw, err := os.ReadFile(filepath.Clean(path)); err == nil {
			return strings.TrimSpace(string(raw))
		}
	}
	return GetString(key, fallback)
}

// GetInt returns the value of key as an integer, or fallback when unset or
// not a valid integer.
func GetInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// GetBool returns the value of key as a boolean, or fallback when unset or
// not parseable by strconv.ParseBool.
func GetBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
