// Package config resolves the pipeline's configuration surface from the
// environment, with optional .env file support. The core components never
// read the environment themselves; the values are threaded in explicitly.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names for the three source files.
const (
	EnvCrimeFile   = "DELITOS_FILE"
	EnvContactFile = "CONTACT_FILE"
	EnvIncomeFile  = "RENTA_FILE"
)

// LoadEnv loads environment variables from a .env file in the current or a
// parent directory. Existing variables are never overwritten.
func LoadEnv() error {
	envPaths := []string{".env", "../.env", "../../.env"}

	for _, envPath := range envPaths {
		data, err := os.ReadFile(envPath)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
		break
	}
	return nil
}

// GetEnv returns the variable's value, or the default when unset. Source
// file paths and encoding names resolve through this.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt returns the variable as an int, falling back to the default
// when unset or not numeric. Skip-row and skip-footer counts resolve
// through this.
func GetEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvRune returns the first character of the variable, or the default
// when unset. The CSV field separator resolves through this.
func GetEnvRune(key string, defaultValue rune) rune {
	if value := os.Getenv(key); value != "" {
		return []rune(value)[0]
	}
	return defaultValue
}
