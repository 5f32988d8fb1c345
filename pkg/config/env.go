package config

import (
	"os"
	"strconv"
)

// EnvConfig holds environment variable-based configuration
type EnvConfig struct {
	Port       int
	LogLevel   string
	ConfigFile string
	FrameDir   string
	AuthToken  string
	SecretsDir string
}

// LoadFromEnv reads configuration from environment variables. Unset
// variables leave the zero value so they do not override the file.
func LoadFromEnv() *EnvConfig {
	env := &EnvConfig{
		Port:       getEnvAsInt("PORT", 0),
		LogLevel:   getEnv("LOG_LEVEL", ""),
		ConfigFile: getEnv("CONFIG_FILE", "config.yaml"),
		FrameDir:   getEnv("FRAME_DIR", ""),
		AuthToken:  getEnv("AUTH_TOKEN", ""),
		SecretsDir: getEnv("SECRETS_DIR", "/secrets"),
	}

	return env
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
