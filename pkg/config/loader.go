package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qrforge/scan-readiness/pkg/contrast"
)

// Load reads and parses the YAML configuration file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables, leaving ${FILE:...} secret references
	// for InjectSecretsIntoConfig
	expanded := os.Expand(string(data), expandEnv)

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func expandEnv(key string) string {
	if strings.HasPrefix(key, secretPrefix) {
		return "${" + key + "}"
	}
	return os.Getenv(key)
}

// Default returns a configuration with every default applied, used when
// no config file is present
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// ApplyEnv overrides file settings with values from the environment
func (c *Config) ApplyEnv(env *EnvConfig) {
	if env.Port != 0 {
		c.Server.Port = env.Port
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
	if env.FrameDir != "" {
		c.Verify.FrameDir = env.FrameDir
	}
	if env.AuthToken != "" {
		c.Server.Auth = AuthConfig{Type: "bearer", Secret: env.AuthToken}
	}
}

// applyDefaults sets default values for unspecified configuration options
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "30s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Server.MaxRequestSize == 0 {
		c.Server.MaxRequestSize = 10 * 1024 * 1024 // 10MB
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "30s"
	}
	if c.Server.Auth.Type == "" {
		c.Server.Auth.Type = "none"
	}

	// Readiness defaults
	if c.Readiness.ContrastThreshold == 0 {
		c.Readiness.ContrastThreshold = 40
	}
	if c.Readiness.Substrate == "" {
		c.Readiness.Substrate = "#1a1a2e"
	}

	// Verify defaults
	if c.Verify.RefreshRate == 0 {
		c.Verify.RefreshRate = 60
	}
	if c.Verify.FrameDir == "" {
		c.Verify.FrameDir = "frames"
	}

	// Render defaults
	if c.Render.DefaultSize == 0 {
		c.Render.DefaultSize = 512
	}
	if c.Render.DefaultFormat == "" {
		c.Render.DefaultFormat = "png"
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration for required fields and valid values
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", c.Server.Port)
	}

	if err := validateAuthConfig(c.Server.Auth); err != nil {
		return fmt.Errorf("server.auth: %w", err)
	}

	if c.Readiness.ContrastThreshold < 0 || c.Readiness.ContrastThreshold > 100 {
		return fmt.Errorf("readiness.contrast_threshold must be between 0 and 100, got: %v",
			c.Readiness.ContrastThreshold)
	}

	if _, err := contrast.ParseHex(c.Readiness.Substrate); err != nil {
		return fmt.Errorf("invalid readiness.substrate: %w", err)
	}

	if c.Verify.RefreshRate < 1 || c.Verify.RefreshRate > 240 {
		return fmt.Errorf("verify.refresh_rate must be between 1 and 240, got: %d", c.Verify.RefreshRate)
	}

	if c.Render.DefaultSize < 64 {
		return fmt.Errorf("render.default_size must be at least 64, got: %d", c.Render.DefaultSize)
	}

	if err := validateFormat(c.Render.DefaultFormat); err != nil {
		return fmt.Errorf("render.default_format: %w", err)
	}

	if err := validateLogLevel(c.LogLevel); err != nil {
		return err
	}

	// Validate duration strings
	durations := map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	}

	for name, value := range durations {
		if _, err := c.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return nil
}

func validateFormat(format string) error {
	validFormats := []string{"svg", "png", "jpeg", "jpg"}
	for _, valid := range validFormats {
		if strings.EqualFold(format, valid) {
			return nil
		}
	}
	return fmt.Errorf("invalid format '%s', must be one of: %s",
		format, strings.Join(validFormats, ", "))
}

func validateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("invalid log_level '%s', must be 'debug', 'info', 'warn', or 'error'", level)
}

func validateAuthConfig(auth AuthConfig) error {
	if auth.Type != "hmac" && auth.Type != "bearer" && auth.Type != "none" {
		return fmt.Errorf("invalid auth type '%s', must be 'hmac', 'bearer', or 'none'", auth.Type)
	}

	if (auth.Type == "hmac" || auth.Type == "bearer") && auth.Secret == "" {
		return fmt.Errorf("auth.secret is required when auth type is '%s'", auth.Type)
	}

	return nil
}
