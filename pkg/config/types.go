package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Readiness ReadinessConfig `yaml:"readiness"`
	Verify    VerifyConfig    `yaml:"verify"`
	Render    RenderConfig    `yaml:"render"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int        `yaml:"port"`
	ReadTimeout     string     `yaml:"read_timeout"`
	WriteTimeout    string     `yaml:"write_timeout"`
	MaxRequestSize  int64      `yaml:"max_request_size"`
	ShutdownTimeout string     `yaml:"shutdown_timeout"`
	Auth            AuthConfig `yaml:"auth"`
}

// AuthConfig defines authentication settings for the API
type AuthConfig struct {
	Type   string `yaml:"type"`   // none, bearer or hmac
	Secret string `yaml:"secret"` // HMAC secret or bearer token
}

// ReadinessConfig holds the readiness scoring policy
type ReadinessConfig struct {
	ContrastThreshold float64 `yaml:"contrast_threshold"` // percent
	Substrate         string  `yaml:"substrate"`
}

// VerifyConfig holds live verification settings
type VerifyConfig struct {
	RefreshRate int    `yaml:"refresh_rate"` // Hz
	FrameDir    string `yaml:"frame_dir"`
	TryHarder   bool   `yaml:"try_harder"`
}

// RenderConfig holds symbol export settings
type RenderConfig struct {
	DefaultSize   int    `yaml:"default_size"`
	DefaultFormat string `yaml:"default_format"`
}

// ParseDuration converts string duration to time.Duration
func (c *Config) ParseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
