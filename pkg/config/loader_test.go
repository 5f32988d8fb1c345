package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
server:
  port: 9090

readiness:
  contrast_threshold: 55
  substrate: "#000000"

verify:
  refresh_rate: 30
  frame_dir: /tmp/frames
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Readiness.ContrastThreshold != 55 {
		t.Errorf("Readiness.ContrastThreshold = %v, want 55", cfg.Readiness.ContrastThreshold)
	}
	if cfg.Verify.RefreshRate != 30 {
		t.Errorf("Verify.RefreshRate = %d, want 30", cfg.Verify.RefreshRate)
	}
	if cfg.Verify.FrameDir != "/tmp/frames" {
		t.Errorf("Verify.FrameDir = %s, want /tmp/frames", cfg.Verify.FrameDir)
	}

	// Defaults for unspecified sections
	if cfg.Render.DefaultSize != 512 {
		t.Errorf("Render.DefaultSize = %d, want 512", cfg.Render.DefaultSize)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log_level: debug\n"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Readiness.ContrastThreshold != 40 {
		t.Errorf("Readiness.ContrastThreshold = %v, want 40", cfg.Readiness.ContrastThreshold)
	}
	if cfg.Readiness.Substrate != "#1a1a2e" {
		t.Errorf("Readiness.Substrate = %s, want #1a1a2e", cfg.Readiness.Substrate)
	}
	if cfg.Verify.RefreshRate != 60 {
		t.Errorf("Verify.RefreshRate = %d, want 60", cfg.Verify.RefreshRate)
	}
	if cfg.Server.Auth.Type != "none" {
		t.Errorf("Server.Auth.Type = %q, want none", cfg.Server.Auth.Type)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_TOKEN", "my-secret-token")
	t.Setenv("TEST_FRAMES", "/var/frames")

	cfg, err := Load(writeConfig(t, `
server:
  auth:
    type: bearer
    secret: ${TEST_TOKEN}
verify:
  frame_dir: ${TEST_FRAMES}
`))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Auth.Secret != "my-secret-token" {
		t.Errorf("Server.Auth.Secret = %s, want my-secret-token", cfg.Server.Auth.Secret)
	}
	if cfg.Verify.FrameDir != "/var/frames" {
		t.Errorf("Verify.FrameDir = %s, want /var/frames", cfg.Verify.FrameDir)
	}
}

func TestLoad_SecretReferenceSurvivesExpansion(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  auth:
    type: hmac
    secret: ${FILE:api-token}
`))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Auth.Secret != "${FILE:api-token}" {
		t.Fatalf("Server.Auth.Secret = %q, want unresolved secret reference", cfg.Server.Auth.Secret)
	}

	secretsDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(secretsDir, "api-token"), []byte("from-file\n"), 0600); err != nil {
		t.Fatalf("Failed to write secret: %v", err)
	}

	secrets, err := LoadSecretsFromFiles(secretsDir)
	if err != nil {
		t.Fatalf("LoadSecretsFromFiles() failed: %v", err)
	}
	if err := InjectSecretsIntoConfig(cfg, secrets); err != nil {
		t.Fatalf("InjectSecretsIntoConfig() failed: %v", err)
	}

	if cfg.Server.Auth.Secret != "from-file" {
		t.Errorf("Server.Auth.Secret = %q, want from-file", cfg.Server.Auth.Secret)
	}
}

func TestInjectSecretsIntoConfig_MissingSecret(t *testing.T) {
	tests := []struct {
		name       string
		secretsDir func(t *testing.T) string
	}{
		{
			name:       "no secrets directory",
			secretsDir: func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent") },
		},
		{
			name: "directory without the named secret",
			secretsDir: func(t *testing.T) string {
				dir := t.TempDir()
				if err := os.WriteFile(filepath.Join(dir, "other-token"), []byte("x"), 0600); err != nil {
					t.Fatalf("Failed to write secret: %v", err)
				}
				return dir
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, `
server:
  auth:
    type: bearer
    secret: ${FILE:api-token}
`))
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}

			secrets, err := LoadSecretsFromFiles(tt.secretsDir(t))
			if err != nil {
				t.Fatalf("LoadSecretsFromFiles() failed: %v", err)
			}

			err = InjectSecretsIntoConfig(cfg, secrets)
			if !errors.Is(err, ErrSecretUnresolved) {
				t.Fatalf("InjectSecretsIntoConfig() error = %v, want ErrSecretUnresolved", err)
			}
			if !strings.Contains(err.Error(), "api-token") {
				t.Errorf("error %q should name the missing secret", err)
			}
		})
	}
}

func TestIsSecretReference(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"${FILE:api-token}", true},
		{"prefix-${FILE:api-token}", true},
		{"plain-token", false},
		{"", false},
		{"${API_TOKEN}", false},
	}

	for _, tt := range tests {
		if got := IsSecretReference(tt.value); got != tt.want {
			t.Errorf("IsSecretReference(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}

	if _, err := Load(writeConfig(t, "server: [unclosed")); err == nil {
		t.Error("Load() expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		wantErr     bool
		errContains string
	}{
		{
			name:    "defaults are valid",
			modify:  func(*Config) {},
			wantErr: false,
		},
		{
			name:        "port out of range",
			modify:      func(c *Config) { c.Server.Port = 70000 },
			wantErr:     true,
			errContains: "server.port",
		},
		{
			name:        "threshold above 100",
			modify:      func(c *Config) { c.Readiness.ContrastThreshold = 120 },
			wantErr:     true,
			errContains: "contrast_threshold",
		},
		{
			name:        "invalid substrate",
			modify:      func(c *Config) { c.Readiness.Substrate = "navy" },
			wantErr:     true,
			errContains: "readiness.substrate",
		},
		{
			name:        "refresh rate too high",
			modify:      func(c *Config) { c.Verify.RefreshRate = 1000 },
			wantErr:     true,
			errContains: "refresh_rate",
		},
		{
			name:        "export size too small",
			modify:      func(c *Config) { c.Render.DefaultSize = 10 },
			wantErr:     true,
			errContains: "default_size",
		},
		{
			name:        "unknown export format",
			modify:      func(c *Config) { c.Render.DefaultFormat = "gif" },
			wantErr:     true,
			errContains: "default_format",
		},
		{
			name:    "jpg alias accepted",
			modify:  func(c *Config) { c.Render.DefaultFormat = "JPG" },
			wantErr: false,
		},
		{
			name:        "unknown log level",
			modify:      func(c *Config) { c.LogLevel = "trace" },
			wantErr:     true,
			errContains: "log_level",
		},
		{
			name:        "bearer without secret",
			modify:      func(c *Config) { c.Server.Auth = AuthConfig{Type: "bearer"} },
			wantErr:     true,
			errContains: "auth.secret is required",
		},
		{
			name:        "unknown auth type",
			modify:      func(c *Config) { c.Server.Auth.Type = "basic" },
			wantErr:     true,
			errContains: "invalid auth type",
		},
		{
			name:        "invalid duration",
			modify:      func(c *Config) { c.Server.ReadTimeout = "soon" },
			wantErr:     true,
			errContains: "server.read_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr && tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.errContains)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(&EnvConfig{Port: 9999, LogLevel: "debug", FrameDir: "/cam", AuthToken: "tok"})

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.Verify.FrameDir != "/cam" {
		t.Errorf("Verify.FrameDir = %s, want /cam", cfg.Verify.FrameDir)
	}
	if cfg.Server.Auth.Type != "bearer" || cfg.Server.Auth.Secret != "tok" {
		t.Errorf("Server.Auth = %+v, want bearer tok", cfg.Server.Auth)
	}

	// Zero values leave file settings alone
	cfg.ApplyEnv(&EnvConfig{})
	if cfg.Server.Port != 9999 || cfg.LogLevel != "debug" {
		t.Error("ApplyEnv() with empty env should not override settings")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("FRAME_DIR", "")

	env := LoadFromEnv()
	if env.Port != 7070 {
		t.Errorf("Port = %d, want 7070", env.Port)
	}
	if env.LogLevel != "warn" {
		t.Errorf("LogLevel = %s, want warn", env.LogLevel)
	}
	if env.FrameDir != "" {
		t.Errorf("FrameDir = %s, want empty", env.FrameDir)
	}
	if env.ConfigFile != "config.yaml" {
		t.Errorf("ConfigFile = %s, want config.yaml", env.ConfigFile)
	}
}

func TestLoadSecretsFromFiles_MissingDir(t *testing.T) {
	secrets, err := LoadSecretsFromFiles(filepath.Join(t.TempDir(), "none"))
	if err != nil {
		t.Fatalf("LoadSecretsFromFiles() failed: %v", err)
	}
	if len(secrets) != 0 {
		t.Errorf("len(secrets) = %d, want 0", len(secrets))
	}
}
