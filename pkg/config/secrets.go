package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const secretPrefix = "FILE:"

// LoadSecretsFromFiles loads secrets from a mounted directory, one file per
// secret named after the file
func LoadSecretsFromFiles(secretsDir string) (map[string]string, error) {
	secrets := make(map[string]string)

	// Check if secrets directory exists
	if _, err := os.Stat(secretsDir); os.IsNotExist(err) {
		// No secrets directory, return empty map
		return secrets, nil
	}

	// Read all files in the secrets directory
	files, err := os.ReadDir(secretsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		// Read secret file
		secretPath := filepath.Join(secretsDir, file.Name())
		content, err := os.ReadFile(secretPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read secret file %s: %w", file.Name(), err)
		}

		// Store secret with trimmed content
		secrets[file.Name()] = strings.TrimSpace(string(content))
	}

	return secrets, nil
}

// ErrSecretUnresolved is returned when a ${FILE:<secret-name>} reference
// has no matching secret file
var ErrSecretUnresolved = errors.New("secret reference not resolved")

// IsSecretReference reports whether value still holds a ${FILE:...} reference
func IsSecretReference(value string) bool {
	return strings.Contains(value, "${"+secretPrefix)
}

// InjectSecretsIntoConfig replaces ${FILE:<secret-name>} placeholders with
// secret values. A reference without a matching file is an error so the
// placeholder text can never act as a credential.
func InjectSecretsIntoConfig(cfg *Config, secrets map[string]string) error {
	cfg.Server.Auth.Secret = resolveSecret(cfg.Server.Auth.Secret, secrets)
	if IsSecretReference(cfg.Server.Auth.Secret) {
		return fmt.Errorf("server.auth.secret: %w: %s", ErrSecretUnresolved, cfg.Server.Auth.Secret)
	}
	return nil
}

// resolveSecret replaces ${FILE:<secret-name>} with the secret value
// If not a file reference, returns the original value
func resolveSecret(value string, secrets map[string]string) string {
	prefix := "${" + secretPrefix
	suffix := "}"

	if strings.HasPrefix(value, prefix) && strings.HasSuffix(value, suffix) {
		secretName := strings.TrimSuffix(strings.TrimPrefix(value, prefix), suffix)
		if secretValue, ok := secrets[secretName]; ok {
			return secretValue
		}
	}

	return value
}
