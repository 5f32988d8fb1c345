package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/qrforge/scan-readiness/pkg/config"
)

var (
	// ErrMissingCredentials means the request carried no token or signature
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrInvalidCredentials means the credentials were present but wrong
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSecretUnavailable means the server has no usable secret, either
	// empty or an unresolved ${FILE:...} reference. Requests are rejected.
	ErrSecretUnavailable = errors.New("authentication secret unavailable")
)

// checkSecret refuses empty secrets and secret-file references that were
// never replaced with the file contents
func checkSecret(secret string) error {
	if strings.TrimSpace(secret) == "" || config.IsSecretReference(secret) {
		return ErrSecretUnavailable
	}
	return nil
}

// Authenticator handles API authentication
type Authenticator struct {
	config config.AuthConfig
	logger *logrus.Logger
}

// NewAuthenticator creates a new Authenticator instance
func NewAuthenticator(cfg config.AuthConfig, logger *logrus.Logger) *Authenticator {
	return &Authenticator{
		config: cfg,
		logger: logger,
	}
}

// Enabled reports whether requests must carry credentials
func (a *Authenticator) Enabled() bool {
	return a.config.Type != "" && a.config.Type != "none"
}

// Authenticate verifies a single request against the configured scheme
func (a *Authenticator) Authenticate(r *http.Request) error {
	switch a.config.Type {
	case "hmac":
		return VerifyHMAC(r, a.config.Secret)
	case "bearer":
		return VerifyBearerToken(r, a.config.Secret)
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported auth type: %s", a.config.Type)
	}
}

// Middleware returns an HTTP middleware that authenticates API requests
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.Authenticate(r); err != nil {
			entry := a.logger.WithFields(logrus.Fields{
				"remote_addr": r.RemoteAddr,
				"auth_type":   a.config.Type,
				"error":       err.Error(),
			})

			w.Header().Set("Content-Type", "application/json")
			if errors.Is(err, ErrSecretUnavailable) {
				entry.Error("Authentication secret is not configured")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"error":"authentication unavailable"}`))
				return
			}

			entry.Warn("Authentication failed")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication failed"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
