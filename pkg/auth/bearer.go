package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// VerifyBearerToken checks the request's "Authorization: Bearer <token>"
// header against the configured API token
func VerifyBearerToken(r *http.Request, apiToken string) error {
	if err := checkSecret(apiToken); err != nil {
		return err
	}

	token, err := bearerToken(r)
	if err != nil {
		return err
	}

	// Digests keep the comparison independent of the token length
	got := sha256.Sum256([]byte(token))
	want := sha256.Sum256([]byte(apiToken))
	if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
		return fmt.Errorf("%w: bearer token mismatch", ErrInvalidCredentials)
	}

	return nil
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", fmt.Errorf("%w: no Authorization header", ErrMissingCredentials)
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: expected Bearer scheme", ErrInvalidCredentials)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: empty bearer token", ErrMissingCredentials)
	}
	return token, nil
}
