package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Signature headers, checked in order
var signatureHeaders = []string{"X-Hub-Signature-256", "X-Signature"}

// VerifyHMAC checks a "sha256=<hex>" signature over the request body. The
// body is restored afterwards so handlers can decode JSON or image uploads.
func VerifyHMAC(r *http.Request, secret string) error {
	if err := checkSecret(secret); err != nil {
		return err
	}

	provided, err := requestSignature(r)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidCredentials)
	}

	return nil
}

func requestSignature(r *http.Request) ([]byte, error) {
	var header string
	for _, name := range signatureHeaders {
		if header = r.Header.Get(name); header != "" {
			break
		}
	}
	if header == "" {
		return nil, fmt.Errorf("%w: no signature header", ErrMissingCredentials)
	}

	algorithm, digest, ok := strings.Cut(header, "=")
	if !ok {
		return nil, fmt.Errorf("%w: signature must be sha256=<hex>", ErrInvalidCredentials)
	}
	if algorithm != "sha256" {
		return nil, fmt.Errorf("%w: unsupported signature algorithm %q", ErrInvalidCredentials, algorithm)
	}

	sig, err := hex.DecodeString(digest)
	if err != nil || len(sig) != sha256.Size {
		return nil, fmt.Errorf("%w: malformed sha256 digest", ErrInvalidCredentials)
	}
	return sig, nil
}
