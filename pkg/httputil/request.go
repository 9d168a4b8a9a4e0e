package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxBodySize bounds request bodies; registry payloads are small.
const maxBodySize = 1 << 20

// DecodeJSON decodes the request body into dst. An empty body decodes
// into the zero value rather than failing, matching callers that treat
// every body field as optional.
func DecodeJSON(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns an error when the header is missing or malformed.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing Authorization header")
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", errors.New("Authorization header is not a bearer token")
	}
	return header[len(prefix):], nil
}
