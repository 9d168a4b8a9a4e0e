package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"billing"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "billing", dst.Name)
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Empty(t, dst.Name)
}

func TestDecodeJSONMalformed(t *testing.T) {
	var dst map[string]any

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	assert.Error(t, DecodeJSON(req, &dst))
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc123")

	token, err := BearerToken(req)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

func TestBearerTokenMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := BearerToken(req)
	assert.Error(t, err)
}

func TestBearerTokenWrongScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	_, err := BearerToken(req)
	assert.Error(t, err)
}
