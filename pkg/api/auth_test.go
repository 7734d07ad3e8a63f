package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
)

func TestExtractAuthor(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{name: "no headers returns default", headers: map[string]string{}, expected: "api-client"},
		{
			name:     "X-Forwarded-User takes priority",
			headers:  map[string]string{"X-Forwarded-User": "alice", "X-Forwarded-Email": "alice@example.com"},
			expected: "alice",
		},
		{
			name:     "X-Forwarded-Email used when no user",
			headers:  map[string]string{"X-Forwarded-Email": "bob@example.com"},
			expected: "bob@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			assert.Equal(t, tt.expected, extractAuthor(c))
		})
	}
}

func TestRequireAdminDevModeAcceptsAnyCaller(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := RequireAdmin("")(func(c *echo.Context) error {
		called = true
		return nil
	})

	assert.NoError(t, handler(c))
	assert.True(t, called)
}

func TestRequireAdminRejectsMissingKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequireAdmin("secret")(func(c *echo.Context) error {
		t.Fatal("handler should not be called")
		return nil
	})

	assert.NoError(t, handler(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminAcceptsAPIKeyHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := RequireAdmin("secret")(func(c *echo.Context) error {
		called = true
		return nil
	})

	assert.NoError(t, handler(c))
	assert.True(t, called)
}

func TestRequireAdminAcceptsBearerToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := RequireAdmin("secret")(func(c *echo.Context) error {
		called = true
		return nil
	})

	assert.NoError(t, handler(c))
	assert.True(t, called)
}
