package api

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/tarsy/pkg/pipeline"
)

// RequireAdmin checks the request against the configured admin API key,
// accepting either an "X-API-Key" header or an "Authorization: Bearer"
// header. An empty adminKey disables enforcement — development mode, ported
// from the original auth.py's dev-mode-when-unset behavior — so every
// caller is accepted without a credential.
func RequireAdmin(adminKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if adminKey == "" {
				return next(c)
			}
			if extractAPIKey(c.Request()) == adminKey {
				return next(c)
			}
			return c.JSON(http.StatusUnauthorized, &ErrorResponse{
				Error:     "missing or invalid API key",
				ErrorType: string(pipeline.ErrorAuthFailure),
			})
		}
	}
}

func extractAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// extractAuthor extracts the caller identity for logging/audit purposes.
// Priority: X-Forwarded-User > X-Forwarded-Email > "api-client" — kept from
// the teacher's oauth2-proxy header convention for deployments that sit
// behind that proxy even when ADMIN_API_KEY is also set.
func extractAuthor(c *echo.Context) string {
	if user := c.Request().Header.Get("X-Forwarded-User"); user != "" {
		return user
	}
	if email := c.Request().Header.Get("X-Forwarded-Email"); email != "" {
		return email
	}
	return "api-client"
}
