package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ClaimsContextKey is the echo context key holding validated claims
const ClaimsContextKey = "auth_claims"

// Middleware requires a valid bearer token on every request it wraps. The
// token may also be passed as ?token= because browsers cannot set headers on
// WebSocket upgrades. When the manager is disabled requests pass through.
func Middleware(m *TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !m.Enabled() {
				return next(c)
			}

			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				token = c.QueryParam("token")
			}
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}

			claims, err := m.ValidateToken(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}

			c.Set(ClaimsContextKey, claims)
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
