package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/auth"
)

// JWTMiddleware verifies the bearer token and stores user_id, roles and the
// claims themselves in the echo context.
func JWTMiddleware(tokens *auth.Tokens) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			// browsers cannot set headers on websocket upgrades
			if authHeader == "" && c.IsWebSocket() && c.QueryParam("access_token") != "" {
				authHeader = "Bearer " + c.QueryParam("access_token")
			}
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing Authorization header"})
			}
			const prefix = "Bearer "
			if len(authHeader) <= len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid Authorization format"})
			}

			claims, err := tokens.Parse(authHeader[len(prefix):])
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set("user_id", claims.UserID)
			c.Set("roles", claims.Roles)
			c.Set("claims", claims)
			return next(c)
		}
	}
}

// UserID returns the authenticated user id, or "" outside JWTMiddleware.
func UserID(c echo.Context) string {
	id, _ := c.Get("user_id").(string)
	return id
}

// Roles returns the authenticated user's roles.
func Roles(c echo.Context) []string {
	roles, _ := c.Get("roles").([]string)
	return roles
}
