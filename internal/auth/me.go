package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
)

// Me returns the currently authenticated user with fresh roles. Roles in the
// token may be stale until the next login.
func (h *Handler) Me(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := c.Request().Context()
	var email, fullName string
	err := h.pool.QueryRow(ctx, `
		SELECT u.email, COALESCE(p.full_name, '')
		FROM users u
		LEFT JOIN profiles p ON p.id = u.id
		WHERE u.id = $1
	`, userID).Scan(&email, &fullName)
	if err != nil {
		return apperr.Respond(c, apperr.FromPg(err, "user not found"), "failed to fetch user")
	}

	roles, err := LoadRoles(ctx, h.pool, userID)
	if err != nil {
		return apperr.Respond(c, err, "failed to fetch user")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":        userID,
		"email":     email,
		"full_name": fullName,
		"roles":     roles,
	})
}
