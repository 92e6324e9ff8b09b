package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ===== Login =====
func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(req); err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	ctx := c.Request().Context()
	var (
		userID   string
		password string
		isActive bool
	)
	err := h.pool.QueryRow(ctx, `
		SELECT id, password, is_active FROM users WHERE email = $1
	`, req.Email).Scan(&userID, &password, &isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return apperr.Respond(c, err, "login failed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(password), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !isActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account suspended"})
	}

	roles, err := LoadRoles(ctx, h.pool, userID)
	if err != nil {
		return apperr.Respond(c, err, "login failed")
	}

	signed, err := h.tokens.Issue(userID, roles)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	return c.JSON(http.StatusOK, TokenResponse{Token: signed, UserID: userID, Roles: roles})
}
