package admin

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
)

type AdminUser struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// GET /admin/users
func (h *Handler) ListUsers(c echo.Context) error {
	_, limit, offset := page(c)
	rows, err := h.pool.Query(c.Request().Context(), `
		SELECT u.id, COALESCE(p.full_name, ''), u.email,
			COALESCE(array_agg(r.role::text ORDER BY r.role) FILTER (WHERE r.role IS NOT NULL), '{}'),
			u.is_active, u.created_at
		FROM users u
		LEFT JOIN profiles p ON p.id = u.id
		LEFT JOIN user_roles r ON r.user_id = u.id
		GROUP BY u.id, p.full_name
		ORDER BY u.created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch users"})
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AdminUser, error) {
		var u AdminUser
		err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Roles, &u.IsActive, &u.CreatedAt)
		return u, err
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read user record"})
	}
	if users == nil {
		users = []AdminUser{}
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

func (h *Handler) setActive(c echo.Context, active bool) error {
	userID, ok := validID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user id required"})
	}
	tag, err := h.pool.Exec(c.Request().Context(), `UPDATE users SET is_active = $2 WHERE id = $1`, userID, active)
	if err != nil {
		return apperr.Respond(c, apperr.FromPg(err, ""), "failed to update user")
	}
	if tag.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	msg := "user suspended"
	if active {
		msg = "user activated"
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "user_id": userID})
}

// POST /admin/users/:id/suspend
func (h *Handler) SuspendUser(c echo.Context) error { return h.setActive(c, false) }

// POST /admin/users/:id/activate
func (h *Handler) ActivateUser(c echo.Context) error { return h.setActive(c, true) }
