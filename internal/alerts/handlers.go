package alerts

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
)

// PgNotifications stores notifications in Postgres.
type PgNotifications struct {
	pool *pgxpool.Pool
}

func NewPgNotifications(pool *pgxpool.Pool) *PgNotifications {
	return &PgNotifications{pool: pool}
}

// Create inserts a notification item
func (s *PgNotifications) Create(ctx context.Context, n Notification) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (user_id, type, title, body, reference)
		 VALUES ($1, $2, $3, $4, $5)`, n.UserID, n.Type, n.Title, n.Body, n.Reference,
	)
	return err
}

// ListNotifications returns current user's notifications, newest first
func (s *PgNotifications) ListNotifications(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	query := `SELECT id::text, type, title, body, reference::text, created_at, read_at
		FROM notifications WHERE user_id = $1`
	if c.QueryParam("unread") == "true" {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := s.pool.Query(c.Request().Context(), query, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load notifications"})
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Notification, error) {
		var n Notification
		err := row.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.Reference, &n.CreatedAt, &n.ReadAt)
		return n, err
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse notification"})
	}
	if items == nil {
		items = []Notification{}
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items})
}

// MarkNotificationRead marks specific notification as read
func (s *PgNotifications) MarkNotificationRead(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	nid := c.Param("id")
	if nid == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing notification id"})
	}

	res, err := s.pool.Exec(c.Request().Context(),
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL`, nid, userID,
	)
	if err != nil {
		return apperr.Respond(c, apperr.FromPg(err, ""), "failed to update")
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found or already read"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
