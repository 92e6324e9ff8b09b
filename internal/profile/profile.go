package profile

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/auth"
	"github.com/sudo-init-do/nearbuy/internal/db"
	"github.com/sudo-init-do/nearbuy/internal/geo"
	"github.com/sudo-init-do/nearbuy/internal/storage"
)

// Handler serves the caller's own profile.
type Handler struct {
	pool    *pgxpool.Pool
	objects *storage.Local
}

func NewHandler(pool *pgxpool.Pool, objects *storage.Local) *Handler {
	return &Handler{pool: pool, objects: objects}
}

const profileQuery = `
	SELECT u.id, u.email, COALESCE(p.full_name, ''), COALESCE(p.phone, ''), COALESCE(p.address, ''),
		p.latitude, p.longitude, p.avatar_path, u.created_at, COALESCE(p.updated_at, u.created_at)
	FROM users u
	LEFT JOIN profiles p ON p.id = u.id
	WHERE u.id = $1`

func load(ctx context.Context, q db.Querier, userID string) (*Profile, error) {
	var p Profile
	err := q.QueryRow(ctx, profileQuery, userID).Scan(
		&p.ID, &p.Email, &p.FullName, &p.Phone, &p.Address,
		&p.Latitude, &p.Longitude, &p.AvatarPath, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, apperr.FromPg(err, "user not found")
	}
	if p.Roles, err = auth.LoadRoles(ctx, q, userID); err != nil {
		return nil, err
	}
	return &p, nil
}

// withAvatar signs a fresh avatar URL.
func (h *Handler) withAvatar(p *Profile) error {
	if p.AvatarPath == nil || h.objects == nil {
		return nil
	}
	u, _, err := h.objects.URL(storage.Avatars, *p.AvatarPath)
	p.AvatarURL = u
	return err
}

// GetProfile handles GET /profile
func (h *Handler) GetProfile(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, err := load(c.Request().Context(), h.pool, userID)
	if err != nil {
		return apperr.Respond(c, err, "failed to fetch profile")
	}
	if err := h.withAvatar(p); err != nil {
		c.Logger().Warnf("sign avatar url: %v", err)
	}
	return c.JSON(http.StatusOK, p)
}

// Locations stores resolved coordinates on the profile row.
type Locations struct {
	pool *pgxpool.Pool
}

func NewLocations(pool *pgxpool.Pool) *Locations {
	return &Locations{pool: pool}
}

// SetCoordinates upserts the user's profile coordinates.
func (l *Locations) SetCoordinates(ctx context.Context, userID string, pt geo.Point) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO profiles (id, latitude, longitude) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, updated_at = NOW()`,
		userID, pt.Lat, pt.Lng,
	)
	return err
}

// ensureRow makes sure a profile row exists for users created without one.
func ensureRow(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx, `INSERT INTO profiles (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID)
	return err
}
