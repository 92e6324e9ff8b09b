package profile

import (
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/db"
	"github.com/sudo-init-do/nearbuy/internal/geo"
)

// UpdateProfileRequest changes only the fields that are present.
type UpdateProfileRequest struct {
	FullName  *string  `json:"full_name" validate:"omitempty,min=1,max=120"`
	Phone     *string  `json:"phone" validate:"omitempty,max=20"`
	Address   *string  `json:"address" validate:"omitempty,max=500"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r *UpdateProfileRequest) check() error {
	if r.FullName != nil {
		name := strings.TrimSpace(*r.FullName)
		if name == "" {
			return apperr.Validation("full_name cannot be empty")
		}
		r.FullName = &name
	}
	if (r.Latitude == nil) != (r.Longitude == nil) {
		return apperr.Validation("latitude and longitude must be given together")
	}
	if r.Latitude != nil && !(geo.Point{Lat: *r.Latitude, Lng: *r.Longitude}).Valid() {
		return apperr.Validation("coordinates are out of range")
	}
	return nil
}

// UpdateProfile handles PATCH /profile
func (h *Handler) UpdateProfile(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or missing token"})
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return apperr.Respond(c, err, "invalid request")
	}
	if err := req.check(); err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	ctx := c.Request().Context()
	var p *Profile
	err := db.InTx(ctx, h.pool, func(tx pgx.Tx) error {
		if err := ensureRow(ctx, tx, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE profiles
			SET full_name = COALESCE($1, full_name),
			    phone = COALESCE($2, phone),
			    address = COALESCE($3, address),
			    latitude = COALESCE($4, latitude),
			    longitude = COALESCE($5, longitude),
			    updated_at = NOW()
			WHERE id = $6`,
			req.FullName, req.Phone, req.Address, req.Latitude, req.Longitude, userID,
		)
		if err != nil {
			return apperr.FromPg(err, "")
		}
		p, err = load(ctx, tx, userID)
		return err
	})
	if err != nil {
		return apperr.Respond(c, err, "failed to update profile")
	}
	if err := h.withAvatar(p); err != nil {
		c.Logger().Warnf("sign avatar url: %v", err)
	}
	return c.JSON(http.StatusOK, p)
}
