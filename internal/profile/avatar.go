package profile

import (
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/db"
	"github.com/sudo-init-do/nearbuy/internal/storage"
)

// UploadAvatar handles POST /profile/avatar. The response carries a signed
// URL and its expiry since the avatars bucket is private.
func (h *Handler) UploadAvatar(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no file uploaded"})
	}

	ctx := c.Request().Context()
	obj, err := h.objects.PutForm(ctx, storage.Avatars, userID, fh)
	if err != nil {
		return apperr.Respond(c, err, "failed to upload avatar")
	}

	var old *string
	err = db.InTx(ctx, h.pool, func(tx pgx.Tx) error {
		if err := ensureRow(ctx, tx, userID); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `SELECT avatar_path FROM profiles WHERE id = $1 FOR UPDATE`, userID).Scan(&old); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE profiles SET avatar_path = $2, updated_at = NOW() WHERE id = $1`, userID, obj.Key)
		return err
	})
	if err != nil {
		h.objects.Delete(storage.Avatars, obj.Key)
		return apperr.Respond(c, err, "failed to upload avatar")
	}
	if old != nil && *old != obj.Key {
		if err := h.objects.Delete(storage.Avatars, *old); err != nil {
			c.Logger().Warnf("remove old avatar %s: %v", *old, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"avatar_url": obj.URL,
		"expires_at": obj.ExpiresAt,
	})
}
