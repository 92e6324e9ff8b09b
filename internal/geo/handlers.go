package geo

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
)

type Handler struct {
	resolver *Resolver
}

func NewHandler(r *Resolver) *Handler {
	return &Handler{resolver: r}
}

// ResolveLocation applies a browser geolocation result for the caller.
func (h *Handler) ResolveLocation(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var fix Fix
	if err := c.Bind(&fix); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	loc, err := h.resolver.Resolve(c.Request().Context(), userID, fix)
	if err != nil {
		return apperr.Respond(c, err, "failed to save location")
	}
	return c.JSON(http.StatusOK, loc)
}

// GetLocation returns the caller's last known location, or the default.
func (h *Handler) GetLocation(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	loc, err := h.resolver.Current(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Warnf("location lookup for %s: %v", userID, err)
	}
	return c.JSON(http.StatusOK, loc)
}
