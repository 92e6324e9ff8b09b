package storage

import (
	"errors"
	"net/http"
	"net/url"
	"os"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	store  *Local
	signer *Signer
}

func NewHandler(store *Local, signer *Signer) *Handler {
	return &Handler{store: store, signer: signer}
}

// Serve streams an object. Private buckets require a valid ?token=.
func (h *Handler) Serve(c echo.Context) error {
	b, ok := BucketByName(c.Param("bucket"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bucket not found"})
	}
	key, err := url.PathUnescape(c.Param("*"))
	if err != nil || key == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid object key"})
	}

	if !b.Public {
		if err := h.signer.Verify(c.QueryParam("token"), b.Name, key); err != nil {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid or expired link"})
		}
	}

	f, err := h.store.Open(b, key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "object not found"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid object key"})
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "object not found"})
	}
	if b.Public {
		c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	} else {
		c.Response().Header().Set("Cache-Control", "private, no-store")
	}
	http.ServeContent(c.Response(), c.Request(), info.Name(), info.ModTime(), f)
	return nil
}
