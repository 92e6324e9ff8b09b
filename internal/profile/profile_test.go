package profile

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/nearbuy/internal/middleware"
)

func sp(s string) *string    { return &s }
func fp(v float64) *float64 { return &v }

func TestUpdateProfileRequestCheck(t *testing.T) {
	tests := []struct {
		name   string
		req    UpdateProfileRequest
		errMsg string
	}{
		{"empty patch", UpdateProfileRequest{}, ""},
		{"name trimmed", UpdateProfileRequest{FullName: sp("  Asha  ")}, ""},
		{"blank name", UpdateProfileRequest{FullName: sp("   ")}, "full_name cannot be empty"},
		{"coordinates", UpdateProfileRequest{Latitude: fp(19.07), Longitude: fp(72.87)}, ""},
		{"half coordinates", UpdateProfileRequest{Longitude: fp(72.87)}, "latitude and longitude must be given together"},
		{"out of range", UpdateProfileRequest{Latitude: fp(19), Longitude: fp(181)}, "coordinates are out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.check()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.errMsg, err.Error())
		})
	}

	req := UpdateProfileRequest{FullName: sp("  Asha  ")}
	require.NoError(t, req.check())
	assert.Equal(t, "Asha", *req.FullName)
}

func newServer() *echo.Echo {
	e := echo.New()
	e.Validator = middleware.NewValidator()
	h := NewHandler(nil, nil)
	auth := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", "u1")
			return next(c)
		}
	}
	e.PATCH("/profile", h.UpdateProfile, auth)
	e.POST("/profile/avatar", h.UploadAvatar, auth)
	e.GET("/anon/profile", h.GetProfile)
	return e
}

func TestProfileHandlersRejectBadInput(t *testing.T) {
	e := newServer()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		ctype  string
		status int
	}{
		{"malformed json", http.MethodPatch, "/profile", `{`, echo.MIMEApplicationJSON, http.StatusBadRequest},
		{"phone too long", http.MethodPatch, "/profile", `{"phone":"123456789012345678901"}`, echo.MIMEApplicationJSON, http.StatusBadRequest},
		{"half coordinates", http.MethodPatch, "/profile", `{"latitude":10}`, echo.MIMEApplicationJSON, http.StatusBadRequest},
		{"avatar without file", http.MethodPost, "/profile/avatar", ``, echo.MIMEApplicationJSON, http.StatusBadRequest},
		{"unauthenticated", http.MethodGet, "/anon/profile", ``, "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.ctype != "" {
				req.Header.Set(echo.HeaderContentType, tt.ctype)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestUploadAvatarFieldName(t *testing.T) {
	e := newServer()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("image", "me.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("x"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/profile/avatar", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no file uploaded")
}
