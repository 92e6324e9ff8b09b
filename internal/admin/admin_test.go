package admin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCommission(t *testing.T) {
	tests := []struct {
		revenue string
		rate    string
		want    string
	}{
		{"1000", "0.05", "50"},
		{"0", "0.1", "0"},
		{"333.33", "0.075", "25"},
		{"250.50", "0.1", "25.05"},
	}
	for _, tt := range tests {
		got := Commission(decimal.RequireFromString(tt.revenue), decimal.RequireFromString(tt.rate))
		assert.Equal(t, tt.want, got.String(), "%s × %s", tt.revenue, tt.rate)
	}
}

func TestPage(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", 50, 0},
		{"?page=3&limit=10", 10, 20},
		{"?page=-1&limit=1000", 50, 0},
	}
	for _, tt := range tests {
		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil), httptest.NewRecorder())
		_, limit, offset := page(c)
		assert.Equal(t, tt.limit, limit, tt.query)
		assert.Equal(t, tt.offset, offset, tt.query)
	}
}

func TestHandlersRejectBadIDs(t *testing.T) {
	e := echo.New()
	h := NewHandler(nil, nil, decimal.RequireFromString("0.05"))
	e.POST("/admin/sellers/:id/approve", h.ApproveSeller)
	e.DELETE("/admin/sellers/:id", h.RejectSeller)
	e.POST("/admin/sellers/:id/active", h.ToggleSellerActive)
	e.PUT("/admin/sellers/:id/commission", h.SetCommission)
	e.POST("/admin/users/:id/suspend", h.SuspendUser)

	valid := "33333333-3333-3333-3333-333333333333"
	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/admin/sellers/abc/approve", ""},
		{http.MethodDelete, "/admin/sellers/abc", ""},
		{http.MethodPost, "/admin/sellers/abc/active", ""},
		{http.MethodPut, "/admin/sellers/abc/commission", `{"rate":"0.1"}`},
		{http.MethodPut, "/admin/sellers/" + valid + "/commission", `{"rate":"1.5"}`},
		{http.MethodPut, "/admin/sellers/" + valid + "/commission", `{"rate":"-0.1"}`},
		{http.MethodPost, "/admin/users/abc/suspend", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}
