package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_USER", "market")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "nearbuy")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("PORT", "")
	t.Setenv("DELIVERY_FEE", "")
	t.Setenv("DECREMENT_STOCK_ON_ORDER", "")
	t.Setenv("AVATAR_URL_TTL", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("SMTP_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres://market:pw@localhost:5432/nearbuy", cfg.DatabaseURL)
	assert.True(t, cfg.DeliveryFee.Equal(decimal.NewFromInt(30)))
	assert.False(t, cfg.DecrementStockOnOrder)
	assert.Equal(t, time.Hour, cfg.AvatarURLTTL)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.SMTPConfigured())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("DELIVERY_FEE", "45.50")
	t.Setenv("DECREMENT_STOCK_ON_ORDER", "true")
	t.Setenv("DEFAULT_LAT", "12.97")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DatabaseURL)
	assert.Equal(t, "45.5", cfg.DeliveryFee.String())
	assert.True(t, cfg.DecrementStockOnOrder)
	assert.InDelta(t, 12.97, cfg.DefaultLat, 1e-9)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"DELIVERY_FEE", "thirty"},
		{"DELIVERY_FEE", "-1"},
		{"DECREMENT_STOCK_ON_ORDER", "maybe"},
		{"DEFAULT_LNG", "east"},
		{"AVATAR_URL_TTL", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret")
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}
