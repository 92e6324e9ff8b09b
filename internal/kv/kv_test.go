package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	buf := []byte("hello")
	require.NoError(t, m.Set(ctx, "k", buf))
	buf[0] = 'j'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type loc struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}

	var out loc
	found, err := GetJSON(ctx, m, LocationKey("u1"), &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, m, LocationKey("u1"), loc{Lat: 19.07, Lng: 72.87}))
	found, err = GetJSON(ctx, m, LocationKey("u1"), &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, loc{Lat: 19.07, Lng: 72.87}, out)

	require.NoError(t, m.Set(ctx, "bad", []byte("{")))
	_, err = GetJSON(ctx, m, "bad", &out)
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "cart:u1", CartKey("u1"))
	assert.Equal(t, "recent_searches:u1", RecentSearchesKey("u1"))
	assert.Equal(t, "location:u1", LocationKey("u1"))
}
