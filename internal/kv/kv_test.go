package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/drinkless/internal/errs"
)

func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", "1"))
	require.NoError(t, c.Set(ctx, "a", "2"))
	v, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)

	require.NoError(t, c.Remove(ctx, "a"))
	require.NoError(t, c.Remove(ctx, "a"))
	_, ok, err = c.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "x", "1"))
	require.NoError(t, c.Set(ctx, "y", "2"))
	require.NoError(t, c.Clear(ctx))
	_, ok, _ = c.Get(ctx, "x")
	require.False(t, ok)
	_, ok, _ = c.Get(ctx, "y")
	require.False(t, ok)
}

func TestMemory_Contract(t *testing.T) {
	exerciseCache(t, NewMemory())
}

func TestSQLite_Contract(t *testing.T) {
	c, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer c.Close()
	exerciseCache(t, c)
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "settlement:2026-10-15", `{"state":"settled"}`))
	require.NoError(t, c.Close())

	c, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer c.Close()
	v, ok, err := c.Get(ctx, "settlement:2026-10-15")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"state":"settled"}`, v)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	type rec struct {
		N int `json:"n"`
	}
	var got rec
	ok, err := GetJSON(ctx, c, "r", &got)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, SetJSON(ctx, c, "r", rec{N: 7}))
	ok, err = GetJSON(ctx, c, "r", &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 7, got.N)

	require.NoError(t, c.Set(ctx, "r", "{not json"))
	ok, err = GetJSON(ctx, c, "r", &got)
	require.True(t, ok)
	require.ErrorIs(t, err, errs.ErrCorrupt)
}

func TestRedis_KeyPrefix(t *testing.T) {
	r := NewRedisWithClient(nil, "drinkless:dev1:")
	require.Equal(t, "drinkless:dev1:calorie-jar", r.key("calorie-jar"))
}
