package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoped_RoundTrip(t *testing.T) {
	s := NewScoped()
	ctx := context.Background()

	require.NoError(t, s.SetMany(ctx, map[string]string{"a": "1", "b": "2"}))
	v, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, s.SetMany(ctx, map[string]string{"c": "3"}, "a"))
	_, ok, _ = s.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.Delete(ctx, "b", "c", "missing"))
	assert.Equal(t, 0, s.Len())
}

func TestStorage_ScopeReturnsSameDevice(t *testing.T) {
	st := New()
	ctx := context.Background()

	require.NoError(t, st.Scope("d1").SetMany(ctx, map[string]string{"k": "v"}))

	v, ok, err := st.Scope("d1").Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok, _ = st.Scope("d2").Get(ctx, "k")
	assert.False(t, ok)
}

func TestStorage_ReleaseDropsOnlyEmptyMaps(t *testing.T) {
	st := New()
	ctx := context.Background()

	st.Scope("empty")
	require.NoError(t, st.Scope("held").SetMany(ctx, map[string]string{"user:token": "t"}))
	assert.Equal(t, 2, st.Devices())

	st.Release("empty")
	st.Release("held")
	st.Release("missing")

	assert.Equal(t, 1, st.Devices())
	v, ok, err := st.Scope("held").Get(ctx, "user:token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t", v)
}
