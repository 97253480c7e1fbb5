package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory().WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Hour))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	now = now.Add(time.Hour)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemorySetNX(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory().WithClock(func() time.Time { return now })
	ctx := context.Background()

	ok, err := m.SetNX(ctx, "d", []byte("1"), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.SetNX(ctx, "d", []byte("1"), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(61 * time.Minute)
	ok, err = m.SetNX(ctx, "d", []byte("1"), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStudentAnalyticsKeys(t *testing.T) {
	id := uuid.MustParse("9b2e4c1a-6f0d-4c55-8a7e-1d2f3a4b5c6d")
	keys := StudentAnalyticsKeys(id)
	assert.Len(t, keys, 6)
	assert.Contains(t, keys, "epr:analytics:9b2e4c1a-6f0d-4c55-8a7e-1d2f3a4b5c6d:epr-forecast")

	m := NewMemory()
	ctx := context.Background()
	for _, k := range keys {
		require.NoError(t, m.Set(ctx, k, []byte("x"), 0))
	}
	require.NoError(t, m.Delete(ctx, keys...))
	assert.Equal(t, 0, m.Len())
}

func TestInvalidateStudentOrphansEarlierBuilds(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id := uuid.New()

	gen, err := Generation(ctx, m, id)
	require.NoError(t, err)
	assert.Equal(t, "", gen)
	assert.Equal(t, AnalyticsKey(id, EntryTrends), VersionedAnalyticsKey(id, EntryTrends, gen))

	require.NoError(t, InvalidateStudent(ctx, m, id))
	next, err := Generation(ctx, m, id)
	require.NoError(t, err)
	require.NotEmpty(t, next)

	// A build that started under gen finishes after the invalidation.
	require.NoError(t, m.Set(ctx, VersionedAnalyticsKey(id, EntryTrends, gen), []byte("stale"), time.Hour))
	_, err = m.Get(ctx, VersionedAnalyticsKey(id, EntryTrends, next))
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, VersionedAnalyticsKey(id, EntryTrends, next), []byte("fresh"), time.Hour))
	require.NoError(t, InvalidateStudent(ctx, m, id))
	_, err = m.Get(ctx, VersionedAnalyticsKey(id, EntryTrends, next))
	assert.ErrorIs(t, err, ErrMiss)
}
