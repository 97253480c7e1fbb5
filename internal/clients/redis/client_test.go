package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/edusight-backend/internal/data/repos/testutil"
	"github.com/yungbote/edusight-backend/internal/notify"
	"github.com/yungbote/edusight-backend/internal/platform/cache"
)

// newClient connects to REDIS_TEST_ADDR; tests skip without it.
func newClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c, err := NewClient(testutil.Logger(t), Config{Addr: addr, Channel: "epr:test:" + uuid.NewString()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewClientRequiresAddress(t *testing.T) {
	_, err := NewClient(testutil.Logger(t), Config{})
	assert.Error(t, err)
}

func TestCacheSemantics(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()
	key := "epr:test:" + uuid.NewString()
	t.Cleanup(func() { _ = c.Delete(ctx, key) })

	_, err := c.Get(ctx, key)
	assert.ErrorIs(t, err, cache.ErrMiss)

	ok, err := c.SetNX(ctx, key, []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.SetNX(ctx, key, []byte("2"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	require.NoError(t, c.Delete(ctx, key))
	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestPublishReachesForwarder(t *testing.T) {
	c := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan notify.Notification, 1)
	require.NoError(t, c.StartForwarder(ctx, func(n notify.Notification) { got <- n }))

	sent := notify.Notification{StudentID: uuid.New(), Kind: notify.KindEPRChange, Priority: notify.PriorityMedium, Message: "EPR score changed by +6.0"}
	require.NoError(t, c.Publish(ctx, sent))

	select {
	case n := <-got:
		assert.Equal(t, sent.StudentID, n.StudentID)
		assert.Equal(t, sent.Message, n.Message)
	case <-time.After(5 * time.Second):
		t.Fatal("notification not forwarded")
	}
}
