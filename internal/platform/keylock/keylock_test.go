package keylock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockServesWaitersInArrivalOrder(t *testing.T) {
	l := New[string]()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "s1")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			release, err := l.Lock(ctx, "s1")
			if err != nil {
				t.Errorf("lock %d: %v", n, err)
				return
			}
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			release()
		}(i)
		// Wait until goroutine i is queued before starting the next one.
		require.Eventually(t, func() bool { return l.Pending("s1") == i+2 }, time.Second, time.Millisecond)
	}

	unlock()
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, 0, l.Pending("s1"))
}

func TestLockDifferentKeysIndependent(t *testing.T) {
	l := New[string]()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := l.Lock(ctx, "b")
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestLockCancelledWaiterLeavesQueue(t *testing.T) {
	l := New[int]()
	unlock, err := l.Lock(context.Background(), 7)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, 7)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, l.Pending(7))

	unlock()
	assert.Equal(t, 0, l.Pending(7))

	// Double release is a no-op.
	unlock()
	again, err := l.Lock(context.Background(), 7)
	require.NoError(t, err)
	again()
}
