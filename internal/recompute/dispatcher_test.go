package recompute

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/edusight-backend/internal/data/repos/testutil"
	types "github.com/yungbote/edusight-backend/internal/domain"
)

type orderedController struct {
	Controller
	mu      sync.Mutex
	seen    []string
	running map[uuid.UUID]int
	overlap bool
}

func (c *orderedController) Mutate(ctx context.Context, m Mutation) (*Outcome, error) {
	c.mu.Lock()
	c.running[m.StudentID]++
	if c.running[m.StudentID] > 1 {
		c.overlap = true
	}
	c.mu.Unlock()

	time.Sleep(2 * time.Millisecond)

	c.mu.Lock()
	c.running[m.StudentID]--
	c.seen = append(c.seen, m.StudentID.String()+":"+m.Fields["n"])
	c.mu.Unlock()
	return &Outcome{StudentID: m.StudentID}, nil
}

func TestDispatcherRunsStudentMutationsInOrder(t *testing.T) {
	ctrl := &orderedController{running: map[uuid.UUID]int{}}
	d := NewDispatcher(ctrl, testutil.Logger(t), 4)

	a, b := uuid.New(), uuid.New()
	var results []<-chan Result
	for _, n := range []string{"1", "2", "3", "4"} {
		results = append(results, d.Submit(Mutation{StudentID: a, Domain: types.DomainAcademic, Fields: map[string]string{"n": n}}))
		results = append(results, d.Submit(Mutation{StudentID: b, Domain: types.DomainAcademic, Fields: map[string]string{"n": n}}))
	}
	for _, r := range results {
		select {
		case res := <-r:
			require.NoError(t, res.Err)
		case <-time.After(2 * time.Second):
			t.Fatal("mutation did not finish")
		}
	}
	require.NoError(t, d.Close(context.Background()))

	assert.False(t, ctrl.overlap)
	var orderA, orderB []string
	for _, s := range ctrl.seen {
		switch s[:36] {
		case a.String():
			orderA = append(orderA, s[37:])
		case b.String():
			orderB = append(orderB, s[37:])
		}
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, orderA)
	assert.Equal(t, []string{"1", "2", "3", "4"}, orderB)
	assert.Zero(t, d.Pending(a))
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(&orderedController{running: map[uuid.UUID]int{}}, testutil.Logger(t), 1)
	require.NoError(t, d.Close(context.Background()))
	res := <-d.Submit(Mutation{StudentID: uuid.New()})
	assert.ErrorIs(t, res.Err, ErrDispatcherClosed)
}
