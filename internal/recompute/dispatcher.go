package recompute

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

var ErrDispatcherClosed = errors.New("recompute dispatcher closed")

// Result is the settled outcome of a submitted mutation.
type Result struct {
	Outcome *Outcome
	Err     error
}

type task struct {
	m    Mutation
	done chan Result
}

// Dispatcher runs mutations in the background. Mutations for one student run
// one at a time in submission order; different students proceed in parallel
// up to the configured limit.
type Dispatcher struct {
	ctrl Controller
	log  *logger.Logger
	sem  *semaphore.Weighted

	mu     sync.Mutex
	queues map[uuid.UUID][]task
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(ctrl Controller, baseLog *logger.Logger, parallel int) *Dispatcher {
	if parallel <= 0 {
		parallel = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		ctrl:   ctrl,
		log:    baseLog.With("component", "RecomputeDispatcher"),
		sem:    semaphore.NewWeighted(int64(parallel)),
		queues: map[uuid.UUID][]task{},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit enqueues m and returns a channel that receives its result once.
func (d *Dispatcher) Submit(m Mutation) <-chan Result {
	done := make(chan Result, 1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		done <- Result{Err: ErrDispatcherClosed}
		return done
	}
	q, running := d.queues[m.StudentID]
	d.queues[m.StudentID] = append(q, task{m: m, done: done})
	if !running {
		d.wg.Add(1)
		go d.drain(m.StudentID)
	}
	return done
}

// Pending reports how many mutations for studentID have not finished.
func (d *Dispatcher) Pending(studentID uuid.UUID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues[studentID])
}

func (d *Dispatcher) drain(studentID uuid.UUID) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[studentID]
		if len(q) == 0 {
			delete(d.queues, studentID)
			d.mu.Unlock()
			return
		}
		t := q[0]
		d.mu.Unlock()

		t.done <- d.run(t.m)

		d.mu.Lock()
		d.queues[studentID] = d.queues[studentID][1:]
		d.mu.Unlock()
	}
}

func (d *Dispatcher) run(m Mutation) Result {
	if err := d.sem.Acquire(d.ctx, 1); err != nil {
		return Result{Err: ErrDispatcherClosed}
	}
	defer d.sem.Release(1)
	out, err := d.ctrl.Mutate(d.ctx, m)
	if err != nil {
		d.log.Warn("background mutation failed", "student_id", m.StudentID, "domain", m.Domain, "error", err)
	}
	return Result{Outcome: out, Err: err}
}

// Close stops accepting work and waits for queued mutations to finish or
// for ctx to end, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-finished
		return ctx.Err()
	}
}
