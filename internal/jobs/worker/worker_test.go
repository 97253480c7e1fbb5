package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/edusight-backend/internal/data/repos/jobs"
	"github.com/yungbote/edusight-backend/internal/data/repos/testutil"
	types "github.com/yungbote/edusight-backend/internal/domain"
	domainjobs "github.com/yungbote/edusight-backend/internal/domain/jobs"
	"github.com/yungbote/edusight-backend/internal/jobs/runtime"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
)

type funcHandler struct {
	typ string
	fn  func(jc *runtime.Context) error
}

func (h funcHandler) Type() string { return h.typ }
func (h funcHandler) Run(jc *runtime.Context) error { return h.fn(jc) }

type harness struct {
	db   *gorm.DB
	repo jobs.JobRunRepo
	reg  *runtime.Registry
	dbc  dbctx.Context
}

func newHarness(t *testing.T, handlers ...runtime.Handler) *harness {
	t.Helper()
	db := testutil.DB(t)
	h := &harness{
		db:   db,
		repo: jobs.NewJobRunRepo(db, testutil.Logger(t)),
		reg:  runtime.NewRegistry(),
		dbc:  dbctx.Context{Ctx: context.Background()},
	}
	for _, hd := range handlers {
		require.NoError(t, h.reg.Register(hd))
	}
	return h
}

func (h *harness) worker(t *testing.T, cfg Config) *Worker {
	return NewWorker(h.db, testutil.Logger(t), cfg, h.repo, h.reg, nil)
}

func (h *harness) enqueue(t *testing.T, jobType string, payload map[string]any) uuid.UUID {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	created, err := h.repo.Create(h.dbc, []*types.JobRun{{JobType: jobType, Payload: datatypes.JSON(b)}})
	require.NoError(t, err)
	return created[0].ID
}

func (h *harness) load(t *testing.T, id uuid.UUID) *types.JobRun {
	t.Helper()
	rows, err := h.repo.GetByIDs(h.dbc, []uuid.UUID{id})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]
}

func TestRunOnceSucceeds(t *testing.T) {
	h := newHarness(t, funcHandler{typ: "echo", fn: func(jc *runtime.Context) error {
		jc.Progress("echo", 50, "halfway")
		jc.Succeed("done", map[string]any{"student": jc.PayloadString("student_id")})
		return nil
	}})
	w := h.worker(t, Config{})
	sid := uuid.NewString()
	id := h.enqueue(t, "echo", map[string]any{"student_id": sid})

	assert.True(t, w.RunOnce(context.Background(), 1))
	assert.False(t, w.RunOnce(context.Background(), 1))

	job := h.load(t, id)
	assert.Equal(t, domainjobs.StatusSucceeded, job.Status)
	assert.Equal(t, "done", job.Stage)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 1, job.Attempts)
	assert.JSONEq(t, `{"student":"`+sid+`"}`, string(job.Result))
}

func TestRunOnceFailsWithoutHandler(t *testing.T) {
	h := newHarness(t)
	w := h.worker(t, Config{})
	id := h.enqueue(t, "unknown", nil)

	assert.True(t, w.RunOnce(context.Background(), 1))
	job := h.load(t, id)
	assert.Equal(t, domainjobs.StatusFailed, job.Status)
	assert.Equal(t, "dispatch", job.Stage)
	assert.Contains(t, job.Error, "job_type=unknown")
}

func TestRunOnceEnforcesMaxExecutionTime(t *testing.T) {
	h := newHarness(t, funcHandler{typ: "slow", fn: func(jc *runtime.Context) error {
		<-jc.Ctx.Done()
		return jc.Ctx.Err()
	}})
	w := h.worker(t, Config{MaxExecutionTime: 20 * time.Millisecond})
	id := h.enqueue(t, "slow", nil)

	assert.True(t, w.RunOnce(context.Background(), 1))
	job := h.load(t, id)
	assert.Equal(t, domainjobs.StatusFailed, job.Status)
	assert.Equal(t, "timeout", job.Stage)
	assert.Contains(t, job.Error, "max execution time")
}

func TestRunOnceRetriesUntilAttemptsRunOut(t *testing.T) {
	calls := 0
	h := newHarness(t, funcHandler{typ: "flaky", fn: func(jc *runtime.Context) error {
		calls++
		return errors.New("boom")
	}})
	w := h.worker(t, Config{MaxAttempts: 2, RetryDelay: time.Millisecond})
	id := h.enqueue(t, "flaky", nil)

	assert.True(t, w.RunOnce(context.Background(), 1))
	time.Sleep(20 * time.Millisecond)
	assert.True(t, w.RunOnce(context.Background(), 1))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, w.RunOnce(context.Background(), 1))

	assert.Equal(t, 2, calls)
	job := h.load(t, id)
	assert.Equal(t, domainjobs.StatusFailed, job.Status)
	assert.Equal(t, "run", job.Stage)
	assert.Equal(t, 2, job.Attempts)
	assert.Equal(t, "boom", job.Error)
}

func TestRunOnceRecoversPanics(t *testing.T) {
	h := newHarness(t, funcHandler{typ: "panics", fn: func(jc *runtime.Context) error {
		panic("bad row")
	}})
	w := h.worker(t, Config{})
	id := h.enqueue(t, "panics", nil)

	assert.True(t, w.RunOnce(context.Background(), 1))
	job := h.load(t, id)
	assert.Equal(t, domainjobs.StatusFailed, job.Status)
	assert.Equal(t, "panic", job.Stage)
	assert.Contains(t, job.Error, "bad row")
}

func TestCanceledJobIsNotOverwritten(t *testing.T) {
	var h *harness
	h = newHarness(t, funcHandler{typ: "cancel", fn: func(jc *runtime.Context) error {
		require.NoError(t, h.repo.UpdateFields(h.dbc, jc.Job.ID, map[string]interface{}{"status": domainjobs.StatusCanceled}))
		jc.Succeed("done", nil)
		return nil
	}})
	w := h.worker(t, Config{})
	id := h.enqueue(t, "cancel", nil)

	assert.True(t, w.RunOnce(context.Background(), 1))
	assert.Equal(t, domainjobs.StatusCanceled, h.load(t, id).Status)
}
