package jobrun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/edusight-backend/internal/data/repos/jobs"
	"github.com/yungbote/edusight-backend/internal/data/repos/testutil"
	domainjobs "github.com/yungbote/edusight-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/edusight-backend/internal/jobs/runtime"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	eprworkflow "github.com/yungbote/edusight-backend/internal/workflow"
)

type funcHandler struct {
	fn func(jc *jobrt.Context) error
}

func (h funcHandler) Type() string { return eprworkflow.WorkflowBatchRecalculation }

func (h funcHandler) Run(jc *jobrt.Context) error { return h.fn(jc) }

func runWorkflow(t *testing.T, fn func(jc *jobrt.Context) error) (*testsuite.TestWorkflowEnvironment, jobs.JobRunRepo) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := jobs.NewJobRunRepo(db, log)
	reg := jobrt.NewRegistry()
	require.NoError(t, reg.Register(funcHandler{fn: fn}))
	acts := &Activities{Log: log, DB: db, Jobs: repo, Registry: reg, Notify: jobrt.NewLogNotifier(log)}

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(BatchRecalculation, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: ActivityRun})
	env.ExecuteWorkflow(WorkflowName, eprworkflow.Event{
		Type:      eprworkflow.EventEPRReady,
		StudentID: uuid.New(),
		Reason:    "sufficient_data",
		At:        time.Now().UTC(),
	})
	require.True(t, env.IsWorkflowCompleted())
	return env, repo
}

func TestBatchRecalculationRecordsJob(t *testing.T) {
	var seen uuid.UUID
	env, repo := runWorkflow(t, func(jc *jobrt.Context) error {
		seen, _ = jc.PayloadUUID("student_id")
		jc.Succeed("done", map[string]int{"total": 1})
		return nil
	})
	require.NoError(t, env.GetWorkflowError())
	assert.NotEqual(t, uuid.Nil, seen)

	exists, err := repo.ExistsRunnable(dbctx.Context{Ctx: context.Background()}, &seen, eprworkflow.WorkflowBatchRecalculation)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBatchRecalculationFailsWithJob(t *testing.T) {
	env, _ := runWorkflow(t, func(jc *jobrt.Context) error {
		return errors.New("summary write failed")
	})
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), domainjobs.StatusFailed)
	assert.Contains(t, err.Error(), "summary write failed")
}
