package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/edusight-backend/internal/data/repos/jobs"
	"github.com/yungbote/edusight-backend/internal/data/repos/testutil"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
)

func TestJobQueueEnqueuesLocalWorkflowsOnce(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := jobs.NewJobRunRepo(db, log)
	fallback := &Recorder{}
	q := NewJobQueue(log, repo, []string{WorkflowBatchRecalculation}, fallback)
	ctx := context.Background()
	sid := uuid.New()

	ready := Event{Type: EventEPRReady, StudentID: sid, At: time.Now()}
	require.NoError(t, q.Dispatch(ctx, ready))
	require.NoError(t, q.Dispatch(ctx, ready))

	open, err := repo.ExistsRunnable(dbctx.Context{Ctx: ctx}, &sid, WorkflowBatchRecalculation)
	require.NoError(t, err)
	assert.True(t, open)
	var n int64
	require.NoError(t, db.Table("job_run").Where("student_id = ?", sid).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	report := Event{Type: EventReportReady, StudentID: sid, At: time.Now()}
	require.NoError(t, q.Dispatch(ctx, report))
	require.Len(t, fallback.Events(), 1)
	assert.Equal(t, EventReportReady, fallback.Events()[0].Type)
}
