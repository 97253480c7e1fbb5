package epr_recompute

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/edusight-backend/internal/data/repos/testutil"
	types "github.com/yungbote/edusight-backend/internal/domain"
	domainjobs "github.com/yungbote/edusight-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/edusight-backend/internal/jobs/runtime"
	"github.com/yungbote/edusight-backend/internal/recompute"
)

type fakeController struct {
	recompute.Controller
	forced    []uuid.UUID
	refreshes []recompute.UploadRefresh
}

func (f *fakeController) ForceFullRecalculation(_ context.Context, sid uuid.UUID) (*recompute.Outcome, error) {
	f.forced = append(f.forced, sid)
	return &recompute.Outcome{StudentID: sid, FullRebuild: true, Years: []string{"2024-25"}}, nil
}

func (f *fakeController) Refresh(_ context.Context, r recompute.UploadRefresh) (*recompute.Outcome, error) {
	f.refreshes = append(f.refreshes, r)
	return &recompute.Outcome{StudentID: r.StudentID, Years: r.Years}, nil
}

func jobContext(t *testing.T, payload map[string]any) *jobrt.Context {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	job := &types.JobRun{ID: uuid.New(), JobType: JobType, Status: domainjobs.StatusRunning, Payload: datatypes.JSON(b)}
	return jobrt.NewContext(context.Background(), nil, job, nil, jobrt.NewLogNotifier(testutil.Logger(t)))
}

func TestRunForcesFullRebuild(t *testing.T) {
	ctrl := &fakeController{}
	p := New(testutil.Logger(t), ctrl)
	sid := uuid.New()
	jc := jobContext(t, map[string]any{"student_id": sid.String(), "force": true})

	require.NoError(t, p.Run(jc))
	assert.Equal(t, []uuid.UUID{sid}, ctrl.forced)
	assert.Empty(t, ctrl.refreshes)
	assert.Equal(t, domainjobs.StatusSucceeded, jc.Job.Status)

	var res Result
	require.NoError(t, json.Unmarshal(jc.Job.Result, &res))
	assert.True(t, res.FullRebuild)
	assert.Equal(t, []string{"2024-25"}, res.Years)
}

func TestRunRefreshesListedYears(t *testing.T) {
	ctrl := &fakeController{}
	p := New(testutil.Logger(t), ctrl)
	sid := uuid.New()
	jc := jobContext(t, map[string]any{"student_id": sid.String(), "years": []string{"2023-24", "2024-25"}})

	require.NoError(t, p.Run(jc))
	require.Len(t, ctrl.refreshes, 1)
	assert.Equal(t, sid, ctrl.refreshes[0].StudentID)
	assert.Equal(t, []string{"2023-24", "2024-25"}, ctrl.refreshes[0].Years)
	assert.ElementsMatch(t, types.Domains(), ctrl.refreshes[0].Domains)
}

func TestRunRejectsMissingStudent(t *testing.T) {
	ctrl := &fakeController{}
	jc := jobContext(t, map[string]any{"force": true})

	require.NoError(t, New(testutil.Logger(t), ctrl).Run(jc))
	assert.Equal(t, domainjobs.StatusFailed, jc.Job.Status)
	assert.Equal(t, "validate", jc.Job.Stage)
	assert.Empty(t, ctrl.forced)
}
