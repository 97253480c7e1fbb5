package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/edusight-backend/internal/config"
	domainjobs "github.com/yungbote/edusight-backend/internal/domain/jobs"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/services"
	"github.com/yungbote/edusight-backend/internal/workflow"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Log.Mode = "test"
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "file:" + filepath.Join(dir, "epr.db") + "?_foreign_keys=on"
	cfg.Storage.Dir = filepath.Join(dir, "uploads")
	cfg.Jobs.Concurrency = 1
	cfg.Jobs.PollInterval = 10 * time.Millisecond
	require.NoError(t, cfg.Validate())
	return &cfg
}

func TestNewWiresLocalStack(t *testing.T) {
	a, err := NewWithConfig(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	assert.Nil(t, a.Clients.Redis)
	assert.Nil(t, a.Clients.Temporal)
	assert.Nil(t, a.Services.TemporalWorker)
	assert.NotNil(t, a.Services.JobWorker)
	assert.Nil(t, a.Metrics)
	_, ok := a.Engine.Workflows.(*workflow.JobQueue)
	assert.True(t, ok, "without temporal the job queue dispatches workflows")
	assert.ElementsMatch(t, jobTypes, a.Services.JobRegistry.Types())
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Mode = "ftp"
	_, err := NewWithConfig(context.Background(), cfg)
	wantCode(t, err, StorageProviderBootstrapErrorInvalidMode)
}

func TestRecomputeJobRunsOnLocalWorker(t *testing.T) {
	a, err := NewWithConfig(context.Background(), testConfig(t))
	require.NoError(t, err)
	a.Start()
	t.Cleanup(func() { a.Close(context.Background()) })

	ctx := context.Background()
	sid := uuid.New()
	resp, err := a.Services.Observations.Mutate(ctx, sid, "academic", nil, map[string]any{
		"subject":                  "Mathematics",
		"assessment_type":          "midterm",
		"marks_obtained":           78.0,
		"total_marks":              100,
		services.FieldAcademicYear: "2024-25",
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	dbc := dbctx.Context{Ctx: ctx}
	job, created, err := a.Services.Jobs.EnqueueRecompute(dbc, sid, true, nil)
	require.NoError(t, err)
	require.True(t, created)

	require.Eventually(t, func() bool {
		got, err := a.Services.Jobs.Get(dbc, job.ID)
		return err == nil && got.Status == domainjobs.StatusSucceeded
	}, 5*time.Second, 20*time.Millisecond)

	overview, err := a.Services.Queries.Overview(ctx, sid)
	require.NoError(t, err)
	require.NotEmpty(t, overview.Summaries)
	assert.Equal(t, "2024-25", overview.Summaries[0].AcademicYear)
}
