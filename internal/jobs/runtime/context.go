package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/edusight-backend/internal/data/repos/jobs"
	types "github.com/yungbote/edusight-backend/internal/domain"
	domainjobs "github.com/yungbote/edusight-backend/internal/domain/jobs"
	"github.com/yungbote/edusight-backend/internal/platform/ctxutil"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

/*
Context is the execution handle for one claimed job run.
Handlers never touch job_run directly; progress, failure and success all go
through it so a canceled row is never overwritten.
*/
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Job     *types.JobRun
	Repo    jobs.JobRunRepo
	Notify  Notifier
	payload map[string]any
}

// Notifier receives job lifecycle events.
type Notifier interface {
	JobProgress(job *types.JobRun, stage string, pct int, msg string)
	JobFailed(job *types.JobRun, stage string, msg string)
	JobDone(job *types.JobRun)
}

// LogNotifier reports job lifecycle events to the log.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(baseLog *logger.Logger) *LogNotifier {
	return &LogNotifier{log: baseLog.With("component", "JobNotifier")}
}

func (n *LogNotifier) JobProgress(job *types.JobRun, stage string, pct int, msg string) {
	n.log.Debug("job progress", "job_id", job.ID, "job_type", job.JobType, "stage", stage, "progress", pct, "message", msg)
}

func (n *LogNotifier) JobFailed(job *types.JobRun, stage string, msg string) {
	n.log.Warn("job failed", "job_id", job.ID, "job_type", job.JobType, "stage", stage, "attempts", job.Attempts, "error", msg)
}

func (n *LogNotifier) JobDone(job *types.JobRun) {
	n.log.Info("job succeeded", "job_id", job.ID, "job_type", job.JobType, "attempts", job.Attempts)
}

// NewContext decodes the payload eagerly. A malformed payload leaves an empty
// map; handlers validate the fields they need.
func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo jobs.JobRunRepo, notify Notifier) *Context {
	c := &Context{
		Ctx:    ctx,
		DB:     db,
		Job:    job,
		Repo:   repo,
		Notify: notify,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil {
		return nil
	}
	if len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	if c == nil || c.Ctx == nil {
		return
	}
	traceID := c.PayloadString("trace_id")
	reqID := c.PayloadString("request_id")
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{
		TraceID:   traceID,
		RequestID: reqID,
		Origin:    "job:" + c.Job.JobType,
	})
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(fmt.Sprint(v))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func (c *Context) PayloadBool(key string) bool {
	b, _ := c.Payload()[key].(bool)
	return b
}

// PayloadUUIDs reads a list of UUID strings, skipping entries that do not parse.
func (c *Context) PayloadUUIDs(key string) []uuid.UUID {
	raw, _ := c.Payload()[key].([]any)
	out := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		if id, err := uuid.Parse(fmt.Sprint(v)); err == nil && id != uuid.Nil {
			out = append(out, id)
		}
	}
	return out
}

func (c *Context) ctx() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// Progress records a non-terminal stage and heartbeat.
func (c *Context) Progress(stage string, pct int, msg string) {
	if c == nil {
		return
	}
	now := time.Now().UTC()
	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.ctx()}, c.Job.ID, []string{domainjobs.StatusCanceled}, map[string]interface{}{
			"stage":        stage,
			"progress":     pct,
			"message":      msg,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}
	if c.Job != nil {
		c.Job.Stage = stage
		c.Job.Progress = pct
		c.Job.Message = msg
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}
	if c.Notify != nil && c.Job != nil {
		c.Notify.JobProgress(c.Job, stage, pct, msg)
	}
}

// Fail marks the run failed. The claim query retries it after the retry
// delay until attempts run out.
func (c *Context) Fail(stage string, err error) {
	if c == nil {
		return
	}
	// The run context may already be done (timeout); the row still has to be written.
	ctx := context.WithoutCancel(c.ctx())
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, c.Job.ID, []string{domainjobs.StatusCanceled}, map[string]interface{}{
			"status":        domainjobs.StatusFailed,
			"stage":         stage,
			"message":       "",
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		})
		if !ok {
			return
		}
	}
	if c.Job != nil {
		c.Job.Status = domainjobs.StatusFailed
		c.Job.Stage = stage
		c.Job.Message = ""
		c.Job.Error = msg
		c.Job.LastErrorAt = &now
		c.Job.LockedAt = nil
		c.Job.UpdatedAt = now
	}
	if c.Notify != nil && c.Job != nil {
		c.Notify.JobFailed(c.Job, stage, msg)
	}
}

// Succeed marks the run succeeded and stores result as JSON.
func (c *Context) Succeed(finalStage string, result any) {
	if c == nil {
		return
	}
	now := time.Now().UTC()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}
	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: context.WithoutCancel(c.ctx())}, c.Job.ID, []string{domainjobs.StatusCanceled}, map[string]interface{}{
			"status":       domainjobs.StatusSucceeded,
			"stage":        finalStage,
			"progress":     100,
			"message":      "",
			"error":        "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}
	if c.Job != nil {
		c.Job.Status = domainjobs.StatusSucceeded
		c.Job.Stage = finalStage
		c.Job.Progress = 100
		c.Job.Message = ""
		c.Job.Error = ""
		c.Job.Result = res
		c.Job.LockedAt = nil
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}
	if c.Notify != nil && c.Job != nil {
		c.Notify.JobDone(c.Job)
	}
}
