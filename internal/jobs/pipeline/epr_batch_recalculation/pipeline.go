package epr_batch_recalculation

import (
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/edusight-backend/internal/jobs/runtime"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
)

type Failure struct {
	StudentID uuid.UUID `json:"student_id"`
	Error     string    `json:"error"`
}

type Result struct {
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failures  []Failure `json:"failures"`
}

// Run force-rebuilds every student named in student_ids, or every profile
// when the payload names none. One student failing does not stop the batch;
// the job fails only when all of them do.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	ids := jc.PayloadUUIDs("student_ids")
	if len(ids) == 0 {
		if sid, ok := jc.PayloadUUID("student_id"); ok {
			ids = []uuid.UUID{sid}
		}
	}
	if len(ids) == 0 {
		all, err := p.profiles.ListIDs(dbctx.Context{Ctx: jc.Ctx})
		if err != nil {
			jc.Fail("load", err)
			return nil
		}
		ids = all
	}

	res := Result{Total: len(ids), Failures: []Failure{}}
	for i, sid := range ids {
		if err := jc.Ctx.Err(); err != nil {
			return err
		}
		if _, err := p.ctrl.ForceFullRecalculation(jc.Ctx, sid); err != nil {
			if ctxErr := jc.Ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			p.log.Warn("student recalculation failed", "student_id", sid, "error", err)
			res.Failures = append(res.Failures, Failure{StudentID: sid, Error: err.Error()})
		} else {
			res.Succeeded++
		}
		jc.Progress("recalculate", progress(i+1, len(ids)), fmt.Sprintf("%d/%d students", i+1, len(ids)))
	}

	if res.Total > 0 && res.Succeeded == 0 {
		jc.Fail("recalculate", fmt.Errorf("all %d recalculations failed: %s", res.Total, res.Failures[0].Error))
		return nil
	}
	p.log.Info("batch recalculation finished", "total", res.Total, "succeeded", res.Succeeded, "failed", len(res.Failures))
	jc.Succeed("done", res)
	return nil
}

// progress keeps 100 for Succeed.
func progress(done, total int) int {
	if total == 0 {
		return 99
	}
	pct := done * 99 / total
	if pct < 1 {
		pct = 1
	}
	return pct
}
