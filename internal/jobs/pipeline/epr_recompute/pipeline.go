package epr_recompute

import (
	"fmt"

	types "github.com/yungbote/edusight-backend/internal/domain"
	jobrt "github.com/yungbote/edusight-backend/internal/jobs/runtime"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/recompute"
)

// Result is stored on the job row when the run succeeds.
type Result struct {
	Years             []string              `json:"years"`
	EPRChanges        []recompute.EPRChange `json:"epr_changes"`
	FullRebuild       bool                  `json:"full_rebuild"`
	CompletionPercent int                   `json:"completion_percent"`
}

// Run recomputes one student. Payload: student_id, optional force, optional
// years. Without force the listed years (or every domain's current state)
// go through the normal impact rules.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	sid, ok := jc.PayloadUUID("student_id")
	if !ok {
		jc.Fail("validate", errs.New(errs.KindInvalidArgument, "missing student_id", errs.ErrInvalidArgument))
		return nil
	}
	force := jc.PayloadBool("force")
	jc.Progress("recompute", 10, fmt.Sprintf("recomputing student %s", sid))

	var (
		out *recompute.Outcome
		err error
	)
	if force {
		out, err = p.ctrl.ForceFullRecalculation(jc.Ctx, sid)
	} else {
		out, err = p.ctrl.Refresh(jc.Ctx, recompute.UploadRefresh{
			StudentID: sid,
			Domains:   types.Domains(),
			Years:     payloadStrings(jc, "years"),
		})
	}
	if err != nil {
		p.log.Warn("recompute failed", "student_id", sid, "force", force, "error", err)
		return err
	}
	p.log.Info("recompute job finished", "student_id", sid, "years", out.Years, "full_rebuild", out.FullRebuild)
	jc.Succeed("done", Result{
		Years:             out.Years,
		EPRChanges:        out.EPRChanges,
		FullRebuild:       out.FullRebuild,
		CompletionPercent: out.CompletionPercent,
	})
	return nil
}

func payloadStrings(jc *jobrt.Context, key string) []string {
	raw, _ := jc.Payload()[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
