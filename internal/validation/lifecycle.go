package validation

import (
	"fmt"
	"time"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/domain/issues"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
)

// Transition moves issue to status to. Issues only move forward; a terminal
// issue is never re-opened.
func Transition(issue *types.ValidationIssue, to issues.Status, note string, now time.Time) error {
	if issue == nil {
		return errs.ErrNotFound
	}
	if !issue.Status.CanTransition(to) {
		return errs.New(errs.KindInvalidArgument,
			fmt.Sprintf("issue %s cannot move from %s to %s", issue.ID, issue.Status, to),
			errs.ErrInvalidArgument)
	}
	issue.Status = to
	if note != "" {
		issue.ResolutionNote = note
	}
	if to.Terminal() {
		t := now.UTC()
		issue.ResolvedAt = &t
	}
	return nil
}

// TransitionUpdates is the column set Transition changed, for repository
// UpdateFields calls.
func TransitionUpdates(issue *types.ValidationIssue) map[string]interface{} {
	return map[string]interface{}{
		"status":          issue.Status,
		"resolution_note": issue.ResolutionNote,
		"resolved_at":     issue.ResolvedAt,
	}
}
