package jobrun

import (
	eprworkflow "github.com/yungbote/edusight-backend/internal/workflow"
)

const (
	// WorkflowName matches the workflow the dispatcher starts on epr_ready.
	WorkflowName = eprworkflow.WorkflowBatchRecalculation
	ActivityRun  = "epr_job_run"
)

// Request names the job an activity runs for a triggering event.
type Request struct {
	JobType string            `json:"job_type"`
	Event   eprworkflow.Event `json:"event"`
}

type TickResult struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Stage    string `json:"stage,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}
