// Package workflow emits the outward trigger events a recompute can raise
// and hands them to an external workflow engine.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type EventType string

const (
	// EventEPRReady fires once a student has enough observations for a
	// meaningful rating.
	EventEPRReady EventType = "epr_ready"
	// EventAlert fires on a wellbeing or attainment reading that needs a human.
	EventAlert EventType = "alert"
	// EventReportReady fires once the profile is complete enough to report on.
	EventReportReady EventType = "report_ready"
)

// Workflow type names started on the engine for each event.
const (
	WorkflowBatchRecalculation = "epr_batch_recalculation"
	WorkflowStudentAlert       = "epr_student_alert"
	WorkflowStudentReport      = "epr_student_report"
)

func (e EventType) Workflow() string {
	switch e {
	case EventEPRReady:
		return WorkflowBatchRecalculation
	case EventAlert:
		return WorkflowStudentAlert
	case EventReportReady:
		return WorkflowStudentReport
	}
	return ""
}

type Event struct {
	Type      EventType      `json:"type"`
	StudentID uuid.UUID      `json:"student_id"`
	Reason    string         `json:"reason"`
	Data      map[string]any `json:"data,omitempty"`
	At        time.Time      `json:"at"`
}

// ID is stable per student, event type and reason so a re-fired event does
// not start a second run while one is open.
func (e Event) ID() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s:%s", e.Type, e.StudentID)
	}
	return fmt.Sprintf("%s:%s:%s", e.Type, e.StudentID, e.Reason)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// Log is the dispatcher used when no workflow engine is configured.
type Log struct {
	log *logger.Logger
}

func NewLog(baseLog *logger.Logger) *Log {
	return &Log{log: baseLog.With("component", "WorkflowLog")}
}

func (d *Log) Dispatch(_ context.Context, ev Event) error {
	d.log.Info("workflow trigger", "event", ev.Type, "student_id", ev.StudentID, "reason", ev.Reason)
	return nil
}

// Recorder keeps dispatched events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Dispatch(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Of returns the recorded events of type t.
func (r *Recorder) Of(t EventType) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
