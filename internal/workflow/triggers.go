package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EPRReadyMinObservations = 5
	ReportReadyCompletion   = 70
	AlertDASSThreshold      = 20.0
	AlertPercentageBelow    = 40.0
)

// State is what trigger evaluation looks at after a recompute.
type State struct {
	StudentID         uuid.UUID
	Academic          int
	Psychological     int
	Physical          int
	CompletionPercent int

	// Readings are the observations just written; only they can raise alerts.
	Readings []Reading
}

// Reading is the alert-relevant part of one written observation.
type Reading struct {
	DASSStress     *float64
	DASSDepression *float64
	Percentage     *float64
	Subject        string
}

func (s State) total() int { return s.Academic + s.Psychological + s.Physical }

// Evaluate returns the events whose conditions hold for after but did not
// hold for before, plus the alerts raised by the new readings.
func Evaluate(before, after State, now time.Time) []Event {
	var out []Event
	ready := func(s State) bool {
		return s.total() >= EPRReadyMinObservations && (s.Academic > 0 || s.Psychological > 0 || s.Physical > 0)
	}
	if ready(after) && !ready(before) {
		out = append(out, Event{
			Type:      EventEPRReady,
			StudentID: after.StudentID,
			Data:      map[string]any{"observations": after.total()},
			At:        now,
		})
	}
	if after.CompletionPercent >= ReportReadyCompletion && before.CompletionPercent < ReportReadyCompletion {
		out = append(out, Event{
			Type:      EventReportReady,
			StudentID: after.StudentID,
			Data:      map[string]any{"completion_percent": after.CompletionPercent},
			At:        now,
		})
	}
	for _, r := range after.Readings {
		out = append(out, Alerts(after.StudentID, r, now)...)
	}
	return out
}

// Alerts returns the alert events one reading raises.
func Alerts(studentID uuid.UUID, r Reading, now time.Time) []Event {
	var out []Event
	if v := r.DASSStress; v != nil && *v > AlertDASSThreshold {
		out = append(out, alert(studentID, "dass_stress", *v, now))
	}
	if v := r.DASSDepression; v != nil && *v > AlertDASSThreshold {
		out = append(out, alert(studentID, "dass_depression", *v, now))
	}
	if v := r.Percentage; v != nil && *v < AlertPercentageBelow {
		ev := alert(studentID, "low_percentage", *v, now)
		if r.Subject != "" {
			ev.Data["subject"] = r.Subject
			ev.Reason = fmt.Sprintf("low_percentage_%s", r.Subject)
		}
		out = append(out, ev)
	}
	return out
}

func alert(studentID uuid.UUID, reason string, value float64, now time.Time) Event {
	return Event{
		Type:      EventAlert,
		StudentID: studentID,
		Reason:    reason,
		Data:      map[string]any{"value": value},
		At:        now,
	}
}
