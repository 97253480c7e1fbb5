// Package notify carries the update notifications a recompute produces.
// Delivery to people happens elsewhere; publishers only hand them on.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Kind string

const (
	KindEPRChange  Kind = "epr_change"
	KindBandChange Kind = "band_change"
	KindCompletion Kind = "completion"
)

const (
	// EPRDeltaThreshold is the absolute EPR change that warrants a notification.
	EPRDeltaThreshold = 5.0
)

// CompletionMilestones are the profile completion percentages announced once
// each when crossed upward.
var CompletionMilestones = []int{25, 50, 75, 90}

type Notification struct {
	StudentID    uuid.UUID `json:"student_id"`
	Kind         Kind      `json:"kind"`
	Priority     Priority  `json:"priority"`
	Message      string    `json:"message"`
	AcademicYear string    `json:"academic_year,omitempty"`
	At           time.Time `json:"at"`
}

// EPRChange returns the notifications for one year's rating moving from
// before to after. A year rated for the first time or no longer rated yields
// nothing.
func EPRChange(studentID uuid.UUID, year string, before, after *float64, bandBefore, bandAfter string, now time.Time) []Notification {
	if before == nil || after == nil {
		return nil
	}
	var out []Notification
	delta := *after - *before
	if abs(delta) >= EPRDeltaThreshold {
		out = append(out, Notification{
			StudentID:    studentID,
			Kind:         KindEPRChange,
			Priority:     PriorityMedium,
			Message:      fmt.Sprintf("EPR score changed by %+.1f", delta),
			AcademicYear: year,
			At:           now,
		})
	}
	if bandBefore != "" && bandAfter != "" && bandBefore != bandAfter {
		out = append(out, Notification{
			StudentID:    studentID,
			Kind:         KindBandChange,
			Priority:     PriorityHigh,
			Message:      fmt.Sprintf("Performance band changed from %s to %s", bandBefore, bandAfter),
			AcademicYear: year,
			At:           now,
		})
	}
	return out
}

// Completion announces each milestone in (before, after].
func Completion(studentID uuid.UUID, before, after int, now time.Time) []Notification {
	var out []Notification
	for _, m := range CompletionMilestones {
		if before < m && after >= m {
			out = append(out, Notification{
				StudentID: studentID,
				Kind:      KindCompletion,
				Priority:  PriorityLow,
				Message:   fmt.Sprintf("Profile completion reached %d%%", m),
				At:        now,
			})
		}
	}
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// Log publishes by logging; used when no bus is configured.
type Log struct {
	log *logger.Logger
}

func NewLog(baseLog *logger.Logger) *Log {
	return &Log{log: baseLog.With("component", "NotificationLog")}
}

func (p *Log) Publish(_ context.Context, n Notification) error {
	p.log.Info("notification", "student_id", n.StudentID, "kind", n.Kind, "priority", n.Priority, "message", n.Message)
	return nil
}

// Memory keeps published notifications for inspection.
type Memory struct {
	mu  sync.Mutex
	out []Notification
}

func (m *Memory) Publish(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = append(m.out, n)
	return nil
}

func (m *Memory) All() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.out))
	copy(out, m.out)
	return out
}
