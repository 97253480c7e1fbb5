package issues

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Kind string

const (
	KindMissingData      Kind = "missing_data"
	KindInvalidValue     Kind = "invalid_value"
	KindDuplicateEntry   Kind = "duplicate_entry"
	KindInconsistentData Kind = "inconsistent_data"
	KindFormatError      Kind = "format_error"
	KindRangeError       Kind = "range_error"
	KindOther            Kind = "other"
)

// Issue codes narrow the kind for reviewers.
const (
	CodeInvalidType    = "invalid_type"
	CodeValueTooLow    = "value_too_low"
	CodeValueTooHigh   = "value_too_high"
	CodeInconsistent   = "inconsistent_data"
	CodeMissingField   = "missing_field"
	CodeDuplicate      = "duplicate_entry"
	CodeLowConfidence  = "low_confidence"
	CodeUnknownDomain  = "unknown_domain"
	CodeSourceRemoved  = "source_removed"
	CodeUnmappedColumn = "unmapped_column"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities so the worst one wins.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusDismissed  Status = "dismissed"
)

// Terminal statuses are never left.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusDismissed
}

// CanTransition reports whether an issue may move from s to to. Issues only
// move forward and are never re-opened.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusOpen:
		return to == StatusInProgress || to == StatusResolved || to == StatusDismissed
	case StatusInProgress:
		return to == StatusResolved || to == StatusDismissed
	}
	return false
}

const ReasonSourceRemoved = "source removed"

type ValidationIssue struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"student_id"`
	Domain         string     `gorm:"column:domain;not null" json:"domain"`
	FieldName      string     `gorm:"column:field_name" json:"field_name"`
	Kind           Kind       `gorm:"column:kind;not null" json:"kind"`
	Code           string     `gorm:"column:code" json:"code,omitempty"`
	Severity       Severity   `gorm:"column:severity;not null" json:"severity"`
	Status         Status     `gorm:"column:status;not null;index" json:"status"`
	CurrentValue   string     `gorm:"column:current_value" json:"current_value,omitempty"`
	SuggestedValue *string    `gorm:"column:suggested_value" json:"suggested_value,omitempty"`
	Description    string     `gorm:"column:description" json:"description"`
	UploadID       *uuid.UUID `gorm:"type:uuid;column:upload_id;index" json:"upload_id,omitempty"`
	ObservationID  *uuid.UUID `gorm:"type:uuid;column:observation_id;index" json:"observation_id,omitempty"`
	RowIndex       *int       `gorm:"column:row_index" json:"row_index,omitempty"`
	ResolutionNote string     `gorm:"column:resolution_note" json:"resolution_note,omitempty"`
	ResolvedAt     *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (ValidationIssue) TableName() string { return "validation_issue" }

func (i *ValidationIssue) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Status == "" {
		i.Status = StatusOpen
	}
	return nil
}
