package uploads

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Format string

const (
	FormatCSV         Format = "csv"
	FormatSpreadsheet Format = "spreadsheet"
	FormatPDF         Format = "pdf"
	FormatDocument    Format = "document"
	FormatImage       Format = "image"
)

func (f Format) Valid() bool {
	switch f {
	case FormatCSV, FormatSpreadsheet, FormatPDF, FormatDocument, FormatImage:
		return true
	}
	return false
}

// Structured formats carry tabular data directly; the rest go through OCR or
// text extraction first.
func (f Format) Structured() bool {
	return f == FormatCSV || f == FormatSpreadsheet
}

const (
	StatusPending     = "pending"
	StatusProcessing  = "processing"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusNeedsReview = "needs_review"
)

type DataUpload struct {
	ID               uuid.UUID                         `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID        uuid.UUID                         `gorm:"type:uuid;not null;index" json:"student_id"`
	OriginalFilename string                            `gorm:"column:original_filename;not null" json:"original_filename"`
	SizeBytes        int64                             `gorm:"column:size_bytes;not null" json:"size_bytes"`
	Format           Format                            `gorm:"column:format;not null" json:"format"`
	DomainHint       string                            `gorm:"column:domain_hint" json:"domain_hint,omitempty"`
	DetectedDomain   string                            `gorm:"column:detected_domain" json:"detected_domain,omitempty"`
	AcademicYear     string                            `gorm:"column:academic_year" json:"academic_year,omitempty"`
	Description      string                            `gorm:"column:description" json:"description,omitempty"`
	StorageKey       string                            `gorm:"column:storage_key" json:"storage_key,omitempty"`
	Status           string                            `gorm:"column:status;not null;index" json:"status"`
	FailureReason    string                            `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	ExtractedRows    datatypes.JSONSlice[ExtractedRow] `gorm:"column:extracted_rows" json:"extracted_rows"`
	Confidence       float64                           `gorm:"column:confidence;not null;default:0" json:"confidence"`
	IssueCount       int                               `gorm:"column:issue_count;not null;default:0" json:"issue_count"`
	WorstSeverity    string                            `gorm:"column:worst_severity" json:"worst_severity,omitempty"`
	ProcessedAt      *time.Time                        `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt        time.Time                         `gorm:"not null;index" json:"created_at"`
	UpdatedAt        time.Time                         `gorm:"not null" json:"updated_at"`
}

func (DataUpload) TableName() string { return "data_upload" }

func (u *DataUpload) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Status == "" {
		u.Status = StatusPending
	}
	return nil
}
