package pipeline

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yungbote/edusight-backend/internal/domain/uploads"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
)

const (
	DefaultMaxBytes               = 10 << 20
	DefaultTimeout                = 5 * time.Minute
	DefaultLowConfidenceThreshold = 0.25
)

type Config struct {
	MaxBytes               int64
	Timeout                time.Duration
	LowConfidenceThreshold float64
	AcademicYearStartMonth time.Month
}

func (c Config) withDefaults() Config {
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.LowConfidenceThreshold <= 0 {
		c.LowConfidenceThreshold = DefaultLowConfidenceThreshold
	}
	if c.AcademicYearStartMonth < time.January || c.AcademicYearStartMonth > time.December {
		c.AcademicYearStartMonth = time.April
	}
	return c
}

// Request is one file handed to the pipeline.
type Request struct {
	StudentID    uuid.UUID      `validate:"required"`
	Filename     string         `validate:"required,max=255"`
	Format       uploads.Format `validate:"required,oneof=csv spreadsheet pdf document image"`
	ContentType  string         `validate:"omitempty,max=255"`
	DomainHint   string         `validate:"omitempty,oneof=academic psychological physical"`
	AcademicYear string         `validate:"omitempty,max=16"`
	Description  string         `validate:"max=2000"`
	Data         []byte         `validate:"required"`
}

var requestValidator = validator.New()

func (r *Request) normalize() {
	r.Filename = strings.TrimSpace(r.Filename)
	r.DomainHint = strings.ToLower(strings.TrimSpace(r.DomainHint))
	r.AcademicYear = strings.TrimSpace(r.AcademicYear)
	r.Format = uploads.Format(strings.ToLower(strings.TrimSpace(string(r.Format))))
}

// check rejects a request before anything is written.
func (r *Request) check(maxBytes int64) error {
	r.normalize()
	if int64(len(r.Data)) > maxBytes {
		return errs.New(errs.KindSizeExceeded, "file exceeds the upload size limit", errs.ErrSizeExceeded)
	}
	if r.Format != "" && !r.Format.Valid() {
		return errs.New(errs.KindUnsupportedFormat, "unsupported format "+string(r.Format), errs.ErrUnsupportedFormat)
	}
	if err := requestValidator.Struct(r); err != nil {
		return errs.New(errs.KindInvalidArgument, "invalid upload request: "+err.Error(), errs.ErrInvalidArgument)
	}
	if r.StudentID == uuid.Nil {
		return errs.New(errs.KindInvalidArgument, "student id required", errs.ErrInvalidArgument)
	}
	return nil
}
