// Package extractor recovers tables and text from uploaded files. There is
// one TextExtractor per upload format; OCR and Document AI sit behind small
// provider interfaces so tests run without network access.
package extractor

import (
	"context"
	"fmt"

	"github.com/yungbote/edusight-backend/internal/domain/uploads"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/platform/gcp"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

// Table is a grid of trimmed cells, header row first.
type Table struct {
	Name string
	Rows [][]string
}

// Header returns the first row.
func (t Table) Header() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[0]
}

// Body returns every row after the header.
func (t Table) Body() [][]string {
	if len(t.Rows) < 2 {
		return nil
	}
	return t.Rows[1:]
}

// Extraction is what a file yielded. Structured formats fill Tables; text
// formats fill Text, and may also carry tables the provider detected.
type Extraction struct {
	Format      uploads.Format
	Tables      []Table
	Text        string
	OCR         bool
	Encoding    string
	Warnings    []string
	Diagnostics map[string]any
}

func newExtraction(f uploads.Format) *Extraction {
	return &Extraction{Format: f, Diagnostics: map[string]any{}}
}

func (e *Extraction) warn(msg string) { e.Warnings = append(e.Warnings, msg) }

type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (*Extraction, error)
}

// DocumentProcessor extracts text and tables from PDFs directly.
type DocumentProcessor interface {
	ProcessPDF(ctx context.Context, data []byte) (*gcp.DocumentText, error)
}

// OCRProvider reads text from images and scanned PDFs.
type OCRProvider interface {
	OCRImage(ctx context.Context, img []byte) (string, error)
	OCRPDF(ctx context.Context, pdf []byte) (string, error)
}

// Set maps each upload format to its extractor.
type Set struct {
	byFormat map[uploads.Format]TextExtractor
}

// New wires the standard extractors. docAI and ocr may be nil; the formats
// that need them then degrade or fail with a parse error.
func New(log *logger.Logger, docAI DocumentProcessor, ocr OCRProvider) *Set {
	l := log.With("component", "TextExtractor")
	return &Set{byFormat: map[uploads.Format]TextExtractor{
		uploads.FormatCSV:         &CSV{log: l},
		uploads.FormatSpreadsheet: &Spreadsheet{log: l},
		uploads.FormatDocument:    &Document{log: l},
		uploads.FormatPDF:         &PDF{log: l, docAI: docAI, ocr: ocr},
		uploads.FormatImage:       &Image{log: l, ocr: ocr},
	}}
}

// With replaces the extractor for f.
func (s *Set) With(f uploads.Format, ex TextExtractor) *Set {
	s.byFormat[f] = ex
	return s
}

func (s *Set) For(f uploads.Format) (TextExtractor, error) {
	ex, ok := s.byFormat[f]
	if !ok || ex == nil {
		return nil, errs.New(errs.KindUnsupportedFormat, fmt.Sprintf("unsupported format %q", f), errs.ErrUnsupportedFormat)
	}
	return ex, nil
}

func parseFailure(reason string, err error) error {
	if err == nil {
		return errs.New(errs.KindParseFailure, reason, errs.ErrParseFailure)
	}
	return errs.New(errs.KindParseFailure, reason, fmt.Errorf("%w: %v", errs.ErrParseFailure, err))
}
