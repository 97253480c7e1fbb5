package extractor

import (
	"context"
	"strings"

	"github.com/yungbote/edusight-backend/internal/domain/uploads"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

// minDirectText is the character count below which direct PDF text is treated
// as a scanned document and OCR is tried.
const minDirectText = 40

// PDF tries direct extraction first and falls back to OCR when the document
// yields little or no text.
type PDF struct {
	log   *logger.Logger
	docAI DocumentProcessor
	ocr   OCRProvider
}

func (p *PDF) Extract(ctx context.Context, filename string, data []byte) (*Extraction, error) {
	out := newExtraction(uploads.FormatPDF)
	if !isPDFHeader(data) {
		return nil, parseFailure("not a pdf", nil)
	}

	if p.docAI != nil {
		doc, err := p.docAI.ProcessPDF(ctx, data)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			out.warn("direct extraction failed: " + err.Error())
			p.log.Warn("pdf direct extraction failed", "file", filename, "error", err)
		case doc != nil:
			out.Diagnostics["pages"] = doc.Pages
			for i, t := range doc.Tables {
				rows := trimRows(t)
				if len(rows) > 0 {
					out.Tables = append(out.Tables, Table{Name: tableName(filename, i), Rows: rows})
				}
			}
			out.Text = normalizeLines(sanitizeUTF8(doc.Text))
		}
	}
	if len(strings.TrimSpace(out.Text)) >= minDirectText || len(out.Tables) > 0 {
		out.Diagnostics["method"] = "direct"
		return out, nil
	}

	if p.ocr == nil {
		if out.Text != "" {
			out.Diagnostics["method"] = "direct"
			return out, nil
		}
		return nil, parseFailure("pdf has no extractable text", nil)
	}
	text, err := p.ocr.OCRPDF(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if out.Text != "" {
			out.warn("ocr failed: " + err.Error())
			out.Diagnostics["method"] = "direct"
			return out, nil
		}
		return nil, parseFailure("pdf ocr failed", err)
	}
	text = normalizeLines(sanitizeUTF8(text))
	if text == "" && out.Text == "" {
		return nil, parseFailure("pdf has no extractable text", nil)
	}
	if len(text) > len(out.Text) {
		out.Text = text
		out.OCR = true
		out.Diagnostics["method"] = "ocr"
	} else {
		out.Diagnostics["method"] = "direct"
	}
	p.log.Debug("pdf extracted", "file", filename, "ocr", out.OCR, "chars", len(out.Text))
	return out, nil
}
