package extractor

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/edusight-backend/internal/domain/uploads"
)

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// normalizeLines collapses whitespace inside each line and drops blank lines,
// keeping line structure for the line-oriented OCR patterns.
func normalizeLines(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = collapseWhitespace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func sanitizeUTF8(s string) string {
	if s == "" || utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, " ")
}

// trimRows trims every cell, drops fully blank rows and trailing blank cells.
func trimRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells := make([]string, len(r))
		last := -1
		for i, c := range r {
			cells[i] = collapseWhitespace(sanitizeUTF8(c))
			if cells[i] != "" {
				last = i
			}
		}
		if last < 0 {
			continue
		}
		out = append(out, cells[:last+1])
	}
	return out
}

// tableText renders rows as tab-separated lines so tables also feed the
// free-text patterns.
func tableText(rows [][]string) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(strings.Join(r, "\t"))
		b.WriteString("\n")
	}
	return b.String()
}

// ClassifyFormat infers the upload format from the file name, content type
// and leading bytes. ok is false when nothing matches.
func ClassifyFormat(name, mime string, head []byte) (uploads.Format, bool) {
	m := strings.ToLower(strings.TrimSpace(mime))
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case m == "text/csv" || ext == ".csv" || ext == ".tsv":
		return uploads.FormatCSV, true
	case ext == ".xlsx" || ext == ".xlsm" || strings.Contains(m, "spreadsheetml"):
		return uploads.FormatSpreadsheet, true
	case m == "application/pdf" || ext == ".pdf" || isPDFHeader(head):
		return uploads.FormatPDF, true
	case ext == ".docx" || strings.Contains(m, "wordprocessingml"):
		return uploads.FormatDocument, true
	case strings.HasPrefix(m, "image/") || ext == ".png" || ext == ".jpg" || ext == ".jpeg" ||
		ext == ".webp" || ext == ".bmp" || ext == ".tif" || ext == ".tiff":
		return uploads.FormatImage, true
	}
	return "", false
}

func isPDFHeader(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}
