package extractor

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/yungbote/edusight-backend/internal/domain/uploads"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type textEncoding struct {
	name string
	enc  encoding.Encoding
}

// Tried in order; utf-8 is checked for validity, the single-byte sets are
// rejected when they decode to C1 control characters.
var fallbackEncodings = []textEncoding{
	{"utf-8", nil},
	{"latin-1", charmap.ISO8859_1},
	{"iso-8859-1", charmap.ISO8859_1},
	{"cp1252", charmap.Windows1252},
}

// DecodeText returns data as UTF-8 along with the encoding that decoded it.
func DecodeText(data []byte) (string, string, bool) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	for _, te := range fallbackEncodings {
		if te.enc == nil {
			if utf8.Valid(data) {
				return string(data), te.name, true
			}
			continue
		}
		out, err := te.enc.NewDecoder().Bytes(data)
		if err != nil || hasC1Controls(out) {
			continue
		}
		return string(out), te.name, true
	}
	return "", "", false
}

func hasC1Controls(b []byte) bool {
	for _, r := range string(b) {
		if r >= 0x80 && r <= 0x9f {
			return true
		}
	}
	return false
}

type CSV struct {
	log *logger.Logger
}

func (c *CSV) Extract(ctx context.Context, filename string, data []byte) (*Extraction, error) {
	out := newExtraction(uploads.FormatCSV)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, enc, ok := DecodeText(data)
	if !ok {
		return nil, parseFailure("unreadable text encoding", nil)
	}
	out.Encoding = enc
	if enc != "utf-8" {
		out.warn("decoded as " + enc)
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, parseFailure("malformed csv", err)
	}
	rows = trimRows(rows)
	if len(rows) == 0 {
		return nil, parseFailure("csv has no rows", nil)
	}
	out.Tables = []Table{{Name: filename, Rows: rows}}
	out.Text = tableText(rows)
	out.Diagnostics["rows"] = len(rows)
	out.Diagnostics["delimiter"] = string(r.Comma)
	c.log.Debug("csv extracted", "file", filename, "rows", len(rows), "encoding", enc)
	return out, nil
}

// sniffDelimiter picks between comma, semicolon and tab from the first line.
func sniffDelimiter(text string) rune {
	first := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		first = text[:i]
	}
	best, n := ',', strings.Count(first, ",")
	for _, d := range []rune{';', '\t'} {
		if c := strings.Count(first, string(d)); c > n {
			best, n = d, c
		}
	}
	return best
}
