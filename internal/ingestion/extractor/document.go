package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/yungbote/edusight-backend/internal/domain/uploads"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

const docxBody = "word/document.xml"

// Document reads paragraphs and tables from a docx file. Paragraph text goes
// to Text; each table becomes a Table.
type Document struct {
	log *logger.Logger
}

func (d *Document) Extract(ctx context.Context, filename string, data []byte) (*Extraction, error) {
	out := newExtraction(uploads.FormatDocument)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, parseFailure("unreadable document", err)
	}
	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return nil, parseFailure("document body missing", nil)
	}
	rc, err := body.Open()
	if err != nil {
		return nil, parseFailure("document body unreadable", err)
	}
	defer rc.Close()

	paras, tables, err := walkDocx(ctx, rc)
	if err != nil {
		return nil, parseFailure("malformed document xml", err)
	}
	var text strings.Builder
	for _, p := range paras {
		text.WriteString(p)
		text.WriteString("\n")
	}
	for i, rows := range tables {
		rows = trimRows(rows)
		if len(rows) == 0 {
			continue
		}
		out.Tables = append(out.Tables, Table{Name: tableName(filename, i), Rows: rows})
		text.WriteString(tableText(rows))
	}
	out.Text = normalizeLines(text.String())
	if out.Text == "" {
		return nil, parseFailure("document has no text", nil)
	}
	out.Diagnostics["paragraphs"] = len(paras)
	out.Diagnostics["tables"] = len(out.Tables)
	d.log.Debug("document extracted", "file", filename, "paragraphs", len(paras), "tables", len(out.Tables))
	return out, nil
}

func tableName(filename string, i int) string {
	return filename + "#" + strconv.Itoa(i+1)
}

// walkDocx streams WordprocessingML tokens. Text inside a table cell belongs
// to that cell; everything else is paragraph text. Nested tables are
// flattened into the enclosing cell.
func walkDocx(ctx context.Context, r io.Reader) ([]string, [][][]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paras  []string
		tables [][][]string
		para   strings.Builder
		cell   strings.Builder
		row    []string
		rows   [][]string
		depth  int
		inText bool
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				depth++
				if depth == 1 {
					rows = nil
				}
			case "tr":
				if depth == 1 {
					row = nil
				}
			case "tc":
				if depth == 1 {
					cell.Reset()
				}
			case "t":
				inText = true
			case "tab":
				if depth > 0 {
					cell.WriteString(" ")
				} else {
					para.WriteString("\t")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if depth > 0 {
					cell.WriteString(" ")
				} else if s := strings.TrimSpace(para.String()); s != "" {
					paras = append(paras, s)
					para.Reset()
				} else {
					para.Reset()
				}
			case "tc":
				if depth == 1 {
					row = append(row, strings.TrimSpace(cell.String()))
				}
			case "tr":
				if depth == 1 {
					rows = append(rows, row)
				}
			case "tbl":
				if depth == 1 {
					tables = append(tables, rows)
				}
				depth--
			}
		case xml.CharData:
			if !inText {
				continue
			}
			if depth > 0 {
				cell.Write(t)
			} else {
				para.Write(t)
			}
		}
	}
	return paras, tables, nil
}
