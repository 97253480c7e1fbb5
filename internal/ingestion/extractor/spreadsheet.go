package extractor

import (
	"bytes"
	"context"

	"github.com/xuri/excelize/v2"

	"github.com/yungbote/edusight-backend/internal/domain/uploads"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

// Spreadsheet reads every non-empty sheet of an xlsx workbook as its own table.
type Spreadsheet struct {
	log *logger.Logger
}

func (s *Spreadsheet) Extract(ctx context.Context, filename string, data []byte) (*Extraction, error) {
	out := newExtraction(uploads.FormatSpreadsheet)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, parseFailure("unreadable workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	for _, name := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(name)
		if err != nil {
			out.warn("sheet " + name + ": " + err.Error())
			continue
		}
		rows = trimRows(rows)
		if len(rows) == 0 {
			continue
		}
		out.Tables = append(out.Tables, Table{Name: name, Rows: rows})
		out.Text += tableText(rows)
	}
	if len(out.Tables) == 0 {
		return nil, parseFailure("workbook has no data", nil)
	}
	out.Diagnostics["sheets"] = len(sheets)
	out.Diagnostics["tables"] = len(out.Tables)
	s.log.Debug("workbook extracted", "file", filename, "sheets", len(sheets), "tables", len(out.Tables))
	return out, nil
}
