package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/yungbote/edusight-backend/internal/platform/ctxutil"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

// DocumentText is the direct-extraction result for a PDF: the full text plus
// every detected table as rows of trimmed cells, header row first.
type DocumentText struct {
	Text   string
	Tables [][][]string
	Pages  int
}

type DocumentAI struct {
	log       *logger.Logger
	client    *documentai.DocumentProcessorClient
	processor string
}

func NewDocumentAI(ctx context.Context, projectID, location, processorID string, log *logger.Logger) (*DocumentAI, error) {
	ctx = ctxutil.Default(ctx)
	location = strings.TrimSpace(location)
	if location == "" {
		location = "us"
	}
	name := processorName(projectID, location, processorID)
	if name == "" {
		return nil, fmt.Errorf("documentai: project and processor id required")
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
	opts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	c, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	slog := log.With("service", "gcp.DocumentAI")
	slog.Info("Document AI initialized", "endpoint", endpoint)
	return &DocumentAI{log: slog, client: c, processor: name}, nil
}

func (d *DocumentAI) ProcessPDF(ctx context.Context, data []byte) (*DocumentText, error) {
	if len(data) == 0 {
		return &DocumentText{}, nil
	}
	ctx, cancel := ctxutil.Bounded(ctx, 3*time.Minute)
	defer cancel()

	resp, err := d.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: d.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: data, MimeType: "application/pdf"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return &DocumentText{}, nil
	}
	return documentText(resp.Document), nil
}

func (d *DocumentAI) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func documentText(doc *documentaipb.Document) *DocumentText {
	out := &DocumentText{Text: strings.TrimSpace(doc.Text), Pages: len(doc.Pages)}
	for _, p := range doc.Pages {
		if p == nil {
			continue
		}
		for _, t := range p.Tables {
			if t == nil {
				continue
			}
			var rows [][]string
			for _, r := range t.HeaderRows {
				rows = append(rows, tableRowToCells(doc.Text, r))
			}
			for _, r := range t.BodyRows {
				rows = append(rows, tableRowToCells(doc.Text, r))
			}
			if len(rows) > 1 {
				out.Tables = append(out.Tables, rows)
			}
		}
	}
	return out
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || len(anchor.TextSegments) == 0 || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		if seg == nil {
			continue
		}
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}

func tableRowToCells(full string, r *documentaipb.Document_Page_Table_TableRow) []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Cells))
	for _, c := range r.Cells {
		if c == nil || c.Layout == nil || c.Layout.TextAnchor == nil {
			out = append(out, "")
			continue
		}
		out = append(out, collapseWhitespace(textFromAnchor(full, c.Layout.TextAnchor)))
	}
	return out
}

func processorName(project, location, processorID string) string {
	project = strings.TrimSpace(project)
	processorID = strings.TrimSpace(processorID)
	if project == "" || location == "" || processorID == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
}
