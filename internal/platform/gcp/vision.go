package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/edusight-backend/internal/platform/ctxutil"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

// Vision synchronous file annotation accepts at most five pages per request.
const maxInlinePDFPages = 5

type Vision struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewVision(ctx context.Context, log *logger.Logger) (*Vision, error) {
	c, err := vision.NewImageAnnotatorClient(ctxutil.Default(ctx), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &Vision{log: log.With("service", "gcp.Vision"), client: c}, nil
}

func (v *Vision) Close() error {
	if v == nil || v.client == nil {
		return nil
	}
	return v.client.Close()
}

// OCRImage runs document text detection on encoded image bytes.
func (v *Vision) OCRImage(ctx context.Context, img []byte) (string, error) {
	if len(img) == 0 {
		return "", nil
	}
	ctx, cancel := ctxutil.Bounded(ctx, 60*time.Second)
	defer cancel()

	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: img},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 {
		return "", nil
	}
	return annotationText(resp.Responses[0])
}

// OCRPDF runs text detection over the first pages of a PDF held in memory.
func (v *Vision) OCRPDF(ctx context.Context, pdf []byte) (string, error) {
	if len(pdf) == 0 {
		return "", nil
	}
	ctx, cancel := ctxutil.Bounded(ctx, 2*time.Minute)
	defer cancel()

	pages := make([]int32, 0, maxInlinePDFPages)
	for i := int32(1); i <= maxInlinePDFPages; i++ {
		pages = append(pages, i)
	}
	resp, err := v.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{{
			InputConfig: &visionpb.InputConfig{Content: pdf, MimeType: "application/pdf"},
			Features:    []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			Pages:       pages,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateFiles: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", nil
	}
	var b strings.Builder
	for _, r := range resp.Responses[0].Responses {
		t, err := annotationText(r)
		if err != nil {
			v.log.Warn("Vision page annotation failed", "error", err)
			continue
		}
		if t == "" {
			continue
		}
		b.WriteString(t)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

func annotationText(r *visionpb.AnnotateImageResponse) (string, error) {
	if r == nil {
		return "", nil
	}
	if r.Error != nil && r.Error.Message != "" {
		return "", fmt.Errorf("vision annotate error: %s", r.Error.Message)
	}
	if r.FullTextAnnotation == nil {
		return "", nil
	}
	// Keep line breaks; the field regexes are line oriented.
	return strings.TrimSpace(r.FullTextAnnotation.Text), nil
}
