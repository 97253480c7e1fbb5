package app

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/edusight-backend/internal/clients/redis"
	"github.com/yungbote/edusight-backend/internal/config"
	"github.com/yungbote/edusight-backend/internal/ingestion/extractor"
	"github.com/yungbote/edusight-backend/internal/platform/filestore"
	"github.com/yungbote/edusight-backend/internal/platform/gcp"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
	"github.com/yungbote/edusight-backend/internal/workflow"
)

// Clients are the external connections. Optional ones stay nil when not
// configured.
type Clients struct {
	Redis      *redis.Client
	Temporal   temporalsdkclient.Client
	Vision     *gcp.Vision
	DocumentAI *gcp.DocumentAI
	Store      filestore.Store
}

func wireClients(ctx context.Context, log *logger.Logger, cfg *config.Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// Redis
	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(log, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		c.Redis = rc
	}

	// Temporal
	tc, err := workflow.NewClient(workflow.TemporalConfig{
		Address:   cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
	}, log)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init temporal: %w", err)
	}
	c.Temporal = tc

	// Gcp. OCR and Document AI are optional; uploads that need them fail with
	// a parse failure instead.
	if cfg.GCP.VisionEnabled {
		v, err := gcp.NewVision(ctx, log)
		if err != nil {
			log.Warn("vision OCR unavailable", "error", err)
		} else {
			c.Vision = v
		}
	}
	if cfg.GCP.DocumentAIEnabled() {
		d, err := gcp.NewDocumentAI(ctx, cfg.GCP.ProjectID, cfg.GCP.DocumentAILocation, cfg.GCP.DocumentAIProcessorID, log)
		if err != nil {
			log.Warn("document AI unavailable", "error", err)
		} else {
			c.DocumentAI = d
		}
	}

	store, err := resolveStore(ctx, log, cfg.Storage)
	if err != nil {
		c.Close()
		return Clients{}, err
	}
	c.Store = store
	return c, nil
}

// extractors builds the per-format text extractors over whichever GCP
// clients are up.
func (c *Clients) extractors(log *logger.Logger) *extractor.Set {
	var (
		docAI extractor.DocumentProcessor
		ocr   extractor.OCRProvider
	)
	if c.DocumentAI != nil {
		docAI = c.DocumentAI
	}
	if c.Vision != nil {
		ocr = c.Vision
	}
	return extractor.New(log, docAI, ocr)
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.DocumentAI != nil {
		_ = c.DocumentAI.Close()
	}
	if c.Vision != nil {
		_ = c.Vision.Close()
	}
	if b, ok := c.Store.(*gcp.Bucket); ok {
		_ = b.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
