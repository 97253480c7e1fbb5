package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/edusight-backend/internal/platform/ctxutil"
	"github.com/yungbote/edusight-backend/internal/platform/filestore"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

// Bucket stores upload bytes in a single GCS bucket. It satisfies filestore.Store.
type Bucket struct {
	log    *logger.Logger
	client *storage.Client
	name   string
}

var _ filestore.Store = (*Bucket)(nil)

// NewBucket connects to GCS. When emulatorHost is set the client talks to a
// local fake-gcs-server without credentials.
func NewBucket(ctx context.Context, name, emulatorHost string, log *logger.Logger) (*Bucket, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("gcs bucket name required")
	}
	ctx = ctxutil.Default(ctx)
	slog := log.With("service", "gcp.Bucket")

	var opts []option.ClientOption
	if host := strings.TrimRight(strings.TrimSpace(emulatorHost), "/"); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		opts = append(opts, option.WithoutAuthentication(), option.WithEndpoint(host+"/storage/v1/"))
	} else {
		opts = append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	}
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	slog.Info("Object storage initialized", "bucket", name, "emulator", emulatorHost != "")
	return &Bucket{log: slog, client: c, name: name}, nil
}

func (b *Bucket) Put(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, cancel := ctxutil.Bounded(ctx, 2*time.Minute)
	defer cancel()
	w := b.client.Bucket(b.name).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gcs object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gcs writer %q: %w", key, err)
	}
	return nil
}

func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := ctxutil.Bounded(ctx, 2*time.Minute)
	defer cancel()
	rc, err := b.client.Bucket(b.name).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, filestore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open gcs object %q: %w", key, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (b *Bucket) Delete(ctx context.Context, key string) error {
	ctx, cancel := ctxutil.Bounded(ctx, 30*time.Second)
	defer cancel()
	err := b.client.Bucket(b.name).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete gcs object %q in bucket %q: %w", key, b.name, err)
	}
	return nil
}

func (b *Bucket) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}
