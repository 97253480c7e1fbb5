package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/edusight-backend/internal/config"
	"github.com/yungbote/edusight-backend/internal/platform/filestore"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func stubBucket(t *testing.T, store filestore.Store, err error) *struct{ name, host string } {
	t.Helper()
	orig := newBucket
	t.Cleanup(func() { newBucket = orig })
	captured := &struct{ name, host string }{}
	newBucket = func(_ context.Context, name, emulatorHost string, _ *logger.Logger) (filestore.Store, error) {
		captured.name, captured.host = name, emulatorHost
		return store, err
	}
	return captured
}

func wantCode(t *testing.T, err error, code StorageProviderBootstrapErrorCode) {
	t.Helper()
	var got *StorageProviderBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected StorageProviderBootstrapError, got=%T (%v)", err, err)
	}
	if got.Code != code {
		t.Fatalf("code: want=%q got=%q", code, got.Code)
	}
}

func TestResolveStoreInvalidMode(t *testing.T) {
	_, err := resolveStore(context.Background(), testLogger(t), config.StorageConfig{Mode: "s3", Dir: "x"})
	wantCode(t, err, StorageProviderBootstrapErrorInvalidMode)
}

func TestResolveStoreMissingBucket(t *testing.T) {
	_, err := resolveStore(context.Background(), testLogger(t), config.StorageConfig{Mode: StorageModeGCS, Dir: "ignored"})
	wantCode(t, err, StorageProviderBootstrapErrorMissingTarget)
}

func TestResolveStoreLocal(t *testing.T) {
	dir := t.TempDir()
	store, err := resolveStore(context.Background(), testLogger(t), config.StorageConfig{Mode: StorageModeLocal, Dir: dir})
	if err != nil {
		t.Fatalf("resolveStore: %v", err)
	}
	if _, ok := store.(*filestore.Local); !ok {
		t.Fatalf("store: want *filestore.Local got %T", store)
	}
}

func TestResolveStoreGCSEmulator(t *testing.T) {
	expected := &filestore.Local{}
	captured := stubBucket(t, expected, nil)

	got, err := resolveStore(context.Background(), testLogger(t), config.StorageConfig{
		Mode:         StorageModeGCS,
		Bucket:       "epr-uploads",
		EmulatorHost: "http://fake-gcs:4443",
	})
	if err != nil {
		t.Fatalf("resolveStore: %v", err)
	}
	if got != expected {
		t.Fatalf("store: expected stub instance")
	}
	if captured.name != "epr-uploads" || captured.host != "http://fake-gcs:4443" {
		t.Fatalf("captured: %+v", *captured)
	}
}

func TestResolveStoreInvalidEmulatorHost(t *testing.T) {
	stubBucket(t, nil, nil)
	_, err := resolveStore(context.Background(), testLogger(t), config.StorageConfig{
		Mode:         StorageModeGCS,
		Bucket:       "epr-uploads",
		EmulatorHost: "not-a-url",
	})
	wantCode(t, err, StorageProviderBootstrapErrorInvalidEmulatorHost)
}

func TestResolveStoreConnectFailed(t *testing.T) {
	stubBucket(t, nil, errors.New("dial tcp: connection refused"))
	_, err := resolveStore(context.Background(), testLogger(t), config.StorageConfig{Mode: StorageModeGCS, Bucket: "b"})
	wantCode(t, err, StorageProviderBootstrapErrorConnectFailed)
	if storageProviderBootstrapErrorCode(err) != StorageProviderBootstrapErrorConnectFailed {
		t.Fatalf("code lookup mismatch")
	}
	if storageProviderBootstrapErrorCode(errors.New("other")) != StorageProviderBootstrapErrorConnectFailed {
		t.Fatalf("plain errors default to connect_failed")
	}
}
