package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/yungbote/edusight-backend/internal/config"
	"github.com/yungbote/edusight-backend/internal/platform/filestore"
	"github.com/yungbote/edusight-backend/internal/platform/gcp"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

const (
	StorageModeLocal = "local"
	StorageModeGCS   = "gcs"
)

var (
	newBucket = func(ctx context.Context, name, emulatorHost string, log *logger.Logger) (filestore.Store, error) {
		return gcp.NewBucket(ctx, name, emulatorHost, log)
	}
	newLocalStore = func(dir string, log *logger.Logger) (filestore.Store, error) {
		return filestore.NewLocal(dir, log)
	}
)

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingTarget       StorageProviderBootstrapErrorCode = "missing_target"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code   StorageProviderBootstrapErrorCode
	Mode   string
	Target string
	Cause  error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "upload storage bootstrap failed"
	}
	return fmt.Sprintf("upload storage bootstrap failed (code=%s mode=%q target=%q): %v", e.Code, e.Mode, e.Target, e.Cause)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func storageTarget(cfg config.StorageConfig) string {
	if strings.TrimSpace(cfg.Mode) == StorageModeGCS {
		return strings.TrimSpace(cfg.Bucket)
	}
	return strings.TrimSpace(cfg.Dir)
}

// resolveStore picks where upload bytes are kept: a local directory or a GCS
// bucket, optionally behind an emulator.
func resolveStore(ctx context.Context, log *logger.Logger, cfg config.StorageConfig) (filestore.Store, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	target := storageTarget(cfg)
	fail := func(code StorageProviderBootstrapErrorCode, cause error) error {
		err := &StorageProviderBootstrapError{Code: code, Mode: mode, Target: target, Cause: cause}
		log.Error("Upload storage bootstrap failed", "mode", mode, "target", target, "error_code", code, "error", cause)
		return err
	}

	if mode != StorageModeLocal && mode != StorageModeGCS {
		return nil, fail(StorageProviderBootstrapErrorInvalidMode, fmt.Errorf("unsupported storage mode %q", cfg.Mode))
	}
	if target == "" {
		return nil, fail(StorageProviderBootstrapErrorMissingTarget, errors.New("storage dir or bucket required"))
	}
	if host := strings.TrimSpace(cfg.EmulatorHost); mode == StorageModeGCS && host != "" {
		if u, err := url.Parse(host); err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fail(StorageProviderBootstrapErrorInvalidEmulatorHost, fmt.Errorf("emulator host %q must be an absolute URL", host))
		}
	}

	log.Info("Selecting upload storage", "mode", mode, "target", target, "emulator", cfg.EmulatorHost != "")
	var (
		store filestore.Store
		err   error
	)
	if mode == StorageModeGCS {
		store, err = newBucket(ctx, target, cfg.EmulatorHost, log)
	} else {
		store, err = newLocalStore(target, log)
	}
	if err != nil {
		return nil, fail(StorageProviderBootstrapErrorConnectFailed, err)
	}
	return store, nil
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return StorageProviderBootstrapErrorConnectFailed
}
