package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/waxal-backend/internal/config"
	"github.com/yungbote/waxal-backend/internal/platform/gcp"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

var newBucketService = gcp.NewBucketService

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func resolveBucketService(ctx context.Context, log *logger.Logger, cfg config.StorageConfig, credentials string) (gcp.BucketService, error) {
	storageCfg, err := gcp.ParseObjectStorageConfig(cfg.Mode, cfg.EmulatorHost)
	if err != nil {
		classified := classifyStorageProviderBootstrapError(storageCfg, err)
		log.Error("Object storage provider selection failed",
			"mode", cfg.Mode,
			"emulator_host", cfg.EmulatorHost,
			"error_code", storageProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}
	log.Info("Selecting object storage provider",
		"mode", storageCfg.Mode,
		"emulator_host", storageCfg.EmulatorHost,
		"bucket", cfg.Bucket,
	)

	bucket, err := newBucketService(ctx, log, gcp.BucketConfig{
		Bucket:        cfg.Bucket,
		CDNDomain:     cfg.CDNDomain,
		PublicBaseURL: cfg.PublicBaseURL,
		CacheControl:  cfg.CacheControl,
		Credentials:   credentials,
		Storage:       storageCfg,
	})
	if err != nil {
		classified := classifyStorageProviderBootstrapError(storageCfg, err)
		log.Error("Object storage provider bootstrap failed",
			"mode", storageCfg.Mode,
			"emulator_host", storageCfg.EmulatorHost,
			"error_code", storageProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}
	return bucket, nil
}

var storageConfigErrorCodes = []struct {
	sentinel error
	code     StorageProviderBootstrapErrorCode
}{
	{gcp.ErrInvalidStorageMode, StorageProviderBootstrapErrorInvalidMode},
	{gcp.ErrMissingEmulatorHost, StorageProviderBootstrapErrorMissingEmulatorHost},
	{gcp.ErrInvalidEmulatorHost, StorageProviderBootstrapErrorInvalidEmulatorHost},
}

func classifyStorageProviderBootstrapError(storageCfg gcp.ObjectStorageConfig, err error) error {
	out := &StorageProviderBootstrapError{
		Code:         StorageProviderBootstrapErrorConnectFailed,
		Mode:         string(storageCfg.Mode),
		EmulatorHost: storageCfg.EmulatorHost,
		Cause:        err,
	}
	for _, c := range storageConfigErrorCodes {
		if errors.Is(err, c.sentinel) {
			out.Code = c.code
			break
		}
	}
	return out
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return StorageProviderBootstrapErrorConnectFailed
}
