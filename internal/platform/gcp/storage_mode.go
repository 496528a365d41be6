package gcp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ObjectStorageMode selects where voice notes are written.
type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

var (
	ErrInvalidStorageMode  = errors.New("invalid storage mode")
	ErrMissingEmulatorHost = errors.New("missing storage emulator host")
	ErrInvalidEmulatorHost = errors.New("invalid storage emulator host")
)

type ObjectStorageConfig struct {
	Mode         ObjectStorageMode
	EmulatorHost string
}

func (cfg ObjectStorageConfig) IsEmulatorMode() bool {
	return cfg.Mode == ObjectStorageModeGCSEmulator
}

// ParseObjectStorageConfig normalizes the configured mode. An empty mode is
// plain GCS; the emulator is only used when named explicitly.
func ParseObjectStorageConfig(rawMode, emulatorHost string) (ObjectStorageConfig, error) {
	cfg := ObjectStorageConfig{
		Mode:         ObjectStorageMode(strings.ToLower(strings.TrimSpace(rawMode))),
		EmulatorHost: strings.TrimRight(strings.TrimSpace(emulatorHost), "/"),
	}
	if cfg.Mode == "" {
		cfg.Mode = ObjectStorageModeGCS
	}
	return cfg, cfg.Validate()
}

// Validate reports which of the Err* values makes cfg unusable.
func (cfg ObjectStorageConfig) Validate() error {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		return nil
	case ObjectStorageModeGCSEmulator:
	default:
		return fmt.Errorf("%w %q (allowed: %q, %q)",
			ErrInvalidStorageMode, cfg.Mode, ObjectStorageModeGCS, ObjectStorageModeGCSEmulator)
	}
	if cfg.EmulatorHost == "" {
		return fmt.Errorf("%w for mode %q", ErrMissingEmulatorHost, cfg.Mode)
	}
	if u, err := url.Parse(cfg.EmulatorHost); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w %q: expected absolute URL like http://fake-gcs:4443", ErrInvalidEmulatorHost, cfg.EmulatorHost)
	}
	return nil
}
