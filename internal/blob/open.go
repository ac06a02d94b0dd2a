package blob

import (
	"context"
	"fmt"
)

// Config selects and parameterizes a driver. It mirrors the backup section
// of config.yaml.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open returns the Store named by cfg.Driver, defaulting to the filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
