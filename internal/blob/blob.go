// Package blob stores backup documents outside the database: on the local
// filesystem, in memory for tests, or in an S3 compatible bucket.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a blob store implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// PutOptions carries optional object attributes.
type PutOptions struct {
	ContentType string
}

// Info describes a stored object.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// Store is a flat key/value object store. Keys are slash separated.
type Store interface {
	// Put writes r under key, replacing any previous object.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get opens the object. Returns ErrNotFound when absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns objects whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Delete removes the object. Returns ErrNotFound when absent.
	Delete(ctx context.Context, key string) error
	Driver() Driver
}

var (
	ErrNotFound   = errors.New("blob: not found")
	ErrInvalidKey = errors.New("blob: invalid key")
)
