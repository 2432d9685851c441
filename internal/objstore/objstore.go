// Package objstore wraps an S3-compatible object store behind a narrow
// Bucket interface. Head and Get return nil (not an error) when the key
// does not exist so callers can distinguish absence from failure.
package objstore

import (
	"context"
	"io"
	"time"
)

// DefaultPageSize is the list page size used when the caller does not set one.
const DefaultPageSize = 1000

// ObjectMeta describes a stored object.
type ObjectMeta struct {
	Key         string            `json:"key"`
	Size        int64             `json:"size"`
	ETag        string            `json:"etag"`
	ContentType string            `json:"contentType,omitempty"`
	Uploaded    time.Time         `json:"uploaded"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Object is a stored object opened for reading.
type Object struct {
	Body io.ReadCloser
	Meta ObjectMeta
}

// PutOptions carries optional attributes attached at upload time.
type PutOptions struct {
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

// ListOptions selects a page of objects. Cursor is the opaque token from a
// previous ListResult.
type ListOptions struct {
	Prefix string
	Cursor string
	Limit  int32
}

// ListResult is one page of objects. Truncated=false means no more pages
// and Cursor is empty.
type ListResult struct {
	Objects   []ObjectMeta
	Truncated bool
	Cursor    string
}

// Bucket is the storage provider seam. Objects are immutable once stored;
// there is no update operation.
type Bucket interface {
	Put(ctx context.Context, key string, body []byte, opts PutOptions) (ObjectMeta, error)
	Head(ctx context.Context, key string) (*ObjectMeta, error)
	Get(ctx context.Context, key string) (*Object, error)
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error
}
