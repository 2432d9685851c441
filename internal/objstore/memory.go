package objstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemBucket is an in-memory Bucket used by tests. It honors the same
// lexicographic listing and cursor contract as the S3 implementation.
type MemBucket struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

type memObject struct {
	data []byte
	meta ObjectMeta
}

func NewMemBucket() *MemBucket {
	return &MemBucket{objects: map[string]memObject{}}
}

func (b *MemBucket) Put(ctx context.Context, key string, body []byte, opts PutOptions) (ObjectMeta, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	meta := ObjectMeta{
		Key:         key,
		Size:        int64(len(body)),
		ETag:        etagFor(body),
		ContentType: opts.ContentType,
		Uploaded:    time.Now().UTC(),
		Metadata:    cloneMeta(opts.Metadata),
	}
	b.objects[key] = memObject{data: append([]byte(nil), body...), meta: meta}
	return meta, nil
}

func (b *MemBucket) Head(ctx context.Context, key string) (*ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[key]
	if !ok {
		return nil, nil
	}
	meta := obj.meta
	meta.Metadata = cloneMeta(obj.meta.Metadata)
	return &meta, nil
}

func (b *MemBucket) Get(ctx context.Context, key string) (*Object, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[key]
	if !ok {
		return nil, nil
	}
	meta := obj.meta
	meta.Metadata = cloneMeta(obj.meta.Metadata)
	return &Object{
		Body: io.NopCloser(bytes.NewReader(append([]byte(nil), obj.data...))),
		Meta: meta,
	}, nil
}

func (b *MemBucket) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	limit := int(opts.Limit)
	if limit <= 0 {
		limit = DefaultPageSize
	}

	keys := make([]string, 0, len(b.objects))
	for key := range b.objects {
		if opts.Prefix != "" && !strings.HasPrefix(key, opts.Prefix) {
			continue
		}
		if opts.Cursor != "" && key <= opts.Cursor {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	truncated := len(keys) > limit
	if truncated {
		keys = keys[:limit]
	}

	result := ListResult{Truncated: truncated}
	for _, key := range keys {
		obj := b.objects[key]
		meta := obj.meta
		meta.Metadata = cloneMeta(obj.meta.Metadata)
		result.Objects = append(result.Objects, meta)
	}
	if truncated {
		result.Cursor = keys[len(keys)-1]
	}
	return result, nil
}

func (b *MemBucket) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.objects, key)
	return nil
}

func (b *MemBucket) DeleteMany(ctx context.Context, keys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range keys {
		delete(b.objects, key)
	}
	return nil
}

// SetUploaded backdates an object's upload time. Test helper for
// age-based cleanup scenarios.
func (b *MemBucket) SetUploaded(key string, t time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if obj, ok := b.objects[key]; ok {
		obj.meta.Uploaded = t
		b.objects[key] = obj
	}
}

// Len reports the number of stored objects.
func (b *MemBucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

// etagFor mirrors the S3 convention of an MD5 content hash.
func etagFor(body []byte) string {
	sum := md5.Sum(body)
	return hex.EncodeToString(sum[:])
}

func cloneMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
