// Package store persists generated chart images to the object store and
// exposes list/get/delete/cleanup over the stored artifacts.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dgnsrekt/chart_vault/internal/chartimg"
	"github.com/dgnsrekt/chart_vault/internal/fault"
	"github.com/dgnsrekt/chart_vault/internal/objstore"
)

const (
	// placeholderDomain serves URL construction when no public domain is
	// configured; such URLs will not resolve.
	placeholderDomain = "chart-vault.example.com"

	metadataVersion = "1"

	defaultListLimit = 20
)

// ImageMetadata is the custom metadata round-tripped through the object
// store. It is only surfaced when every field was present on the object.
type ImageMetadata struct {
	Symbol      string `json:"symbol"`
	Interval    string `json:"interval"`
	Theme       string `json:"theme"`
	Dimensions  string `json:"dimensions"`
	GeneratedAt string `json:"generatedAt"`
}

// ImageDetails is the read-only view of one stored chart image.
type ImageDetails struct {
	FileName   string         `json:"fileName"`
	Size       int64          `json:"size"`
	UploadedAt time.Time      `json:"uploadedAt"`
	PublicURL  string         `json:"publicUrl"`
	Metadata   *ImageMetadata `json:"metadata,omitempty"`
	ETag       string         `json:"etag"`
}

// UploadResult describes a freshly stored chart image.
type UploadResult struct {
	FileName   string    `json:"fileName"`
	PublicURL  string    `json:"publicUrl"`
	Size       int64     `json:"size"`
	ETag       string    `json:"etag"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// ListOptions selects a page of stored images.
type ListOptions struct {
	Symbol string
	Limit  int32
	Cursor string
}

// ListResult is one page of stored images.
type ListResult struct {
	Images     []ImageDetails
	HasMore    bool
	NextCursor string
}

// Service is the storage domain service.
type Service struct {
	bucket       objstore.Bucket
	publicDomain string
}

func NewService(bucket objstore.Bucket, publicDomain string) *Service {
	if publicDomain == "" {
		publicDomain = placeholderDomain
	}
	return &Service{bucket: bucket, publicDomain: publicDomain}
}

// Upload stores a generated chart image under its deterministic key with
// the full custom metadata set attached.
func (s *Service) Upload(ctx context.Context, gen chartimg.Generation) (UploadResult, error) {
	key := ObjectKey(gen.Meta)

	meta, err := s.bucket.Put(ctx, key, gen.Image, objstore.PutOptions{
		ContentType:  gen.ContentType,
		CacheControl: "public, max-age=31536000, immutable",
		Metadata: map[string]string{
			"symbol":       gen.Meta.Symbol,
			"interval":     gen.Meta.Interval,
			"theme":        gen.Meta.Theme,
			"dimensions":   fmt.Sprintf("%dx%d", gen.Meta.Width, gen.Meta.Height),
			"generated-at": gen.Meta.GeneratedAt.UTC().Format(time.RFC3339),
			"version":      metadataVersion,
		},
	})
	if err != nil {
		return UploadResult{}, fault.Wrap(fault.CodeUploadFailed, "failed to upload chart image", err)
	}

	return UploadResult{
		FileName:   fileName(key),
		PublicURL:  s.publicURL(key),
		Size:       meta.Size,
		ETag:       meta.ETag,
		UploadedAt: meta.Uploaded,
	}, nil
}

// List returns one page of stored images, optionally filtered to an exact
// symbol match on object metadata. The filter applies after the page fetch,
// so a filtered page may hold fewer than limit entries while more pages
// remain.
func (s *Service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	page, err := s.bucket.List(ctx, objstore.ListOptions{
		Prefix: KeyPrefix,
		Cursor: opts.Cursor,
		Limit:  limit,
	})
	if err != nil {
		return ListResult{}, fault.Wrap(fault.CodeListFailed, "failed to list chart images", err)
	}

	images := make([]ImageDetails, 0, len(page.Objects))
	for _, obj := range page.Objects {
		details := s.details(obj)
		if opts.Symbol != "" && (details.Metadata == nil || details.Metadata.Symbol != opts.Symbol) {
			continue
		}
		images = append(images, details)
	}

	return ListResult{
		Images:     images,
		HasMore:    page.Truncated,
		NextCursor: page.Cursor,
	}, nil
}

// Get opens a stored image for reading. Returns nil when the file does
// not exist.
func (s *Service) Get(ctx context.Context, name string) (*objstore.Object, error) {
	obj, err := s.bucket.Get(ctx, KeyPrefix+name)
	if err != nil {
		return nil, fault.Wrap(fault.CodeGetFailed, "failed to read chart image "+name, err)
	}
	return obj, nil
}

// Delete removes a stored image. Deleting a missing file is a success.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.bucket.Delete(ctx, KeyPrefix+name); err != nil {
		return fault.Wrap(fault.CodeDeleteFailed, "failed to delete chart image "+name, err)
	}
	return nil
}

// CleanupOlderThan sweeps every stored image uploaded before now minus the
// given number of days, batch-deleting page by page. A crashed run leaves
// later pages un-swept; re-running starts over from the first page.
func (s *Service) CleanupOlderThan(ctx context.Context, days int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	deleted := 0
	cursor := ""
	for {
		page, err := s.bucket.List(ctx, objstore.ListOptions{
			Prefix: KeyPrefix,
			Cursor: cursor,
			Limit:  objstore.DefaultPageSize,
		})
		if err != nil {
			return deleted, fault.Wrap(fault.CodeCleanupFailed, "cleanup list failed", err)
		}

		var expired []string
		for _, obj := range page.Objects {
			if obj.Uploaded.Before(cutoff) {
				expired = append(expired, obj.Key)
			}
		}
		if len(expired) > 0 {
			if err := s.bucket.DeleteMany(ctx, expired); err != nil {
				return deleted, fault.Wrap(fault.CodeCleanupFailed, "cleanup delete failed", err)
			}
			deleted += len(expired)
		}

		if !page.Truncated || page.Cursor == "" {
			return deleted, nil
		}
		cursor = page.Cursor
	}
}

func (s *Service) details(obj objstore.ObjectMeta) ImageDetails {
	return ImageDetails{
		FileName:   fileName(obj.Key),
		Size:       obj.Size,
		UploadedAt: obj.Uploaded,
		PublicURL:  s.publicURL(obj.Key),
		Metadata:   parseMetadata(obj.Metadata),
		ETag:       obj.ETag,
	}
}

func (s *Service) publicURL(key string) string {
	return "https://" + s.publicDomain + "/" + key
}

func fileName(key string) string {
	if len(key) > len(KeyPrefix) && key[:len(KeyPrefix)] == KeyPrefix {
		return key[len(KeyPrefix):]
	}
	return key
}

// parseMetadata requires all five fields; partial metadata is treated as
// absent so downstream statistics can rely on a complete set.
func parseMetadata(m map[string]string) *ImageMetadata {
	meta := ImageMetadata{
		Symbol:      m["symbol"],
		Interval:    m["interval"],
		Theme:       m["theme"],
		Dimensions:  m["dimensions"],
		GeneratedAt: m["generated-at"],
	}
	if meta.Symbol == "" || meta.Interval == "" || meta.Theme == "" || meta.Dimensions == "" || meta.GeneratedAt == "" {
		return nil
	}
	return &meta
}
