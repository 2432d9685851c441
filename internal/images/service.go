// Package images composes listing, sorting, and aggregate statistics on
// top of the storage domain service.
package images

import (
	"context"
	"math"
	"sort"

	"github.com/dgnsrekt/chart_vault/internal/objstore"
	"github.com/dgnsrekt/chart_vault/internal/store"
)

// Storage is the storage domain seam.
type Storage interface {
	List(ctx context.Context, opts store.ListOptions) (store.ListResult, error)
	Get(ctx context.Context, name string) (*objstore.Object, error)
	Delete(ctx context.Context, name string) error
	CleanupOlderThan(ctx context.Context, days int) (int, error)
}

const (
	SortByUploadedAt = "uploadedAt"
	SortBySymbol     = "symbol"
	SortBySize       = "size"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListOptions selects and orders a page of images.
type ListOptions struct {
	Symbol    string
	Limit     int32
	Cursor    string
	SortBy    string
	SortOrder string
}

// Statistics aggregates the entire matching set of stored images.
// Objects without complete metadata count toward the totals but are
// excluded from the theme/interval breakdowns.
type Statistics struct {
	TotalImages int                 `json:"totalImages"`
	TotalSize   int64               `json:"totalSize"`
	AverageSize int64               `json:"averageSize"`
	LatestImage *store.ImageDetails `json:"latestImage,omitempty"`
	OldestImage *store.ImageDetails `json:"oldestImage,omitempty"`
	ByTheme     map[string]int      `json:"byTheme"`
	ByInterval  map[string]int      `json:"byInterval"`
}

// Service is the image domain service.
type Service struct {
	storage Storage
}

func NewService(storage Storage) *Service {
	return &Service{storage: storage}
}

// List fetches one page and sorts it client-side. Default order is
// uploadedAt descending; ties keep input order.
func (s *Service) List(ctx context.Context, opts ListOptions) (store.ListResult, error) {
	res, err := s.storage.List(ctx, store.ListOptions{
		Symbol: opts.Symbol,
		Limit:  opts.Limit,
		Cursor: opts.Cursor,
	})
	if err != nil {
		return store.ListResult{}, err
	}

	sortImages(res.Images, opts.SortBy, opts.SortOrder)
	return res, nil
}

// Statistics pages through the entire matching set, so cost is
// proportional to the total object count.
func (s *Service) Statistics(ctx context.Context, symbol string) (Statistics, error) {
	stats := Statistics{
		ByTheme:    map[string]int{},
		ByInterval: map[string]int{},
	}

	cursor := ""
	for {
		res, err := s.storage.List(ctx, store.ListOptions{
			Symbol: symbol,
			Limit:  objstore.DefaultPageSize,
			Cursor: cursor,
		})
		if err != nil {
			return Statistics{}, err
		}

		for _, img := range res.Images {
			stats.TotalImages++
			stats.TotalSize += img.Size

			img := img
			if stats.LatestImage == nil || img.UploadedAt.After(stats.LatestImage.UploadedAt) {
				stats.LatestImage = &img
			}
			if stats.OldestImage == nil || img.UploadedAt.Before(stats.OldestImage.UploadedAt) {
				stats.OldestImage = &img
			}

			if img.Metadata != nil {
				stats.ByTheme[img.Metadata.Theme]++
				stats.ByInterval[img.Metadata.Interval]++
			}
		}

		if !res.HasMore || res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	if stats.TotalImages > 0 {
		stats.AverageSize = int64(math.Round(float64(stats.TotalSize) / float64(stats.TotalImages)))
	}
	return stats, nil
}

// Delete removes one stored image by file name.
func (s *Service) Delete(ctx context.Context, name string) error {
	return s.storage.Delete(ctx, name)
}

// CleanupOlderThan sweeps images older than the given number of days.
func (s *Service) CleanupOlderThan(ctx context.Context, days int) (int, error) {
	return s.storage.CleanupOlderThan(ctx, days)
}

func sortImages(images []store.ImageDetails, sortBy, sortOrder string) {
	desc := sortOrder != SortAsc

	var less func(a, b store.ImageDetails) bool
	switch sortBy {
	case SortBySymbol:
		less = func(a, b store.ImageDetails) bool { return metaSymbol(a) < metaSymbol(b) }
	case SortBySize:
		less = func(a, b store.ImageDetails) bool { return a.Size < b.Size }
	default:
		less = func(a, b store.ImageDetails) bool { return a.UploadedAt.Before(b.UploadedAt) }
	}

	sort.SliceStable(images, func(i, j int) bool {
		if desc {
			return less(images[j], images[i])
		}
		return less(images[i], images[j])
	})
}

func metaSymbol(img store.ImageDetails) string {
	if img.Metadata == nil {
		return ""
	}
	return img.Metadata.Symbol
}
