package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/chart_vault/internal/chartimg"
	"github.com/dgnsrekt/chart_vault/internal/fault"
	"github.com/dgnsrekt/chart_vault/internal/images"
	"github.com/dgnsrekt/chart_vault/internal/store"
)

// Per-field defaults applied when the create request omits them.
const (
	defaultSymbol   = "BINANCE:BTCUSDT"
	defaultInterval = "1D"
	defaultWidth    = 800
	defaultHeight   = 600
	defaultTheme    = "dark"

	defaultCleanupDays = 30
)

func registerRootHandlers(api huma.API) {
	type rootOutput struct {
		Body struct {
			Message   string            `json:"message"`
			Version   string            `json:"version"`
			Endpoints map[string]string `json:"endpoints"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "root", Method: http.MethodGet, Path: "/", Summary: "Service info", Tags: []string{"Info"}},
		func(ctx context.Context, input *struct{}) (*rootOutput, error) {
			out := &rootOutput{}
			out.Body.Message = "chart vault API"
			out.Body.Version = Version
			out.Body.Endpoints = map[string]string{
				"POST /image":               "generate and store a chart snapshot",
				"GET /image/list":           "list stored chart images",
				"GET /image/stats":          "aggregate statistics over stored images",
				"GET /image/{file_name}":    "read one stored image",
				"DELETE /image/{file_name}": "delete one stored image",
				"POST /image/cleanup":       "delete images older than N days",
			}
			return out, nil
		})

	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})
}

func registerImageHandlers(api huma.API, charts ChartService, storage StorageService, imgs ImageService) {
	type createImageData struct {
		FileName   string    `json:"fileName"`
		PublicURL  string    `json:"publicUrl"`
		Symbol     string    `json:"symbol"`
		Interval   string    `json:"interval"`
		Width      int       `json:"width"`
		Height     int       `json:"height"`
		Theme      string    `json:"theme"`
		UploadedAt time.Time `json:"uploadedAt"`
		Size       int64     `json:"size"`
		ETag       string    `json:"etag"`
	}
	type createImageOutput struct {
		Body struct {
			Success bool            `json:"success"`
			Data    createImageData `json:"data"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "create-image", Method: http.MethodPost, Path: "/image", Summary: "Generate and store a chart snapshot", Tags: []string{"Images"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Symbol   string `json:"symbol,omitempty" doc:"EXCHANGE:PAIR symbol" example:"BINANCE:BTCUSDT"`
				Interval string `json:"interval,omitempty" doc:"Chart interval code" example:"1D"`
				Width    int    `json:"width,omitempty" doc:"Image width in pixels [100,2000]"`
				Height   int    `json:"height,omitempty" doc:"Image height in pixels [100,2000]"`
				Theme    string `json:"theme,omitempty" doc:"light or dark"`
			}
		}) (*createImageOutput, error) {
			req := chartimg.Request{
				Symbol:   defaultStr(input.Body.Symbol, defaultSymbol),
				Interval: defaultStr(input.Body.Interval, defaultInterval),
				Width:    defaultInt(input.Body.Width, defaultWidth),
				Height:   defaultInt(input.Body.Height, defaultHeight),
				Theme:    defaultStr(input.Body.Theme, defaultTheme),
			}

			gen, err := charts.CreateSnapshot(ctx, req)
			if err != nil {
				return nil, mapErr(err)
			}
			up, err := storage.Upload(ctx, gen)
			if err != nil {
				return nil, mapErr(err)
			}

			out := &createImageOutput{}
			out.Body.Success = true
			out.Body.Data = createImageData{
				FileName:   up.FileName,
				PublicURL:  up.PublicURL,
				Symbol:     req.Symbol,
				Interval:   req.Interval,
				Width:      req.Width,
				Height:     req.Height,
				Theme:      req.Theme,
				UploadedAt: up.UploadedAt,
				Size:       up.Size,
				ETag:       up.ETag,
			}
			return out, nil
		})

	type listImagesData struct {
		Images     []store.ImageDetails `json:"images"`
		Count      int                  `json:"count"`
		HasMore    bool                 `json:"hasMore"`
		NextCursor string               `json:"nextCursor,omitempty"`
	}
	type listImagesOutput struct {
		Body struct {
			Success bool           `json:"success"`
			Data    listImagesData `json:"data"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-images", Method: http.MethodGet, Path: "/image/list", Summary: "List stored chart images", Tags: []string{"Images"}},
		func(ctx context.Context, input *struct {
			Symbol    string `query:"symbol" doc:"Filter to one symbol"`
			Limit     int32  `query:"limit" default:"20" doc:"Page size"`
			Cursor    string `query:"cursor" doc:"Opaque cursor from a previous page"`
			SortBy    string `query:"sortBy" doc:"uploadedAt (default), symbol, or size"`
			SortOrder string `query:"sortOrder" doc:"asc or desc (default)"`
		}) (*listImagesOutput, error) {
			res, err := imgs.List(ctx, images.ListOptions{
				Symbol:    input.Symbol,
				Limit:     input.Limit,
				Cursor:    input.Cursor,
				SortBy:    input.SortBy,
				SortOrder: input.SortOrder,
			})
			if err != nil {
				return nil, mapErr(err)
			}

			out := &listImagesOutput{}
			out.Body.Success = true
			out.Body.Data = listImagesData{
				Images:     res.Images,
				Count:      len(res.Images),
				HasMore:    res.HasMore,
				NextCursor: res.NextCursor,
			}
			if out.Body.Data.Images == nil {
				out.Body.Data.Images = []store.ImageDetails{}
			}
			return out, nil
		})

	type statsOutput struct {
		Body struct {
			Success bool              `json:"success"`
			Data    images.Statistics `json:"data"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "image-stats", Method: http.MethodGet, Path: "/image/stats", Summary: "Aggregate statistics over stored images", Tags: []string{"Images"}},
		func(ctx context.Context, input *struct {
			Symbol string `query:"symbol" doc:"Restrict statistics to one symbol"`
		}) (*statsOutput, error) {
			stats, err := imgs.Statistics(ctx, input.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &statsOutput{}
			out.Body.Success = true
			out.Body.Data = stats
			return out, nil
		})

	type fileNameInput struct {
		FileName string `path:"file_name"`
	}
	type imageFileOutput struct {
		ContentType  string `header:"Content-Type"`
		CacheControl string `header:"Cache-Control"`
		Body         []byte
	}
	huma.Register(api, huma.Operation{OperationID: "get-image", Method: http.MethodGet, Path: "/image/{file_name}", Summary: "Read one stored image", Tags: []string{"Images"}},
		func(ctx context.Context, input *fileNameInput) (*imageFileOutput, error) {
			obj, err := storage.Get(ctx, input.FileName)
			if err != nil {
				return nil, mapErr(err)
			}
			if obj == nil {
				return nil, mapErr(fault.New(fault.CodeNotFound, "image not found: "+input.FileName))
			}
			defer func() {
				_ = obj.Body.Close()
			}()

			data, err := io.ReadAll(obj.Body)
			if err != nil {
				return nil, mapErr(fault.Wrap(fault.CodeGetFailed, "failed to read image body", err))
			}

			contentType := obj.Meta.ContentType
			if contentType == "" {
				contentType = "image/png"
			}
			return &imageFileOutput{
				ContentType:  contentType,
				CacheControl: "public, max-age=31536000, immutable",
				Body:         data,
			}, nil
		})

	type deleteImageOutput struct {
		Body struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "delete-image", Method: http.MethodDelete, Path: "/image/{file_name}", Summary: "Delete one stored image", Tags: []string{"Images"}},
		func(ctx context.Context, input *fileNameInput) (*deleteImageOutput, error) {
			if err := imgs.Delete(ctx, input.FileName); err != nil {
				return nil, mapErr(err)
			}
			out := &deleteImageOutput{}
			out.Body.Success = true
			out.Body.Message = "deleted " + input.FileName
			return out, nil
		})

	type cleanupData struct {
		DeletedCount  int    `json:"deletedCount"`
		OlderThanDays int    `json:"olderThanDays"`
		Message       string `json:"message"`
	}
	type cleanupOutput struct {
		Body struct {
			Success bool        `json:"success"`
			Data    cleanupData `json:"data"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "cleanup-images", Method: http.MethodPost, Path: "/image/cleanup", Summary: "Delete images older than N days", Tags: []string{"Images"}},
		func(ctx context.Context, input *struct {
			Body struct {
				OlderThanDays int `json:"olderThanDays,omitempty" doc:"Age cutoff in days (default 30)"`
			}
		}) (*cleanupOutput, error) {
			days := input.Body.OlderThanDays
			if days <= 0 {
				days = defaultCleanupDays
			}

			deleted, err := imgs.CleanupOlderThan(ctx, days)
			if err != nil {
				return nil, mapErr(err)
			}

			out := &cleanupOutput{}
			out.Body.Success = true
			out.Body.Data = cleanupData{
				DeletedCount:  deleted,
				OlderThanDays: days,
				Message:       "cleanup complete",
			}
			return out, nil
		})
}

func defaultStr(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}

func defaultInt(val, fallback int) int {
	if val == 0 {
		return fallback
	}
	return val
}
