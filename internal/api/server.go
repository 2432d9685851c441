package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dgnsrekt/chart_vault/internal/chartimg"
	"github.com/dgnsrekt/chart_vault/internal/fault"
	"github.com/dgnsrekt/chart_vault/internal/images"
	"github.com/dgnsrekt/chart_vault/internal/objstore"
	"github.com/dgnsrekt/chart_vault/internal/store"
)

const Version = "1.0.0"

// ChartService renders chart images after business validation.
type ChartService interface {
	CreateSnapshot(ctx context.Context, req chartimg.Request) (chartimg.Generation, error)
}

// StorageService persists and serves stored chart images.
type StorageService interface {
	Upload(ctx context.Context, gen chartimg.Generation) (store.UploadResult, error)
	Get(ctx context.Context, name string) (*objstore.Object, error)
}

// ImageService lists, aggregates, and removes stored images.
type ImageService interface {
	List(ctx context.Context, opts images.ListOptions) (store.ListResult, error)
	Statistics(ctx context.Context, symbol string) (images.Statistics, error)
	Delete(ctx context.Context, name string) error
	CleanupOlderThan(ctx context.Context, days int) (int, error)
}

// errorResponse is the failure envelope: {"success":false,"error":"..."}.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"error"`

	status int
}

func (e *errorResponse) Error() string  { return e.Message }
func (e *errorResponse) GetStatus() int { return e.status }

func init() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		if message == "" && len(errs) > 0 {
			message = errs[0].Error()
		}
		return &errorResponse{Message: message, status: status}
	}
}

func NewServer(charts ChartService, storage StorageService, imgs ImageService) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	cfg := huma.DefaultConfig("Chart Vault API", Version)
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	registerRootHandlers(api)
	registerImageHandlers(api, charts, storage, imgs)

	return router
}

// mapErr is the single point translating error codes into HTTP statuses.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *fault.CodedError
	if errors.As(err, &coded) {
		msg := coded.Message
		if coded.Cause != nil {
			msg = fmt.Sprintf("%s: %v", coded.Message, coded.Cause)
		}
		switch coded.Code {
		case fault.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case fault.CodeNotFound:
			return huma.Error404NotFound(coded.Message)
		case fault.CodeProviderTimeout:
			return huma.Error504GatewayTimeout(msg)
		case fault.CodeProvider, fault.CodeGeneration:
			return huma.Error502BadGateway(msg)
		case fault.CodeUploadFailed:
			return huma.Error503ServiceUnavailable(msg)
		default:
			return huma.Error500InternalServerError(msg)
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
