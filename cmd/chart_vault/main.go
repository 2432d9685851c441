package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/chart_vault/internal/api"
	"github.com/dgnsrekt/chart_vault/internal/chart"
	"github.com/dgnsrekt/chart_vault/internal/chartimg"
	"github.com/dgnsrekt/chart_vault/internal/config"
	"github.com/dgnsrekt/chart_vault/internal/images"
	"github.com/dgnsrekt/chart_vault/internal/objstore"
	"github.com/dgnsrekt/chart_vault/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("chart_vault config loaded",
		"bind_addr", cfg.BindAddr,
		"chartimg_base_url", cfg.ChartImgBaseURL,
		"chartimg_timeout_ms", cfg.ChartImgTimeoutMS,
		"storage_bucket", cfg.StorageBucket,
		"public_domain", cfg.PublicDomain,
		"max_pixels", cfg.MaxPixels,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	s3Client, err := objstore.NewS3Client(context.Background(),
		cfg.StorageEndpoint, cfg.StorageRegion, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		slog.Error("failed to create storage client", "endpoint", cfg.StorageEndpoint, "error", err)
		os.Exit(1)
	}
	bucket := objstore.NewS3Bucket(s3Client, cfg.StorageBucket)

	provider := chartimg.NewClient(cfg.ChartImgBaseURL, cfg.ChartImgAPIKey,
		time.Duration(cfg.ChartImgTimeoutMS)*time.Millisecond)

	chartSvc := chart.NewService(provider, chart.Policy{
		MaxPixels:        cfg.MaxPixels,
		AllowedExchanges: cfg.AllowedExchanges,
		PopularTokens:    cfg.PopularTokens,
		DefaultTimeout:   time.Duration(cfg.ChartImgTimeoutMS) * time.Millisecond,
		FastTimeout:      time.Duration(cfg.FastTimeoutMS) * time.Millisecond,
	})
	storeSvc := store.NewService(bucket, cfg.PublicDomain)
	imageSvc := images.NewService(storeSvc)

	h := api.NewServer(chartSvc, storeSvc, imageSvc)
	srv := &http.Server{Addr: cfg.BindAddr, Handler: h}

	go func() {
		slog.Info("chart_vault listening", "addr", cfg.BindAddr, "docs", "http://"+cfg.BindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("chart_vault server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("chart_vault shutdown failed", "error", err)
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
