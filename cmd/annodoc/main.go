package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/annodoc/internal/config"
	dbRedis "github.com/kailas-cloud/annodoc/internal/db/redis"
	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
	logpkg "github.com/kailas-cloud/annodoc/internal/logger"
	"github.com/kailas-cloud/annodoc/internal/metrics"
	"github.com/kailas-cloud/annodoc/internal/ocr"
	documentrepo "github.com/kailas-cloud/annodoc/internal/repository/document"
	chiTransport "github.com/kailas-cloud/annodoc/internal/transport/chi"
	documentuc "github.com/kailas-cloud/annodoc/internal/usecase/document"
	healthuc "github.com/kailas-cloud/annodoc/internal/usecase/health"
	"github.com/kailas-cloud/annodoc/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, logpkg.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting annodoc API server",
		zap.String("build", version.Get().String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("ocr", cfg.OCR.Enabled),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterDocumentMetrics()

	// Annotations without a registered decoder come back as span groups.
	registry := annotation.NewRegistry()

	ctx := context.Background()
	repo, pinger, closeStore := buildRepository(ctx, cfg, registry, logger)
	defer closeStore()

	// Pass nil interface (not typed nil pointer!) when OCR is disabled.
	var recognizer documentuc.Recognizer
	var ocrChecker healthuc.OCRChecker
	if cfg.OCR.Enabled {
		engine, err := ocr.NewEngine(cfg.OCR.Language)
		if err != nil {
			logger.Fatal("Failed to start OCR engine", zap.Error(err))
		}
		defer func() { _ = engine.Close() }()

		rec := ocr.NewRecognizer(engine, logger)
		recognizer = rec
		ocrChecker = rec
		logger.Info("OCR enabled", zap.String("language", cfg.OCR.Language))
	}

	docSvc := documentuc.New(
		documentuc.NewInstrumentedRepository(repo, cfg.Storage.Driver, logger),
		recognizer, registry, logger,
	)
	healthSvc := healthuc.New(pinger, ocrChecker)

	server := chiTransport.NewServer(docSvc, healthSvc, registry, logger).
		WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildRepository creates document storage for the configured driver and
// returns it with its health pinger and a close func.
func buildRepository(
	ctx context.Context,
	cfg config.Config,
	registry *annotation.Registry,
	logger *zap.Logger,
) (documentuc.Repository, healthuc.StoragePinger, func()) {
	switch cfg.Storage.Driver {
	case config.DriverFilesystem:
		repo, err := documentrepo.NewDirRepo(cfg.Storage.Dir, cfg.Storage.ImagesInJSON, registry)
		if err != nil {
			logger.Fatal("Failed to open storage dir", zap.Error(err))
		}
		logger.Info("Using filesystem storage", zap.String("dir", cfg.Storage.Dir))
		return repo, repo, func() {}
	case config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
		return documentrepo.New(store, cfg.Storage.KeyPrefix, registry), store, store.Close
	default:
		logger.Fatal("Unknown storage driver", zap.String("driver", cfg.Storage.Driver))
		return nil, nil, nil
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternal,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
