package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eventgallery/gallery/config"
	"github.com/eventgallery/gallery/controller"
	mw "github.com/eventgallery/gallery/middlewares"
	"github.com/eventgallery/gallery/route"
	"github.com/eventgallery/gallery/services"
	"github.com/eventgallery/gallery/storage"
	"github.com/eventgallery/gallery/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := utils.NewLogger(cfg.IsDevelopment())
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.DotEnvLoaded {
		logger.Debug("no .env file found, using process environment")
	}

	// Missing keys do not stop the process; every upload and listing call
	// reports them until the environment is fixed and the server restarted.
	if missing := cfg.MissingKeys(); len(missing) > 0 {
		logger.Errorw("Configuration error: set missing environment variables and restart",
			"missing_variables", missing)
	} else {
		logger.Infow("environment configuration validated", "driver", cfg.Store.Driver, "bucket", cfg.Store.Bucket,
			"prefix", cfg.MediaPrefix, "max_upload_bytes", cfg.MaxUploadBytes)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}

	uploads := services.NewUploadService(cfg, store, logger)
	gallery := services.NewGalleryService(cfg, store, logger)

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(mw.RequestLogger(logger))
	router.MaxMultipartMemory = 32 << 20

	handlers := route.Handlers{
		Photos:  controller.NewPhotoController(gallery, cfg.ListDefaultMaxKeys),
		Uploads: controller.NewUploadController(uploads, cfg.MaxUploadBytes),
	}
	if cfg.UploadRateLimit > 0 {
		handlers.Limiter = mw.NewRateLimiter(cfg.UploadRateLimit, 10*time.Minute)
		go handlers.Limiter.Run(ctx)
	}
	route.Register(router, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("starting gallery server", "addr", srv.Addr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("shutdown completed")
	return nil
}
