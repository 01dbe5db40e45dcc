package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/quillpress/internal/blobstore"
	"github.com/quillpress/internal/config"
	"github.com/quillpress/internal/db"
	"github.com/quillpress/internal/handler"
	"github.com/quillpress/internal/router"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	config.SetupLogger(cfg)
	gin.SetMode(cfg.GinMode)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 初始化存储
	store, err := db.Open(ctx, db.Options{
		Driver:        cfg.DocstoreDriver,
		DatabasePath:  cfg.DatabasePath,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DocstoreDriver).Msg("failed to open document store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("close document store")
		}
	}()

	blobs, err := blobstore.Open(ctx, blobstore.Options{
		Driver:        cfg.BlobstoreDriver,
		UploadDir:     cfg.UploadDir,
		UploadURLPath: cfg.UploadURLPath,
		S3: blobstore.S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.BlobstoreDriver).Msg("failed to open blob store")
	}

	api := handler.NewAPI(handler.Dependencies{
		Store:    store,
		Blobs:    blobs,
		PageSize: cfg.PageSize,
	})

	opts := router.Options{
		SessionSecret: cfg.SessionSecret,
		UploadURLPath: cfg.UploadURLPath,
		SecureCookies: cfg.GinMode == gin.ReleaseMode,
	}
	// 本地存储时由本服务提供上传文件
	if cfg.BlobstoreDriver == "" || cfg.BlobstoreDriver == blobstore.DriverLocal {
		opts.UploadDir = cfg.UploadDir
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.SetupRouter(api, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to run server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
