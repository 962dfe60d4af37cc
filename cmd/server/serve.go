package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/internal/db"
	"github.com/portfolio/internal/docstore"
	"github.com/portfolio/internal/handler"
	"github.com/portfolio/internal/router"
	"github.com/portfolio/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// serveCmd 启动 HTTP 服务
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, gdb, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer db.Close(gdb)

	gin.SetMode(cfg.GinMode)

	if err := db.EnsureUser(gdb, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	store := docstore.NewGormStore(gdb, logger)
	defer store.Close()

	if cfg.StoreWatch {
		if path := db.FilePath(cfg.DatabasePath); path != "" {
			if err := store.Watch(path); err != nil {
				logger.Warn("store watcher disabled", zap.Error(err))
			}
		}
	}

	relay := service.NewContactRelay(cfg.ContactAccessKey, cfg.ContactEndpoint, cfg.ContactFromName, logger)
	api := handler.NewAPI(gdb, store, handler.Options{
		UploadDir: cfg.UploadDir,
		UploadURL: cfg.UploadURLPath,
		Relay:     relay,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 内容库不可用时仍然启动，前台回落到默认内容
	if err := api.Start(ctx); err != nil {
		logger.Warn("initial content load incomplete", zap.Error(err))
	}
	defer api.Close()

	r, err := router.SetupRouter(api, router.Options{
		SessionSecret: cfg.SessionSecret,
		UploadDir:     cfg.UploadDir,
		UploadURLPath: cfg.UploadURLPath,
		SecureCookie:  strings.HasPrefix(cfg.SiteBaseURL, "https://"),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown 只等待连接空闲，SSE 长连接需要主动结束
	srv.RegisterOnShutdown(api.CloseStreams)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.ListenAddr), zap.Bool("contactConfigured", cfg.ContactConfigured()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("run server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}
