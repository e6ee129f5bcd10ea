package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/knet-ai/research-client/internal/chat"
	"github.com/knet-ai/research-client/internal/config"
	"github.com/knet-ai/research-client/internal/gateway"
	"github.com/knet-ai/research-client/internal/logger"
	"github.com/knet-ai/research-client/internal/transport"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	log := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))

	gin.SetMode(cfg.GinMode)

	store, err := chat.NewStore(log, cfg.StoragePath)
	if err != nil {
		log.Error("failed to open local store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	channel := transport.NewChannel(log, cfg.BackendWSURL, cfg.ReconnectAttempts, cfg.ReconnectDelay)
	manager := chat.NewManager(log, store, channel, chat.OptionsFromDefaults(cfg.Research))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Transport pump: Run reconnects on its own; the dispatch loop below is
	// the single consumer of the inbound event stream.
	go func() {
		if err := channel.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("transport stopped", slog.String("error", err.Error()))
		}
	}()

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		for event := range channel.Events() {
			manager.HandleEvent(event)
		}
	}()

	// Periodic best-effort backup of the local store.
	backups := cron.New()
	retention := time.Duration(cfg.BackupRetentionDays) * 24 * time.Hour
	if _, err := backups.AddFunc(cfg.BackupCronSpec, func() {
		if err := store.Backup(retention); err != nil {
			log.Error("store backup failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		log.Error("invalid backup cron spec", slog.String("spec", cfg.BackupCronSpec), slog.String("error", err.Error()))
	} else {
		backups.Start()
	}

	handler := gateway.NewHandler(log, manager)
	router := gateway.NewRouter(handler, cfg.CORSAllowedOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("research client listening",
			slog.String("port", cfg.Port),
			slog.String("backend", cfg.BackendWSURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	backups.Stop()
	cancel()
	<-dispatchDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ServerShutdownTimeoutSeconds)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", slog.String("error", err.Error()))
	}

	log.Info("goodbye")
}
