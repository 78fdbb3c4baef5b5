package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greenridge/replen/internal/api"
	"github.com/greenridge/replen/internal/cache"
	"github.com/greenridge/replen/internal/config"
	"github.com/greenridge/replen/internal/history"
	"github.com/greenridge/replen/internal/service"
	"github.com/greenridge/replen/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.App.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var store *history.Store
	if cfg.History.BankDir != "" {
		if err := os.MkdirAll(cfg.History.BankDir, 0o755); err != nil {
			logger.Log.Fatal().Err(err).Msg("could not create memory bank directory")
		}
		var err error
		store, err = history.Open(filepath.Join(cfg.History.BankDir, "memory-bank.db"))
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("could not open memory bank")
		}
		defer store.Close()
	}

	velocityCache, err := cache.NewVelocityCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("cache unavailable, continuing without it")
		velocityCache = cache.NewNoopVelocityCache()
	}

	services := &api.Services{
		Analysis: service.NewAnalysisService(cfg, store),
		History:  service.NewHistoryService(store, cfg.History, cfg.Columns, velocityCache),
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Log.Info().Msg("server exited")
}
