// Package main is the entry point for the arena session server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lunarfang/werewolf-arena/internal/infra/experience"
	"github.com/lunarfang/werewolf-arena/internal/infra/storage"
	"github.com/lunarfang/werewolf-arena/internal/platform/config"
	"github.com/lunarfang/werewolf-arena/internal/platform/logger"
	"github.com/lunarfang/werewolf-arena/internal/platform/metrics"
	"github.com/lunarfang/werewolf-arena/internal/transport"
)

func main() {
	appLogger := logger.New()
	appLogger.Info("Initializing arena session server...")

	cfg, err := config.Load()
	if err != nil {
		appLogger.Error(err.Error())
		os.Exit(1)
	}

	appLogger.Infof("Initializing SQLite database %q...", cfg.DBPath)
	db, err := storage.InitSQLite(cfg.DBPath)
	if err != nil {
		appLogger.Error("failed to initialize sqlite: " + err.Error())
		os.Exit(1)
	}
	defer db.Close()

	repo := storage.NewSessionRepository(db)
	expStore, err := experience.NewStore(db, appLogger)
	if err != nil {
		appLogger.Error("failed to initialize experience store: " + err.Error())
		os.Exit(1)
	}

	stepServer := transport.NewStepServer(repo, expStore, appLogger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", stepServer.ServeWS)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		appLogger.Infof("HTTP API & WS server listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed: " + err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("shutdown failed: " + err.Error())
	}
}
