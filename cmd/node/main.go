package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"distkv/internal/config"
	"distkv/internal/node"
	"distkv/internal/persist"
	"distkv/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "distkv-node",
		Level: hclog.Info,
	})

	cfg, err := config.LoadNode(*configPath)
	if err != nil {
		logger.Error("loading config failed", "error", err)
		os.Exit(1)
	}

	db, err := persist.OpenBolt(cfg.DataPath)
	if err != nil {
		logger.Error("opening database failed", "path", cfg.DataPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	st, err := store.New(db, cfg.MaxCacheSize)
	if err != nil {
		logger.Error("creating store failed", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: node.NewServer(st, db, logger).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("node listening", "addr", cfg.ListenAddr, "data", cfg.DataPath, "max_cache_size", cfg.MaxCacheSize)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
