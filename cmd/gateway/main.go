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
	"distkv/internal/gateway"
	"distkv/internal/ring"
	"distkv/internal/router"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "distkv-gateway",
		Level: hclog.Info,
	})

	cfg, err := config.LoadGateway(*configPath)
	if err != nil {
		logger.Error("loading config failed", "error", err)
		os.Exit(1)
	}

	r := ring.New(cfg.VirtualNodes)
	for _, server := range cfg.Servers {
		r.AddNode(server)
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: gateway.NewServer(router.New(r), logger).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("gateway listening", "addr", cfg.ListenAddr, "servers", cfg.Servers, "virtual_nodes", cfg.VirtualNodes)
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
