// Command tpooldemo serves a small HTTP/1.0 API backed by tpool: basic
// string/math handlers run inline, while "/sleep", "/isprime", "/factor"
// and friends are dispatched through named worker pools, with an optional
// asynchronous job-tracking layer under /jobs/*.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kolayne/go-tpool/internal/config"
	"github.com/kolayne/go-tpool/internal/router"
	"github.com/kolayne/go-tpool/internal/server"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	rt, err := router.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build router", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		rt.Close()
		os.Exit(0)
	}()

	s := server.New(rt, logger)
	logger.Info("starting HTTP/1.0 server", zap.String("addr", cfg.ListenAddr))
	if err := s.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Fatal("listen failed", zap.Error(err))
	}
}
