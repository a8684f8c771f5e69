package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpapi "devbay/internal/api/http"
	"devbay/internal/api/http/logstream"
	"devbay/internal/catalog"
	"devbay/internal/config"
	"devbay/internal/core/audit"
	"devbay/internal/core/lifecycle"
	"devbay/internal/engine/docker"
	"devbay/internal/portalloc"
	"devbay/internal/queue"
	"devbay/internal/store/alm"
	"devbay/internal/store/ism"
	"devbay/internal/store/usm"
)

func main() {
	configPath := flag.String("config", "/etc/devbay/config.yml", "path to the config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("load config failed", zap.Error(err))
	}

	// == stores ==
	ismStore, err := ism.NewIsmStore(filepath.Join(cfg.DataDir, "instances"))
	if err != nil {
		logger.Fatal("open instance store failed", zap.Error(err))
	}
	defer ismStore.Close()
	almStore, err := alm.NewAlmStore(filepath.Join(cfg.DataDir, "audit"))
	if err != nil {
		logger.Fatal("open audit store failed", zap.Error(err))
	}
	defer almStore.Close()
	usmStore, err := usm.NewUsmStore(filepath.Join(cfg.DataDir, "users"))
	if err != nil {
		logger.Fatal("open user store failed", zap.Error(err))
	}
	defer usmStore.Close()

	ismManager := ism.NewIsmManager(ismStore)
	almManager := alm.NewAlmManager(almStore)
	usmManager := usm.NewUsmManager(usmStore)

	// seed users from config
	for _, user := range cfg.Users {
		if err := usmManager.StoreUser(usm.UserRecord{
			UserId:       user.Id,
			Username:     user.Username,
			Role:         user.Role,
			MaxInstances: user.MaxInstances,
		}); err != nil {
			logger.Fatal("seed user failed", zap.String("userId", user.Id), zap.Error(err))
		}
	}

	// == catalog ==
	catalogManager := catalog.NewCatalogManager(cfg.CatalogPath, logger)
	if err := catalogManager.Load(); err != nil {
		logger.Fatal("load catalog failed", zap.Error(err))
	}
	go func() {
		if err := catalogManager.Watch(); err != nil {
			logger.Warn("catalog watch unavailable", zap.Error(err))
		}
	}()

	// == engine ==
	driver, err := docker.NewDriver(cfg.EngineHost, logger)
	if err != nil {
		logger.Fatal("engine client failed", zap.Error(err))
	}

	// == services ==
	allocator := portalloc.NewPortAllocator(cfg.PortRange.Start, cfg.PortRange.End)
	recorder := audit.NewRecorder(almManager, usmManager, logger)
	lifecycleService := lifecycle.NewLifecycleService(
		ismManager, usmManager, catalogManager, allocator, driver, recorder, logger,
	)

	// == queue ==
	nc, err := queue.Connect(cfg.NatsUrl, logger)
	if err != nil {
		logger.Fatal("nats connect failed", zap.Error(err))
	}
	publisher := queue.NewPublisher(nc, logger)
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := queue.NewWorkerPool(
		nc,
		lifecycleService,
		cfg.Workers,
		cfg.CreateRetry.Attempts,
		time.Duration(cfg.CreateRetry.BackoffSeconds)*time.Second,
		logger,
	)
	if err := pool.Start(ctx); err != nil {
		logger.Fatal("worker pool failed", zap.Error(err))
	}

	// == rest api ==
	handler := httpapi.NewRequestHandler(
		ismManager, usmManager, almManager, catalogManager, allocator,
		publisher, lifecycleService, logger,
	)
	streamHandler := logstream.NewRequestHandler(lifecycleService, logger)
	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: httpapi.NewApiRouter(handler, streamHandler),
	}
	go func() {
		logger.Info("api server listening", zap.String("addr", cfg.Listen))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server failed", zap.Error(err))
		}
	}()

	// == shutdown ==
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", zap.Error(err))
	}
	cancel()
	pool.Stop()
}
