package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appcfg "github.com/park285/cashout-chess/internal/config"
	"github.com/park285/cashout-chess/internal/archive"
	"github.com/park285/cashout-chess/internal/msgcat"
	"github.com/park285/cashout-chess/internal/obslog"
	"github.com/park285/cashout-chess/internal/render"
	"github.com/park285/cashout-chess/internal/room"
	"github.com/park285/cashout-chess/internal/roomstore"
	"github.com/park285/cashout-chess/internal/transport/poll"
	"github.com/park285/cashout-chess/internal/transport/push"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.Sync() }()
	logger := obslog.L()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages init error: %v", err)
	}

	reg := room.NewRegistry(room.WithCodeLength(cfg.RoomCodeLength))

	ctx := context.Background()
	var store *roomstore.Store
	if cfg.RedisURL != "" {
		store, err = roomstore.Open(ctx, cfg.RedisURL, cfg.RoomTTL)
		if err != nil {
			log.Fatalf("room store init error: %v", err)
		}
		snaps, err := store.LoadAll(ctx)
		if err != nil {
			logger.Warn("room_restore_load_error", zap.Error(err))
		}
		n := reg.Restore(ctx, snaps)
		logger.Info("room_restore_done", zap.Int("loaded", len(snaps)), zap.Int("restored", n))
		reg.AddObserver(store)
	}

	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		reg.AddObserver(repo)
	}

	hub := push.NewHub(reg, cat)
	reg.AddObserver(hub)

	gin.SetMode(gin.ReleaseMode)
	pollSrv := poll.New(reg, cat)
	pushSrv := push.NewServer(cfg.PushAddr, hub, push.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Renderer:       render.New(),
	})

	errCh := make(chan error, 2)
	go func() {
		logger.Info("poll_listen", zap.String("addr", cfg.PollAddr))
		errCh <- pollSrv.ListenAndServe(cfg.PollAddr)
	}()
	go func() {
		logger.Info("push_listen", zap.String("addr", cfg.PushAddr))
		errCh <- pushSrv.ListenAndServe()
	}()

	// Wait for termination signal or a listener failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("listener_error", zap.Error(err))
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := pushSrv.Shutdown(sctx); err != nil {
		logger.Warn("push_shutdown_error", zap.Error(err))
	}
	if err := pollSrv.Shutdown(sctx); err != nil {
		logger.Warn("poll_shutdown_error", zap.Error(err))
	}
	if store != nil {
		_ = store.Close()
	}
	if repo != nil {
		_ = repo.Close()
	}
	logger.Info("shutdown_complete", zap.Any("metrics", reg.Metrics().Snapshot()))
}
