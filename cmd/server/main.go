package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wordroom/wordroom-server/config"
	"github.com/wordroom/wordroom-server/internal/catalog"
	"github.com/wordroom/wordroom-server/internal/handlers"
	"github.com/wordroom/wordroom-server/internal/lifecycle"
	"github.com/wordroom/wordroom-server/internal/logging"
	"github.com/wordroom/wordroom-server/internal/repo"
	"github.com/wordroom/wordroom-server/internal/rounds"
	"github.com/wordroom/wordroom-server/internal/store"
	"github.com/wordroom/wordroom-server/internal/sweeper"
	"github.com/wordroom/wordroom-server/internal/watch"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := store.Connect(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	st := store.NewRedis(redisClient, logger)

	db, err := catalog.Open(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("failed to connect to Postgres", zap.Error(err))
	}
	cat := catalog.New(db, logger)
	if err := cat.Migrate(ctx); err != nil {
		logger.Fatal("failed to migrate catalog", zap.Error(err))
	}
	if err := cat.Seed(ctx); err != nil {
		logger.Fatal("failed to seed catalog", zap.Error(err))
	}

	rooms := repo.NewRooms(st, logger)
	players := repo.NewPlayers(st, logger)
	svc := lifecycle.New(rooms, players, cat, logger)
	hub := watch.NewHub(ctx, rooms, logger)
	runner := rounds.NewRunner(cat, svc, st, logger)
	defer runner.Stop()

	sw := sweeper.New(rooms, svc, st, logger, cfg.WaitingTTL, cfg.FinishedTTL)
	if err := sw.Start(cfg.SweepSpec); err != nil {
		logger.Fatal("failed to start sweeper", zap.Error(err))
	}
	defer sw.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logging.RequestLogger(logger), gin.Recovery())
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))

	server := handlers.NewServer(cfg.JWTSecret, players, rooms, svc, cat, runner, hub, logger)
	server.Routes(router)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
