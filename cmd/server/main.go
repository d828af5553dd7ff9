package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"vehiclefinder/internal/api"
	"vehiclefinder/internal/api/handlers"
	"vehiclefinder/internal/config"
	"vehiclefinder/internal/geo"
	"vehiclefinder/internal/logger"
	"vehiclefinder/internal/repository"
	"vehiclefinder/internal/repository/memory"
	"vehiclefinder/internal/repository/redis"
	"vehiclefinder/internal/services"
)

var configPath = kingpin.Flag("config", "Path to a YAML config file.").Short('c').Envar("VF_CONFIG").String()

func main() {
	kingpin.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.L().WithError(err).Fatal("Failed to load configuration")
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("Server exited")
		os.Exit(1)
	}
	log.Info("Server stopped")
}

// run serves until the process is signalled. Everything it opens is closed
// by its defers before it returns.
func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize repositories
	positionRepo := memory.NewPositionRepository()
	lockManager := memory.NewLockManager(time.Minute)
	defer lockManager.Stop()

	var cache repository.ResultCache
	if cfg.Cache.RedisAddr != "" {
		resultCache := redis.NewResultCache(redis.Open(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB))
		if err := resultCache.Ping(ctx); err != nil {
			log.WithError(err).Warn("Redis unreachable, serving without result cache")
			resultCache.Close()
		} else {
			defer resultCache.Close()
			cache = resultCache
		}
	}

	// Initialize spatial index and services
	spatialIndex := geo.NewSpatialIndex(cfg.Index.Domain, cfg.Index.MaxDepth)
	indexService := services.NewIndexService(cfg, spatialIndex, positionRepo, lockManager, cache)

	openSource := func(ctx context.Context) (repository.PositionSource, func() error, error) {
		return services.OpenSource(ctx, cfg.Source)
	}

	// Build the first index before accepting requests
	source, closeSource, err := openSource(ctx)
	if err != nil {
		return errors.Wrap(err, "open position source")
	}
	_, err = indexService.Load(ctx, source)
	closeSource()
	if err != nil {
		return errors.Wrap(err, "build index")
	}

	// Setup router
	router := api.NewRouter(
		handlers.NewNearestHandler(indexService),
		handlers.NewVehicleHandler(indexService),
		handlers.NewIndexHandler(indexService, openSource),
		cfg.Auth.AdminToken,
	)
	engine := gin.New()
	engine.Use(gin.Recovery())
	router.Setup(engine)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Graceful shutdown failed")
		}
	}()

	// Start server
	log.Infof("Starting vehicle finder server on %s", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	return nil
}
