package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/oggyb/destined/internal/app"
	"github.com/oggyb/destined/internal/auth"
	"github.com/oggyb/destined/internal/cache"
	"github.com/oggyb/destined/internal/config"
	"github.com/oggyb/destined/internal/db"
	"github.com/oggyb/destined/internal/logger"
	"github.com/oggyb/destined/internal/metrics"
	"github.com/oggyb/destined/internal/realtime"
	"github.com/oggyb/destined/internal/server"
	"github.com/oggyb/destined/internal/service/friendrequest"
	"github.com/oggyb/destined/internal/service/liking"
	"github.com/oggyb/destined/internal/service/profilematch"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	appCtx := app.New(cfg, database, redisCache, log, metrics.New(reg))

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database, 50); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	jwt := auth.NewJWTService(cfg.Auth)
	registry := realtime.NewRegistry(log, appCtx.Metrics)
	socket := realtime.NewHandler(appCtx, registry, jwt)
	friendrequest.NewService(appCtx, registry).Register(socket)

	router := server.NewRouter(appCtx, jwt, reg,
		liking.NewRegistrar(appCtx),
		profilematch.NewRegistrar(appCtx),
		socket,
	)

	health := server.NewHealthRegistrar()
	grpcServer := server.NewGRPCServer(health)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.StartHTTPServer(ctx, appCtx, router)
	})
	g.Go(func() error {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		return server.StartGRPCServer(ctx, cfg, grpcServer)
	})
	g.Go(func() error {
		<-ctx.Done()
		health.Shutdown()
		registry.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
