package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/api"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/config"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/engine"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/logging"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/netmon"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/publish"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/remote"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := baseLogger.With().Str("component", "syncd-main").Logger()

	queueStore, err := store.New(cfg.Database.Path, baseLogger)
	if err != nil {
		return err
	}
	defer queueStore.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	memState := publish.NewMemoryPublisher(cfg.Engine.LogCapacity)
	publisher := buildPublisher(ctx, cfg, memState, baseLogger, &logger)

	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout(), cfg.Remote.RPS, cfg.Remote.Burst, baseLogger)
	executor := remote.NewExecutor(client)

	eng, err := engine.New(queueStore, executor, remote.Classify, publisher, baseLogger, engine.Options{
		MaxRetries:  cfg.Engine.MaxRetries,
		DeferLimit:  cfg.Engine.DeferLimit,
		BackoffBase: cfg.Engine.BackoffBaseDuration(),
		BackoffMax:  cfg.Engine.BackoffMaxDuration(),
		LogCapacity: cfg.Engine.LogCapacity,
	})
	if err != nil {
		return err
	}

	monitor := netmon.New(client, cfg.Remote.Probe(), eng.HandleNetworkUp, eng.HandleNetworkDown, baseLogger)
	go monitor.Start(ctx)

	if cfg.API.Enabled {
		apiServer := api.NewHTTPServer(cfg.API, eng, memState, cfg.Exports.Path, baseLogger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		backupService := store.NewBackupService(cfg.Database.Path, cfg.Backup, baseLogger)
		go backupService.Start(ctx)
	}

	logger.Info().
		Str("db", cfg.Database.Path).
		Str("remote", cfg.Remote.BaseURL).
		Msg("sync daemon started")

	// Drain whatever survived the last shutdown.
	eng.TriggerSync()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	return nil
}

// buildPublisher wires the in-memory state cache, Prometheus counters and,
// when configured, the Redis mirror into a single fanout sink.
func buildPublisher(ctx context.Context, cfg *config.Config, memState *publish.MemoryPublisher, baseLogger *zerolog.Logger, logger *zerolog.Logger) engine.Publisher {
	sinks := []engine.Publisher{memState, publish.NewMetricsPublisher()}

	if cfg.Redis.Address != "" {
		redisClient := publish.NewRedisClient(cfg.Redis)

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := publish.Ping(pingCtx, redisClient); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable at startup, mirror will retry in background")
		}
		sinks = append(sinks, publish.NewRedisPublisher(redisClient, time.Hour, baseLogger))
	}

	return publish.NewFanout(sinks...)
}

func startMetricsServer(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
