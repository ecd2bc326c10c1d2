package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"github.com/AdamBeresnev/op-tournaments/internal/cache"
	"github.com/AdamBeresnev/op-tournaments/internal/config"
	"github.com/AdamBeresnev/op-tournaments/internal/db"
	"github.com/AdamBeresnev/op-tournaments/internal/metrics"
	"github.com/AdamBeresnev/op-tournaments/internal/service"
	"github.com/AdamBeresnev/op-tournaments/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bracketCache cache.Cache = cache.Noop{}
	if cfg.RedisURL != "" {
		redisCache, err := cache.Connect(ctx, cfg.RedisURL, "tournaments:")
		if err != nil {
			slog.Warn("redis unavailable, serving brackets uncached", "error", err)
		} else {
			defer redisCache.Close()
			bracketCache = redisCache
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []service.Option{
		service.WithCache(bracketCache, cfg.CacheTTL),
		service.WithMetrics(metrics.New(registry)),
		service.WithDefaults(cfg.MapPool, cfg.DefaultBestOf),
	}
	tournamentStore := store.NewTournamentStore(database)
	h := &handlers{
		tournaments: service.NewTournamentService(database, tournamentStore, opts...),
		matches:     service.NewMatchService(database, tournamentStore, opts...),
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.SweepInterval, func() {
		if _, err := h.matches.SweepTimeouts(ctx); err != nil {
			slog.Error("timeout sweep failed", "error", err)
		}
	}); err != nil {
		log.Fatal("Invalid sweep interval:", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(h, registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
