package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/vthibault/annonce/internal/core/config"
	"github.com/vthibault/annonce/internal/guard/classify"
	"github.com/vthibault/annonce/internal/guard/dispatch"
	"github.com/vthibault/annonce/internal/guard/identity"
	"github.com/vthibault/annonce/internal/guard/pacing"
	"github.com/vthibault/annonce/internal/guard/policy"
	"github.com/vthibault/annonce/internal/guard/retry"
	"github.com/vthibault/annonce/internal/infra/redis"
	"github.com/vthibault/annonce/internal/infra/storage/postgres"
	"github.com/vthibault/annonce/internal/metrics"
	"github.com/vthibault/annonce/internal/server"
	"github.com/vthibault/annonce/internal/upstream"
	"github.com/vthibault/annonce/internal/upstream/transport"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// No .env is fine, the environment may be set by the host.
		slog.Debug("no .env file loaded", "error", err)
	}

	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})))
	log := slog.Default()
	log.Info("Logger initialized", "level", slogLevel.String())

	policies, err := policy.NewStore(cfg.Protection)
	if err != nil {
		log.Error("Invalid protection policy", "error", err)
		os.Exit(1)
	}

	identities := cfg.Identities
	if len(identities) == 0 {
		identities = identity.DefaultCatalog()
	}
	pool, err := identity.New(identities, cfg.Proxies.Endpoints, cfg.Proxies.CooldownCycles)
	if err != nil {
		log.Error("Failed to build identity pool", "error", err)
		os.Exit(1)
	}
	log.Info("Identity pool ready",
		"identities", len(identities),
		"proxies", len(cfg.Proxies.Endpoints),
	)

	var cache dispatch.Cache
	if cfg.Redis.URL != "" {
		c, err := redis.NewCache(cfg.Redis, log)
		if err != nil {
			log.Error("Failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		cache = c
		log.Info("Response cache enabled")
	}

	var (
		journal       dispatch.Journal
		journalReader server.JournalReader
	)
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			log.Error("Failed to init db", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		repo := postgres.NewJournalRepo(db)
		journal = repo
		journalReader = repo
		log.Info("Attempt journal enabled")
	}

	governor := pacing.New(policies)
	classifier := classify.New(cfg.Challenge.Markers)
	controller := retry.New(policies, governor, pool, classifier, log)
	executor := transport.New(cfg.Upstream.Timeout)
	dispatcher := dispatch.New(controller, executor, cache, journal, log)
	ads := upstream.New(dispatcher, cfg.Upstream.BaseURL, cfg.Upstream.Timeout)

	srv := server.New(ads, policies, pool, journalReader, cfg.Server.Port, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", "port", cfg.Server.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		collectProxyHealth(gCtx, pool)
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("Stopped gracefully")
}

// collectProxyHealth mirrors the pool's health flags into the gauge.
func collectProxyHealth(ctx context.Context, pool *identity.Pool) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, st := range pool.HealthSnapshot() {
				v := 0.0
				if st.Healthy {
					v = 1.0
				}
				metrics.ProxyHealthy.WithLabelValues(st.Addr).Set(v)
			}
		}
	}
}
