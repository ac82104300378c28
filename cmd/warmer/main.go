package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"ambulance_app/internal/adapters/observability"
	"ambulance_app/internal/adapters/overpass"
	redisad "ambulance_app/internal/adapters/redis"
	"ambulance_app/internal/app"
	"ambulance_app/internal/domain"
	"ambulance_app/internal/shared"
	mysqlrepo "ambulance_app/internal/storage/mysql"
)

// failureLog is optional; without a database the warmer only logs.
type failureLog interface {
	LogFetchFailure(ctx context.Context, origin domain.Coordinate, radiusMeters int, reason string) error
}

func main() {
	_ = godotenv.Load()
	cfg, err := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if len(cfg.WarmOrigins) == 0 {
		log.Fatal().Msg("WARM_ORIGINS is empty; nothing to warm")
	}
	if cfg.CacheTTL <= 0 {
		log.Fatal().Msg("CACHE_TTL_SECONDS must be positive to warm the cache")
	}

	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("overpass", cfg.OverpassURL).
		Int("workers", cfg.WarmWorkers).
		Int("origins", len(cfg.WarmOrigins)).
		Msg("warmer starting")

	var failures failureLog
	if db, err := sql.Open("mysql", cfg.MySQLDSN); err != nil {
		log.Warn().Err(err).Msg("sql.Open failed; fetch failures will not be recorded")
	} else if err := db.PingContext(ctx); err != nil {
		log.Warn().Err(err).Msg("db.Ping failed; fetch failures will not be recorded")
		_ = db.Close()
	} else {
		defer db.Close()
		failures = mysqlrepo.New(db)
	}

	client, err := overpass.New(cfg.OverpassURL, cfg.OverpassRPS, cfg.OverpassMaxRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Overpass client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("redis unreachable")
	}

	search := app.NewSearchService(client, cache, cfg.SearchConfig())
	sem := semaphore.NewWeighted(int64(cfg.WarmWorkers))
	var wg sync.WaitGroup
	var failed atomic.Int32

	for _, origin := range cfg.WarmOrigins {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("warming interrupted")
			break
		}

		wg.Add(1)
		go func(o domain.Coordinate) {
			defer wg.Done()
			defer sem.Release(1)

			n, err := search.Warm(ctx, o)
			if err != nil {
				failed.Add(1)
				log.Warn().Str("origin", o.String()).Err(err).Msg("warm failed")
				if failures != nil {
					if lerr := failures.LogFetchFailure(ctx, o, search.Config().RadiusMeters, err.Error()); lerr != nil {
						log.Error().Err(lerr).Msg("record fetch failure")
					}
				}
				return
			}
			log.Info().Str("origin", o.String()).Int("records", n).Msg("warm ok")
		}(origin)
	}

	wg.Wait()
	log.Info().Int32("failed", failed.Load()).Msg("warming completed")
	if failed.Load() > 0 {
		os.Exit(1)
	}
}
