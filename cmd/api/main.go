package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	server "ambulance_app/internal/adapters/http_server"
	"ambulance_app/internal/adapters/observability"
	"ambulance_app/internal/adapters/overpass"
	redisad "ambulance_app/internal/adapters/redis"
	"ambulance_app/internal/app"
	"ambulance_app/internal/shared"
	mysqlrepo "ambulance_app/internal/storage/mysql"
)

func main() {
	envErr := godotenv.Load()
	cfg, err := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)
	if envErr != nil {
		log.Debug().Msg("no .env file found (using environment variables)")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(context.Background()); err != nil {
		log.Warn().Err(err).Msg("redis unreachable; searches will go to the provider")
	}

	provider, err := overpass.New(cfg.OverpassURL, cfg.OverpassRPS, cfg.OverpassMaxRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Overpass client")
	}

	repo := mysqlrepo.New(db)
	search := app.NewSearchService(provider, cache, cfg.SearchConfig())
	favorites := app.NewFavoritesService(repo, cache, cfg.CacheTTL)
	requests := app.NewRequestService(repo, cfg.AverageSpeedKmh)

	// http
	srv := server.New(cfg.SearchTimeout + 5*time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Facilities:      app.NewFacilityService(search, favorites),
		Favorites:       favorites,
		Requests:        requests,
		AverageSpeedKmh: cfg.AverageSpeedKmh,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("overpass", cfg.OverpassURL).
		Dur("search_timeout", cfg.SearchTimeout).
		Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
