package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/syanhg/moltmarket/internal/api"
	"github.com/syanhg/moltmarket/internal/benchmark"
	"github.com/syanhg/moltmarket/internal/config"
	"github.com/syanhg/moltmarket/internal/kv"
	"github.com/syanhg/moltmarket/internal/logger"
	"github.com/syanhg/moltmarket/internal/market"
	"github.com/syanhg/moltmarket/internal/social"
)

const serverVersion = "0.1.0-dev"

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	flag.Parse()

	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		logger.Initialize("info")
		logger.Logger.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		logger.Initialize("info")
		logger.Logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.Initialize(cfg.LogLevel)
	log := logger.GetForComponent("main")

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to open store")
	}

	markets := market.NewClient(cfg.Market.CLOBBaseURL, cfg.Market.GammaBaseURL)
	socialSvc := social.NewService(store)
	engine := benchmark.NewEngine(store, markets)
	srv := api.NewServer(store, socialSvc, engine, markets, serverVersion)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", server.Addr).Str("backend", cfg.StoreBackend).Msg("moltmarket-server listening")
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server error")
	}
	<-shutdownDone
}

func openStore(cfg config.Config) (kv.Store, error) {
	switch cfg.StoreBackend {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return kv.NewRedisStore(ctx, cfg.RedisURL)
	case "sqlite":
		return kv.NewSQLiteStore(cfg.SQLitePath)
	case "memory":
		return kv.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
