package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"quantpaper/internal/broker"
	"quantpaper/internal/config"
	"quantpaper/internal/engine"
	"quantpaper/internal/hub"
	"quantpaper/internal/provider"
	"quantpaper/internal/server"
	"quantpaper/internal/util"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", envOr("QUANTPAPER_CONFIG", "configs/config.yaml"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := util.NewLogger("info")
		fallback.Fatal().Err(err).Str("path", *configPath).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	prov, err := provider.New(cfg.Provider)
	if err != nil {
		log.Fatal().Err(err).Msg("build provider")
	}

	recorders := []broker.OrderRecorder{broker.NewLedger(1000)}
	if cfg.Broker.OrdersPath != "" {
		jsonl, err := broker.NewJSONLRecorder(cfg.Broker.OrdersPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Broker.OrdersPath).Msg("open order log")
		}
		defer jsonl.Close()
		recorders = append(recorders, jsonl)
	}
	account := broker.NewAccount(
		cfg.Broker.StartingCash,
		broker.FractionOfCash{Fraction: cfg.Broker.CashFraction},
		cfg.Broker.LotSize,
		recorders...,
	)

	h := hub.New(cfg.App.Symbols, cfg.Hub.QueueSize, cfg.KeepaliveTimeout(), log)
	eng := engine.New(cfg, prov, account, h, log)
	eng.Start(ctx)
	defer eng.Stop()

	srv := server.New(cfg.App.Name, h, cfg.KeepaliveTimeout(), log)
	httpSrv := &http.Server{
		Addr:              cfg.App.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.App.ListenAddr).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
