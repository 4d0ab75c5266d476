// Binary sim runs the pipeline headless against the simulated provider and
// logs every signal and order. Useful for watching a strategy behave without
// standing up the HTTP surface.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"quantpaper/internal/broker"
	"quantpaper/internal/config"
	"quantpaper/internal/engine"
	"quantpaper/internal/hub"
	"quantpaper/internal/market"
	"quantpaper/internal/provider"
	"quantpaper/internal/util"
)

func main() {
	symbols := flag.String("symbols", "600000", "comma separated symbols")
	intervalMs := flag.Int("interval", 200, "tick interval in milliseconds")
	duration := flag.Duration("duration", 30*time.Second, "how long to run, 0 for until interrupt")
	cash := flag.Float64("cash", 100000, "starting cash")
	mode := flag.String("strategy", config.StrategyMACross, "strategy mode")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random walk seed")
	flag.Parse()

	log := util.NewLogger("info")

	cfg := &config.Config{}
	cfg.App.Symbols = strings.Split(*symbols, ",")
	cfg.App.IntervalMs = *intervalMs
	cfg.Provider.Type = config.ProviderSimulated
	cfg.Provider.Simulated.Seed = *seed
	cfg.Strategy.Mode = *mode
	cfg.Strategy.Params = config.StrategyParams{ShortPeriod: 5, LongPeriod: 20, RSIPeriod: 14}
	cfg.Broker.StartingCash = *cash
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid flags")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	prov, err := provider.New(cfg.Provider)
	if err != nil {
		log.Fatal().Err(err).Msg("build provider")
	}

	ledger := broker.NewLedger(1000)
	account := broker.NewAccount(cfg.Broker.StartingCash, broker.FractionOfCash{Fraction: cfg.Broker.CashFraction}, cfg.Broker.LotSize, ledger)
	h := hub.New(cfg.App.Symbols, cfg.Hub.QueueSize, cfg.KeepaliveTimeout(), log)
	eng := engine.New(cfg, prov, account, h, log)

	eng.Start(ctx)
	sess := h.Register()

	// Stopping the engine closes every session queue, which ends the loop
	// below.
	go func() {
		<-ctx.Done()
		eng.Stop()
	}()

	log.Info().Strs("symbols", cfg.App.Symbols).Str("strategy", cfg.Strategy.Mode).Msg("simulation started")

	for raw := range sess.Out() {
		var msg hub.TickMsg
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "tick" {
			continue
		}
		if msg.Signal != market.Hold {
			log.Info().
				Str("symbol", msg.Symbol).
				Float64("price", msg.Price).
				Str("signal", string(msg.Signal)).
				Str("reason", msg.SignalMeta.Reason).
				Float64("cash", msg.Broker.Cash).
				Float64("equity", msg.Broker.Equity).
				Msg("signal")
		}
	}

	orders := ledger.Snapshot()
	final := account.View(nil)
	log.Info().
		Int("orders", len(orders)).
		Float64("cash", final.Cash).
		Float64("equity", final.Equity).
		Msg("simulation finished")
}
