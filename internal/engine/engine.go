// Package engine runs one pipeline per symbol: fetch tick, update
// indicators, evaluate the strategy, execute against the shared account,
// publish the composite event. Stages for one symbol always complete in
// order before its next tick; account mutations from all symbols are
// serialized through a single applier goroutine.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"quantpaper/internal/broker"
	"quantpaper/internal/config"
	"quantpaper/internal/hub"
	"quantpaper/internal/indicator"
	"quantpaper/internal/market"
	"quantpaper/internal/metrics"
	"quantpaper/internal/provider"
	"quantpaper/internal/strategy"
)

type execReq struct {
	sig   market.Signal
	tick  market.Tick
	reply chan market.AccountView
}

// Engine owns the provider, the per-symbol pipelines, the paper account,
// and the broadcast hub for one trading session.
type Engine struct {
	cfg      *config.Config
	log      zerolog.Logger
	provider provider.Provider
	account  *broker.Account
	hub      *hub.Hub

	execCh chan execReq

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New wires an engine from validated configuration and its collaborators.
func New(cfg *config.Config, prov provider.Provider, account *broker.Account, h *hub.Hub, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		log:      log,
		provider: prov,
		account:  account,
		hub:      h,
		execCh:   make(chan execReq),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Hub exposes the broadcast hub for the transport layer.
func (e *Engine) Hub() *hub.Hub { return e.hub }

// Start launches the applier, the hub reaper, and one pipeline per symbol.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true

	ctx, e.cancel = context.WithCancel(ctx)

	e.hub.Seed(e.account.View(nil))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runApplier(ctx)
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.hub.Run(ctx)
	}()

	for _, symbol := range e.cfg.App.Symbols {
		e.startSymbolLocked(ctx, symbol)
	}
	e.log.Info().Strs("symbols", e.cfg.App.Symbols).Dur("interval", e.cfg.Interval()).Msg("engine started")
}

// startSymbolLocked must run under e.mu.
func (e *Engine) startSymbolLocked(ctx context.Context, symbol string) {
	symCtx, cancel := context.WithCancel(ctx)
	e.cancels[symbol] = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		e.runPipeline(symCtx, symbol)
	}()
}

// StopSymbol cancels one symbol's subscription; its pipeline goroutine,
// indicator history, and strategy memory go with it.
func (e *Engine) StopSymbol(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cancel, ok := e.cancels[symbol]; ok {
		cancel()
		delete(e.cancels, symbol)
	}
}

// Stop cancels every pipeline, waits for them, closes the provider, and
// clears the hub.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
	if err := e.provider.Close(); err != nil {
		e.log.Warn().Err(err).Msg("provider close")
	}
	e.hub.Shutdown()

	e.mu.Lock()
	e.started = false
	e.cancels = make(map[string]context.CancelFunc)
	e.mu.Unlock()
	e.log.Info().Msg("engine stopped")
}

// runApplier is the single owner of account mutations and the mark-price
// table. Every pipeline calls it synchronously, so per-symbol ordering is
// preserved while cross-symbol access is serialized.
func (e *Engine) runApplier(ctx context.Context) {
	marks := make(map[string]float64, len(e.cfg.App.Symbols))
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-e.execCh:
			marks[req.tick.Symbol] = req.tick.Price
			if req.sig.Kind != market.Hold {
				e.account.Execute(req.sig, req.tick.Price)
			}
			req.reply <- e.account.View(marks)
		}
	}
}

func (e *Engine) execute(ctx context.Context, sig market.Signal, tick market.Tick) (market.AccountView, bool) {
	req := execReq{sig: sig, tick: tick, reply: make(chan market.AccountView, 1)}
	select {
	case e.execCh <- req:
	case <-ctx.Done():
		return market.AccountView{}, false
	}
	select {
	case view := <-req.reply:
		return view, true
	case <-ctx.Done():
		return market.AccountView{}, false
	}
}

// runPipeline processes one symbol sequentially: the four stages of a tick
// finish before the next tick starts. Indicator and strategy state live in
// this goroutine, so cancellation releases them.
func (e *Engine) runPipeline(ctx context.Context, symbol string) {
	params := e.cfg.Strategy.Params
	indicators := indicator.New(params.ShortPeriod, params.LongPeriod, params.RSIPeriod)
	strat := strategy.Build(e.cfg.Strategy.Mode, strategy.Params{
		ShortPeriod: params.ShortPeriod,
		LongPeriod:  params.LongPeriod,
		RSIPeriod:   params.RSIPeriod,
		Oversold:    params.Oversold,
		Overbought:  params.Overbought,
	})

	interval := e.cfg.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		e.step(ctx, symbol, indicators, strat, interval)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) step(ctx context.Context, symbol string, indicators *indicator.Engine, strat strategy.Strategy, timeout time.Duration) {
	if ctx.Err() != nil {
		return
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	tick, err := e.provider.Fetch(fetchCtx, symbol)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.ProviderErrorsTotal.WithLabelValues(symbol).Inc()
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("provider fetch failed")
		e.hub.PublishError(market.ErrorEvent{Symbol: symbol, Err: err.Error(), Ts: time.Now().UTC()})
		return
	}

	metrics.TicksTotal.WithLabelValues(symbol).Inc()
	ind := indicators.Update(symbol, tick.Price)
	sig := strat.OnTick(tick, ind)
	if sig.Kind != market.Hold {
		metrics.SignalsTotal.WithLabelValues(symbol, string(sig.Kind)).Inc()
		e.log.Info().Str("symbol", symbol).Str("kind", string(sig.Kind)).Str("reason", sig.Reason).Msg("signal")
	}

	view, ok := e.execute(ctx, sig, tick)
	if !ok {
		return
	}
	e.hub.Publish(market.Event{Tick: tick, Indicators: ind, Signal: sig, Account: view})
}
