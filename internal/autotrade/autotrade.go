// Package autotrade runs a scheduled paper-trading loop: it periodically
// scans a watchlist for strategy signals, opens and closes simulated
// positions, and persists trades, signals, and open positions.
package autotrade

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"backlab/internal/domain"
	"backlab/internal/fetch"
	"backlab/internal/store"
	"backlab/internal/strategy"
)

// Options configures a Trader.
type Options struct {
	Watchlist        []string
	Strategy         string
	InitialCapital   float64
	PositionFraction float64
	ScanInterval     time.Duration
	MaxTradesPerDay  int
	MaxDailyLoss     float64
	StopLossPercent  float64 // e.g. 0.02 for 2%
	TargetPercent    float64 // e.g. 0.05 for 5%
	LookbackDays     int
}

func (o *Options) withDefaults() {
	if o.InitialCapital <= 0 {
		o.InitialCapital = 100000
	}
	if o.PositionFraction <= 0 {
		o.PositionFraction = 0.1
	}
	if o.ScanInterval <= 0 {
		o.ScanInterval = 30 * time.Minute
	}
	if o.MaxTradesPerDay <= 0 {
		o.MaxTradesPerDay = 5
	}
	if o.MaxDailyLoss <= 0 {
		o.MaxDailyLoss = 2000
	}
	if o.StopLossPercent <= 0 {
		o.StopLossPercent = 0.02
	}
	if o.TargetPercent <= 0 {
		o.TargetPercent = 0.05
	}
	if o.LookbackDays <= 0 {
		o.LookbackDays = 90
	}
}

// Trader scans a watchlist on a schedule and executes simulated orders.
type Trader struct {
	opts      Options
	fetcher   fetch.Fetcher
	strat     strategy.Strategy
	trades    store.TradeStore
	signals   store.SignalStore
	positions store.PositionStore
	log       *slog.Logger

	mu          sync.Mutex
	available   float64
	open        map[string]*domain.Position
	tradesToday int
	dailyPnL    float64
	day         time.Time // midnight of the current trading day
}

// NewTrader creates a Trader. The strategy is resolved from the registry by
// the name in opts.
func NewTrader(opts Options, f fetch.Fetcher, reg *strategy.Registry, trades store.TradeStore, signals store.SignalStore, positions store.PositionStore) (*Trader, error) {
	opts.withDefaults()

	strat, ok := reg.Get(opts.Strategy)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", opts.Strategy)
	}

	return &Trader{
		opts:      opts,
		fetcher:   f,
		strat:     strat,
		trades:    trades,
		signals:   signals,
		positions: positions,
		log:       slog.Default().With("component", "autotrade"),
		available: opts.InitialCapital,
		open:      make(map[string]*domain.Position),
	}, nil
}

// Restore loads open positions from the position store and deducts their
// cost from available capital. Call once before Start.
func (t *Trader) Restore(ctx context.Context) error {
	saved, err := t.positions.ListPositions(ctx)
	if err != nil {
		return fmt.Errorf("loading positions: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range saved {
		pos := saved[i]
		t.open[pos.Symbol] = &pos
		t.available -= pos.Cost
	}
	if len(saved) > 0 {
		t.log.Info("restored positions", "count", len(saved), "available", t.available)
	}
	return nil
}

// Start runs the scan loop on a cron schedule until the context is
// cancelled.
func (t *Trader) Start(ctx context.Context) error {
	c := cron.New()
	spec := fmt.Sprintf("@every %s", t.opts.ScanInterval)
	if _, err := c.AddFunc(spec, func() {
		if err := t.RunOnce(ctx); err != nil {
			t.log.Error("scan cycle failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("registering scan task: %w", err)
	}

	// First cycle runs immediately rather than waiting one interval.
	if err := t.RunOnce(ctx); err != nil {
		t.log.Error("scan cycle failed", "err", err)
	}

	c.Start()
	t.log.Info("autotrader started", "interval", t.opts.ScanInterval, "watchlist", len(t.opts.Watchlist))

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	t.log.Info("autotrader stopped")
	return ctx.Err()
}

// RunOnce executes a single scan cycle: refresh daily limits, check open
// positions against stop-loss and target, then evaluate watchlist signals.
func (t *Trader) RunOnce(ctx context.Context) error {
	t.rollDay(time.Now())

	for _, symbol := range t.opts.Watchlist {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := t.scanSymbol(ctx, symbol); err != nil {
			t.log.Error("scanning symbol failed", "symbol", symbol, "err", err)
		}
	}
	return nil
}

// rollDay resets the per-day trade and loss counters when the calendar day
// changes.
func (t *Trader) rollDay(now time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	t.mu.Lock()
	defer t.mu.Unlock()
	if !midnight.Equal(t.day) {
		t.day = midnight
		t.tradesToday = 0
		t.dailyPnL = 0
	}
}

func (t *Trader) scanSymbol(ctx context.Context, symbol string) error {
	end := time.Now()
	start := end.AddDate(0, 0, -t.opts.LookbackDays)

	bars, err := t.fetcher.Historical(ctx, symbol, start, end)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", symbol, err)
	}
	if len(bars) < t.strat.Warmup() {
		t.log.Debug("insufficient history", "symbol", symbol, "bars", len(bars))
		return nil
	}

	frame := t.strat.Prepare(bars)

	last := len(bars) - 1

	// Prefer a live quote for the decision price; fall back to the last
	// close when the provider has none.
	price, err := t.fetcher.Quote(ctx, symbol)
	if err != nil || price <= 0 {
		price = bars[last].Close
	}
	now := time.Now()

	t.mu.Lock()
	pos, held := t.open[symbol]
	t.mu.Unlock()

	if held {
		// Stop-loss and target take priority over the strategy exit.
		switch {
		case price <= pos.StopLoss:
			return t.sell(ctx, pos, price, now, "stop-loss")
		case price >= pos.Target:
			return t.sell(ctx, pos, price, now, "target")
		case t.strat.ShouldExit(frame, last, pos):
			return t.sell(ctx, pos, price, now, "signal")
		}
		return nil
	}

	if t.strat.ShouldEnter(frame, last) {
		return t.buy(ctx, symbol, price, now)
	}
	return nil
}

// buy opens a simulated position when daily limits and capital allow.
func (t *Trader) buy(ctx context.Context, symbol string, price float64, now time.Time) error {
	t.mu.Lock()

	if t.tradesToday >= t.opts.MaxTradesPerDay {
		t.mu.Unlock()
		t.log.Info("max trades per day reached", "symbol", symbol)
		return nil
	}
	if t.dailyPnL <= -t.opts.MaxDailyLoss {
		t.mu.Unlock()
		t.log.Info("daily loss limit reached", "symbol", symbol, "dailyPnL", t.dailyPnL)
		return nil
	}

	quantity := int64(math.Floor(t.available * t.opts.PositionFraction / price))
	if quantity < 1 {
		t.mu.Unlock()
		t.log.Info("insufficient capital", "symbol", symbol, "available", t.available, "price", price)
		return nil
	}

	cost := float64(quantity) * price
	pos := &domain.Position{
		Symbol:     symbol,
		Strategy:   t.strat.Name(),
		EntryPrice: price,
		Quantity:   quantity,
		EntryTime:  now,
		Cost:       cost,
		StopLoss:   price * (1 - t.opts.StopLossPercent),
		Target:     price * (1 + t.opts.TargetPercent),
	}
	t.open[symbol] = pos
	t.available -= cost
	t.tradesToday++
	t.mu.Unlock()

	t.log.Info("buy",
		"symbol", symbol,
		"price", price,
		"quantity", quantity,
		"cost", cost,
	)

	if err := t.positions.SavePosition(ctx, pos); err != nil {
		return fmt.Errorf("saving position: %w", err)
	}
	ev := &domain.SignalEvent{
		Symbol:    symbol,
		Strategy:  t.strat.Name(),
		Signal:    domain.SignalBuy,
		Price:     price,
		Timestamp: now,
	}
	if err := t.signals.SaveSignal(ctx, ev); err != nil {
		return fmt.Errorf("saving signal: %w", err)
	}
	return nil
}

// sell closes a simulated position and records the trade.
func (t *Trader) sell(ctx context.Context, pos *domain.Position, price float64, now time.Time, reason string) error {
	trade := domain.NewTrade(pos, price, now)

	t.mu.Lock()
	delete(t.open, pos.Symbol)
	t.available += float64(pos.Quantity) * price
	t.dailyPnL += trade.Profit
	t.mu.Unlock()

	t.log.Info("sell",
		"symbol", pos.Symbol,
		"entry", pos.EntryPrice,
		"exit", price,
		"quantity", pos.Quantity,
		"profit", trade.Profit,
		"profitPercent", trade.ProfitPercent,
		"reason", reason,
	)

	if err := t.positions.DeletePosition(ctx, pos.Symbol); err != nil {
		return fmt.Errorf("deleting position: %w", err)
	}
	if err := t.trades.SaveTrade(ctx, &trade); err != nil {
		return fmt.Errorf("saving trade: %w", err)
	}
	ev := &domain.SignalEvent{
		Symbol:    pos.Symbol,
		Strategy:  t.strat.Name(),
		Signal:    domain.SignalSell,
		Price:     price,
		Timestamp: now,
	}
	if err := t.signals.SaveSignal(ctx, ev); err != nil {
		return fmt.Errorf("saving signal: %w", err)
	}
	return nil
}

// Status is a snapshot of the trader's current state.
type Status struct {
	Available     float64
	OpenPositions int
	TradesToday   int
	DailyPnL      float64
}

// Status returns a snapshot of capital, open positions, and daily counters.
func (t *Trader) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		Available:     t.available,
		OpenPositions: len(t.open),
		TradesToday:   t.tradesToday,
		DailyPnL:      t.dailyPnL,
	}
}
