package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"backlab/internal/domain"
	"backlab/internal/store"
	"backlab/internal/strategy"
)

// Config holds the capital parameters of a run. Zero values select the
// defaults: 100000 initial capital and a 10% position fraction.
type Config struct {
	InitialCapital   float64
	PositionFraction float64
}

func (c Config) withDefaults() Config {
	if c.InitialCapital <= 0 {
		c.InitialCapital = 100000
	}
	if c.PositionFraction <= 0 || c.PositionFraction > 1 {
		c.PositionFraction = 0.1
	}
	return c
}

// Result holds the artifacts of one backtest run: the ordered trade list and
// the aggregate statistics.
type Result struct {
	Symbol         string
	Strategy       string
	InitialCapital float64
	Trades         []domain.Trade
	Stats          Stats
	SkippedSignals int
}

// Runner drives backtest runs. It reads bars from a store and looks up
// strategies in a registry; series already in hand can be replayed directly
// with RunSeries.
type Runner struct {
	bars     store.BarStore
	registry *strategy.Registry
	log      *slog.Logger
}

// NewRunner creates a Runner that reads bars from the given store and looks
// up strategies in the provided registry.
func NewRunner(barStore store.BarStore, registry *strategy.Registry) *Runner {
	return &Runner{
		bars:     barStore,
		registry: registry,
		log:      slog.Default().With("component", "backtest"),
	}
}

// Run executes a backtest for the named strategy over the symbol and date
// range, reading bars from the runner's store.
func (r *Runner) Run(ctx context.Context, strategyName, symbol string, from, to time.Time, cfg Config) (*Result, error) {
	strat, ok := r.registry.Get(strategyName)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", strategyName)
	}

	bars, err := r.bars.ReadBars(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("reading bars for %s: %w", symbol, err)
	}
	return r.RunSeries(ctx, strat, symbol, bars, cfg)
}

// RunSeries replays the series through the strategy bar by bar in
// chronological order. The strategy only ever sees bars up to the current
// index, decisions execute at the close of the bar that produced them, and
// any position still open at the final bar is force-closed so the run ends
// flat. An empty or too-short series yields zero trades and zero stats, not
// an error.
func (r *Runner) RunSeries(ctx context.Context, strat strategy.Strategy, symbol string, bars domain.Series, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()

	if err := domain.ValidateSeries(bars); err != nil {
		return nil, fmt.Errorf("validating series for %s: %w", symbol, err)
	}

	res := &Result{
		Symbol:         symbol,
		Strategy:       strat.Name(),
		InitialCapital: cfg.InitialCapital,
	}
	if len(bars) == 0 {
		res.Stats = ComputeStats(nil, cfg.InitialCapital)
		return res, nil
	}

	frame := strat.Prepare(bars)
	ledger := NewLedger(cfg.InitialCapital)

	for i := range bars {
		// Cooperative cancellation between bar iterations; a completed
		// run is never partially reported.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		price := bars[i].Close
		ts := bars[i].Timestamp

		if pos := ledger.Position(symbol); pos != nil {
			if strat.ShouldExit(frame, i, pos) {
				if _, err := ledger.Exit(symbol, price, ts); err != nil {
					return nil, err
				}
			}
			continue
		}

		if !strat.ShouldEnter(frame, i) {
			continue
		}
		qty := ledger.Size(price, cfg.PositionFraction)
		if qty == 0 {
			ledger.MarkSkipped()
			r.log.Debug("entry refused", "symbol", symbol, "price", price, "available", ledger.Available())
			continue
		}
		if _, err := ledger.Enter(symbol, strat.Name(), price, qty, ts); err != nil {
			return nil, err
		}
	}

	// Forced close-out: every run ends fully flat.
	if ledger.Position(symbol) != nil {
		last := bars[len(bars)-1]
		if _, err := ledger.Exit(symbol, last.Close, last.Timestamp); err != nil {
			return nil, err
		}
	}

	res.Trades = ledger.Trades()
	res.SkippedSignals = ledger.Skipped()
	res.Stats = ComputeStats(res.Trades, cfg.InitialCapital)

	r.log.Info("backtest complete",
		"symbol", symbol,
		"strategy", strat.Name(),
		"bars", len(bars),
		"trades", res.Stats.TotalTrades,
		"return_pct", res.Stats.ReturnPercent,
	)
	return res, nil
}
