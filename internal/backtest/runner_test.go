package backtest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"backlab/internal/domain"
	"backlab/internal/indicator"
	"backlab/internal/strategy"
	"backlab/internal/strategy/builtins"
)

func series(closes ...float64) domain.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(domain.Series, len(closes))
	for i, c := range closes {
		s[i] = domain.Bar{
			Symbol:    "TEST",
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return s
}

// scriptedStrategy enters and exits on fixed bar indexes.
type scriptedStrategy struct {
	enterAt map[int]bool
	exitAt  map[int]bool
}

func (s *scriptedStrategy) Name() string  { return "scripted" }
func (s *scriptedStrategy) Warmup() int   { return 0 }
func (s *scriptedStrategy) Prepare(bars domain.Series) *indicator.Frame {
	return indicator.NewFrame(bars)
}
func (s *scriptedStrategy) Signal(_ *indicator.Frame, i int) domain.Signal {
	switch {
	case s.enterAt[i]:
		return domain.SignalBuy
	case s.exitAt[i]:
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}
func (s *scriptedStrategy) ShouldEnter(_ *indicator.Frame, i int) bool { return s.enterAt[i] }
func (s *scriptedStrategy) ShouldExit(_ *indicator.Frame, i int, _ *domain.Position) bool {
	return s.exitAt[i]
}

// memStore is an in-memory BarStore for runner tests.
type memStore struct {
	bars map[string]domain.Series
}

func (m *memStore) WriteBars(_ context.Context, bars []domain.Bar) error {
	for _, b := range bars {
		if m.bars == nil {
			m.bars = make(map[string]domain.Series)
		}
		m.bars[b.Symbol] = append(m.bars[b.Symbol], b)
	}
	return nil
}

func (m *memStore) ReadBars(_ context.Context, symbol string, _, _ time.Time) (domain.Series, error) {
	return m.bars[symbol], nil
}

func (m *memStore) ListSymbols(_ context.Context) ([]string, error) {
	var out []string
	for sym := range m.bars {
		out = append(out, sym)
	}
	return out, nil
}

func TestRunSeriesSingleRoundTrip(t *testing.T) {
	// Entry at close 100 on bar 1, exit at close 110 on bar 3. With 100000
	// capital and a 10% fraction the entry quantity is floor(10000/100)=100.
	bars := series(100, 100, 105, 110, 110)
	strat := &scriptedStrategy{
		enterAt: map[int]bool{1: true},
		exitAt:  map[int]bool{3: true},
	}

	r := NewRunner(nil, nil)
	res, err := r.RunSeries(context.Background(), strat, "TEST", bars, Config{
		InitialCapital:   100000,
		PositionFraction: 0.1,
	})
	if err != nil {
		t.Fatalf("RunSeries returned error: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(res.Trades))
	}
	tr := res.Trades[0]
	if tr.Quantity != 100 {
		t.Errorf("Quantity = %d, want 100", tr.Quantity)
	}
	if tr.Profit != 1000 {
		t.Errorf("Profit = %v, want 1000", tr.Profit)
	}
	if tr.ProfitPercent != 10 {
		t.Errorf("ProfitPercent = %v, want 10", tr.ProfitPercent)
	}
	if res.Stats.FinalCapital != 101000 {
		t.Errorf("FinalCapital = %v, want 101000", res.Stats.FinalCapital)
	}
}

func TestRunSeriesForcedCloseout(t *testing.T) {
	bars := series(100, 100, 120, 130, 140)
	strat := &scriptedStrategy{enterAt: map[int]bool{1: true}}

	r := NewRunner(nil, nil)
	res, err := r.RunSeries(context.Background(), strat, "TEST", bars, Config{})
	if err != nil {
		t.Fatalf("RunSeries returned error: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("trades = %d, want 1 (forced close-out)", len(res.Trades))
	}
	last := bars[len(bars)-1]
	tr := res.Trades[0]
	if !tr.ExitTime.Equal(last.Timestamp) {
		t.Errorf("ExitTime = %v, want last bar timestamp %v", tr.ExitTime, last.Timestamp)
	}
	if tr.ExitPrice != last.Close {
		t.Errorf("ExitPrice = %v, want last close %v", tr.ExitPrice, last.Close)
	}
}

func TestRunSeriesEmptyAndShortSeries(t *testing.T) {
	r := NewRunner(nil, nil)
	strat := builtins.NewMACross(2, 4)

	for _, bars := range []domain.Series{nil, series(100, 101)} {
		res, err := r.RunSeries(context.Background(), strat, "TEST", bars, Config{})
		if err != nil {
			t.Fatalf("RunSeries(%d bars) returned error: %v", len(bars), err)
		}
		if len(res.Trades) != 0 {
			t.Errorf("trades = %d, want 0", len(res.Trades))
		}
		if res.Stats.ReturnPercent != 0 {
			t.Errorf("ReturnPercent = %v, want 0", res.Stats.ReturnPercent)
		}
	}
}

func TestRunSeriesRejectsMalformedSeries(t *testing.T) {
	bars := series(100, 101, 102)
	bars[2].Timestamp = bars[0].Timestamp // break monotonicity

	r := NewRunner(nil, nil)
	_, err := r.RunSeries(context.Background(), &scriptedStrategy{}, "TEST", bars, Config{})
	if err == nil {
		t.Fatal("RunSeries returned nil error for non-monotonic series")
	}
	var de *domain.DataError
	if !errors.As(err, &de) {
		t.Errorf("error type = %T, want wrapped *domain.DataError", err)
	}
}

func TestRunSeriesFlatSeriesNoTrades(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	r := NewRunner(nil, nil)
	res, err := r.RunSeries(context.Background(), builtins.NewMACross(20, 50), "TEST", series(closes...), Config{})
	if err != nil {
		t.Fatalf("RunSeries returned error: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Errorf("trades = %d on flat series, want 0", len(res.Trades))
	}
	if res.Stats.ReturnPercent != 0 {
		t.Errorf("ReturnPercent = %v, want 0", res.Stats.ReturnPercent)
	}
}

func TestRunSeriesDeterminism(t *testing.T) {
	bars := series(11, 12, 13, 14, 13, 12, 11, 10, 11, 12, 13, 14, 15)
	strat := builtins.NewMACross(2, 4)
	r := NewRunner(nil, nil)

	first, err := r.RunSeries(context.Background(), strat, "TEST", bars, Config{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.RunSeries(context.Background(), strat, "TEST", bars, Config{})
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first.Trades, second.Trades) {
		t.Errorf("trade lists differ between identical runs:\n  %+v\n  %+v", first.Trades, second.Trades)
	}
	if first.Stats != second.Stats {
		t.Errorf("stats differ between identical runs:\n  %+v\n  %+v", first.Stats, second.Stats)
	}
}

func TestRunSeriesInsufficientCapitalSkips(t *testing.T) {
	// 10% of 50 buys nothing at price 100; both entries are refused and the
	// run continues to completion.
	bars := series(100, 100, 100, 100)
	strat := &scriptedStrategy{enterAt: map[int]bool{1: true, 2: true}}

	r := NewRunner(nil, nil)
	res, err := r.RunSeries(context.Background(), strat, "TEST", bars, Config{InitialCapital: 50})
	if err != nil {
		t.Fatalf("RunSeries returned error: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Errorf("trades = %d, want 0", len(res.Trades))
	}
	if res.SkippedSignals != 2 {
		t.Errorf("SkippedSignals = %d, want 2", res.SkippedSignals)
	}
}

func TestRunSeriesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(nil, nil)
	_, err := r.RunSeries(ctx, &scriptedStrategy{}, "TEST", series(100, 101), Config{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RunSeries error = %v, want context.Canceled", err)
	}
}

func TestRunReadsFromStore(t *testing.T) {
	ms := &memStore{bars: map[string]domain.Series{"TCS": series(11, 12, 13, 14, 13, 12, 11, 10, 11, 12, 13, 14, 15)}}
	reg := strategy.NewRegistry()
	reg.Register(builtins.NewMACross(2, 4))

	r := NewRunner(ms, reg)
	res, err := r.Run(context.Background(), "ma-cross", "TCS", time.Time{}, time.Time{}, Config{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	// Golden cross at index 9 (close 12), forced close-out at the last bar
	// (close 15).
	if len(res.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(res.Trades))
	}
	if res.Trades[0].EntryPrice != 12 || res.Trades[0].ExitPrice != 15 {
		t.Errorf("trade prices = %v -> %v, want 12 -> 15", res.Trades[0].EntryPrice, res.Trades[0].ExitPrice)
	}

	if _, err := r.Run(context.Background(), "bogus", "TCS", time.Time{}, time.Time{}, Config{}); err == nil {
		t.Error("Run with unknown strategy returned nil error")
	}
}

func TestRunAll(t *testing.T) {
	bars := series(11, 12, 13, 14, 13, 12, 11, 10, 11, 12, 13, 14, 15)
	ms := &memStore{bars: map[string]domain.Series{}}
	for _, sym := range []string{"AAA", "BBB", "CCC"} {
		s := make(domain.Series, len(bars))
		copy(s, bars)
		for i := range s {
			s[i].Symbol = sym
		}
		ms.bars[sym] = s
	}

	reg := strategy.NewRegistry()
	reg.Register(builtins.NewMACross(2, 4))
	reg.Register(builtins.NewRSIReversion(0, 0, 0))
	r := NewRunner(ms, reg)

	jobs := []Job{
		{Strategy: "ma-cross", Symbol: "AAA"},
		{Strategy: "ma-cross", Symbol: "BBB"},
		{Strategy: "rsi-reversion", Symbol: "CCC"},
		{Strategy: "missing", Symbol: "AAA"},
	}
	results, err := r.RunAll(context.Background(), jobs, time.Time{}, time.Time{}, Config{}, 2)
	if err != nil {
		t.Fatalf("RunAll returned error: %v", err)
	}
	if len(results) != len(jobs) {
		t.Fatalf("results length = %d, want %d", len(results), len(jobs))
	}

	for i := 0; i < 3; i++ {
		if results[i] == nil {
			t.Errorf("results[%d] is nil, want completed run", i)
		}
	}
	if results[3] != nil {
		t.Error("results[3] != nil for unknown strategy, want nil")
	}

	// Identical series through the same strategy must produce identical
	// trades regardless of which worker ran them.
	if results[0] != nil && results[1] != nil {
		a, b := results[0], results[1]
		if len(a.Trades) != len(b.Trades) {
			t.Fatalf("trade counts differ: %d vs %d", len(a.Trades), len(b.Trades))
		}
		for i := range a.Trades {
			if a.Trades[i].Profit != b.Trades[i].Profit {
				t.Errorf("trade %d profit differs: %v vs %v", i, a.Trades[i].Profit, b.Trades[i].Profit)
			}
		}
	}
}
